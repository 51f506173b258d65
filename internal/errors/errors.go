package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure the conversation can run into.
type Kind string

const (
	KindMalformedInput      Kind = "malformed_input"
	KindInvalidAmount       Kind = "invalid_amount"
	KindAmountExceedsLimit  Kind = "amount_exceeds_limit"
	KindUnknownUser         Kind = "unknown_user"
	KindUnknownReference    Kind = "unknown_reference"
	KindInsufficientBalance Kind = "insufficient_balance"
	KindTransportFailure    Kind = "transport_failure"
	KindIncompleteContext   Kind = "incomplete_context"
)

// Error carries a Kind together with a human readable message and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Code satisfies the error-code convention used by the handler logs.
func (e *Error) Code() string {
	return string(e.Kind)
}

// Is matches any *Error of the same Kind, so sentinel comparisons work.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Msg == "" || t.Msg == e.Msg)
}

func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Sentinels usable with errors.Is; they match every error of their kind.
var (
	ErrMalformedInput      = &Error{Kind: KindMalformedInput}
	ErrInvalidAmount       = &Error{Kind: KindInvalidAmount}
	ErrAmountExceedsLimit  = &Error{Kind: KindAmountExceedsLimit}
	ErrUnknownUser         = &Error{Kind: KindUnknownUser}
	ErrUnknownReference    = &Error{Kind: KindUnknownReference}
	ErrInsufficientBalance = &Error{Kind: KindInsufficientBalance}
	ErrTransportFailure    = &Error{Kind: KindTransportFailure}
	ErrIncompleteContext   = &Error{Kind: KindIncompleteContext}
)

// KindOf returns the Kind of the first *Error in the chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsValidation reports whether err is resolved locally by re-prompting the user.
func IsValidation(err error) bool {
	switch KindOf(err) {
	case KindMalformedInput, KindInvalidAmount, KindAmountExceedsLimit:
		return true
	}
	return false
}
