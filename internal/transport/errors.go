package transport

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"
)

// NetworkError means the backend could not be reached: dial failures, resets, timeouts.
type NetworkError struct {
	Method   string
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error on %s %s: %v", e.Method, e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ProtocolError is a non-2xx response. Fields are filled from the JSON body when it has one.
type ProtocolError struct {
	Method   string
	Endpoint string
	Status   int
	Code     string
	Message  string
	Errors   []string
	Body     []byte
}

func (e *ProtocolError) Error() string {
	msg := e.Message
	if msg == "" && len(e.Errors) > 0 {
		msg = strings.Join(e.Errors, "; ")
	}
	if msg == "" {
		msg = "no details"
	}
	return fmt.Sprintf("backend rejected %s %s with status %d: %s", e.Method, e.Endpoint, e.Status, msg)
}

// UnexpectedError covers everything else: bad URLs, undecodable bodies, and so on.
type UnexpectedError struct {
	Method   string
	Endpoint string
	Err      error
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("unexpected error on %s %s: %v", e.Method, e.Endpoint, e.Err)
}

func (e *UnexpectedError) Unwrap() error { return e.Err }

// StatusOf returns the HTTP status of a ProtocolError in err's chain, or 0.
func StatusOf(err error) int {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe.Status
	}
	return 0
}

func isNetworkFailure(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Timeout() || isNetworkFailure(urlErr.Err)
	}
	return false
}

// parseErrorBody extracts code, message and flattened field errors from a
// DRF-style error body: {"code": "...", "message": "...", "errors": {...}}
// or a bare field map {"username": ["taken"]}.
func parseErrorBody(body map[string]any, pe *ProtocolError) {
	if v, ok := body["code"].(string); ok {
		pe.Code = v
	}
	for _, key := range []string{"message", "detail"} {
		if v, ok := body[key].(string); ok && pe.Message == "" {
			pe.Message = v
		}
	}
	fields := body
	if nested, ok := body["errors"].(map[string]any); ok {
		fields = nested
	} else if list, ok := body["errors"].([]any); ok {
		pe.Errors = append(pe.Errors, flatten("", list)...)
		return
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		switch k {
		case "code", "message", "detail", "status":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		pe.Errors = append(pe.Errors, flatten(k, fields[k])...)
	}
}

func flatten(field string, v any) []string {
	prefix := ""
	if field != "" && field != "non_field_errors" {
		prefix = field + ": "
	}
	switch t := v.(type) {
	case string:
		return []string{prefix + t}
	case []any:
		var out []string
		for _, item := range t {
			out = append(out, flatten(field, item)...)
		}
		return out
	}
	return nil
}
