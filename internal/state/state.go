// Package state keeps the conversation state of every user: which answer the
// bot expects next and the fields collected so far.
package state

import (
	"context"
	"strings"
	"time"

	"github.com/ivanoskov/fintracker/internal/model"
)

// State tags what input is expected next.
type State string

const (
	Idle State = "idle"

	RegistrationUsername State = "registration.username"
	RegistrationEmail    State = "registration.email"
	RegistrationPassword State = "registration.password"

	LoginUsername State = "login.username"
	LoginPassword State = "login.password"

	transferDetails       = "transfer.details"
	transferUpdateDetails = "transfer.update_details"
	transferDeleteID      = "transfer.delete_id"
)

func TransferDetails(kind model.TransferKind) State {
	return State(transferDetails + "." + string(kind))
}

func TransferUpdateDetails(kind model.TransferKind) State {
	return State(transferUpdateDetails + "." + string(kind))
}

func TransferDeleteID(kind model.TransferKind) State {
	return State(transferDeleteID + "." + string(kind))
}

// All enumerates every state of the conversation machine.
func All() []State {
	states := []State{
		Idle,
		RegistrationUsername, RegistrationEmail, RegistrationPassword,
		LoginUsername, LoginPassword,
	}
	for _, kind := range []model.TransferKind{model.Expense, model.Income} {
		states = append(states, TransferDetails(kind), TransferUpdateDetails(kind), TransferDeleteID(kind))
	}
	return states
}

// Valid reports whether s is one of All().
func (s State) Valid() bool {
	for _, known := range All() {
		if s == known {
			return true
		}
	}
	return false
}

// Step returns s without its transfer kind suffix.
func (s State) Step() string {
	if i := strings.LastIndex(string(s), "."); i > 0 && strings.HasPrefix(string(s), "transfer.") {
		return string(s)[:i]
	}
	return string(s)
}

// Kind returns the transfer kind of a transfer state.
func (s State) Kind() (model.TransferKind, bool) {
	if !strings.HasPrefix(string(s), "transfer.") {
		return "", false
	}
	kind, err := model.ParseTransferKind(string(s)[len(s.Step())+1:])
	if err != nil {
		return "", false
	}
	return kind, true
}

func (s State) IsTransferDetails() bool       { return s.Step() == transferDetails }
func (s State) IsTransferUpdateDetails() bool { return s.Step() == transferUpdateDetails }
func (s State) IsTransferDeleteID() bool      { return s.Step() == transferDeleteID }

// Context keys shared by the flows.
const (
	KeyUsername = "username"
	KeyEmail    = "email"
)

// Snapshot is a user's state together with the collected fields.
type Snapshot struct {
	State     State
	Context   map[string]string
	UpdatedAt time.Time
}

// IdleSnapshot is what an unknown or expired user reads as.
func IdleSnapshot() Snapshot {
	return Snapshot{State: Idle, Context: map[string]string{}}
}

// Store persists one Snapshot per user. Unknown users read as Idle with an
// empty context; setting Idle discards the context.
type Store interface {
	Get(ctx context.Context, userID int64) (Snapshot, error)
	Set(ctx context.Context, userID int64, st State) error
	UpdateContext(ctx context.Context, userID int64, partial map[string]string) error
	Clear(ctx context.Context, userID int64) error
}

func expired(updatedAt time.Time, ttl time.Duration, now time.Time) bool {
	return ttl > 0 && !updatedAt.IsZero() && now.Sub(updatedAt) > ttl
}

func copyContext(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func fromRow(row model.UserState) Snapshot {
	st := State(row.State)
	if !st.Valid() {
		return IdleSnapshot()
	}
	return Snapshot{State: st, Context: copyContext(row.Context), UpdatedAt: row.UpdatedAt}
}
