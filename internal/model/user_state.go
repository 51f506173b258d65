package model

import "time"

// UserState is the persisted form of a user's conversation: the current
// state tag plus the fields collected so far.
type UserState struct {
	UserID    int64             `json:"user_id" db:"user_id"`
	State     string            `json:"state" db:"state"`
	Context   map[string]string `json:"context" db:"-"`
	UpdatedAt time.Time         `json:"updated_at" db:"updated_at"`
}
