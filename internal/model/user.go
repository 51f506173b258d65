package model

// Identity names the Telegram user an event came from.
type Identity struct {
	UserID   int64
	ChatID   int64
	Username string
}

// User is the backend's view of a registered user.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	ChatID   int64  `json:"chat_id,omitempty"`
}

// Credentials are what a deployment attaches to backend calls.
type Credentials struct {
	ChatID int64
	Token  string
}

// RegisterRequest is the body of POST /register/.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
	ChatID   int64  `json:"chat_id,omitempty"`
}

// LoginRequest is the body of POST /login/.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult is the decoded success response of POST /login/.
type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
