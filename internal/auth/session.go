package auth

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is what the bot remembers after a successful login.
type Session struct {
	Token    string
	Username string
	// ExpiresAt is zero when the token carries no exp claim or is not a JWT.
	ExpiresAt time.Time
}

func (s Session) expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Book keeps one backend session per Telegram user.
type Book struct {
	mu       sync.RWMutex
	sessions map[int64]Session
	now      func() time.Time
}

func NewBook() *Book {
	return &Book{
		sessions: make(map[int64]Session),
		now:      time.Now,
	}
}

// Put stores the token obtained at login. The expiry is read from the token's
// exp claim without verifying the signature; the backend does that.
func (b *Book) Put(userID int64, token, username string) Session {
	s := Session{Token: token, Username: username, ExpiresAt: expiryOf(token)}
	b.mu.Lock()
	b.sessions[userID] = s
	b.mu.Unlock()
	return s
}

// Get returns the live session of userID. Expired sessions are dropped.
func (b *Book) Get(userID int64) (Session, bool) {
	b.mu.RLock()
	s, ok := b.sessions[userID]
	b.mu.RUnlock()
	if !ok {
		return Session{}, false
	}
	if s.expired(b.now()) {
		b.Drop(userID)
		return Session{}, false
	}
	return s, true
}

// Token is a shorthand for the token of a live session.
func (b *Book) Token(userID int64) (string, bool) {
	s, ok := b.Get(userID)
	return s.Token, ok
}

func (b *Book) Drop(userID int64) {
	b.mu.Lock()
	delete(b.sessions, userID)
	b.mu.Unlock()
}

func expiryOf(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
