package state

import (
	"context"
	"sync"
	"time"
)

type session struct {
	state     State
	data      map[string]string
	updatedAt time.Time
}

// MemoryStore keeps snapshots in process memory. Sessions idle for longer
// than ttl read as Idle and are removed by Purge.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]*session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore returns an empty store. A zero ttl never expires sessions.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[int64]*session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, userID int64) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[userID]
	if !ok || expired(sess.updatedAt, m.ttl, m.now()) {
		return IdleSnapshot(), nil
	}
	return Snapshot{State: sess.state, Context: copyContext(sess.data), UpdatedAt: sess.updatedAt}, nil
}

func (m *MemoryStore) Set(_ context.Context, userID int64, st State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if st == Idle {
		delete(m.sessions, userID)
		return nil
	}
	sess := m.live(userID)
	sess.state = st
	sess.updatedAt = m.now()
	return nil
}

func (m *MemoryStore) UpdateContext(_ context.Context, userID int64, partial map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.live(userID)
	for k, v := range partial {
		sess.data[k] = v
	}
	sess.updatedAt = m.now()
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, userID)
	return nil
}

// live returns the session of userID, replacing a missing or expired one.
// The caller holds the write lock.
func (m *MemoryStore) live(userID int64) *session {
	sess, ok := m.sessions[userID]
	if !ok || expired(sess.updatedAt, m.ttl, m.now()) {
		sess = &session{state: Idle, data: make(map[string]string)}
		m.sessions[userID] = sess
	}
	return sess
}

// Purge drops expired sessions and returns how many were removed.
func (m *MemoryStore) Purge(_ context.Context) (int64, error) {
	if m.ttl <= 0 {
		return 0, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var removed int64
	for id, sess := range m.sessions {
		if expired(sess.updatedAt, m.ttl, now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored sessions, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
