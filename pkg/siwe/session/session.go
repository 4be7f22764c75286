// Package session stores SIWE server sessions.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the server-side state behind a session cookie. Address is set
// once a sign-in was verified.
type Session struct {
	ID        string    `json:"id"`
	Nonce     string    `json:"nonce,omitempty"`
	Address   string    `json:"address,omitempty"`
	ChainID   int64     `json:"chainId,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether s is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.NewString()
}

// Store persists sessions. Get never returns an expired session.
type Store interface {
	Get(ctx context.Context, id string) (Session, bool, error)
	Save(ctx context.Context, s Session) error
	Delete(ctx context.Context, id string) error
	// Purge removes expired sessions and returns how many were removed.
	Purge(ctx context.Context) (int, error)
	Close() error
}

// Memory is an in-process Store.
type Memory struct {
	mu       sync.Mutex
	sessions map[string]Session
	now      func() time.Time
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]Session), now: time.Now}
}

func (m *Memory) Get(_ context.Context, id string) (Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, false, nil
	}
	if s.Expired(m.now()) {
		delete(m.sessions, id)
		return Session{}, false, nil
	}
	return s, true, nil
}

func (m *Memory) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *Memory) Purge(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) Close() error { return nil }
