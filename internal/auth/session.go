// Package auth guards the dashboard with a single credential pair and
// server-side sessions carried in request context.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidCredentials is returned by Login for any other pair than the
	// configured one. No session is created.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrNoSession is returned for an unknown, logged out or idle session.
	ErrNoSession = errors.New("no session")
)

// Session is one logged in dashboard user.
type Session struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// IsIdle returns true if the session has been idle longer than the timeout.
// A zero timeout never expires.
func (s *Session) IsIdle(timeout time.Duration, now time.Time) bool {
	return timeout > 0 && now.Sub(s.LastActiveAt) > timeout
}

// Store persists sessions by id.
type Store interface {
	Save(ctx context.Context, s *Session, ttl time.Duration) error
	Load(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

// Save stores a copy of s. Expiry is enforced by the Manager.
func (m *MemoryStore) Save(_ context.Context, s *Session, _ time.Duration) error {
	m.mu.Lock()
	m.sessions[s.ID] = *s
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNoSession
	}
	return &s, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Credentials is the single accepted username and password.
type Credentials struct {
	Username string
	Password string
}

// Manager handles login, lookup and logout.
type Manager struct {
	store       Store
	creds       Credentials
	idleTimeout time.Duration
	now         func() time.Time
}

// NewManager creates a session manager. idleTimeout zero keeps sessions
// until logout.
func NewManager(store Store, creds Credentials, idleTimeout time.Duration) *Manager {
	return &Manager{store: store, creds: creds, idleTimeout: idleTimeout, now: time.Now}
}

// Login checks the credentials and creates a session.
func (m *Manager) Login(ctx context.Context, username, password string) (*Session, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(m.creds.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(m.creds.Password)) == 1
	if !userOK || !passOK || m.creds.Username == "" {
		return nil, ErrInvalidCredentials
	}

	now := m.now()
	s := &Session{
		ID:           uuid.New().String(),
		Username:     username,
		CreatedAt:    now,
		LastActiveAt: now,
	}
	if err := m.store.Save(ctx, s, m.idleTimeout); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return s, nil
}

// Lookup returns a live session and records the activity. Idle sessions
// are removed.
func (m *Manager) Lookup(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNoSession
	}
	s, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	now := m.now()
	if s.IsIdle(m.idleTimeout, now) {
		_ = m.store.Delete(ctx, id)
		return nil, ErrNoSession
	}
	if m.idleTimeout > 0 {
		s.LastActiveAt = now
		if err := m.store.Save(ctx, s, m.idleTimeout); err != nil {
			return nil, fmt.Errorf("touching session: %w", err)
		}
	}
	return s, nil
}

// Logout deletes a session. Unknown ids are ignored.
func (m *Manager) Logout(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return m.store.Delete(ctx, id)
}
