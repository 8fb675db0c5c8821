package web

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
)

// sessionCookie is the name of the dashboard session cookie.
const sessionCookie = "modelboard_sid"

// Sessions is an in-memory session registry keyed by opaque ids.
// good enough for a test fixture, nothing is persisted.
type Sessions struct {
	mu  sync.RWMutex
	ids map[string]string // session id -> username
}

// NewSessions creates an empty session registry.
func NewSessions() *Sessions {
	return &Sessions{ids: make(map[string]string)}
}

// Create registers a new session for the user and returns its id.
func (s *Sessions) Create(username string) string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf) // crypto/rand.Read does not fail in practice
	id := hex.EncodeToString(buf)

	s.mu.Lock()
	s.ids[id] = username
	s.mu.Unlock()
	return id
}

// User returns the username for a session id.
func (s *Sessions) User(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.ids[id]
	return u, ok
}

// Destroy removes a session. unknown ids are ignored.
func (s *Sessions) Destroy(id string) {
	s.mu.Lock()
	delete(s.ids, id)
	s.mu.Unlock()
}

// Count returns the number of active sessions.
func (s *Sessions) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// userFrom resolves the authenticated user from the request cookie.
func (s *Sessions) userFrom(r *http.Request) (string, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return "", false
	}
	return s.User(c.Value)
}
