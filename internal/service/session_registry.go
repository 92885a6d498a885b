package service

import (
	"sort"
	"sync"

	"tradeterm/internal/domain"
)

// SessionRegistry is the process-wide mapping from authenticated username to
// peer address. Every connection goroutine mutates it at login and logout,
// so all access goes through the lock.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]string
}

// NewSessionRegistry creates an empty SessionRegistry
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]string)}
}

// Register records that username is connected from addr, overwriting any
// previous session for the same username.
func (r *SessionRegistry) Register(username, addr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[username] = addr
}

// Unregister removes the session for username. No-op if absent.
func (r *SessionRegistry) Unregister(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, username)
}

// Snapshot returns a point-in-time copy of the active sessions, ordered by
// username. Later registry mutation does not affect a returned snapshot.
func (r *SessionRegistry) Snapshot() []domain.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]domain.Session, 0, len(r.sessions))
	for username, addr := range r.sessions {
		entries = append(entries, domain.Session{Username: username, Addr: addr})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Username < entries[j].Username
	})
	return entries
}

// Len returns the number of active sessions
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
