package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store keeps every live session, isolated from one another by id
type Store struct {
	deps     Dependencies
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates a new Store whose sessions share deps
func NewStore(deps Dependencies) *Store {
	return &Store{
		deps:     deps.withDefaults(),
		sessions: make(map[string]*Session),
	}
}

// Create starts a new idle session
func (st *Store) Create() *Session {
	s := New(uuid.NewString(), st.deps)

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()

	st.deps.Logger.Debug("session created", zap.String("session_id", s.ID))
	return s
}

// Get returns the session with id
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.sessions[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return s, nil
}

// Delete removes the session with id, reporting whether it existed
func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.sessions[id]; !ok {
		return false
	}
	delete(st.sessions, id)
	return true
}

// Sweep removes sessions idle for longer than maxIdle and returns how many
// were removed. A non-positive maxIdle disables eviction.
func (st *Store) Sweep(maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}
	cutoff := st.deps.Now().Add(-maxIdle)

	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, s := range st.sessions {
		if s.LastActive().Before(cutoff) {
			delete(st.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		st.deps.Logger.Info("evicted idle sessions", zap.Int("count", removed), zap.Int("remaining", len(st.sessions)))
	}
	return removed
}

// Len returns the number of live sessions
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
