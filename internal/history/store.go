package history

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store holds the ordered turns of the active session in memory
type Store struct {
	mu        sync.RWMutex
	sessionID string
	startedAt time.Time
	turns     []Turn
	now       func() time.Time
}

// NewStore creates an empty store with a fresh session
func NewStore() *Store {
	s := &Store{now: time.Now}
	s.startNewSession()
	return s
}

// startNewSession resets the session identity (must be called with lock held)
func (s *Store) startNewSession() {
	s.sessionID = uuid.New().String()
	s.startedAt = s.now()
	s.turns = []Turn{}
}

// Append adds a turn to the end of the history
func (s *Store) Append(turn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if turn.Timestamp.IsZero() {
		turn.Timestamp = s.now()
	}
	s.turns = append(s.turns, turn)
}

// Snapshot returns a copy of the current history
func (s *Store) Snapshot() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Clear empties the history and starts a new session
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startNewSession()
}

// Len returns the number of turns in the history
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// SessionID returns the identifier of the current session
func (s *Store) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// StartedAt returns when the current session began
func (s *Store) StartedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startedAt
}
