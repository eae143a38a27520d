// Package session owns bounded per-session conversation histories. The
// in-memory store is the source of truth; persistence is best-effort and
// never blocks or rolls back an in-memory mutation.
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// MaxHistoryLength bounds every session's history. On overflow the
// oldest turns are dropped, never reordered.
const MaxHistoryLength = 10

// Turn is one question/answer exchange. Immutable once recorded.
type Turn struct {
	ID        string    `json:"id,omitempty"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
	Persona   string    `json:"persona"`
}

// state holds one session's history behind its own lock so concurrent
// appends to the same session serialize without blocking other sessions.
type state struct {
	mu    sync.Mutex
	turns []Turn
}

// Store maps session ids to bounded ordered histories.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*state
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*state)}
}

// getOrCreateState returns the state for a session, creating it if needed.
func (s *Store) getOrCreateState(sessionID string) *state {
	s.mu.RLock()
	st, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return st
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.sessions[sessionID]; ok {
		return st
	}
	st = &state{}
	s.sessions[sessionID] = st
	return st
}

// GetOrCreate returns a snapshot of the session's history, creating an
// empty session if the id is unknown. The returned slice is a copy.
func (s *Store) GetOrCreate(sessionID string) []Turn {
	st := s.getOrCreateState(sessionID)

	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]Turn, len(st.turns))
	copy(out, st.turns)
	return out
}

// Append adds a turn to the end of the session's history, then evicts
// from the front until the history fits MaxHistoryLength. Appends to the
// same session are mutually exclusive.
func (s *Store) Append(sessionID string, turn Turn) {
	st := s.getOrCreateState(sessionID)

	st.mu.Lock()
	defer st.mu.Unlock()

	st.turns = append(st.turns, turn)
	if len(st.turns) > MaxHistoryLength {
		st.turns = st.turns[len(st.turns)-MaxHistoryLength:]
	}

	log.Debug().
		Str("session_id", sessionID).
		Int("length", len(st.turns)).
		Msg("Turn appended")
}

// Len returns the current history length for a session without creating it.
func (s *Store) Len(sessionID string) int {
	s.mu.RLock()
	st, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return 0
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.turns)
}

// Clear empties a session's history. Clearing an unknown session is a
// no-op that still reports success.
func (s *Store) Clear(sessionID string) {
	s.mu.RLock()
	st, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return
	}

	st.mu.Lock()
	st.turns = nil
	st.mu.Unlock()

	log.Info().Str("session_id", sessionID).Msg("Session history cleared")
}

// ClearAll empties every session's history and returns the prior session
// count. Session ids remain listed; only their histories are emptied.
func (s *Store) ClearAll() int {
	s.mu.RLock()
	states := make([]*state, 0, len(s.sessions))
	for _, st := range s.sessions {
		states = append(states, st)
	}
	count := len(s.sessions)
	s.mu.RUnlock()

	for _, st := range states {
		st.mu.Lock()
		st.turns = nil
		st.mu.Unlock()
	}

	log.Info().Int("sessions", count).Msg("All session histories cleared")
	return count
}

// ListSessions returns all known session ids, sorted.
func (s *Store) ListSessions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Snapshot returns a deep copy of the full session map for persistence.
func (s *Store) Snapshot() map[string][]Turn {
	s.mu.RLock()
	states := make(map[string]*state, len(s.sessions))
	for id, st := range s.sessions {
		states[id] = st
	}
	s.mu.RUnlock()

	out := make(map[string][]Turn, len(states))
	for id, st := range states {
		st.mu.Lock()
		turns := make([]Turn, len(st.turns))
		copy(turns, st.turns)
		st.mu.Unlock()
		out[id] = turns
	}
	return out
}

// Restore replaces the store's contents with a previously persisted
// snapshot, re-applying the history bound to each session.
func (s *Store) Restore(snapshot map[string][]Turn) {
	sessions := make(map[string]*state, len(snapshot))
	for id, turns := range snapshot {
		if len(turns) > MaxHistoryLength {
			turns = turns[len(turns)-MaxHistoryLength:]
		}
		copied := make([]Turn, len(turns))
		copy(copied, turns)
		sessions[id] = &state{turns: copied}
	}

	s.mu.Lock()
	s.sessions = sessions
	s.mu.Unlock()

	log.Info().Int("sessions", len(sessions)).Msg("Session store restored")
}
