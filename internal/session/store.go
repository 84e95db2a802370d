package session

import (
	"sync"
	"time"

	"github.com/alanyoungcy/polytgbot/internal/domain"
)

// Store maps user ids to sessions. Sessions are created on first use and live
// until the process exits. The map is guarded; session contents are not.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	seed     uint32
}

// NewStore creates an empty store. Table generations and intent sequence
// numbers start from a value derived from the current time so tokens minted
// by an earlier process do not resolve against this one.
func NewStore() *Store {
	return NewStoreWithSeed(uint32(time.Now().UnixNano() >> 10))
}

// NewStoreWithSeed creates an empty store with a fixed generation seed.
func NewStoreWithSeed(seed uint32) *Store {
	return &Store{
		sessions: make(map[int64]*Session),
		seed:     seed,
	}
}

// Get returns the user's session, creating it on first use.
func (s *Store) Get(userID int64) *Session {
	s.mu.RLock()
	sess, ok := s.sessions[userID]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok = s.sessions[userID]; !ok {
		sess = newSession(userID, s.seed)
		s.sessions[userID] = sess
	}
	return sess
}

// SetIntent makes intent the user's current intent.
func (s *Store) SetIntent(userID int64, intent *domain.Intent) {
	s.Get(userID).Intent = intent
}

// ClearIntent discards the user's current intent and waiting state.
func (s *Store) ClearIntent(userID int64) {
	s.Get(userID).Reset()
}

// Len returns the number of sessions created so far.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
