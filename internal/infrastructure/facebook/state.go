package facebook

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultStateTTL bounds how long an OAuth login may take
const DefaultStateTTL = 10 * time.Minute

// StateStore keeps one-shot OAuth state values
type StateStore struct {
	mu     sync.Mutex
	states map[string]time.Time
	ttl    time.Duration
	now    func() time.Time
}

// NewStateStore creates a state store
func NewStateStore(ttl time.Duration) *StateStore {
	return &StateStore{
		states: make(map[string]time.Time),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue creates and remembers a new state
func (s *StateStore) Issue() string {
	state := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()
	s.states[state] = s.now().Add(s.ttl)
	return state
}

// Consume reports whether state was issued and not expired, and forgets it
func (s *StateStore) Consume(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	expires, ok := s.states[state]
	if !ok {
		return false
	}
	delete(s.states, state)
	return s.now().Before(expires)
}

func (s *StateStore) prune() {
	now := s.now()
	for state, expires := range s.states {
		if !now.Before(expires) {
			delete(s.states, state)
		}
	}
}
