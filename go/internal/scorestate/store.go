package scorestate

import (
	"sync"
)

// Store owns the canonical local mirror for one session. Dispatch is the
// only write path; readers get value copies, never references into the
// live state, because the whole state can be replaced wholesale by an
// authoritative snapshot at any time.
type Store struct {
	mu      sync.RWMutex
	state   State
	subs    map[int]func(State)
	nextSub int
}

// NewStore creates an empty store. The state stays zero until a
// SessionLoaded event arrives.
func NewStore() *Store {
	return &Store{
		subs: make(map[int]func(State)),
	}
}

// Dispatch applies one event and notifies subscribers on success.
func (s *Store) Dispatch(ev Event) error {
	s.mu.Lock()
	next, err := Apply(s.state, ev)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next

	listeners := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(clone(next))
	}
	return nil
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.state)
}

// Subscribe registers a listener called after every successful dispatch.
// The returned func removes the subscription.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}
