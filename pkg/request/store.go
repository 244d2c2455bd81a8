package request

import (
	"sync"

	"github.com/posthog/hogtrace/pkg/bytecode"
)

// Store is the per-request keyed slot store. Every probe firing within one
// request sees the same store; slots written by an entry probe are visible
// to the matching exit probe. Reads of unset slots yield None.
//
// The zero value is not usable; call NewStore.
type Store struct {
	mu    sync.RWMutex
	slots map[string]bytecode.Value
}

func NewStore() *Store {
	return &Store{slots: map[string]bytecode.Value{}}
}

// Get returns the slot value, or None when the slot was never set.
func (s *Store) Get(name string) bytecode.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.slots[name]; ok {
		return v
	}
	return bytecode.None()
}

func (s *Store) Set(name string, v bytecode.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[name] = v
}

func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.slots[name]
	return ok
}

func (s *Store) Delete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, name)
}

// Clear drops every slot. Called at request boundaries so state never
// leaks across requests.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots = map[string]bytecode.Value{}
}

// All returns a snapshot of the current slots.
func (s *Store) All() map[string]bytecode.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bytecode.Value, len(s.slots))
	for k, v := range s.slots {
		out[k] = v
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots)
}
