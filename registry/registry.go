package registry

import (
	"sync"

	"github.com/zerbitx/gnockcycle/spec"
)

// Store maps METHOD:PATH keys to mocks and remembers the order keys were first added in.
// The lock covers the key space only, each mock guards its own counters.
type Store struct {
	mu    sync.RWMutex
	mocks map[string]*spec.Mock
	order []string
}

// New returns an empty Store
func New() *Store {
	return &Store{
		mocks: map[string]*spec.Mock{},
	}
}

// Add stores m under its key, replacing whatever was there. A replaced key keeps its position.
func (s *Store) Add(m *spec.Mock) {
	if m == nil {
		return
	}

	key := m.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.mocks[key]; !exists {
		s.order = append(s.order, key)
	}
	s.mocks[key] = m
}

// Remove deletes key, reporting whether anything was there
func (s *Store) Remove(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.mocks[key]; !exists {
		return false
	}

	delete(s.mocks, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}

	return true
}

// Get looks key up exactly
func (s *Store) Get(key string) (*spec.Mock, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.mocks[key]
	return m, ok
}

// List returns the mocks in insertion order
func (s *Store) List() []*spec.Mock {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*spec.Mock, 0, len(s.order))
	for _, key := range s.order {
		result = append(result, s.mocks[key])
	}

	return result
}

// Len is the number of registered mocks
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.mocks)
}
