package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps rules in a map.
type MemoryStore struct {
	mu     sync.RWMutex
	rules  map[string]*Rule
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rules: make(map[string]*Rule),
	}
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, r *Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if _, ok := s.rules[r.Name]; ok {
		return ErrDuplicateName
	}
	cp := *r
	s.rules[r.Name] = &cp
	return nil
}

// FindByName implements Store.
func (s *MemoryStore) FindByName(_ context.Context, name string) (*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	r, ok := s.rules[name]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// FindByNames implements Store.
func (s *MemoryStore) FindByNames(_ context.Context, names []string) ([]*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	found := make(map[string]*Rule, len(names))
	for _, name := range names {
		if r, ok := s.rules[name]; ok {
			cp := *r
			found[name] = &cp
		}
	}
	return orderByNames(names, found), nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context) ([]*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	list := make([]*Rule, 0, len(s.rules))
	for _, r := range s.rules {
		cp := *r
		list = append(list, &cp)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if _, ok := s.rules[name]; !ok {
		return ErrNotFound
	}
	delete(s.rules, name)
	return nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
