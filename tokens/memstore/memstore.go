package memstore

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-directory-session/tokens"
)

var (
	_ tokens.Backend = (*Store)(nil)
	_ tokens.Batcher = (*Store)(nil)
)

// Store is an in-memory token backend. Values are lost when the process exits.
type Store struct {
	values map[string]string
	lock   sync.RWMutex
}

func New() *Store {
	return &Store{
		values: make(map[string]string),
	}
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.values[key] = value
	return nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.values, key)
	return nil
}

func (s *Store) SetAll(_ context.Context, values map[string]string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	for k, v := range values {
		s.values[k] = v
	}
	return nil
}

func (s *Store) RemoveAll(_ context.Context, keys ...string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.values)
}
