// Package tokens persists the access and refresh tokens of a directory session.
package tokens

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Backend is a persistent key/value store. A missing key is reported with
// ok == false, never as an error.
type Backend interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Batcher is implemented by backends that can write or delete several keys
// atomically.
type Batcher interface {
	SetAll(ctx context.Context, values map[string]string) error
	RemoveAll(ctx context.Context, keys ...string) error
}

// Name identifies one of the two session tokens.
type Name string

const (
	Access  Name = "access"
	Refresh Name = "refresh"
)

// Keys are the backend key names used for each token.
type Keys struct {
	Access  string
	Refresh string
}

func DefaultKeys() Keys {
	return Keys{Access: "access_token", Refresh: "refresh_token"}
}

// withDefaults fills empty key names from DefaultKeys.
func (k Keys) withDefaults() Keys {
	defaults := DefaultKeys()
	if k.Access == "" {
		k.Access = defaults.Access
	}
	if k.Refresh == "" {
		k.Refresh = defaults.Refresh
	}
	return k
}

// Validate reports an error if both tokens would share one backend key once
// defaults are applied.
func (k Keys) Validate() error {
	k = k.withDefaults()
	if k.Access == k.Refresh {
		return fmt.Errorf("tokens: access and refresh tokens share the key %q", k.Access)
	}
	return nil
}

func (k Keys) key(name Name) (string, error) {
	switch name {
	case Access:
		return k.Access, nil
	case Refresh:
		return k.Refresh, nil
	}
	return "", fmt.Errorf("unknown token name %q", name)
}

// Store maps the access and refresh tokens onto a Backend. All access is
// serialized so that a pair is never observed half written.
type Store struct {
	mu      sync.Mutex
	backend Backend
	keys    Keys
}

// NewStore wraps backend. Empty key names fall back to DefaultKeys. It
// panics if keys fail Validate; check keys that come from configuration
// first.
func NewStore(backend Backend, keys Keys) *Store {
	if err := keys.Validate(); err != nil {
		panic(err)
	}
	return &Store{backend: backend, keys: keys.withDefaults()}
}

func (s *Store) Keys() Keys {
	return s.keys
}

func (s *Store) Get(ctx context.Context, name Name) (string, bool, error) {
	key, err := s.keys.key(name)
	if err != nil {
		return "", false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Get(ctx, key)
}

func (s *Store) Set(ctx context.Context, name Name, value string) error {
	key, err := s.keys.key(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Set(ctx, key, value)
}

func (s *Store) Remove(ctx context.Context, name Name) error {
	key, err := s.keys.key(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Remove(ctx, key)
}

// AccessToken implements httpclient.TokenSource.
func (s *Store) AccessToken(ctx context.Context) (string, bool, error) {
	return s.Get(ctx, Access)
}

func (s *Store) RefreshToken(ctx context.Context) (string, bool, error) {
	return s.Get(ctx, Refresh)
}

// SaveAccess replaces the access token, leaving the refresh token untouched.
func (s *Store) SaveAccess(ctx context.Context, access string) error {
	return s.Set(ctx, Access, access)
}

// SavePair stores both tokens or neither of them.
func (s *Store) SavePair(ctx context.Context, access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.backend.(Batcher); ok {
		if err := b.SetAll(ctx, map[string]string{s.keys.Access: access, s.keys.Refresh: refresh}); err != nil {
			return fmt.Errorf("tokens.SavePair: %w", err)
		}
		return nil
	}

	prevAccess, hadAccess, err := s.backend.Get(ctx, s.keys.Access)
	if err != nil {
		return fmt.Errorf("tokens.SavePair: %w", err)
	}
	if err := s.backend.Set(ctx, s.keys.Access, access); err != nil {
		return fmt.Errorf("tokens.SavePair access: %w", err)
	}
	if err := s.backend.Set(ctx, s.keys.Refresh, refresh); err != nil {
		s.rollbackAccess(ctx, prevAccess, hadAccess)
		return fmt.Errorf("tokens.SavePair refresh: %w", err)
	}
	return nil
}

func (s *Store) rollbackAccess(ctx context.Context, prev string, had bool) {
	var err error
	if had {
		err = s.backend.Set(ctx, s.keys.Access, prev)
	} else {
		err = s.backend.Remove(ctx, s.keys.Access)
	}
	if err != nil {
		log.Err(err).Msg("tokens: failed to roll back access token")
	}
}

// Clear removes both tokens. Both removals are attempted even if the first fails.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.backend.(Batcher); ok {
		if err := b.RemoveAll(ctx, s.keys.Access, s.keys.Refresh); err != nil {
			return fmt.Errorf("tokens.Clear: %w", err)
		}
		return nil
	}

	accessErr := s.backend.Remove(ctx, s.keys.Access)
	refreshErr := s.backend.Remove(ctx, s.keys.Refresh)
	if accessErr != nil {
		return fmt.Errorf("tokens.Clear access: %w", accessErr)
	}
	if refreshErr != nil {
		return fmt.Errorf("tokens.Clear refresh: %w", refreshErr)
	}
	return nil
}
