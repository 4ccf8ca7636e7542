// Package session owns the authentication state of a directory client. A
// Manager recovers a session from stored tokens at startup, performs login,
// signup and logout, and publishes every state change to its subscribers.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jrsteele09/go-directory-session/directory"
	errs "github.com/jrsteele09/go-directory-session/internal/errors"
	"github.com/jrsteele09/go-directory-session/internal/metrics"
	"github.com/jrsteele09/go-directory-session/tokens"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// API is the directory client used by the Manager.
type API interface {
	Login(ctx context.Context, req directory.LoginRequest) (*oauth2.Token, error)
	Signup(ctx context.Context, req directory.SignupRequest) (json.RawMessage, error)
	GetProfile(ctx context.Context) (*directory.UserProfile, error)
	GetDashboard(ctx context.Context) (json.RawMessage, error)
	RefreshToken(ctx context.Context) (string, error)
	Logout(ctx context.Context)
}

var _ API = (*directory.Client)(nil)

type listenerEntry struct {
	id uint64
	fn Listener
}

type Manager struct {
	api     API
	store   *tokens.Store
	metrics *metrics.Metrics
	logger  zerolog.Logger

	// transition serializes recovery, login, logout and dashboard calls.
	transition sync.Mutex
	startOnce  sync.Once

	mu        sync.RWMutex
	snap      Snapshot
	listeners []listenerEntry
	nextID    uint64
	closed    bool
	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	closeOnce sync.Once
}

type Option func(*Manager)

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// New creates a manager in StateUnknown. Call Start to recover any stored
// session.
func New(api API, store *tokens.Store, opts ...Option) *Manager {
	m := &Manager{
		api:    api,
		store:  store,
		logger: log.Logger,
		snap:   newSnapshot(StateUnknown, nil, time.Time{}),
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe registers l for state changes. Listeners run synchronously on
// the goroutine performing the transition and must not call Start, Login,
// Logout or Dashboard. The returned func removes the listener.
func (m *Manager) Subscribe(l Listener) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return func() {}
	}
	m.nextID++
	id := m.nextID
	m.listeners = append(m.listeners, listenerEntry{id: id, fn: l})

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			for i, entry := range m.listeners {
				if entry.id == id {
					m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.clone()
}

func (m *Manager) State() State {
	return m.Snapshot().State
}

func (m *Manager) Profile() *directory.UserProfile {
	return m.Snapshot().Profile
}

func (m *Manager) IsAuthenticated() bool {
	return m.Snapshot().IsAuthenticated
}

func (m *Manager) IsAdmin() bool {
	return m.Snapshot().IsAdmin
}

// WaitReady blocks until the session has left StateUnknown. It returns
// errs.ErrNotReady if the manager is closed first.
func (m *Manager) WaitReady(ctx context.Context) (Snapshot, error) {
	select {
	case <-m.ready:
		return m.Snapshot(), nil
	default:
	}

	select {
	case <-m.ready:
		return m.Snapshot(), nil
	case <-m.done:
		return m.Snapshot(), errs.ErrNotReady
	case <-ctx.Done():
		return m.Snapshot(), ctx.Err()
	}
}

// Close drops all listeners. Stored tokens are left untouched.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.listeners = nil
		m.mu.Unlock()
		close(m.done)
	})
}

// setState publishes a transition. Callers hold m.transition.
func (m *Manager) setState(state State, profile *directory.UserProfile, expiry time.Time) {
	m.mu.Lock()
	prev := m.snap.State
	m.snap = newSnapshot(state, profile, expiry)
	snap := m.snap
	listeners := make([]Listener, 0, len(m.listeners))
	for _, entry := range m.listeners {
		listeners = append(listeners, entry.fn)
	}
	m.mu.Unlock()

	if state != StateUnknown {
		m.readyOnce.Do(func() { close(m.ready) })
	}

	m.metrics.Transition(prev.String(), state.String())
	m.logger.Debug().Stringer("from", prev).Stringer("to", state).Msg("session transition")

	for _, l := range listeners {
		l(snap.clone())
	}
}

// setAccessExpiry records a refreshed access token's expiry without a
// state transition.
func (m *Manager) setAccessExpiry(expiry time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap.State == StateAuthenticated {
		m.snap.AccessExpiry = expiry
	}
}
