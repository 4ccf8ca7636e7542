package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/jrsteele09/go-directory-session/directory"
)

// Login authenticates with identifier (username or email) and password. On
// failure nothing is changed. On success both tokens are stored before the
// profile is fetched; if that fetch fails the result is a failure and the
// tokens stay stored, so the next Start can recover the session.
func (m *Manager) Login(ctx context.Context, identifier, password string) Result {
	m.transition.Lock()
	defer m.transition.Unlock()

	token, err := m.api.Login(ctx, directory.LoginRequest{Username: identifier, Password: password})
	if err != nil {
		m.metrics.Login(false)
		return failure(err)
	}

	if err := m.store.SavePair(ctx, token.AccessToken, token.RefreshToken); err != nil {
		m.logger.Err(err).Msg("storing login tokens")
		m.metrics.Login(false)
		return failure(err)
	}

	profile, err := m.api.GetProfile(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("profile fetch after login failed, tokens kept")
		m.metrics.Login(false)
		return failure(err)
	}

	m.setState(StateAuthenticated, profile, token.Expiry)
	m.metrics.Login(true)
	return success()
}

// Signup registers a new account. It never changes the session; call Login
// afterwards.
func (m *Manager) Signup(ctx context.Context, req directory.SignupRequest) Result {
	_, err := m.api.Signup(ctx, req)
	m.metrics.Signup(err == nil)
	if err != nil {
		return failure(err)
	}
	return success()
}

// Logout clears the stored tokens and profile. It does not touch the network
// and always succeeds.
func (m *Manager) Logout(ctx context.Context) {
	m.transition.Lock()
	defer m.transition.Unlock()

	m.api.Logout(ctx)
	m.setState(StateAnonymous, nil, time.Time{})
}

// Dashboard fetches the caller's dashboard. An HTTP 401 triggers one token
// refresh and one retry; if the refresh fails the session is torn down.
func (m *Manager) Dashboard(ctx context.Context) (json.RawMessage, Result) {
	m.transition.Lock()
	defer m.transition.Unlock()

	data, err := m.api.GetDashboard(ctx)
	if err == nil {
		return data, success()
	}
	if !isUnauthorized(err) {
		return nil, failure(err)
	}

	access, err := m.api.RefreshToken(ctx)
	if err != nil {
		m.metrics.Refresh(false)
		m.setState(StateAnonymous, nil, time.Time{})
		return nil, failure(err)
	}
	m.metrics.Refresh(true)
	m.setAccessExpiry(directory.AccessExpiry(access))

	data, err = m.api.GetDashboard(ctx)
	if err != nil {
		return nil, failure(err)
	}
	return data, success()
}

func isUnauthorized(err error) bool {
	var e *directory.Error
	return errors.As(err, &e) && e.Kind == directory.KindHTTP && e.Status == http.StatusUnauthorized
}
