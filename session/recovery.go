package session

import (
	"context"
	"time"

	"github.com/jrsteele09/go-directory-session/directory"
)

// recoveryStep is a state of the startup recovery machine:
//
//	checkToken -> fetchProfile -> authenticated
//	                           -> refresh -> retryProfile -> authenticated
//	                                                      -> anonymous
//	                                      -> anonymous
//	           -> anonymous
type recoveryStep int

const (
	stepCheckToken recoveryStep = iota
	stepFetchProfile
	stepRefresh
	stepRetryProfile
	stepAuthenticated
	stepAnonymous
)

var stepNames = map[recoveryStep]string{
	stepCheckToken:    "check_token",
	stepFetchProfile:  "fetch_profile",
	stepRefresh:       "refresh",
	stepRetryProfile:  "retry_profile",
	stepAuthenticated: "authenticated",
	stepAnonymous:     "anonymous",
}

func (s recoveryStep) String() string {
	return stepNames[s]
}

// Start runs startup recovery once per Manager and returns the settled
// snapshot. If a login or logout has already settled the session, recovery
// is skipped. Failures are silent and leave the session anonymous.
func (m *Manager) Start(ctx context.Context) Snapshot {
	m.startOnce.Do(func() {
		m.transition.Lock()
		defer m.transition.Unlock()

		if m.Snapshot().State != StateUnknown {
			return
		}
		state := m.recover(ctx)
		m.metrics.Recovery(state.String())
	})
	return m.Snapshot()
}

// recover makes at most one refresh and one profile retry.
func (m *Manager) recover(ctx context.Context) State {
	var (
		profile *directory.UserProfile
		access  string
	)
	step := stepCheckToken

	for {
		m.logger.Debug().Stringer("step", step).Msg("session recovery")

		switch step {
		case stepCheckToken:
			stored, ok, err := m.store.AccessToken(ctx)
			if err != nil {
				m.logger.Err(err).Msg("reading stored access token")
			}
			if err != nil || !ok || stored == "" {
				step = stepAnonymous
				continue
			}
			access = stored
			step = stepFetchProfile

		case stepFetchProfile:
			p, err := m.api.GetProfile(ctx)
			if err != nil {
				m.logger.Debug().Err(err).Msg("stored access token rejected")
				step = stepRefresh
				continue
			}
			profile = p
			step = stepAuthenticated

		case stepRefresh:
			// A failed refresh has already cleared both tokens.
			fresh, err := m.api.RefreshToken(ctx)
			m.metrics.Refresh(err == nil)
			if err != nil {
				step = stepAnonymous
				continue
			}
			access = fresh
			step = stepRetryProfile

		case stepRetryProfile:
			p, err := m.api.GetProfile(ctx)
			if err != nil {
				m.logger.Debug().Err(err).Msg("profile retry failed")
				m.api.Logout(ctx)
				step = stepAnonymous
				continue
			}
			profile = p
			step = stepAuthenticated

		case stepAuthenticated:
			m.setState(StateAuthenticated, profile, directory.AccessExpiry(access))
			return StateAuthenticated

		default:
			m.setState(StateAnonymous, nil, time.Time{})
			return StateAnonymous
		}
	}
}
