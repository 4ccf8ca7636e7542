package session

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/jrsteele09/go-directory-session/directory"
	"github.com/jrsteele09/go-directory-session/tokens"
	"golang.org/x/oauth2"
)

var (
	errUnauthorized = &directory.Error{Kind: directory.KindHTTP, Status: http.StatusUnauthorized}
	errNetwork      = &directory.Error{Kind: directory.KindNetwork}
)

// stubAPI scripts directory responses and counts calls. Like the real
// client, a failed refresh clears both stored tokens.
type stubAPI struct {
	mu    sync.Mutex
	store *tokens.Store
	calls map[string]int

	loginToken *oauth2.Token
	loginErr   error
	signupErr  error
	profile    *directory.UserProfile
	// profileErrs is consumed one entry per GetProfile call; nil entries and
	// an exhausted queue mean success.
	profileErrs  []error
	refreshErr   error
	dashboardErr []error

	// tokensAtProfile records the stored tokens seen by each GetProfile call.
	tokensAtProfile [][2]string
	// profileGate, when set, blocks GetProfile until closed.
	profileGate chan struct{}
}

func newStub(store *tokens.Store) *stubAPI {
	return &stubAPI{
		store:   store,
		calls:   make(map[string]int),
		profile: &directory.UserProfile{ID: 7, Username: "alice"},
	}
}

func (s *stubAPI) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func (s *stubAPI) record(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[name]++
}

func (s *stubAPI) Login(_ context.Context, _ directory.LoginRequest) (*oauth2.Token, error) {
	s.record("login")
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return s.loginToken, nil
}

func (s *stubAPI) Signup(_ context.Context, req directory.SignupRequest) (json.RawMessage, error) {
	s.record("signup")
	if s.signupErr != nil {
		return nil, s.signupErr
	}
	return json.RawMessage(`{"username":"` + req.Username + `"}`), nil
}

func (s *stubAPI) GetProfile(ctx context.Context) (*directory.UserProfile, error) {
	s.record("profile")
	if s.profileGate != nil {
		<-s.profileGate
	}

	access, _, _ := s.store.AccessToken(ctx)
	refresh, _, _ := s.store.RefreshToken(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokensAtProfile = append(s.tokensAtProfile, [2]string{access, refresh})
	if len(s.profileErrs) > 0 {
		err := s.profileErrs[0]
		s.profileErrs = s.profileErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	p := *s.profile
	return &p, nil
}

func (s *stubAPI) GetDashboard(context.Context) (json.RawMessage, error) {
	s.record("dashboard")
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.dashboardErr) > 0 {
		err := s.dashboardErr[0]
		s.dashboardErr = s.dashboardErr[1:]
		if err != nil {
			return nil, err
		}
	}
	return json.RawMessage(`{"review_count":3}`), nil
}

func (s *stubAPI) RefreshToken(ctx context.Context) (string, error) {
	s.record("refresh")
	if s.refreshErr != nil {
		_ = s.store.Clear(ctx)
		return "", &directory.Error{Kind: directory.KindSessionExpired, Err: s.refreshErr}
	}
	if err := s.store.SaveAccess(ctx, "A2"); err != nil {
		return "", err
	}
	return "A2", nil
}

func (s *stubAPI) Logout(ctx context.Context) {
	s.record("logout")
	_ = s.store.Clear(context.WithoutCancel(ctx))
}
