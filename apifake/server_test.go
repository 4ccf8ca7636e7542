package apifake_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-directory-session/apifake"
	"github.com/jrsteele09/go-directory-session/internal/utils"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newServer(t *testing.T, opts ...apifake.Option) (*apifake.Server, *httptest.Server) {
	t.Helper()
	api := apifake.New(append([]apifake.Option{apifake.WithPasswordCost(bcrypt.MinCost)}, opts...)...)
	srv := httptest.NewServer(api.Handler("/api"))
	t.Cleanup(srv.Close)
	return api, srv
}

func call(t *testing.T, method, url, bearer string, body any) (int, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestLoginAndProfile(t *testing.T) {
	api, srv := newServer(t)
	_, err := api.AddUser(apifake.User{Username: "alice", Email: "alice@example.com", IsStaff: true}, "secret-pass")
	require.NoError(t, err)

	status, body := call(t, http.MethodPost, srv.URL+"/api/token/", "", map[string]string{"username": "alice", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "No active account found with the given credentials", body["detail"])

	status, body = call(t, http.MethodPost, srv.URL+"/api/token/", "", map[string]string{"username": "alice@example.com", "password": "secret-pass"})
	require.Equal(t, http.StatusOK, status)
	access, _ := body["access"].(string)
	require.NotEmpty(t, access)
	require.NotEmpty(t, body["refresh"])

	status, body = call(t, http.MethodGet, srv.URL+"/api/profile/", access, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "alice", body["username"])
	require.Equal(t, true, body["is_staff"])
	require.Equal(t, float64(1), body["id"])

	require.Equal(t, 2, api.Hits(apifake.TokenPath))
	require.Equal(t, 1, api.Hits(apifake.ProfilePath))
}

func TestLogin_BlankFields(t *testing.T) {
	_, srv := newServer(t)
	status, body := call(t, http.MethodPost, srv.URL+"/api/token/", "", map[string]string{})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, []string{"This field may not be blank."}, utils.Messages(body["username"]))
	require.Equal(t, []string{"This field may not be blank."}, utils.Messages(body["password"]))
}

func TestProfile_RequiresValidAccessToken(t *testing.T) {
	api, srv := newServer(t)
	u, err := api.AddUser(apifake.User{Username: "bob"}, "secret-pass")
	require.NoError(t, err)

	status, body := call(t, http.MethodGet, srv.URL+"/api/profile/", "", nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "Authentication credentials were not provided.", body["detail"])

	status, body = call(t, http.MethodGet, srv.URL+"/api/profile/", "EXPIRED", nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "token_not_valid", body["code"])

	refresh, err := api.IssueRefreshToken(u.ID)
	require.NoError(t, err)
	status, _ = call(t, http.MethodGet, srv.URL+"/api/profile/", refresh, nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestExpiredAccessToken(t *testing.T) {
	api, srv := newServer(t, apifake.WithAccessTTL(-time.Minute))
	u, err := api.AddUser(apifake.User{Username: "carol"}, "secret-pass")
	require.NoError(t, err)

	access, err := api.IssueAccessToken(u.ID)
	require.NoError(t, err)
	status, _ := call(t, http.MethodGet, srv.URL+"/api/profile/", access, nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestRefresh(t *testing.T) {
	api, srv := newServer(t)
	u, err := api.AddUser(apifake.User{Username: "dave"}, "secret-pass")
	require.NoError(t, err)
	refresh, err := api.IssueRefreshToken(u.ID)
	require.NoError(t, err)

	status, body := call(t, http.MethodPost, srv.URL+"/api/token/refresh/", "", map[string]string{"refresh": refresh})
	require.Equal(t, http.StatusOK, status)
	access, _ := body["access"].(string)
	require.NotEmpty(t, access)
	require.Nil(t, body["refresh"])

	status, _ = call(t, http.MethodGet, srv.URL+"/api/profile/", access, nil)
	require.Equal(t, http.StatusOK, status)

	status, body = call(t, http.MethodPost, srv.URL+"/api/token/refresh/", "", map[string]string{"refresh": access})
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "Token is invalid or expired", body["detail"])
}

func TestRefreshRotation(t *testing.T) {
	api, srv := newServer(t, apifake.WithRefreshRotation())
	u, err := api.AddUser(apifake.User{Username: "erin"}, "secret-pass")
	require.NoError(t, err)
	refresh, err := api.IssueRefreshToken(u.ID)
	require.NoError(t, err)

	status, body := call(t, http.MethodPost, srv.URL+"/api/token/refresh/", "", map[string]string{"refresh": refresh})
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, body["refresh"])

	status, _ = call(t, http.MethodPost, srv.URL+"/api/token/refresh/", "", map[string]string{"refresh": refresh})
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestRegister(t *testing.T) {
	api, srv := newServer(t)
	_, err := api.AddUser(apifake.User{Username: "taken", Email: "taken@example.com"}, "secret-pass")
	require.NoError(t, err)

	tests := []struct {
		name   string
		body   map[string]string
		field  string
		expect string
	}{
		{
			name:   "duplicate username",
			body:   map[string]string{"username": "taken", "email": "new@example.com", "password": "secret-pass", "password_confirm": "secret-pass"},
			field:  "username",
			expect: "A user with that username already exists.",
		},
		{
			name:   "duplicate email",
			body:   map[string]string{"username": "new", "email": "taken@example.com", "password": "secret-pass", "password_confirm": "secret-pass"},
			field:  "email",
			expect: "user with this email already exists.",
		},
		{
			name:   "mismatch",
			body:   map[string]string{"username": "new", "email": "new@example.com", "password": "secret-pass", "password_confirm": "other-pass"},
			field:  "password",
			expect: "Password fields didn't match.",
		},
		{
			name:   "short password",
			body:   map[string]string{"username": "new", "email": "new@example.com", "password": "short", "password_confirm": "short"},
			field:  "password",
			expect: "This password is too short. It must contain at least 8 characters.",
		},
		{
			name:   "bad email",
			body:   map[string]string{"username": "new", "email": "nope", "password": "secret-pass", "password_confirm": "secret-pass"},
			field:  "email",
			expect: "Enter a valid email address.",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, body := call(t, http.MethodPost, srv.URL+"/api/register/", "", tc.body)
			require.Equal(t, http.StatusBadRequest, status)
			require.Equal(t, []string{tc.expect}, utils.Messages(body[tc.field]))
		})
	}

	status, body := call(t, http.MethodPost, srv.URL+"/api/register/", "", map[string]string{
		"username": "new", "email": "new@example.com", "password": "secret-pass", "password_confirm": "secret-pass",
	})
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, "new", body["username"])

	status, _ = call(t, http.MethodPost, srv.URL+"/api/token/", "", map[string]string{"username": "new", "password": "secret-pass"})
	require.Equal(t, http.StatusOK, status)
}

func TestDashboard(t *testing.T) {
	api, srv := newServer(t)
	u, err := api.AddUser(apifake.User{Username: "owner", IsBusinessOwner: true, BusinessCount: 2}, "secret-pass")
	require.NoError(t, err)
	access, err := api.IssueAccessToken(u.ID)
	require.NoError(t, err)

	status, body := call(t, http.MethodGet, srv.URL+"/api/dashboard/", access, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, float64(2), body["business_count"])
	require.Contains(t, body, "businesses")
	require.NotContains(t, body, "total_users")
}

func TestFailNext(t *testing.T) {
	api, srv := newServer(t)
	api.FailNext(apifake.TokenPath, 1, http.StatusServiceUnavailable, map[string]string{"detail": "down"})

	status, body := call(t, http.MethodPost, srv.URL+"/api/token/", "", map[string]string{"username": "x", "password": "y"})
	require.Equal(t, http.StatusServiceUnavailable, status)
	require.Equal(t, "down", body["detail"])

	status, _ = call(t, http.MethodPost, srv.URL+"/api/token/", "", map[string]string{"username": "x", "password": "y"})
	require.Equal(t, http.StatusUnauthorized, status)

	api.ResetHits()
	require.Zero(t, api.Hits(apifake.TokenPath))
}
