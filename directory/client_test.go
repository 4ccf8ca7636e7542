package directory_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-directory-session/apifake"
	"github.com/jrsteele09/go-directory-session/directory"
	"github.com/jrsteele09/go-directory-session/httpclient"
	errs "github.com/jrsteele09/go-directory-session/internal/errors"
	"github.com/jrsteele09/go-directory-session/internal/utils"
	"github.com/jrsteele09/go-directory-session/tokens"
	"github.com/jrsteele09/go-directory-session/tokens/memstore"
	"github.com/jrsteele09/go-directory-session/tokens/sqlitestore"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	api    *apifake.Server
	store  *tokens.Store
	client *directory.Client
	alice  *apifake.User
}

func setup(t *testing.T, opts ...apifake.Option) *fixture {
	t.Helper()
	api := apifake.New(append([]apifake.Option{apifake.WithPasswordCost(bcrypt.MinCost)}, opts...)...)
	srv := httptest.NewServer(api.Handler("/api"))
	t.Cleanup(srv.Close)

	alice, err := api.AddUser(apifake.User{Username: "alice", Email: "alice@example.com", ReviewCount: 3}, "secret-pass")
	require.NoError(t, err)

	store := tokens.NewStore(memstore.New(), tokens.DefaultKeys())
	hc := httpclient.New(srv.URL+"/api", store, httpclient.WithTimeout(5*time.Second))
	return &fixture{api: api, store: store, client: directory.New(hc, store), alice: alice}
}

func requireNoTokens(t *testing.T, store *tokens.Store) {
	t.Helper()
	ctx := context.Background()
	_, ok, err := store.Get(ctx, tokens.Access)
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = store.Get(ctx, tokens.Refresh)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLogin(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	token, err := f.client.Login(ctx, directory.LoginRequest{Username: "alice", Password: "secret-pass"})
	require.NoError(t, err)
	require.NotEmpty(t, token.AccessToken)
	require.NotEmpty(t, token.RefreshToken)
	require.Equal(t, "Bearer", token.TokenType)
	require.WithinDuration(t, time.Now().Add(5*time.Minute), token.Expiry, time.Minute)

	// Login does not persist anything on its own.
	requireNoTokens(t, f.store)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := setup(t)

	_, err := f.client.Login(context.Background(), directory.LoginRequest{Username: "alice", Password: "wrong"})
	var dirErr *directory.Error
	require.ErrorAs(t, err, &dirErr)
	require.Equal(t, directory.KindHTTP, dirErr.Kind)
	require.Equal(t, http.StatusUnauthorized, dirErr.Status)
	require.Equal(t, "No active account found with the given credentials", dirErr.Message())
	require.ErrorIs(t, err, errs.ErrInvalidCredentials)

	var httpErr *httpclient.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
}

func TestLogin_NetworkDown(t *testing.T) {
	store := tokens.NewStore(memstore.New(), tokens.DefaultKeys())
	client := directory.New(httpclient.New("http://127.0.0.1:1/api", store), store)

	_, err := client.Login(context.Background(), directory.LoginRequest{Username: "alice", Password: "secret-pass"})
	var dirErr *directory.Error
	require.ErrorAs(t, err, &dirErr)
	require.Equal(t, directory.KindNetwork, dirErr.Kind)
	require.Equal(t, "Cannot connect to server", dirErr.Message())
}

func TestSignup(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, err := f.client.Signup(ctx, directory.SignupRequest{
		Username:        "bob",
		Email:           "bob@example.com",
		Password:        "secret-pass",
		PasswordConfirm: "secret-pass",
		PhoneNumber:     utils.Ptr("555-0100"),
	})
	require.NoError(t, err)
	require.Contains(t, string(created), `"username":"bob"`)
	require.Contains(t, string(created), `"phone_number":"555-0100"`)
	requireNoTokens(t, f.store)

	_, err = f.client.Signup(ctx, directory.SignupRequest{
		Username:        "alice",
		Email:           "alice@example.com",
		Password:        "secret-pass",
		PasswordConfirm: "secret-pass",
	})
	var dirErr *directory.Error
	require.ErrorAs(t, err, &dirErr)
	require.Equal(t, directory.KindValidation, dirErr.Kind)
	require.Equal(t, "A user with that username already exists.", dirErr.Message())
	require.Equal(t, "user with this email already exists.", dirErr.FieldErrors()["email"])
}

func TestProfileAndDashboard(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.client.GetProfile(ctx)
	var dirErr *directory.Error
	require.ErrorAs(t, err, &dirErr)
	require.Equal(t, http.StatusUnauthorized, dirErr.Status)
	require.NotErrorIs(t, err, errs.ErrInvalidCredentials)

	access, err := f.api.IssueAccessToken(f.alice.ID)
	require.NoError(t, err)
	require.NoError(t, f.store.SaveAccess(ctx, access))

	profile, err := f.client.GetProfile(ctx)
	require.NoError(t, err)
	require.Equal(t, f.alice.ID, profile.ID)
	require.Equal(t, "alice", profile.Username)
	require.Equal(t, 3, profile.ReviewCount)
	require.Empty(t, profile.Phone())
	require.False(t, profile.IsAdmin())

	dashboard, err := f.client.GetDashboard(ctx)
	require.NoError(t, err)
	require.Contains(t, string(dashboard), `"review_count":3`)
}

func TestRefreshToken(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	refresh, err := f.api.IssueRefreshToken(f.alice.ID)
	require.NoError(t, err)
	require.NoError(t, f.store.SavePair(ctx, "EXPIRED", refresh))

	access, err := f.client.RefreshToken(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, access)

	stored, ok, err := f.store.AccessToken(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, access, stored)

	storedRefresh, _, err := f.store.RefreshToken(ctx)
	require.NoError(t, err)
	require.Equal(t, refresh, storedRefresh)
}

func TestRefreshToken_Rotation(t *testing.T) {
	f := setup(t, apifake.WithRefreshRotation())
	ctx := context.Background()

	refresh, err := f.api.IssueRefreshToken(f.alice.ID)
	require.NoError(t, err)
	require.NoError(t, f.store.SavePair(ctx, "EXPIRED", refresh))

	_, err = f.client.RefreshToken(ctx)
	require.NoError(t, err)

	storedRefresh, ok, err := f.store.RefreshToken(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEqual(t, refresh, storedRefresh)
}

func TestRefreshToken_FailureClearsTokens(t *testing.T) {
	tests := []struct {
		name    string
		refresh string
		cause   error
	}{
		{name: "no refresh token", cause: errs.ErrNoRefreshToken},
		{name: "rejected refresh token", refresh: "not-a-jwt"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := setup(t)
			ctx := context.Background()
			require.NoError(t, f.store.SaveAccess(ctx, "EXPIRED"))
			if tc.refresh != "" {
				require.NoError(t, f.store.Set(ctx, tokens.Refresh, tc.refresh))
			}

			_, err := f.client.RefreshToken(ctx)
			var dirErr *directory.Error
			require.ErrorAs(t, err, &dirErr)
			require.Equal(t, directory.KindSessionExpired, dirErr.Kind)
			require.Equal(t, "Session expired, please log in again", dirErr.Message())
			require.ErrorIs(t, err, errs.ErrSessionExpired)
			if tc.cause != nil {
				require.ErrorIs(t, err, tc.cause)
			}
			requireNoTokens(t, f.store)
		})
	}
}

func TestRefreshToken_NetworkFailureClearsTokens(t *testing.T) {
	store := tokens.NewStore(memstore.New(), tokens.DefaultKeys())
	client := directory.New(httpclient.New("http://127.0.0.1:1/api", store), store)
	ctx := context.Background()
	require.NoError(t, store.SavePair(ctx, "A1", "R1"))

	_, err := client.RefreshToken(ctx)
	require.ErrorIs(t, err, errs.ErrSessionExpired)
	require.ErrorIs(t, err, httpclient.ErrCannotConnect)
	requireNoTokens(t, store)
}

func TestLogout(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.store.SavePair(ctx, "A1", "R1"))

	f.client.Logout(ctx)
	requireNoTokens(t, f.store)

	f.client.Logout(ctx)
	requireNoTokens(t, f.store)
}

func sqliteStore(t *testing.T) *tokens.Store {
	t.Helper()
	backend, err := sqlitestore.Open(filepath.Join(t.TempDir(), "tokens.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	return tokens.NewStore(backend, tokens.DefaultKeys())
}

func TestRefreshToken_CancelledContextClearsTokens(t *testing.T) {
	store := sqliteStore(t)
	client := directory.New(httpclient.New("http://127.0.0.1:1/api", store), store)
	require.NoError(t, store.SavePair(context.Background(), "EXPIRED", "R1"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.RefreshToken(ctx)
	require.ErrorIs(t, err, errs.ErrSessionExpired)
	requireNoTokens(t, store)
}

func TestLogout_CancelledContext(t *testing.T) {
	store := sqliteStore(t)
	client := directory.New(httpclient.New("http://127.0.0.1:1/api", store), store)
	require.NoError(t, store.SavePair(context.Background(), "A1", "R1"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client.Logout(ctx)
	requireNoTokens(t, store)
}
