// Package directory talks to the business directory REST API on behalf of a
// session: login, signup, profile and dashboard lookups, token refresh and
// logout. Every failure is returned as a normalized *Error.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-directory-session/httpclient"
	"github.com/jrsteele09/go-directory-session/internal/config"
	errs "github.com/jrsteele09/go-directory-session/internal/errors"
	"github.com/jrsteele09/go-directory-session/tokens"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	loginPath     = "/token/"
	refreshPath   = "/token/refresh/"
	registerPath  = "/register/"
	profilePath   = "/profile/"
	dashboardPath = "/dashboard/"
)

type Client struct {
	http  *httpclient.Client
	store *tokens.Store
}

// New returns a client that sends requests through hc and keeps its
// tokens in store. hc should read its bearer token from the same store.
func New(hc *httpclient.Client, store *tokens.Store) *Client {
	return &Client{http: hc, store: store}
}

// NewFromConfig builds the HTTP client from configuration.
func NewFromConfig(cfg config.ClientConfig, store *tokens.Store) *Client {
	hc := httpclient.New(cfg.GetAPIBaseURL(), store,
		httpclient.WithTimeout(cfg.GetRequestTimeout()),
		httpclient.WithRateLimit(cfg.GetRateLimit(), cfg.GetRateBurst()),
		httpclient.WithUserAgent(cfg.GetUserAgent()),
	)
	return New(hc, store)
}

// Login exchanges credentials for a token pair. Nothing is stored. A
// rejected login matches errs.ErrInvalidCredentials.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*oauth2.Token, error) {
	var pair tokenPair
	if err := c.http.Post(ctx, loginPath, req, &pair); err != nil {
		e := Normalize(err)
		if e.Kind == KindHTTP && e.Status == http.StatusUnauthorized {
			e.Err = fmt.Errorf("%w: %w", errs.ErrInvalidCredentials, e.Err)
		}
		return nil, e
	}
	if pair.Access == "" || pair.Refresh == "" {
		return nil, &Error{Kind: KindRequest, Err: errs.Wrapf(errs.ErrInvalidToken, "login response missing tokens")}
	}
	return &oauth2.Token{
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
		TokenType:    "Bearer",
		Expiry:       AccessExpiry(pair.Access),
	}, nil
}

// Signup registers an account and returns the server's payload as is. It
// does not log the new account in.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (json.RawMessage, error) {
	var created json.RawMessage
	if err := c.http.Post(ctx, registerPath, req, &created); err != nil {
		return nil, Normalize(err)
	}
	return created, nil
}

func (c *Client) GetProfile(ctx context.Context) (*UserProfile, error) {
	var profile UserProfile
	if err := c.http.Get(ctx, profilePath, &profile); err != nil {
		return nil, Normalize(err)
	}
	return &profile, nil
}

func (c *Client) GetDashboard(ctx context.Context) (json.RawMessage, error) {
	var dashboard json.RawMessage
	if err := c.http.Get(ctx, dashboardPath, &dashboard); err != nil {
		return nil, Normalize(err)
	}
	return dashboard, nil
}

// RefreshToken trades the stored refresh token for a new access token and
// stores it. Any failure clears both stored tokens before returning a
// KindSessionExpired error.
func (c *Client) RefreshToken(ctx context.Context) (string, error) {
	refresh, ok, err := c.store.RefreshToken(ctx)
	if err != nil {
		return "", c.expire(ctx, err)
	}
	if !ok || refresh == "" {
		return "", c.expire(ctx, errs.ErrNoRefreshToken)
	}

	var pair tokenPair
	if err := c.http.Post(ctx, refreshPath, refreshRequest{Refresh: refresh}, &pair); err != nil {
		return "", c.expire(ctx, Normalize(err))
	}
	if pair.Access == "" {
		return "", c.expire(ctx, errs.Wrapf(errs.ErrInvalidToken, "refresh response missing access token"))
	}

	// Servers that rotate refresh tokens send a new one alongside the access token.
	if pair.Refresh != "" {
		err = c.store.SavePair(ctx, pair.Access, pair.Refresh)
	} else {
		err = c.store.SaveAccess(ctx, pair.Access)
	}
	if err != nil {
		return "", c.expire(ctx, err)
	}
	return pair.Access, nil
}

// Logout clears both stored tokens. It never fails, and a cancelled ctx does
// not stop the tokens from being removed.
func (c *Client) Logout(ctx context.Context) {
	if err := c.store.Clear(context.WithoutCancel(ctx)); err != nil {
		log.Err(err).Msg("clearing tokens on logout")
	}
}

func (c *Client) expire(ctx context.Context, cause error) *Error {
	log.Debug().Err(cause).Msg("token refresh failed, clearing session")
	c.Logout(ctx)
	return sessionExpired(cause)
}
