// Package httpclient is the configured HTTP client used to reach the
// directory API. It attaches the stored access token to every request and
// classifies failures into HTTP, network and setup errors.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds every request made by the client.
	DefaultTimeout = 15 * time.Second

	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	defaultUserAgent  = "dirsession-go/1.0.0"
)

// TokenSource reports the current access token. ok is false when no token is stored.
type TokenSource interface {
	AccessToken(ctx context.Context) (token string, ok bool, err error)
}

type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
}

type Option func(*Client)

// WithHTTPClient replaces the underlying client. Its transport is still
// wrapped so that credentials are attached.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		cp := *httpClient
		c.httpClient = &cp
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithRateLimit throttles outgoing requests to limit per second. A limit of
// zero or less disables throttling.
func WithRateLimit(limit float64, burst int) Option {
	return func(c *Client) {
		if limit <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(limit), burst)
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// New creates a client rooted at baseURL (e.g., "http://localhost:8000/api").
// tokens may be nil, in which case no credential is ever attached.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}

	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c.httpClient = &http.Client{
		Timeout:       c.httpClient.Timeout,
		Jar:           c.httpClient.Jar,
		CheckRedirect: c.httpClient.CheckRedirect,
		Transport: &bearerTransport{
			base:      base,
			tokens:    tokens,
			userAgent: c.userAgent,
		},
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends a JSON request and decodes a successful JSON response into out.
// The returned error is an *HTTPError for a non-2xx response, a
// *NetworkError when no response was received, and any other error when the
// request could not be built or the response could not be decoded.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("httpclient: rate limit: %w", err)
		}
	}

	reqURL, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return fmt.Errorf("httpclient: build url: %w", err)
	}

	var bodyReader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("httpclient: marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}
	req.Header.Set(headerAccept, contentTypeJSON)
	if body != nil {
		req.Header.Set(headerContentType, contentTypeJSON)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Err: err}
	}

	log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("request complete")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       respBody,
			Method:     method,
			Path:       path,
		}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("httpclient: decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}
