package httpclient

import (
	"net/http"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	headerUserAgent = "User-Agent"
	headerRequestID = "X-Request-ID"
)

// bearerTransport attaches the stored access token, when present, to each
// outgoing request.
type bearerTransport struct {
	base      http.RoundTripper
	tokens    TokenSource
	userAgent string
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.Header.Set(headerUserAgent, t.userAgent)
	if out.Header.Get(headerRequestID) == "" {
		out.Header.Set(headerRequestID, ulid.Make().String())
	}

	if t.tokens != nil {
		access, ok, err := t.tokens.AccessToken(req.Context())
		switch {
		case err != nil:
			// An unreadable store is treated like an empty one.
			log.Err(err).Msg("reading access token")
		case ok && access != "":
			(&oauth2.Token{AccessToken: access, TokenType: "Bearer"}).SetAuthHeader(out)
		}
	}
	return t.base.RoundTrip(out)
}
