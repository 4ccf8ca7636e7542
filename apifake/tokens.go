package apifake

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	errs "github.com/jrsteele09/go-directory-session/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var errTokenNotValid = errors.New("token not valid")

// IssueAccessToken signs an access token for the given user.
func (s *Server) IssueAccessToken(userID int64) (string, error) {
	return s.signToken(userID, tokenTypeAccess, s.accessTTL)
}

// IssueRefreshToken signs a refresh token for the given user.
func (s *Server) IssueRefreshToken(userID int64) (string, error) {
	return s.signToken(userID, tokenTypeRefresh, s.refreshTTL)
}

func (s *Server) signToken(userID int64, tokenType string, ttl time.Duration) (string, error) {
	now := NowTimeFunc()
	claims := jwtlib.MapClaims{
		"token_type": tokenType,
		"user_id":    userID,
		"iat":        now.Unix(),
		"exp":        now.Add(ttl).Unix(),
		"jti":        uuid.New().String(),
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// verifyToken checks the signature, expiry and type of raw and returns the
// user it was issued for.
func (s *Server) verifyToken(raw, tokenType string) (int64, error) {
	claims := jwtlib.MapClaims{}
	_, err := jwtlib.ParseWithClaims(raw, claims, func(*jwtlib.Token) (any, error) {
		return s.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithTimeFunc(NowTimeFunc),
		jwtlib.WithExpirationRequired(),
	)
	if errs.Is(err, jwtlib.ErrTokenExpired) {
		return 0, fmt.Errorf("%w: %w", errTokenNotValid, errs.ErrTokenExpired)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errTokenNotValid, err)
	}

	if t, _ := claims["token_type"].(string); t != tokenType {
		return 0, fmt.Errorf("%w: wrong token type %q", errTokenNotValid, t)
	}
	if jti, _ := claims["jti"].(string); s.isRevoked(jti) {
		return 0, fmt.Errorf("%w: revoked", errTokenNotValid)
	}
	id, ok := claims["user_id"].(float64)
	if !ok {
		return 0, fmt.Errorf("%w: missing user_id", errTokenNotValid)
	}
	return int64(id), nil
}

// RevokeToken blacklists a previously issued token.
func (s *Server) RevokeToken(raw string) {
	claims := jwtlib.MapClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(raw, claims); err != nil {
		return
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[jti] = true
}

func (s *Server) isRevoked(jti string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revoked[jti]
}
