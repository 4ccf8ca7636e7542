package directory

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessExpiry reads the exp claim of a JWT access token without verifying
// it. Opaque tokens have no known expiry and return the zero time.
func AccessExpiry(access string) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
