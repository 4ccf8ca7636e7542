package directory_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-directory-session/directory"
	"github.com/stretchr/testify/require"
)

func TestAccessExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	sign := func(claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
		require.NoError(t, err)
		return s
	}

	tests := []struct {
		name   string
		access string
		want   time.Time
	}{
		{name: "jwt with exp", access: sign(jwt.MapClaims{"exp": exp.Unix()}), want: exp},
		{name: "jwt without exp", access: sign(jwt.MapClaims{"user_id": 1})},
		{name: "opaque", access: "EXPIRED"},
		{name: "empty", access: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := directory.AccessExpiry(tt.access)
			require.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
		})
	}
}
