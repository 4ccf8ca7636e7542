package config

import (
	"fmt"
	"strings"
	"time"
)

type FakeAPIConfig interface {
	GetFakeAPIPort() string
	GetSigningSecret() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
}

type FakeAPI struct{}

var _ FakeAPIConfig = FakeAPI{}

func (FakeAPI) GetFakeAPIPort() string {
	port := GetEnv("FAKEAPI_PORT", "8000")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (FakeAPI) GetSigningSecret() string {
	return GetEnv("FAKEAPI_SIGNING_SECRET", "dev-signing-secret")
}

func (FakeAPI) GetAccessTokenTTL() time.Duration {
	return getDuration("FAKEAPI_ACCESS_TTL", 5*time.Minute)
}

func (FakeAPI) GetRefreshTokenTTL() time.Duration {
	return getDuration("FAKEAPI_REFRESH_TTL", 24*time.Hour)
}

func getDuration(envVar string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(GetEnv(envVar, ""))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
