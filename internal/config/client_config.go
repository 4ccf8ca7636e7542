package config

import (
	"strconv"
	"strings"
	"time"
)

const (
	apiBaseURLVar   = "API_BASE_URL"
	apiRateLimitVar = "API_RATE_LIMIT"
	apiRateBurstVar = "API_RATE_BURST"

	// RequestTimeout bounds every call made to the directory API.
	RequestTimeout = 15 * time.Second
)

type ClientConfig interface {
	GetAPIBaseURL() string
	GetRequestTimeout() time.Duration
	GetRateLimit() float64
	GetRateBurst() int
	GetUserAgent() string
}

type Client struct{}

var _ ClientConfig = Client{}

// GetAPIBaseURL returns the directory API root (e.g., "https://directory.example.com/api")
func (Client) GetAPIBaseURL() string {
	return strings.TrimRight(GetEnv(apiBaseURLVar, "http://localhost:8000/api"), "/")
}

func (Client) GetRequestTimeout() time.Duration {
	return RequestTimeout
}

// GetRateLimit returns the maximum requests per second sent to the API, 0 disables throttling.
func (Client) GetRateLimit() float64 {
	limit, err := strconv.ParseFloat(GetEnv(apiRateLimitVar, "0"), 64)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

func (Client) GetRateBurst() int {
	burst, err := strconv.Atoi(GetEnv(apiRateBurstVar, "1"))
	if err != nil || burst < 1 {
		return 1
	}
	return burst
}

func (Client) GetUserAgent() string {
	return "dirsession-go/1.0.0"
}
