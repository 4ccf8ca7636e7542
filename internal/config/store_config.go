package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	tokenStoreVar     = "TOKEN_STORE"
	tokenStorePathVar = "TOKEN_STORE_PATH"
	accessTokenKeyVar = "ACCESS_TOKEN_KEY"
	refreshKeyVar     = "REFRESH_TOKEN_KEY"
	redisAddrVar      = "REDIS_ADDR"
	redisPasswordVar  = "REDIS_PASSWORD"
	redisPrefixVar    = "REDIS_PREFIX"
)

// Token store backends
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

type StoreConfig interface {
	GetTokenStoreBackend() string
	GetTokenStorePath() string
	GetAccessTokenKey() string
	GetRefreshTokenKey() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisPrefix() string
}

type Store struct{}

var _ StoreConfig = Store{}

func (Store) GetTokenStoreBackend() string {
	return strings.ToLower(GetEnv(tokenStoreVar, StoreFile))
}

// GetTokenStorePath returns the file used by the file and sqlite backends.
// Defaults live under ~/.dirsession.
func (s Store) GetTokenStorePath() string {
	if path := GetEnv(tokenStorePathVar, ""); path != "" {
		return path
	}
	name := "tokens.yaml"
	if s.GetTokenStoreBackend() == StoreSQLite {
		name = "tokens.db"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".dirsession", name)
}

func (Store) GetAccessTokenKey() string {
	return GetEnv(accessTokenKeyVar, "access_token")
}

func (Store) GetRefreshTokenKey() string {
	return GetEnv(refreshKeyVar, "refresh_token")
}

func (Store) GetRedisAddr() string {
	return GetEnv(redisAddrVar, "localhost:6379")
}

func (Store) GetRedisPassword() string {
	return GetEnv(redisPasswordVar, "")
}

func (Store) GetRedisPrefix() string {
	return GetEnv(redisPrefixVar, "dirsession:")
}
