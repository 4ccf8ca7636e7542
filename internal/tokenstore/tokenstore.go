// Package tokenstore builds the configured token backend.
package tokenstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jrsteele09/go-directory-session/internal/config"
	"github.com/jrsteele09/go-directory-session/tokens"
	"github.com/jrsteele09/go-directory-session/tokens/filestore"
	"github.com/jrsteele09/go-directory-session/tokens/memstore"
	"github.com/jrsteele09/go-directory-session/tokens/redisstore"
	"github.com/jrsteele09/go-directory-session/tokens/sqlitestore"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open returns a token store for the configured backend. The closer releases
// any connection held by the backend.
func Open(cfg config.StoreConfig) (*tokens.Store, io.Closer, error) {
	keys := tokens.Keys{
		Access:  cfg.GetAccessTokenKey(),
		Refresh: cfg.GetRefreshTokenKey(),
	}
	if err := keys.Validate(); err != nil {
		return nil, nil, err
	}

	backend, closer, err := openBackend(cfg)
	if err != nil {
		return nil, nil, err
	}
	log.Debug().Str("backend", cfg.GetTokenStoreBackend()).Msg("token store opened")
	return tokens.NewStore(backend, keys), closer, nil
}

func openBackend(cfg config.StoreConfig) (tokens.Backend, io.Closer, error) {
	switch cfg.GetTokenStoreBackend() {
	case config.StoreMemory:
		return memstore.New(), nopCloser{}, nil
	case config.StoreFile:
		s, err := filestore.New(cfg.GetTokenStorePath())
		if err != nil {
			return nil, nil, err
		}
		return s, nopCloser{}, nil
	case config.StoreSQLite:
		path := cfg.GetTokenStorePath()
		if path != ":memory:" && !strings.HasPrefix(path, "file:") {
			if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
				return nil, nil, fmt.Errorf("tokenstore: %w", err)
			}
		}
		s, err := sqlitestore.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.GetRedisPassword(),
		})
		return redisstore.New(client, cfg.GetRedisPrefix()), client, nil
	}
	return nil, nil, fmt.Errorf("tokenstore: unknown backend %q", cfg.GetTokenStoreBackend())
}
