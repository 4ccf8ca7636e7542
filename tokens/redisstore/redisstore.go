// Package redisstore keeps tokens in Redis under a namespace prefix.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jrsteele09/go-directory-session/tokens"
	"github.com/redis/go-redis/v9"
)

var (
	_ tokens.Backend = (*Store)(nil)
	_ tokens.Batcher = (*Store)(nil)
)

const DefaultPrefix = "dirsession:"

type Store struct {
	client *redis.Client
	prefix string
}

// New creates a Redis-backed token store. An empty prefix uses DefaultPrefix.
func New(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{
		client: client,
		prefix: prefix,
	}
}

func (r *Store) key(name string) string {
	return r.prefix + name
}

func (r *Store) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redisstore: get %s: %w", key, err)
	}
	return val, true, nil
}

func (r *Store) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redisstore: set %s: %w", key, err)
	}
	return nil
}

func (r *Store) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redisstore: remove %s: %w", key, err)
	}
	return nil
}

// SetAll writes every key with a single MSET, which Redis applies atomically.
func (r *Store) SetAll(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	pairs := make([]any, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, r.key(k), v)
	}
	if err := r.client.MSet(ctx, pairs...).Err(); err != nil {
		return fmt.Errorf("redisstore: mset: %w", err)
	}
	return nil
}

func (r *Store) RemoveAll(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, 0, len(keys))
	for _, k := range keys {
		prefixed = append(prefixed, r.key(k))
	}
	if err := r.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("redisstore: del: %w", err)
	}
	return nil
}
