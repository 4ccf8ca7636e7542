// Package sqlitestore keeps tokens in a SQLite database.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jrsteele09/go-directory-session/tokens"
	_ "modernc.org/sqlite"
)

var (
	_ tokens.Backend = (*Store)(nil)
	_ tokens.Batcher = (*Store)(nil)
)

const (
	selectToken = `SELECT value FROM tokens WHERE name = ?`
	upsertToken = `
		INSERT INTO tokens (name, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	deleteToken = `DELETE FROM tokens WHERE name = ?`
)

type Store struct {
	db *sql.DB
}

// Open connects to the database at dsn and applies pending migrations.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitestore: migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, selectToken, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlitestore: get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, upsertToken, key, value); err != nil {
		return fmt.Errorf("sqlitestore: set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, deleteToken, key); err != nil {
		return fmt.Errorf("sqlitestore: remove %s: %w", key, err)
	}
	return nil
}

func (s *Store) SetAll(ctx context.Context, values map[string]string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for k, v := range values {
			if _, err := tx.ExecContext(ctx, upsertToken, k, v); err != nil {
				return fmt.Errorf("sqlitestore: set %s: %w", k, err)
			}
		}
		return nil
	})
}

func (s *Store) RemoveAll(ctx context.Context, keys ...string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, k := range keys {
			if _, err := tx.ExecContext(ctx, deleteToken, k); err != nil {
				return fmt.Errorf("sqlitestore: remove %s: %w", k, err)
			}
		}
		return nil
	})
}

// withTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitestore: begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // safe to call even after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
