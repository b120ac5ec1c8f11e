// Package store implements capabilities.PersistStore and
// capabilities.CacheStore as byte-keyed tables over PostgreSQL via pgx.
package store

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a byte-keyed key/value table backed by a single
// PostgreSQL table. Separate instances over separate tables back
// PersistStore and CacheStore respectively; neither carries caller schema.
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

// Connect opens a pooled connection and verifies it before returning.
func Connect(ctx context.Context, connStr, table string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	log.Printf("store: connected to PostgreSQL table %q", table)
	return &PostgresStore{pool: pool, table: table}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema creates the key/value table if it does not already exist.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key   BYTEA PRIMARY KEY,
			value BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`, s.table)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("store: init schema for %q: %w", s.table, err)
	}
	return nil
}

// Get returns the value stored under key, or a nil slice with no error if
// the key is absent.
func (s *PostgresStore) Get(ctx context.Context, key []byte) ([]byte, error) {
	sql := fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, s.table)
	var value []byte
	err := s.pool.QueryRow(ctx, sql, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get from %q: %w", s.table, err)
	}
	return value, nil
}

// Put upserts key to value.
func (s *PostgresStore) Put(ctx context.Context, key, value []byte) error {
	sql := fmt.Sprintf(`
		INSERT INTO %s (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW();
	`, s.table)
	if _, err := s.pool.Exec(ctx, sql, key, value); err != nil {
		return fmt.Errorf("store: put into %q: %w", s.table, err)
	}
	return nil
}

// Delete removes key, succeeding silently if it was already absent.
func (s *PostgresStore) Delete(ctx context.Context, key []byte) error {
	sql := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, s.table)
	if _, err := s.pool.Exec(ctx, sql, key); err != nil {
		return fmt.Errorf("store: delete from %q: %w", s.table, err)
	}
	return nil
}
