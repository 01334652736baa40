// Package postgres stores catalog documents in a PostgreSQL table, one row
// per address. Saves are upserts so root and page documents can be
// rewritten in place.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rzbill/catalog/internal/storage"
)

// Schema creates the documents table. It is idempotent.
const Schema = `CREATE TABLE IF NOT EXISTS catalog_documents (
	address       TEXT PRIMARY KEY,
	content       BYTEA NOT NULL,
	content_type  TEXT NOT NULL DEFAULT '',
	cache_control TEXT NOT NULL DEFAULT '',
	saved_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// NewPool creates a pgxpool connection pool and verifies connectivity.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// Migrate applies Schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("exec migration: %w", err)
	}
	return nil
}

// Storage implements storage.Storage using PostgreSQL.
type Storage struct {
	pool *pgxpool.Pool
	base string
}

var _ storage.Storage = (*Storage)(nil)

// New returns a storage port over pool rooted at base.
func New(pool *pgxpool.Pool, base string) (*Storage, error) {
	if err := storage.ValidateBase(base); err != nil {
		return nil, err
	}
	return &Storage{pool: pool, base: base}, nil
}

func (s *Storage) Save(ctx context.Context, address string, content *storage.Content) error {
	if _, err := storage.Relative(s.base, address); err != nil {
		return err
	}
	const q = `INSERT INTO catalog_documents (address, content, content_type, cache_control, saved_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (address) DO UPDATE
SET content = EXCLUDED.content, content_type = EXCLUDED.content_type,
    cache_control = EXCLUDED.cache_control, saved_at = EXCLUDED.saved_at`
	if _, err := s.pool.Exec(ctx, q, address, content.Data, content.ContentType, content.CacheControl); err != nil {
		return fmt.Errorf("save %s: %w", address, err)
	}
	return nil
}

func (s *Storage) Load(ctx context.Context, address string) (*storage.Content, bool, error) {
	const q = `SELECT content, content_type, cache_control FROM catalog_documents WHERE address = $1`
	var c storage.Content
	err := s.pool.QueryRow(ctx, q, address).Scan(&c.Data, &c.ContentType, &c.CacheControl)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load %s: %w", address, err)
	}
	return &c, true, nil
}

func (s *Storage) LoadString(ctx context.Context, address string) (string, bool, error) {
	c, ok, err := s.Load(ctx, address)
	if err != nil || !ok {
		return "", ok, err
	}
	return string(c.Data), true, nil
}

func (s *Storage) ResolveURI(relative string) string { return storage.Resolve(s.base, relative) }

func (s *Storage) BaseAddress() string { return s.base }
