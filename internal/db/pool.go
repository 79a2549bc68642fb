package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a small pool; the simulation has a single writer and a
// handful of API readers.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 4
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 10 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}

// Table quotes a possibly schema-qualified table name for use in SQL text.
func Table(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

// EnsureDocumentTable creates the single-row season document table.
func EnsureDocumentTable(ctx context.Context, pool *pgxpool.Pool, table string) error {
	sql := fmt.Sprintf(`create table if not exists %s (
	id bigint primary key,
	data jsonb not null,
	updated_at timestamptz not null default now()
)`, Table(table))
	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("ensure table %s: %w", table, err)
	}
	return nil
}
