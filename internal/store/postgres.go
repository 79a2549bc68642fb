package store

import (
	"context"
	"errors"
	"fmt"

	"stables/internal/db"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres keeps the document in a jsonb column of a single row.
type Postgres struct {
	pool   *pgxpool.Pool
	table  string
	ownsDB bool
}

// OpenPostgres connects, creates the table when missing and owns the pool.
func OpenPostgres(ctx context.Context, databaseURL, table string) (*Postgres, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the postgres store")
	}
	pool, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureDocumentTable(ctx, pool, table); err != nil {
		pool.Close()
		return nil, err
	}
	return &Postgres{pool: pool, table: table, ownsDB: true}, nil
}

// NewPostgres wraps a pool the caller keeps ownership of.
func NewPostgres(pool *pgxpool.Pool, table string) *Postgres {
	return &Postgres{pool: pool, table: table}
}

func (p *Postgres) Load(ctx context.Context) ([]byte, error) {
	var raw []byte
	q := fmt.Sprintf(`select data from %s where id = $1`, db.Table(p.table))
	err := p.pool.QueryRow(ctx, q, DocumentID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select document: %w", err)
	}
	return raw, nil
}

func (p *Postgres) Save(ctx context.Context, raw []byte) error {
	q := fmt.Sprintf(`insert into %s (id, data, updated_at) values ($1, $2::jsonb, now())
on conflict (id) do update set data = excluded.data, updated_at = excluded.updated_at`, db.Table(p.table))
	if _, err := p.pool.Exec(ctx, q, DocumentID, string(raw)); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	if p.ownsDB {
		p.pool.Close()
	}
	return nil
}
