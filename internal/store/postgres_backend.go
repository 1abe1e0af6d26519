package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBackend stores each collection as one jsonb row in
// record_collections. A replace is a single upsert, so it is atomic.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend wraps an established pool. The record_collections table
// is created by persistence.RunMigrations.
func NewPostgresBackend(pool *pgxpool.Pool) (*PostgresBackend, error) {
	if pool == nil {
		return nil, errors.New("postgres backend requires a connection pool")
	}
	return &PostgresBackend{pool: pool}, nil
}

func (b *PostgresBackend) Read(ctx context.Context, name string) ([]byte, error) {
	const query = `SELECT body FROM record_collections WHERE name=$1`

	var body []byte
	if err := b.pool.QueryRow(ctx, query, name).Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("select %s: %w", name, err)
	}
	return body, nil
}

func (b *PostgresBackend) Write(ctx context.Context, name string, body []byte) error {
	const query = `
        INSERT INTO record_collections (name, body, updated_at)
        VALUES ($1, $2::jsonb, NOW())
        ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = NOW()`

	if _, err := b.pool.Exec(ctx, query, name, string(body)); err != nil {
		return fmt.Errorf("upsert %s: %w", name, err)
	}
	return nil
}

func (b *PostgresBackend) Ping(ctx context.Context) error {
	return b.pool.Ping(ctx)
}
