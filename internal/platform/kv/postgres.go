package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vetoapp23/vetoapp/internal/platform/db"
)

// ErrConflict indicates two writers raced on the same namespace. The caller
// may retry the whole operation.
var ErrConflict = errors.New("kv: concurrent write conflict")

const kvSchema = `
CREATE TABLE IF NOT EXISTS kv_documents (
    namespace  TEXT PRIMARY KEY,
    doc        JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres stores each namespace as one jsonb document row. SaveAll runs in
// a single transaction.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps a pgx pool and ensures the document table exists.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	if _, err := pool.Exec(ctx, kvSchema); err != nil {
		return nil, fmt.Errorf("kv: ensure schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Load(ctx context.Context, namespace string, v any) error {
	var raw []byte
	err := p.pool.QueryRow(ctx,
		`SELECT doc FROM kv_documents WHERE namespace = $1`, namespace).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNamespaceNotFound, namespace)
	}
	if err != nil {
		return fmt.Errorf("kv: select %s: %w", namespace, err)
	}
	return json.Unmarshal(raw, v)
}

func (p *Postgres) Save(ctx context.Context, namespace string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kv: marshal %s: %w", namespace, err)
	}
	if _, err := p.pool.Exec(ctx, upsertDoc, namespace, raw); err != nil {
		return classifyPgError(namespace, err)
	}
	return nil
}

func (p *Postgres) SaveAll(ctx context.Context, entries map[string]any) error {
	return db.WithTx(ctx, p.pool, func(tx pgx.Tx) error {
		for ns, v := range entries {
			raw, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("kv: marshal %s: %w", ns, err)
			}
			if _, err := tx.Exec(ctx, upsertDoc, ns, raw); err != nil {
				return classifyPgError(ns, err)
			}
		}
		return nil
	})
}

func (p *Postgres) Reset(ctx context.Context, namespace string) error {
	if _, err := p.pool.Exec(ctx,
		`DELETE FROM kv_documents WHERE namespace = $1`, namespace); err != nil {
		return fmt.Errorf("kv: delete %s: %w", namespace, err)
	}
	return nil
}

const upsertDoc = `
INSERT INTO kv_documents (namespace, doc, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (namespace) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`

func classifyPgError(namespace string, err error) error {
	if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrConflict, namespace)
	}
	return fmt.Errorf("kv: upsert %s: %w", namespace, err)
}
