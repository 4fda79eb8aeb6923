package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/db"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv_documents (
	key        TEXT PRIMARY KEY,
	doc        BYTEA NOT NULL DEFAULT ''::bytea,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

var _ storage.Backend = (*Backend)(nil)

// Backend keeps each collection as one row and locks the touched rows with
// SELECT ... FOR UPDATE for the duration of an update.
type Backend struct {
	pool *pgxpool.Pool
}

func NewBackend(ctx context.Context, p *db.Postgres) (*Backend, error) {
	if p == nil || p.Pool == nil {
		return nil, errors.New("postgres pool is nil")
	}
	if _, err := p.Pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("create kv schema: %w", err)
	}
	return &Backend{pool: p.Pool}, nil
}

func (b *Backend) Load(ctx context.Context, key string) ([]byte, error) {
	var doc []byte
	err := b.pool.QueryRow(ctx, `SELECT doc FROM kv_documents WHERE key = $1`, key).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return doc, err
}

func (b *Backend) Update(ctx context.Context, keys []string, fn storage.MutateFunc) error {
	// Lock rows in a stable order so concurrent updates cannot deadlock.
	ordered := append([]string(nil), keys...)
	sort.Strings(ordered)

	return pgx.BeginTxFunc(ctx, b.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		for _, key := range ordered {
			if _, err := tx.Exec(ctx,
				`INSERT INTO kv_documents (key) VALUES ($1) ON CONFLICT (key) DO NOTHING`, key,
			); err != nil {
				return err
			}
		}

		rows, err := tx.Query(ctx,
			`SELECT key, doc FROM kv_documents WHERE key = ANY($1) ORDER BY key FOR UPDATE`, ordered,
		)
		if err != nil {
			return err
		}
		docs := make(map[string][]byte, len(keys))
		for rows.Next() {
			var (
				key string
				doc []byte
			)
			if err := rows.Scan(&key, &doc); err != nil {
				rows.Close()
				return err
			}
			docs[key] = doc
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		changed, err := fn(docs)
		if err != nil {
			return err
		}

		for key, doc := range changed {
			if _, err := tx.Exec(ctx,
				`UPDATE kv_documents SET doc = $2, updated_at = now() WHERE key = $1`, key, doc,
			); err != nil {
				return err
			}
		}
		return nil
	})
}
