package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ChannelStoreChanged is the LISTEN/NOTIFY channel announcing blob writes.
const ChannelStoreChanged = "moodcafe_store_changed"

type BlobRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *BlobRepo) With(db DB) *BlobRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BlobRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Get returns the raw JSON stored under key.
//
// Returns:
//   - []byte: the document.
//   - error: repository.ErrNotFound if the key has never been written.
func (r *BlobRepo) Get(ctx context.Context, key string) ([]byte, error) {
	const op = "postgres.BlobRepo.Get"

	db := r.handle()

	var raw []byte
	if err := db.QueryRow(ctx,
		`SELECT value::text
         FROM store_blobs WHERE key = $1`,
		key,
	).Scan(&raw); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return raw, nil
}

// Put upserts the whole document; there is no field-level patching.
func (r *BlobRepo) Put(ctx context.Context, key string, value []byte, origin string) error {
	const op = "postgres.BlobRepo.Put"

	db := r.handle()

	if _, err := db.Exec(ctx,
		`INSERT INTO store_blobs(key, value, origin, updated_at)
         VALUES ($1, $2::jsonb, $3, now())
         ON CONFLICT (key) DO UPDATE
         SET value = EXCLUDED.value, origin = EXCLUDED.origin, updated_at = EXCLUDED.updated_at`,
		key, string(value), origin,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// Notify queues a change notification; inside a transaction it is delivered
// on commit.
func (r *BlobRepo) Notify(ctx context.Context, payload string) error {
	const op = "postgres.BlobRepo.Notify"

	db := r.handle()

	if _, err := db.Exec(ctx,
		`SELECT pg_notify($1, $2)`,
		ChannelStoreChanged, payload,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}
