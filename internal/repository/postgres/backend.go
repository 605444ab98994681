package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/moodcafe/internal/repository"
	"github.com/kirinyoku/moodcafe/internal/store"
)

const unlistenTimeout = 2 * time.Second

type changedMsg struct {
	Key    string `json:"key"`
	Origin string `json:"origin"`
}

// BlobStore is a store.Backend on Postgres. The upsert and its NOTIFY share
// one transaction, so listeners never hear about uncommitted documents.
type BlobStore struct {
	pool   *pgxpool.Pool
	blobs  *BlobRepo
	origin string
	logger *slog.Logger
}

func NewBlobStore(pool *pgxpool.Pool, origin string, logger *slog.Logger) *BlobStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &BlobStore{
		pool:   pool,
		blobs:  &BlobRepo{pool: pool},
		origin: origin,
		logger: logger,
	}
}

func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := s.blobs.Get(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return raw, true, nil
}

func (s *BlobStore) Set(ctx context.Context, key string, value []byte) error {
	const op = "postgres.BlobStore.Set"

	payload, err := json.Marshal(changedMsg{Key: key, Origin: s.origin})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = runTx(ctx, s.pool, func(ctx context.Context, tx DB) error {
		blobs := s.blobs.With(tx)
		if err := blobs.Put(ctx, key, value, s.origin); err != nil {
			return err
		}
		return blobs.Notify(ctx, string(payload))
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Watch holds one pooled connection in LISTEN mode for its whole lifetime.
func (s *BlobStore) Watch(ctx context.Context, fn func(ctx context.Context, c store.Change)) error {
	const op = "postgres.BlobStore.Watch"

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer s.releaseListener(conn)

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{ChannelStoreChanged}.Sanitize()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		key, ok := s.remoteKey(n.Payload)
		if !ok {
			continue
		}

		v, found, err := s.Get(ctx, key)
		if err != nil {
			s.logger.Warn("failed to fetch changed key", slog.String("key", key), slog.Any("error", err))
			continue
		}
		if !found {
			continue
		}

		fn(ctx, store.Change{Key: key, Value: v})
	}
}

// listenerConn is the part of *pgxpool.Conn a LISTEN loop holds.
type listenerConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Release()
}

// releaseListener drops every subscription before the connection returns to
// the pool. ctx of the watch is usually done by now, so a fresh one is used.
func (s *BlobStore) releaseListener(conn listenerConn) {
	ctx, cancel := context.WithTimeout(context.Background(), unlistenTimeout)
	defer cancel()

	// A failed UNLISTEN leaves pgx with a closed or busy connection, which the
	// pool destroys on Release instead of reusing.
	if _, err := conn.Exec(ctx, "UNLISTEN *"); err != nil {
		s.logger.Warn("failed to unlisten", slog.Any("error", err))
	}
	conn.Release()
}

// remoteKey decodes a notification payload and drops our own writes.
func (s *BlobStore) remoteKey(payload string) (string, bool) {
	var msg changedMsg
	if err := json.Unmarshal([]byte(payload), &msg); err != nil || msg.Key == "" {
		return "", false
	}
	if msg.Origin == s.origin {
		return "", false
	}
	return msg.Key, true
}
