package redis

import (
	"context"
	"fmt"
	"log/slog"

	redisx "github.com/kirinyoku/moodcafe/internal/redis"
	"github.com/kirinyoku/moodcafe/internal/store"
	"github.com/redis/go-redis/v9"
)

// BlobStore is a store.Backend on Redis. Every Set is followed by a
// notification on the shared changes channel tagged with this process's
// origin, so Watch can skip its own writes.
type BlobStore struct {
	cache  *Cache
	pubsub *redisx.ChangesPubSub
	origin string
	logger *slog.Logger
}

func NewBlobStore(rdb *redis.Client, origin string, logger *slog.Logger) *BlobStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &BlobStore{
		cache:  New(rdb),
		pubsub: redisx.NewChangesPubSub(rdb),
		origin: origin,
		logger: logger,
	}
}

func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	const op = "redisrepo.BlobStore.Get"

	v, ok, err := s.cache.GetBytes(ctx, redisx.KeyStore(key))
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	return v, ok, nil
}

func (s *BlobStore) Set(ctx context.Context, key string, value []byte) error {
	const op = "redisrepo.BlobStore.Set"

	if err := s.cache.SetBytes(ctx, redisx.KeyStore(key), value); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.pubsub.PublishChanged(ctx, key, s.origin); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *BlobStore) Watch(ctx context.Context, fn func(ctx context.Context, c store.Change)) error {
	return s.pubsub.Subscribe(ctx, func(ctx context.Context, msg redisx.ChangedMsg) {
		s.handleChanged(ctx, msg, fn)
	})
}

func (s *BlobStore) handleChanged(
	ctx context.Context,
	msg redisx.ChangedMsg,
	fn func(ctx context.Context, c store.Change),
) {
	if msg.Origin == s.origin {
		return
	}

	v, ok, err := s.Get(ctx, msg.Key)
	if err != nil {
		s.logger.Warn("failed to fetch changed key", slog.String("key", msg.Key), slog.Any("error", err))
		return
	}
	if !ok {
		return
	}

	fn(ctx, store.Change{Key: msg.Key, Value: v})
}
