package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idemLocked       = "LOCK"
	idemResultPrefix = "RES:"
)

// IdempotencyStore remembers the response of a booking request under its
// Idempotency-Key. A key holds "LOCK" while the booking is in flight and
// "RES:<json>" once it has been written to the ledger.
type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

// AcquireLock claims key for one in-flight booking. It reports false if the
// key is already locked or already holds a result.
func (s *IdempotencyStore) AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (bool, error) {
	const op = "redis.IdempotencyStore.AcquireLock"

	ok, err := s.rdb.SetNX(ctx, key, idemLocked, lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

// SaveResult replaces the lock with the response body for replays.
func (s *IdempotencyStore) SaveResult(ctx context.Context, key string, jsonPayload string) error {
	const op = "redis.IdempotencyStore.SaveResult"

	if err := s.rdb.Set(ctx, key, idemResultPrefix+jsonPayload, s.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetResult returns the stored body. A missing or still locked key is not a
// result.
func (s *IdempotencyStore) GetResult(ctx context.Context, key string) (string, bool, error) {
	const op = "redis.IdempotencyStore.GetResult"

	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}

	payload, ok := strings.CutPrefix(v, idemResultPrefix)
	return payload, ok, nil
}

// Release drops the key so a failed booking can be retried with it.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	const op = "redis.IdempotencyStore.Release"

	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
