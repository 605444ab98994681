package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Cache reads and writes whole documents. Documents never expire; they are
// the system of record when Redis backs the store.
type Cache struct {
	rdb *redis.Client
}

func New(client *redis.Client) *Cache {
	return &Cache{rdb: client}
}

func (c *Cache) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return b, true, nil
}

func (c *Cache) SetBytes(ctx context.Context, key string, val []byte) error {
	return c.rdb.Set(ctx, key, val, 0).Err()
}
