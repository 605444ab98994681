package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	redisx "github.com/kirinyoku/moodcafe/internal/redis"
	"github.com/redis/go-redis/v9"
)

// Sliding window over a sorted set scored by hit time in ms.
// KEYS[1] = window key
// ARGV    = now_ms, window_ms, limit, member
// Returns {allowed, hits, retry_ms}.
const luaBookingWindow = `
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', KEYS[1], 0, now - window)
local hits = redis.call('ZCARD', KEYS[1])

if hits >= limit then
  local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
  local retry = window - (now - tonumber(oldest[2] or now))
  if retry < 0 then retry = 0 end
  return {0, hits, retry}
end

redis.call('ZADD', KEYS[1], now, ARGV[4])
redis.call('PEXPIRE', KEYS[1], window)
return {1, hits + 1, 0}
`

// SlidingWindowLimiter caps booking attempts per caller across every process
// sharing the Redis instance. Rejected attempts do not extend the window.
type SlidingWindowLimiter struct {
	rdb    *redis.Client
	scope  string
	limit  int
	window time.Duration
	script *redis.Script
	clock  clockwork.Clock
	member func() string
}

func NewSlidingWindowLimiter(
	rdb *redis.Client,
	scope string,
	limit int,
	window time.Duration,
) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		rdb:    rdb,
		scope:  scope,
		limit:  limit,
		window: window,
		script: redis.NewScript(luaBookingWindow),
		clock:  clockwork.NewRealClock(),
		member: uuid.NewString,
	}
}

// Allow records one attempt for id.
//
// Returns:
//   - allowed: false once id has used up its window.
//   - current: attempts counted in the window, including this one if allowed.
//   - retryAfter: time until the oldest attempt leaves the window.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, id string) (allowed bool, current int64, retryAfter time.Duration, err error) {
	const op = "redis.SlidingWindowLimiter.Allow"

	res, err := l.script.Run(
		ctx,
		l.rdb,
		[]string{redisx.KeyRateLimit(l.scope, id)},
		l.clock.Now().UnixMilli(), l.window.Milliseconds(), l.limit, l.member(),
	).Int64Slice()
	if err != nil {
		return false, 0, 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(res) != 3 {
		return false, 0, 0, fmt.Errorf("%s: unexpected script result %v", op, res)
	}

	return res[0] == 1, res[1], time.Duration(res[2]) * time.Millisecond, nil
}
