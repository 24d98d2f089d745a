package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "ratelimit:"

// incrScript atomically increments a counter and starts the window TTL on
// the first hit. Later hits in the same window must not reset the TTL, which
// is what makes this a fixed window rather than a sliding one.
var incrScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RateLimitResult describes the outcome of a rate limit check.
type RateLimitResult struct {
	Count     int64 `json:"count"`
	Limit     int64 `json:"limit"`
	Remaining int64 `json:"remaining"`
	Exceeded  bool  `json:"exceeded"`
}

// CheckRateLimit counts a hit against a fixed window and reports whether the
// limit is now exceeded. Bursts straddling a window boundary can pass up to
// twice the limit; acceptable for login throttling.
func (s *Store) CheckRateLimit(ctx context.Context, key string, limit int64, windowSeconds int64) (*RateLimitResult, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	count, err := incrScript.Run(ctx, s.client, []string{rateLimitPrefix + key}, windowSeconds).Int64()
	if err != nil {
		return nil, wrapUnavailable("rate limit incr", err)
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	return &RateLimitResult{
		Count:     count,
		Limit:     limit,
		Remaining: remaining,
		Exceeded:  count > limit,
	}, nil
}

// ClearRateLimit drops the counter so a successful auth resets the window.
func (s *Store) ClearRateLimit(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := s.client.Del(ctx, rateLimitPrefix+key).Err(); err != nil {
		return wrapUnavailable("rate limit clear", err)
	}
	return nil
}

// RateLimitKey namespaces an identifier for a given limiter scope, e.g.
// RateLimitKey("auth", "alice") -> "auth:alice".
func RateLimitKey(scope, identifier string) string {
	return fmt.Sprintf("%s:%s", scope, identifier)
}
