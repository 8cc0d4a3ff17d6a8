package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// fixedWindowScript increments the counter and starts the window on the
// first hit. A key left without a TTL is repaired so it cannot live forever.
// Returns {count, ttl_ms}.
var fixedWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisBackend shares fixed windows across instances through Redis.
type RedisBackend struct {
	client  redis.UniversalClient
	limit   int
	window  time.Duration
	timeout time.Duration
	prefix  string
}

func NewRedisBackend(client redis.UniversalClient, limit int, window, timeout time.Duration, prefix string) *RedisBackend {
	return &RedisBackend{
		client:  client,
		limit:   limit,
		window:  window,
		timeout: timeout,
		prefix:  prefix,
	}
}

func (b *RedisBackend) Name() string { return BackendRedis }

// Allow runs the window script under the per-call timeout. Requests over
// the limit still increment the counter; the window end is unaffected.
func (b *RedisBackend) Allow(ctx context.Context, key string, now time.Time) (Decision, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	res, err := fixedWindowScript.Run(ctx, b.client, []string{b.prefix + key}, b.window.Milliseconds()).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script: %w", err)
	}

	count, ttl, err := parseScriptResult(res)
	if err != nil {
		return Decision{}, err
	}

	return Decision{
		Admitted:  count <= int64(b.limit),
		Limit:     b.limit,
		Remaining: int(max(0, int64(b.limit)-count)),
		ResetAt:   now.Add(time.Duration(ttl) * time.Millisecond),
		Backend:   BackendRedis,
	}, nil
}

func parseScriptResult(res interface{}) (count, ttl int64, err error) {
	values, ok := res.([]interface{})
	if !ok || len(values) != 2 {
		return 0, 0, fmt.Errorf("rate limit script: unexpected reply %v", res)
	}
	count, ok1 := values[0].(int64)
	ttl, ok2 := values[1].(int64)
	if !ok1 || !ok2 {
		return 0, 0, fmt.Errorf("rate limit script: unexpected reply %v", res)
	}
	return count, ttl, nil
}
