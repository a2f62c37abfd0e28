// Package ratelimit throttles write-heavy API routes per caller.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result is the outcome of one limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the whole number of seconds until the window frees a slot.
func (r Result) RetryAfter(now time.Time) int {
	if r.Allowed || !r.ResetAt.After(now) {
		return 0
	}
	return int(r.ResetAt.Sub(now).Seconds() + 0.999)
}

// Limiter counts requests per key inside a window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

// MemoryLimiter is a process-local sliding window. It is exact but not shared
// between instances.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{windows: make(map[string][]time.Time), now: time.Now}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cutoff := now.Add(-window)
	hits := m.windows[key]
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	hits = hits[i:]

	if len(hits) >= limit {
		m.windows[key] = hits
		return Result{Limit: limit, ResetAt: hits[0].Add(window)}, nil
	}
	hits = append(hits, now)
	m.windows[key] = hits
	return Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(hits),
		ResetAt:   hits[0].Add(window),
	}, nil
}

// RedisLimiter is a fixed window shared by every instance. The counter key
// carries the window start so a window never outlives its TTL.
type RedisLimiter struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
}

func NewRedisLimiter(client redis.Cmdable, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "civicdesk:ratelimit:"
	}
	return &RedisLimiter{client: client, prefix: prefix, now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	now := l.now()
	start := now.Truncate(window)
	resetAt := start.Add(window)
	redisKey := fmt.Sprintf("%s%s:%d", l.prefix, key, start.Unix())

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.PExpireAt(ctx, redisKey, resetAt)
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("rate limit counter: %w", err)
	}

	count := int(incr.Val())
	if count > limit {
		return Result{Limit: limit, ResetAt: resetAt}, nil
	}
	return Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - count,
		ResetAt:   resetAt,
	}, nil
}
