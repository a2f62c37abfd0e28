package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker grants a cross-instance lease on a job so that only one replica runs
// it at a time. release must be safe to call once the lease has expired.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// Deduper records that a notification was already sent for a key.
type Deduper interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// DedupKey builds <job>:<subject>:<condition>:<period>.
func DedupKey(job, subject, condition, period string) string {
	return strings.Join([]string{job, subject, condition, period}, ":")
}

// Day, Month and Week format the period component of a dedup key.
func Day(t time.Time) string   { return t.Format("2006-01-02") }
func Month(t time.Time) string { return t.Format("2006-01") }

func Week(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// MemoryGuard is a process-local Locker and Deduper.
type MemoryGuard struct {
	mu   sync.Mutex
	keys map[string]time.Time
	now  func() time.Time
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{keys: make(map[string]time.Time), now: time.Now}
}

func (g *MemoryGuard) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	if exp, ok := g.keys[key]; ok && now.Before(exp) {
		return false, nil
	}
	g.keys[key] = now.Add(ttl)
	return true, nil
}

func (g *MemoryGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.keys, key)
	return nil
}

func (g *MemoryGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	ok, err := g.Claim(ctx, key, ttl)
	if err != nil || !ok {
		return func() {}, ok, err
	}
	return func() { _ = g.Release(context.Background(), key) }, true, nil
}

// RedisGuard implements Locker and Deduper with SET NX. Locks carry a random
// token so a replica never deletes a lease it no longer owns.
type RedisGuard struct {
	client redis.Cmdable
	prefix string
}

func NewRedisGuard(client redis.Cmdable, prefix string) *RedisGuard {
	if prefix == "" {
		prefix = "civicdesk:scheduler:"
	}
	return &RedisGuard{client: client, prefix: prefix}
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (g *RedisGuard) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.prefix+"dedup:"+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return ok, nil
}

func (g *RedisGuard) Release(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, g.prefix+"dedup:"+key).Err(); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

func (g *RedisGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	lockKey := g.prefix + "lock:" + key
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, lockKey, token, ttl).Result()
	if err != nil {
		return func() {}, false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return func() {}, false, nil
	}
	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, g.client, []string{lockKey}, token).Err()
	}
	return release, true, nil
}
