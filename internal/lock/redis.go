package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultProbeInterval = 2 * time.Second
	probeTimeout         = 500 * time.Millisecond
)

// releaseScript deletes the key only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

// RedisBackend stores leases in Redis so every process sharing the server
// observes the same owner.
type RedisBackend struct {
	client        redis.UniversalClient
	probeInterval time.Duration

	mu        sync.Mutex
	checkedAt time.Time
	healthy   bool
}

type RedisOption func(*RedisBackend)

// WithProbeInterval sets how long an availability probe result is reused.
func WithProbeInterval(d time.Duration) RedisOption {
	return func(b *RedisBackend) {
		if d > 0 {
			b.probeInterval = d
		}
	}
}

func NewRedisBackend(client redis.UniversalClient, opts ...RedisOption) *RedisBackend {
	b := &RedisBackend{
		client:        client,
		probeInterval: defaultProbeInterval,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *RedisBackend) Name() string { return "redis" }

// SetIfAbsent issues SET key token NX PX ttl.
func (b *RedisBackend) SetIfAbsent(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	ok, err := b.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		b.markUnhealthy(ctx, err)
		return false, err
	}
	return ok, nil
}

func (b *RedisBackend) CompareAndDelete(ctx context.Context, key, token string) (bool, error) {
	n, err := releaseScript.Run(ctx, b.client, []string{key}, token).Int()
	if err != nil {
		b.markUnhealthy(ctx, err)
		return false, err
	}
	return n == 1, nil
}

// Available pings Redis at most once per probe interval.
func (b *RedisBackend) Available(ctx context.Context) bool {
	b.mu.Lock()
	if !b.checkedAt.IsZero() && time.Since(b.checkedAt) < b.probeInterval {
		healthy := b.healthy
		b.mu.Unlock()
		return healthy
	}
	b.mu.Unlock()

	pingCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	err := b.client.Ping(pingCtx).Err()
	cancel()

	b.mu.Lock()
	b.healthy = err == nil
	b.checkedAt = time.Now()
	b.mu.Unlock()
	return err == nil
}

func (b *RedisBackend) markUnhealthy(ctx context.Context, err error) {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	b.mu.Lock()
	b.healthy = false
	b.checkedAt = time.Now()
	b.mu.Unlock()
}
