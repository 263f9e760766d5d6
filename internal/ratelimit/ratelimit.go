// Package ratelimit provides fixed-window request limiting keyed by client,
// backed by Redis when available and an in-process window otherwise.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether a keyed request may proceed in the current window.
type Limiter interface {
	// Allow reports whether the request fits the window and how many
	// requests remain in it.
	Allow(ctx context.Context, key string) (allowed bool, remaining int, err error)
}

// RedisLimiter counts requests in Redis, shared across instances.
type RedisLimiter struct {
	client *redis.Client
	window time.Duration
	max    int
}

// NewRedisLimiter constructs a RedisLimiter.
func NewRedisLimiter(client *redis.Client, window time.Duration, max int) *RedisLimiter {
	return &RedisLimiter{client: client, window: window, max: max}
}

// Allow increments the caller's window counter and checks the ceiling.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	bucket := time.Now().Unix() / int64(l.window.Seconds())
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, bucket)

	count, errIncr := l.client.Incr(ctx, redisKey).Result()
	if errIncr != nil {
		return false, 0, fmt.Errorf("ratelimit: incr: %w", errIncr)
	}
	if count == 1 {
		l.client.Expire(ctx, redisKey, l.window)
	}

	remaining := l.max - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return count <= int64(l.max), remaining, nil
}

// MemoryLimiter counts requests in process memory. Suitable for
// single-instance deployments and tests.
type MemoryLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	buckets map[string]*memoryBucket
}

type memoryBucket struct {
	count   int
	resetAt time.Time
}

// NewMemoryLimiter constructs a MemoryLimiter.
func NewMemoryLimiter(window time.Duration, max int) *MemoryLimiter {
	return &MemoryLimiter{
		window:  window,
		max:     max,
		buckets: make(map[string]*memoryBucket),
	}
}

// Allow increments the caller's window counter and checks the ceiling.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	bucket, ok := l.buckets[key]
	if !ok || now.After(bucket.resetAt) {
		bucket = &memoryBucket{resetAt: now.Add(l.window)}
		l.buckets[key] = bucket
		l.evictExpiredLocked(now)
	}
	bucket.count++

	remaining := l.max - bucket.count
	if remaining < 0 {
		remaining = 0
	}
	return bucket.count <= l.max, remaining, nil
}

// evictExpiredLocked drops stale buckets. Called with the mutex held, only
// when a new bucket is created, so steady-state requests stay cheap.
func (l *MemoryLimiter) evictExpiredLocked(now time.Time) {
	for key, bucket := range l.buckets {
		if now.After(bucket.resetAt) {
			delete(l.buckets, key)
		}
	}
}
