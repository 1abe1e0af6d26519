// Package ratelimit throttles repeated failed logins per identifier. State
// lives in Redis; when Redis is unavailable every attempt is allowed.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
)

const keyPrefix = "complaints:login"

// Counter is the subset of Redis the limiter needs.
type Counter interface {
	Get(ctx context.Context, key string) (int64, error)
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	Del(ctx context.Context, key string) error
}

// LoginLimiter blocks an identifier after maxAttempts failures inside window.
type LoginLimiter struct {
	counter     Counter
	maxAttempts int
	window      time.Duration
	logger      *zap.Logger
}

// NewLoginLimiter returns nil when throttling is disabled (no counter or
// maxAttempts <= 0). A nil *LoginLimiter allows everything.
func NewLoginLimiter(counter Counter, maxAttempts int, window time.Duration, logger *zap.Logger) *LoginLimiter {
	if counter == nil || maxAttempts <= 0 {
		return nil
	}
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &LoginLimiter{counter: counter, maxAttempts: maxAttempts, window: window, logger: logger}
}

func key(identifier string) string {
	return keyPrefix + ":" + strings.ToLower(strings.TrimSpace(identifier))
}

// Allow fails with domain.ErrRateLimited once the identifier has used up its
// failures for the current window.
func (l *LoginLimiter) Allow(ctx context.Context, identifier string) error {
	if l == nil {
		return nil
	}
	k := key(identifier)
	count, err := l.counter.Get(ctx, k)
	if err != nil {
		l.logger.Warn("login limiter unavailable", zap.Error(err))
		return nil
	}
	if count < int64(l.maxAttempts) {
		return nil
	}
	ttl, err := l.counter.TTL(ctx, k)
	if err != nil || ttl <= 0 {
		ttl = l.window
	}
	return fmt.Errorf("%w: too many failed logins, retry in %d seconds", domain.ErrRateLimited, int(ttl.Seconds()))
}

// RecordFailure counts a failed attempt. The first failure starts the window.
func (l *LoginLimiter) RecordFailure(ctx context.Context, identifier string) {
	if l == nil {
		return
	}
	if _, err := l.counter.Incr(ctx, key(identifier), l.window); err != nil {
		l.logger.Warn("login limiter unavailable", zap.Error(err))
	}
}

// Reset clears the failures of identifier after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, identifier string) {
	if l == nil {
		return
	}
	if err := l.counter.Del(ctx, key(identifier)); err != nil {
		l.logger.Warn("login limiter unavailable", zap.Error(err))
	}
}

// RedisCounter implements Counter with go-redis.
type RedisCounter struct {
	client redis.Cmdable
}

// NewRedisCounter wraps a redis client.
func NewRedisCounter(client redis.Cmdable) *RedisCounter {
	return &RedisCounter{client: client}
}

func (r *RedisCounter) Get(ctx context.Context, key string) (int64, error) {
	n, err := r.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

func (r *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}

func (r *RedisCounter) TTL(ctx context.Context, key string) (time.Duration, error) {
	return r.client.TTL(ctx, key).Result()
}

func (r *RedisCounter) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
