// Package lock serializes commands that touch the same purchase order or stock ledger.
//
// Redis locks are a fast path only. Correctness rests on the row locks taken
// inside the database transaction, so a lock that cannot be obtained is logged
// and skipped unless fail-fast is configured.
package lock

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/bsm/redislock"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "ledger:lock:"

// RedisLocker takes distributed locks through bsm/redislock
type RedisLocker struct {
	client  *redislock.Client
	backoff time.Duration
	// failFast returns LOCK_NOT_ACQUIRED instead of degrading to row locks
	failFast bool
	logger   *zap.Logger
}

// NewRedisLocker creates a locker on an existing Redis client
func NewRedisLocker(client *redis.Client, cfg config.LockConfig, logger *zap.Logger) *RedisLocker {
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 50 * time.Millisecond
	}
	return &RedisLocker{
		client:   redislock.New(client),
		backoff:  backoff,
		failFast: cfg.FailFast,
		logger:   logger,
	}
}

// WithLocks acquires every key in sorted order, runs fn, then releases in reverse order
func (l *RedisLocker) WithLocks(ctx context.Context, keys []string, ttl time.Duration, fn func(ctx context.Context) error) error {
	keys = normalize(keys)
	held := make([]*redislock.Lock, 0, len(keys))
	defer func() {
		release(context.WithoutCancel(ctx), held, l.logger)
	}()

	for _, key := range keys {
		lk, err := l.obtain(ctx, key, ttl)
		if err != nil {
			return err
		}
		if lk != nil {
			held = append(held, lk)
		}
	}
	return fn(ctx)
}

// WithLock is WithLocks for a single key
func (l *RedisLocker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error {
	return l.WithLocks(ctx, []string{key}, ttl, fn)
}

// obtain returns nil without error when the lock is skipped in favour of the row locks
func (l *RedisLocker) obtain(ctx context.Context, key string, ttl time.Duration) (*redislock.Lock, error) {
	retries := int(ttl / l.backoff)
	lk, err := l.client.Obtain(ctx, keyPrefix+key, ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(l.backoff), retries),
	})
	if err == nil {
		return lk, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	if l.failFast {
		return nil, shared.ErrLockNotAcquired.
			WithDetails(map[string]any{"key": key}).
			WithCause(err)
	}
	if errors.Is(err, redislock.ErrNotObtained) {
		l.logger.Warn("lock not obtained, relying on row locks", zap.String("key", key), zap.Duration("ttl", ttl))
	} else {
		l.logger.Warn("lock backend unavailable, relying on row locks", zap.String("key", key), zap.Error(err))
	}
	return nil, nil
}

func release(ctx context.Context, held []*redislock.Lock, logger *zap.Logger) {
	for i := len(held) - 1; i >= 0; i-- {
		if err := held[i].Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			logger.Warn("failed to release lock", zap.String("key", held[i].Key()), zap.Error(err))
		}
	}
}

// NoopLocker runs fn directly. Used when lock.enabled is false.
type NoopLocker struct{}

// WithLocks runs fn without locking
func (NoopLocker) WithLocks(ctx context.Context, _ []string, _ time.Duration, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// WithLock runs fn without locking
func (NoopLocker) WithLock(ctx context.Context, _ string, _ time.Duration, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Locker is the behaviour shared by RedisLocker and NoopLocker
type Locker interface {
	WithLocks(ctx context.Context, keys []string, ttl time.Duration, fn func(ctx context.Context) error) error
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error
}

// New returns a RedisLocker when locking is enabled and a client is available
func New(client *redis.Client, cfg config.LockConfig, logger *zap.Logger) Locker {
	if !cfg.Enabled || client == nil {
		return NoopLocker{}
	}
	return NewRedisLocker(client, cfg, logger)
}

func normalize(keys []string) []string {
	out := slices.Clone(keys)
	slices.Sort(out)
	return slices.Compact(out)
}

var (
	_ Locker = (*RedisLocker)(nil)
	_ Locker = NoopLocker{}
)
