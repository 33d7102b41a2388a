package cache

import (
	"context"
	"fmt"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ConsumedStoreFactory creates the consumer dedupe store named in configuration
type ConsumedStoreFactory struct {
	redisConfig           config.RedisConfig
	client                *redis.Client
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// ConsumedStoreFactoryOption is a functional option for configuring the factory
type ConsumedStoreFactoryOption func(*ConsumedStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) ConsumedStoreFactoryOption {
	return func(f *ConsumedStoreFactory) {
		f.logger = logger
	}
}

// WithRedisClient reuses an existing client instead of dialing a new one
func WithRedisClient(client *redis.Client) ConsumedStoreFactoryOption {
	return func(f *ConsumedStoreFactory) {
		f.client = client
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to the in-memory store
func WithInMemoryFallback(allow bool) ConsumedStoreFactoryOption {
	return func(f *ConsumedStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewConsumedStoreFactory creates a new factory
func NewConsumedStoreFactory(cfg config.RedisConfig, opts ...ConsumedStoreFactoryOption) *ConsumedStoreFactory {
	f := &ConsumedStoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateRedisStore creates a Redis-backed store
func (f *ConsumedStoreFactory) CreateRedisStore(ctx context.Context) (shared.ConsumedEventStore, error) {
	if f.client != nil {
		return NewRedisConsumedStore(f.client, DefaultConsumerKeyPrefix), nil
	}
	client, err := NewRedisClient(ctx, f.redisConfig)
	if err != nil {
		return nil, err
	}
	store := NewRedisConsumedStore(client, DefaultConsumerKeyPrefix)
	store.ownClient = true
	return store, nil
}

// CreateInMemoryStore creates a store local to this process.
// Redeliveries routed to another instance are not deduplicated.
func (f *ConsumedStoreFactory) CreateInMemoryStore() shared.ConsumedEventStore {
	return NewMemoryConsumedStore()
}

// CreateStore builds the store for kind ("memory" or "redis")
func (f *ConsumedStoreFactory) CreateStore(ctx context.Context, kind string) (shared.ConsumedEventStore, error) {
	switch kind {
	case "", "memory":
		f.logger.Info("using in-memory consumer idempotency store")
		return f.CreateInMemoryStore(), nil
	case "redis":
	default:
		return nil, fmt.Errorf("unknown consumer idempotency store %q", kind)
	}

	store, err := f.CreateRedisStore(ctx)
	if err == nil {
		f.logger.Info("using redis consumer idempotency store", zap.String("addr", f.redisConfig.Addr()))
		return store, nil
	}
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for consumer idempotency but unavailable: %w", err)
	}
	f.logger.Warn("redis unavailable, falling back to in-memory consumer idempotency store", zap.Error(err))
	return f.CreateInMemoryStore(), nil
}
