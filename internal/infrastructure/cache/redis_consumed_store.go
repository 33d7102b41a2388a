package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

// DefaultConsumerKeyPrefix namespaces consumed event ids in Redis
const DefaultConsumerKeyPrefix = "ledger:consumed:"

// RedisConsumedStore remembers consumed event ids in Redis so every
// instance behind the push endpoint shares the same dedupe state.
type RedisConsumedStore struct {
	client    *redis.Client
	keyPrefix string
	ownClient bool
}

// NewRedisConsumedStore creates a store on a shared client. Close leaves the client open.
func NewRedisConsumedStore(client *redis.Client, keyPrefix string) *RedisConsumedStore {
	if keyPrefix == "" {
		keyPrefix = DefaultConsumerKeyPrefix
	}
	return &RedisConsumedStore{client: client, keyPrefix: keyPrefix}
}

// MarkProcessed records the event with a TTL using SETNX.
// It returns false when the id was already recorded.
func (s *RedisConsumedStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+eventID, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark event %s as processed: %w", eventID, err)
	}
	return ok, nil
}

// IsProcessed checks if an event has already been processed
func (s *RedisConsumedStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.keyPrefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check event %s: %w", eventID, err)
	}
	return n > 0, nil
}

// Release deletes the mark
func (s *RedisConsumedStore) Release(ctx context.Context, eventID string) error {
	if err := s.client.Del(ctx, s.keyPrefix+eventID).Err(); err != nil {
		return fmt.Errorf("failed to release event %s: %w", eventID, err)
	}
	return nil
}

// Close closes the client only if the store created it
func (s *RedisConsumedStore) Close() error {
	if s.ownClient {
		return s.client.Close()
	}
	return nil
}

var _ shared.ConsumedEventStore = (*RedisConsumedStore)(nil)
