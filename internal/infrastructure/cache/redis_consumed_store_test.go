package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisConsumedStore(t *testing.T) {
	mr, client := newMiniredis(t)
	store := NewRedisConsumedStore(client, "")
	ctx := context.Background()

	first, err := store.MarkProcessed(ctx, "evt-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)
	assert.True(t, mr.Exists(DefaultConsumerKeyPrefix+"evt-1"))
	assert.Equal(t, time.Minute, mr.TTL(DefaultConsumerKeyPrefix+"evt-1"))

	again, err := store.MarkProcessed(ctx, "evt-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, again)

	seen, err := store.IsProcessed(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, seen)

	mr.FastForward(2 * time.Minute)
	seen, err = store.IsProcessed(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)

	_, err = store.MarkProcessed(ctx, "evt-2", time.Hour)
	require.NoError(t, err)
	require.NoError(t, store.Release(ctx, "evt-2"))
	assert.False(t, mr.Exists(DefaultConsumerKeyPrefix+"evt-2"))

	require.NoError(t, store.Close())
	assert.NoError(t, client.Ping(ctx).Err(), "a shared client stays open")
}

func TestRedisConsumedStore_ServerDown(t *testing.T) {
	mr, client := newMiniredis(t)
	store := NewRedisConsumedStore(client, "test:")
	mr.Close()

	_, err := store.MarkProcessed(context.Background(), "evt-1", time.Minute)
	assert.Error(t, err)
}

func TestConsumedStoreFactory(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		store, err := NewConsumedStoreFactory(config.RedisConfig{}).CreateStore(ctx, "memory")
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &MemoryConsumedStore{}, store)
	})

	t.Run("redis with shared client", func(t *testing.T) {
		_, client := newMiniredis(t)
		store, err := NewConsumedStoreFactory(config.RedisConfig{}, WithRedisClient(client)).CreateStore(ctx, "redis")
		require.NoError(t, err)
		assert.IsType(t, &RedisConsumedStore{}, store)
	})

	t.Run("redis dialed from config", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := config.RedisConfig{Host: mr.Host(), Port: mustPort(t, mr)}
		store, err := NewConsumedStoreFactory(cfg).CreateStore(ctx, "redis")
		require.NoError(t, err)
		require.NoError(t, store.Close())
	})

	t.Run("unreachable redis falls back", func(t *testing.T) {
		cfg := config.RedisConfig{Host: "127.0.0.1", Port: 1}
		store, err := NewConsumedStoreFactory(cfg).CreateStore(ctx, "redis")
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &MemoryConsumedStore{}, store)
	})

	t.Run("unreachable redis without fallback", func(t *testing.T) {
		cfg := config.RedisConfig{Host: "127.0.0.1", Port: 1}
		_, err := NewConsumedStoreFactory(cfg, WithInMemoryFallback(false)).CreateStore(ctx, "redis")
		assert.Error(t, err)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := NewConsumedStoreFactory(config.RedisConfig{}).CreateStore(ctx, "memcached")
		assert.Error(t, err)
	})
}

func mustPort(t *testing.T, mr *miniredis.Miniredis) int {
	t.Helper()
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	return port
}
