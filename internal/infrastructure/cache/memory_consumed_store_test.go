package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryConsumedStore(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)}
	store := newMemoryConsumedStore(time.Hour, clock.Now)
	defer store.Close()
	ctx := context.Background()

	first, err := store.MarkProcessed(ctx, "evt-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := store.MarkProcessed(ctx, "evt-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, again, "redelivery must be detected")

	seen, err := store.IsProcessed(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, seen)

	t.Run("expired mark can be claimed again", func(t *testing.T) {
		clock.Advance(2 * time.Minute)
		seen, err := store.IsProcessed(ctx, "evt-1")
		require.NoError(t, err)
		assert.False(t, seen)

		fresh, err := store.MarkProcessed(ctx, "evt-1", time.Minute)
		require.NoError(t, err)
		assert.True(t, fresh)
	})

	t.Run("release forgets the event", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "evt-2", time.Hour)
		require.NoError(t, err)
		require.NoError(t, store.Release(ctx, "evt-2"))

		fresh, err := store.MarkProcessed(ctx, "evt-2", time.Hour)
		require.NoError(t, err)
		assert.True(t, fresh)
	})

	t.Run("sweep drops expired marks", func(t *testing.T) {
		before := store.Len()
		clock.Advance(2 * time.Hour)
		store.sweep()
		assert.Less(t, store.Len(), before)
		assert.Zero(t, store.Len())
	})
}

func TestMemoryConsumedStore_ConcurrentClaims(t *testing.T) {
	store := NewMemoryConsumedStore()
	defer store.Close()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.MarkProcessed(context.Background(), "evt-shared", time.Hour)
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())

	for i := 0; i < 10; i++ {
		_, err := store.MarkProcessed(context.Background(), fmt.Sprintf("evt-%d", i), time.Hour)
		require.NoError(t, err)
	}
	assert.Equal(t, 11, store.Len())
}

func TestMemoryConsumedStore_CloseTwice(t *testing.T) {
	store := NewMemoryConsumedStore()
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
