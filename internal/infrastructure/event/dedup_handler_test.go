package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/cache"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type mockConsumedStore struct {
	mock.Mock
}

func (m *mockConsumedStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, eventID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockConsumedStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *mockConsumedStore) Release(ctx context.Context, eventID string) error {
	return m.Called(ctx, eventID).Error(0)
}

func (m *mockConsumedStore) Close() error { return nil }

func newMemoryStore(t *testing.T) *cache.MemoryConsumedStore {
	t.Helper()
	store := cache.NewMemoryConsumedStore()
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestDedupHandler_SkipsRedelivery(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	inner := newTestHandler(ledger.EventTypeJournalEntryCreated)
	h := NewDedupHandler(inner, newMemoryStore(t), shared.DedupConfig{}, zap.New(core))
	ev := newTestJournalEvent(uuid.New())

	require.NoError(t, h.Handle(context.Background(), ev))
	require.NoError(t, h.Handle(context.Background(), ev))

	assert.Len(t, inner.getHandled(), 1)
	assert.Equal(t, DedupStats{Handled: 1, Duplicates: 1}, h.Stats())
	assert.Equal(t, 1, logs.FilterMessage("skipping redelivered event").Len())
	assert.Equal(t, []string{ledger.EventTypeJournalEntryCreated}, h.EventTypes())
}

func TestDedupHandler_FailureAllowsRetry(t *testing.T) {
	store := newMemoryStore(t)
	inner := newTestHandler()
	inner.setError(errors.New("reporting store down"))
	h := NewDedupHandler(inner, store, shared.DefaultDedupConfig(), zap.NewNop())
	ev := newTestJournalEvent(uuid.New())

	require.EqualError(t, h.Handle(context.Background(), ev), "reporting store down")
	seen, err := store.IsProcessed(context.Background(), ev.EventID().String())
	require.NoError(t, err)
	assert.False(t, seen)

	inner.setError(nil)
	require.NoError(t, h.Handle(context.Background(), ev))
	assert.Len(t, inner.getHandled(), 2)
	assert.Equal(t, DedupStats{Handled: 1, Failed: 1}, h.Stats())
}

func TestDedupHandler_StoreFailures(t *testing.T) {
	t.Run("mark error handles anyway", func(t *testing.T) {
		store := new(mockConsumedStore)
		store.On("MarkProcessed", mock.Anything, mock.Anything, 24*time.Hour).Return(false, errors.New("redis down"))
		inner := newTestHandler()
		h := NewDedupHandler(inner, store, shared.DefaultDedupConfig(), zap.NewNop())

		require.NoError(t, h.Handle(context.Background(), newTestJournalEvent(uuid.New())))
		assert.Len(t, inner.getHandled(), 1)
		store.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
	})

	t.Run("release error keeps handler error", func(t *testing.T) {
		ev := newTestJournalEvent(uuid.New())
		store := new(mockConsumedStore)
		store.On("MarkProcessed", mock.Anything, ev.EventID().String(), time.Hour).Return(true, nil)
		store.On("Release", mock.Anything, ev.EventID().String()).Return(errors.New("redis down"))
		inner := newTestHandler()
		inner.setError(errors.New("boom"))
		h := NewDedupHandler(inner, store, shared.DedupConfig{Enabled: true, TTL: time.Hour}, zap.NewNop())

		assert.EqualError(t, h.Handle(context.Background(), ev), "boom")
		store.AssertExpectations(t)
	})
}

func TestDedupHandler_Disabled(t *testing.T) {
	store := new(mockConsumedStore)
	inner := newTestHandler()
	h := NewDedupHandler(inner, store, shared.DedupConfig{Enabled: false, TTL: time.Minute}, zap.NewNop())
	ev := newTestJournalEvent(uuid.New())

	require.NoError(t, h.Handle(context.Background(), ev))
	require.NoError(t, h.Handle(context.Background(), ev))
	assert.Len(t, inner.getHandled(), 2)
	store.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
}

func TestDedupHandler_ConcurrentRedelivery(t *testing.T) {
	inner := newTestHandler()
	h := NewDedupHandler(inner, newMemoryStore(t), shared.DefaultDedupConfig(), zap.NewNop())
	ev := newTestJournalEvent(uuid.New())

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Handle(context.Background(), ev)
		}()
	}
	wg.Wait()

	assert.Len(t, inner.getHandled(), 1)
	assert.Equal(t, int64(19), h.Stats().Duplicates)
}
