package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// flakyTask fails its first `fails` runs
type flakyTask struct {
	fails int32
	runs  atomic.Int32
	done  chan struct{}
}

func newFlakyTask(fails int32) *flakyTask {
	return &flakyTask{fails: fails, done: make(chan struct{}, 64)}
}

func (f *flakyTask) Name() string { return "flaky" }

func (f *flakyTask) Run(context.Context) error {
	n := f.runs.Add(1)
	defer func() { f.done <- struct{}{} }()
	if n <= f.fails {
		return errors.New("database unavailable")
	}
	return nil
}

func (f *flakyTask) waitRuns(t *testing.T, n int) {
	t.Helper()
	for i := range n {
		select {
		case <-f.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for run %d", i+1)
		}
	}
}

func (f *flakyTask) assertIdle(t *testing.T) {
	t.Helper()
	select {
	case <-f.done:
		t.Fatal("unexpected extra run")
	case <-time.After(50 * time.Millisecond):
	}
}

func startScheduler(t *testing.T, cfg Config) *Scheduler {
	t.Helper()
	s := New(cfg, zap.NewNop())
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s
}

func TestScheduler_TriggerRequiresRunning(t *testing.T) {
	s := New(Config{}, zap.NewNop())
	assert.ErrorIs(t, s.Trigger(newFlakyTask(0)), ErrNotRunning)
}

func TestScheduler_RunsTriggeredTasks(t *testing.T) {
	s := startScheduler(t, Config{Workers: 2})
	task := newFlakyTask(0)

	require.NoError(t, s.Trigger(task))
	require.NoError(t, s.Trigger(task))
	task.waitRuns(t, 2)
	assert.Equal(t, int32(2), task.runs.Load())
}

func TestScheduler_Retries(t *testing.T) {
	tests := []struct {
		name     string
		fails    int32
		retries  int
		wantRuns int
	}{
		{"succeeds on the third attempt", 2, 3, 3},
		{"gives up after the budget", 100, 1, 2},
		{"no retries", 100, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := startScheduler(t, Config{Retries: tt.retries, RetryDelay: time.Millisecond})
			task := newFlakyTask(tt.fails)

			require.NoError(t, s.Trigger(task))
			task.waitRuns(t, tt.wantRuns)
			task.assertIdle(t)
		})
	}
}

func TestScheduler_QueueFull(t *testing.T) {
	s := New(Config{QueueSize: 1}, zap.NewNop())
	// running without workers keeps the queue full
	s.running = true

	require.NoError(t, s.Trigger(newFlakyTask(0)))
	assert.ErrorIs(t, s.Trigger(newFlakyTask(0)), ErrQueueFull)
}

func TestScheduler_Every(t *testing.T) {
	s := New(Config{}, zap.NewNop())
	task := newFlakyTask(0)
	s.Every(task, 5*time.Millisecond)
	s.Every(newFlakyTask(0), 0)
	assert.Len(t, s.periodic, 1)

	require.NoError(t, s.Start(context.Background()))
	task.waitRuns(t, 2)
	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()), "second stop")
}

type mockPurger struct {
	mock.Mock
}

func (m *mockPurger) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func TestRetentionPurge(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	t.Run("purges past retention", func(t *testing.T) {
		purger := new(mockPurger)
		purger.On("DeleteOlderThan", mock.Anything, now.Add(-48*time.Hour)).Return(int64(7), nil).Once()
		task := NewRetentionPurge("idempotency_purge", purger, 48*time.Hour, zap.NewNop())
		task.now = func() time.Time { return now }

		require.NoError(t, task.Run(context.Background()))
		assert.Equal(t, "idempotency_purge", task.Name())
		purger.AssertExpectations(t)
	})

	t.Run("wraps errors", func(t *testing.T) {
		purger := new(mockPurger)
		cause := errors.New("connection refused")
		purger.On("DeleteOlderThan", mock.Anything, mock.Anything).Return(int64(0), cause)

		err := NewRetentionPurge("idempotency_purge", purger, time.Hour, zap.NewNop()).Run(context.Background())
		assert.ErrorIs(t, err, cause)
		assert.ErrorContains(t, err, "idempotency_purge")
	})

	t.Run("disabled retention", func(t *testing.T) {
		purger := new(mockPurger)
		require.NoError(t, NewRetentionPurge("idempotency_purge", purger, 0, zap.NewNop()).Run(context.Background()))
		purger.AssertNotCalled(t, "DeleteOlderThan", mock.Anything, mock.Anything)
	})
}
