package event

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockOutboxRepoForService is an in-memory outbox repository for testing OutboxService
type mockOutboxRepoForService struct {
	entries   map[uuid.UUID]*shared.OutboxEntry
	updateErr error
	findErr   error
}

func newMockOutboxRepoForService() *mockOutboxRepoForService {
	return &mockOutboxRepoForService{
		entries: make(map[uuid.UUID]*shared.OutboxEntry),
	}
}

func (r *mockOutboxRepoForService) Save(ctx context.Context, entries ...*shared.OutboxEntry) error {
	for _, e := range entries {
		r.entries[e.ID] = e
	}
	return nil
}

func (r *mockOutboxRepoForService) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *mockOutboxRepoForService) RequeueStale(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (r *mockOutboxRepoForService) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.entries[entry.ID] = entry
	return nil
}

func (r *mockOutboxRepoForService) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (r *mockOutboxRepoForService) FindDead(ctx context.Context, tenantID uuid.UUID, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	if r.findErr != nil {
		return nil, 0, r.findErr
	}
	var result []*shared.OutboxEntry
	for _, e := range r.entries {
		if e.TenantID == tenantID && e.Status == shared.OutboxStatusDead {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	total := int64(len(result))

	start := (page - 1) * pageSize
	if start >= len(result) {
		return nil, total, nil
	}
	end := min(start+pageSize, len(result))
	return result[start:end], total, nil
}

func (r *mockOutboxRepoForService) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*shared.OutboxEntry, error) {
	if e, ok := r.entries[id]; ok && e.TenantID == tenantID {
		return e, nil
	}
	return nil, shared.ErrNotFound
}

func (r *mockOutboxRepoForService) CountByStatus(ctx context.Context, tenantID uuid.UUID) (map[shared.OutboxStatus]int64, error) {
	counts := make(map[shared.OutboxStatus]int64)
	for _, e := range r.entries {
		if e.TenantID == tenantID {
			counts[e.Status]++
		}
	}
	return counts, nil
}

type countingNotifier struct {
	mu    sync.Mutex
	calls int
}

func (n *countingNotifier) Notify() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
}

func (n *countingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

func addEntry(repo *mockOutboxRepoForService, tenantID uuid.UUID, status shared.OutboxStatus, age time.Duration) *shared.OutboxEntry {
	entry := &shared.OutboxEntry{
		ID:            uuid.New(),
		TenantID:      tenantID,
		EventID:       uuid.New(),
		EventType:     "journal.entry.created",
		AggregateID:   uuid.New(),
		AggregateType: "JournalEntry",
		Status:        status,
		MaxAttempts:   shared.DefaultMaxAttempts,
		CreatedAt:     time.Now().Add(-age),
		UpdatedAt:     time.Now().Add(-age),
	}
	if status == shared.OutboxStatusDead {
		entry.Attempts = entry.MaxAttempts
		entry.LastError = "publish failed"
	}
	repo.entries[entry.ID] = entry
	return entry
}

func TestOutboxService_ListDead(t *testing.T) {
	repo := newMockOutboxRepoForService()
	svc := NewOutboxService(repo, zap.NewNop())
	tenantID := uuid.New()
	for i := 0; i < 25; i++ {
		addEntry(repo, tenantID, shared.OutboxStatusDead, time.Duration(25-i)*time.Minute)
	}
	addEntry(repo, tenantID, shared.OutboxStatusPending, 0)
	addEntry(repo, uuid.New(), shared.OutboxStatusDead, 0)

	t.Run("defaults page size", func(t *testing.T) {
		result, err := svc.ListDead(context.Background(), tenantID, OutboxFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(25), result.Total)
		assert.Equal(t, 1, result.Page)
		assert.Equal(t, 20, result.PageSize)
		assert.Equal(t, 2, result.TotalPages)
		assert.Len(t, result.Entries, 20)
		assert.Equal(t, "publish failed", result.Entries[0].LastError)
	})

	t.Run("second page", func(t *testing.T) {
		result, err := svc.ListDead(context.Background(), tenantID, OutboxFilter{Page: 2, PageSize: 20})
		require.NoError(t, err)
		assert.Len(t, result.Entries, 5)
	})

	t.Run("caps page size", func(t *testing.T) {
		result, err := svc.ListDead(context.Background(), tenantID, OutboxFilter{PageSize: 500})
		require.NoError(t, err)
		assert.Equal(t, 100, result.PageSize)
		assert.Len(t, result.Entries, 25)
	})

	t.Run("repository failure", func(t *testing.T) {
		repo.findErr = errors.New("db down")
		defer func() { repo.findErr = nil }()
		_, err := svc.ListDead(context.Background(), tenantID, OutboxFilter{})
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "INTERNAL_ERROR", de.Code)
	})
}

func TestOutboxService_Entry(t *testing.T) {
	repo := newMockOutboxRepoForService()
	svc := NewOutboxService(repo, zap.NewNop())
	tenantID := uuid.New()
	entry := addEntry(repo, tenantID, shared.OutboxStatusSent, 0)

	dto, err := svc.Entry(context.Background(), tenantID, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.EventID, dto.EventID)
	assert.Equal(t, tenantID, dto.CompanyID)
	assert.Equal(t, "SENT", dto.Status)

	_, err = svc.Entry(context.Background(), uuid.New(), entry.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestOutboxService_Revive(t *testing.T) {
	repo := newMockOutboxRepoForService()
	svc := NewOutboxService(repo, zap.NewNop())
	notifier := &countingNotifier{}
	svc.SetNotifier(notifier)
	tenantID := uuid.New()

	t.Run("revives a dead entry", func(t *testing.T) {
		entry := addEntry(repo, tenantID, shared.OutboxStatusDead, 0)

		dto, err := svc.Revive(context.Background(), tenantID, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, "PENDING", dto.Status)
		assert.Zero(t, dto.Attempts)
		assert.Empty(t, dto.LastError)
		assert.Equal(t, shared.OutboxStatusPending, repo.entries[entry.ID].Status)
		assert.Equal(t, 1, notifier.count())
	})

	t.Run("rejects entries that are not dead", func(t *testing.T) {
		entry := addEntry(repo, tenantID, shared.OutboxStatusSent, 0)
		_, err := svc.Revive(context.Background(), tenantID, entry.ID)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("other company cannot revive", func(t *testing.T) {
		entry := addEntry(repo, tenantID, shared.OutboxStatusDead, 0)
		_, err := svc.Revive(context.Background(), uuid.New(), entry.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.Equal(t, shared.OutboxStatusDead, repo.entries[entry.ID].Status)
	})

	t.Run("update failure", func(t *testing.T) {
		entry := addEntry(repo, tenantID, shared.OutboxStatusDead, 0)
		repo.updateErr = errors.New("db down")
		defer func() { repo.updateErr = nil }()
		_, err := svc.Revive(context.Background(), tenantID, entry.ID)
		require.Error(t, err)
		assert.Equal(t, 1, notifier.count())
	})
}

func TestOutboxService_ReviveAll(t *testing.T) {
	repo := newMockOutboxRepoForService()
	svc := NewOutboxService(repo, zap.NewNop())
	notifier := &countingNotifier{}
	svc.SetNotifier(notifier)
	tenantID, otherTenant := uuid.New(), uuid.New()
	for i := 0; i < 150; i++ {
		addEntry(repo, tenantID, shared.OutboxStatusDead, time.Duration(i)*time.Second)
	}
	foreign := addEntry(repo, otherTenant, shared.OutboxStatusDead, 0)

	count, err := svc.ReviveAll(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, int64(150), count)
	assert.Equal(t, 1, notifier.count())

	stats, err := svc.Stats(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, int64(150), stats.Pending)
	assert.Zero(t, stats.Dead)
	assert.Equal(t, shared.OutboxStatusDead, repo.entries[foreign.ID].Status)

	count, err = svc.ReviveAll(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, 1, notifier.count())
}

func TestOutboxService_ReviveAllStopsWhenUpdatesFail(t *testing.T) {
	repo := newMockOutboxRepoForService()
	svc := NewOutboxService(repo, zap.NewNop())
	tenantID := uuid.New()
	for i := 0; i < 120; i++ {
		addEntry(repo, tenantID, shared.OutboxStatusDead, time.Duration(i)*time.Second)
	}
	repo.updateErr = errors.New("db down")

	done := make(chan struct{})
	var count int64
	go func() {
		defer close(done)
		count, _ = svc.ReviveAll(context.Background(), tenantID)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("retry loop did not terminate")
	}
	assert.Zero(t, count)
}

func TestOutboxService_Stats(t *testing.T) {
	repo := newMockOutboxRepoForService()
	svc := NewOutboxService(repo, zap.NewNop())
	tenantID := uuid.New()
	addEntry(repo, tenantID, shared.OutboxStatusPending, 0)
	addEntry(repo, tenantID, shared.OutboxStatusPending, 0)
	addEntry(repo, tenantID, shared.OutboxStatusProcessing, 0)
	addEntry(repo, tenantID, shared.OutboxStatusSent, 0)
	addEntry(repo, tenantID, shared.OutboxStatusFailed, 0)
	addEntry(repo, tenantID, shared.OutboxStatusDead, 0)
	addEntry(repo, uuid.New(), shared.OutboxStatusDead, 0)

	stats, err := svc.Stats(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, &OutboxStatsDTO{
		Pending:    2,
		Processing: 1,
		Sent:       1,
		Failed:     1,
		Dead:       1,
		Total:      6,
	}, stats)
}
