package event

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return db, mock
}

func TestGormOutboxRepository_ClaimDueSkipsLockedRows(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormOutboxRepository(db)
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	entryID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "outbox_events" WHERE .*status = \$1 OR \(status = \$2 AND retry_at <= \$3\).* ORDER BY created_at ASC LIMIT \$4 FOR UPDATE SKIP LOCKED`).
		WithArgs(shared.OutboxStatusPending, shared.OutboxStatusFailed, now, 50).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "tenant_id", "event_id", "event_type", "aggregate_id", "aggregate_type",
			"schema_version", "payload", "status", "attempts", "max_attempts", "created_at", "updated_at",
		}).AddRow(
			entryID.String(), uuid.NewString(), uuid.NewString(), "journal.entry.created", uuid.NewString(), "JournalEntry",
			1, []byte(`{}`), "PENDING", 0, 5, now, now,
		))
	mock.ExpectExec(`UPDATE "outbox_events" SET .*"status"=\$1.*WHERE id IN \(\$3\)`).
		WithArgs(shared.OutboxStatusProcessing, now, entryID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	claimed, err := repo.ClaimDue(context.Background(), now, 50)

	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, entryID, claimed[0].ID)
	assert.Equal(t, shared.OutboxStatusProcessing, claimed[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_ClaimDueNothingDue(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormOutboxRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE SKIP LOCKED`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	claimed, err := repo.ClaimDue(context.Background(), time.Now(), 50)

	require.NoError(t, err)
	assert.Empty(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_TenantScopedReads(t *testing.T) {
	db := newOutboxDB(t)
	repo := NewGormOutboxRepository(db)
	ctx := context.Background()

	tenantA, tenantB := uuid.New(), uuid.New()
	deadEntry := shared.NewOutboxEntry(tenantA, newRecalcEvent(tenantA), []byte(`{}`))
	deadEntry.Status = shared.OutboxStatusDead
	deadEntry.Attempts = 5
	pending := shared.NewOutboxEntry(tenantA, newRecalcEvent(tenantA), []byte(`{}`))
	other := shared.NewOutboxEntry(tenantB, newRecalcEvent(tenantB), []byte(`{}`))
	require.NoError(t, repo.Save(ctx, deadEntry, pending, other))
	require.NoError(t, repo.Save(ctx))

	counts, err := repo.CountByStatus(ctx, tenantA)
	require.NoError(t, err)
	assert.Equal(t, map[shared.OutboxStatus]int64{
		shared.OutboxStatusDead:    1,
		shared.OutboxStatusPending: 1,
	}, counts)

	dead, total, err := repo.FindDead(ctx, tenantA, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, dead, 1)
	assert.Equal(t, deadEntry.ID, dead[0].ID)

	_, total, err = repo.FindDead(ctx, tenantB, 1, 20)
	require.NoError(t, err)
	assert.Zero(t, total)

	_, err = repo.FindByID(ctx, tenantB, deadEntry.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	found, err := repo.FindByID(ctx, tenantA, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, pending.EventID, found.EventID)
	assert.Equal(t, "StockLedger", found.AggregateType)
}

func TestOutboxPublisher_PublishWithTx(t *testing.T) {
	db := newOutboxDB(t)
	serializer := NewEventSerializer()
	RegisterAllEvents(serializer)
	publisher := NewOutboxPublisher(serializer, 3)
	repo := NewGormOutboxRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("rows roll back with the transaction", func(t *testing.T) {
		err := db.Transaction(func(tx *gorm.DB) error {
			require.NoError(t, publisher.PublishWithTx(ctx, tx, newRecalcEvent(tenantID)))
			return assert.AnError
		})
		require.ErrorIs(t, err, assert.AnError)

		counts, err := repo.CountByStatus(ctx, tenantID)
		require.NoError(t, err)
		assert.Empty(t, counts)
	})

	t.Run("committed rows carry the event envelope", func(t *testing.T) {
		event := newRecalcEvent(tenantID)
		event.SetTrace("corr-1", "idem-1")
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			return publisher.PublishWithTx(ctx, tx, event)
		}))

		claimed, err := repo.ClaimDue(ctx, time.Now(), 10)
		require.NoError(t, err)
		require.Len(t, claimed, 1)
		entry := claimed[0]
		assert.Equal(t, event.EventID(), entry.EventID)
		assert.Equal(t, event.EventType(), entry.EventType)
		assert.Equal(t, "corr-1", entry.CorrelationID)
		assert.Equal(t, "idem-1", entry.CausationID)
		assert.Equal(t, 1, entry.SchemaVersion)
		assert.Equal(t, 3, entry.MaxAttempts)
		assert.Contains(t, string(entry.Payload), event.ItemID.String())
	})

	t.Run("no events is a no-op", func(t *testing.T) {
		assert.NoError(t, publisher.PublishWithTx(ctx, db))
	})
}
