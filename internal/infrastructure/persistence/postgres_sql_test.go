package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/ledger/internal/domain/idempotency"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockPostgres returns a gorm handle speaking the postgres dialect to sqlmock,
// so the generated locking and conflict clauses can be asserted.
func newMockPostgres(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return db, mock
}

func TestGormIdempotencyRepository_ClaimSQL(t *testing.T) {
	t.Run("insert wins", func(t *testing.T) {
		db, mock := newMockPostgres(t)
		mock.ExpectExec(`INSERT INTO "idempotency_records" .* ON CONFLICT \("tenant_id","key"\) DO NOTHING`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		rec := idempotency.NewRecord(uuid.New(), "k-1", "purchase_order.approve", "", "corr")
		require.NoError(t, NewGormIdempotencyRepository(db).Claim(context.Background(), rec))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("existing key reports in progress", func(t *testing.T) {
		db, mock := newMockPostgres(t)
		mock.ExpectExec(`INSERT INTO "idempotency_records"`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		rec := idempotency.NewRecord(uuid.New(), "k-1", "purchase_order.approve", "", "corr")
		err := NewGormIdempotencyRepository(db).Claim(context.Background(), rec)
		assert.ErrorIs(t, err, idempotency.ErrInProgress)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormSequenceGenerator_LocksCounterRow(t *testing.T) {
	db, mock := newMockPostgres(t)
	tenantID := uuid.New()

	mock.ExpectExec(`INSERT INTO "document_sequences" .* ON CONFLICT DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM "document_sequences" WHERE .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"tenant_id", "prefix", "last_value"}).
			AddRow(tenantID, "BILL", 41))
	mock.ExpectExec(`UPDATE "document_sequences" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	number, err := NewGormSequenceGenerator(db).Next(context.Background(), tenantID, "BILL")
	require.NoError(t, err)
	assert.Equal(t, "BILL-000042", number)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveVersioned_StaleVersion(t *testing.T) {
	db, mock := newMockPostgres(t)
	order := testOrder(t, uuid.New())
	require.NoError(t, order.Approve())

	mock.ExpectExec(`UPDATE "purchase_orders" SET .*id = \$\d+ AND version = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewGormPurchaseOrderRepository(db).Save(context.Background(), order)
	require.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	de, ok := shared.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, 2, de.Details["version"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
