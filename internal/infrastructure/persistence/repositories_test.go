package persistence

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/idempotency"
	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/erp/ledger/internal/domain/period"
	"github.com/erp/ledger/internal/domain/procurement"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrder(t *testing.T, tenantID uuid.UUID) *procurement.PurchaseOrder {
	t.Helper()
	order, err := procurement.NewPurchaseOrder(tenantID, "PO-000001", uuid.New(), "Acme Supplies", uuid.New(),
		time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), "", []procurement.LineInput{{
			ItemID:   uuid.New(),
			ItemCode: "WIDGET",
			ItemName: "Widget",
			Tracked:  true,
			Quantity: decimal.NewFromInt(100),
			UnitCost: decimal.NewFromInt(10),
		}})
	require.NoError(t, err)
	return order
}

func TestGormIdempotencyRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormIdempotencyRepository(db.DB)
	ctx := context.Background()
	tenantID := uuid.New()

	missing, err := repo.Find(ctx, tenantID, "k-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	rec := idempotency.NewRecord(tenantID, "k-1", "purchase_order.receive_and_bill", "hash", "corr-1")
	require.NoError(t, repo.Claim(ctx, rec))

	again := idempotency.NewRecord(tenantID, "k-1", "purchase_order.receive_and_bill", "hash", "corr-2")
	assert.ErrorIs(t, repo.Claim(ctx, again), idempotency.ErrInProgress)

	// Keys are scoped per tenant.
	require.NoError(t, repo.Claim(ctx, idempotency.NewRecord(uuid.New(), "k-1", "x", "", "")))

	rec.Succeed(json.RawMessage(`{"receiptId":"r-1"}`))
	require.NoError(t, repo.Complete(ctx, rec))

	found, err := repo.Find(ctx, tenantID, "k-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, idempotency.StatusSucceeded, found.Status)
	assert.JSONEq(t, `{"receiptId":"r-1"}`, string(found.Response))
	assert.Equal(t, "corr-1", found.CorrelationID)

	purged, err := repo.DeleteOlderThan(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), purged)
}

func TestGormSequenceGenerator(t *testing.T) {
	db := newTestDB(t)
	gen := NewGormSequenceGenerator(db.DB)
	ctx := context.Background()
	tenantID := uuid.New()

	for _, want := range []string{"PO-000001", "PO-000002", "PO-000003"} {
		got, err := gen.Next(ctx, tenantID, "PO")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	gr, err := gen.Next(ctx, tenantID, "GR")
	require.NoError(t, err)
	assert.Equal(t, "GR-000001", gr)

	other, err := gen.Next(ctx, uuid.New(), "PO")
	require.NoError(t, err)
	assert.Equal(t, "PO-000001", other)
}

func TestGormCostStateRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormCostStateRepository(db.DB)
	ctx := context.Background()
	key := inventory.CostKey{TenantID: uuid.New(), ItemID: uuid.New(), LocationID: uuid.New()}

	empty, err := repo.Find(ctx, key)
	require.NoError(t, err)
	assert.True(t, empty.Quantity.IsZero())

	state, err := repo.GetForUpdate(ctx, key)
	require.NoError(t, err)
	assert.True(t, state.Quantity.IsZero())

	moved := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	state.Quantity = decimal.NewFromInt(100)
	state.AverageCost = decimal.NewFromInt(10)
	state.LastMoveDate = &moved
	state.LastSequence = 1
	require.NoError(t, repo.Save(ctx, state))

	// A second lock on an existing row must not reset it.
	locked, err := repo.GetForUpdate(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "100", locked.Quantity.String())
	assert.Equal(t, "10.0000", locked.AverageCost.StringFixed(4))
	assert.Equal(t, int64(1), locked.LastSequence)
	require.NotNil(t, locked.LastMoveDate)
	assert.True(t, moved.Equal(*locked.LastMoveDate))
}

func TestGormPurchaseOrderRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormPurchaseOrderRepository(db.DB)
	ctx := context.Background()
	tenantID := uuid.New()

	order := testOrder(t, tenantID)
	require.NoError(t, repo.Save(ctx, order))

	t.Run("round trip", func(t *testing.T) {
		loaded, err := repo.FindByIDForTenant(ctx, tenantID, order.ID)
		require.NoError(t, err)
		assert.Equal(t, "PO-000001", loaded.OrderNumber)
		assert.Equal(t, "1000.00", loaded.Total.StringFixed(2))
		require.Len(t, loaded.Lines, 1)
		assert.True(t, loaded.Lines[0].Tracked)
	})

	t.Run("other tenant cannot see it", func(t *testing.T) {
		_, err := repo.FindByIDForTenant(ctx, uuid.New(), order.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("approve then stale save conflicts", func(t *testing.T) {
		current, err := repo.FindByIDForUpdate(ctx, tenantID, order.ID)
		require.NoError(t, err)
		stale, err := repo.FindByIDForTenant(ctx, tenantID, order.ID)
		require.NoError(t, err)

		require.NoError(t, current.Approve())
		require.NoError(t, repo.Save(ctx, current))

		require.NoError(t, stale.Cancel("late"))
		err = repo.Save(ctx, stale)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

		loaded, err := repo.FindByIDForTenant(ctx, tenantID, order.ID)
		require.NoError(t, err)
		assert.Equal(t, procurement.PurchaseOrderStatusApproved, loaded.Status)
		assert.Equal(t, 2, loaded.Version)
	})

	t.Run("linked documents and delete", func(t *testing.T) {
		links, err := repo.CountLinkedDocuments(ctx, tenantID, order.ID)
		require.NoError(t, err)
		assert.Equal(t, procurement.LinkedDocuments{}, links)

		require.NoError(t, repo.Delete(ctx, tenantID, order.ID))
		assert.ErrorIs(t, repo.Delete(ctx, tenantID, order.ID), shared.ErrNotFound)
	})
}

func TestGormPeriodRepository_FindClosedContaining(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormPeriodRepository(db.DB)
	ctx := context.Background()
	tenantID := uuid.New()

	march, err := period.NewAccountingPeriod(tenantID, "2024-03",
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, march))

	inside := time.Date(2024, 3, 31, 18, 30, 0, 0, time.UTC)
	open, err := repo.FindClosedContaining(ctx, tenantID, inside)
	require.NoError(t, err)
	assert.Nil(t, open)

	require.NoError(t, march.Close("controller"))
	require.NoError(t, repo.Save(ctx, march))

	closed, err := repo.FindClosedContaining(ctx, tenantID, inside)
	require.NoError(t, err)
	require.NotNil(t, closed)
	assert.Equal(t, march.ID, closed.ID)

	after, err := repo.FindClosedContaining(ctx, tenantID, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Nil(t, after)

	overlapping, err := repo.FindOverlapping(ctx, tenantID,
		time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC), time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, overlapping, 1)
}
