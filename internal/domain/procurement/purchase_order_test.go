package procurement

import (
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderDate = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func trackedLine(qty, cost, discount string) LineInput {
	return LineInput{
		ItemID:   uuid.New(),
		ItemCode: "WIDGET",
		ItemName: "Widget",
		Tracked:  true,
		Quantity: decimal.RequireFromString(qty),
		UnitCost: decimal.RequireFromString(cost),
		Discount: decimal.RequireFromString(discount),
	}
}

func serviceLine(qty, cost string) LineInput {
	return LineInput{
		ItemID:             uuid.New(),
		ItemCode:           "FREIGHT",
		ItemName:           "Freight",
		ExpenseAccountCode: "6100",
		Quantity:           decimal.RequireFromString(qty),
		UnitCost:           decimal.RequireFromString(cost),
	}
}

func newTestOrder(t *testing.T, lines ...LineInput) *PurchaseOrder {
	t.Helper()
	order, err := NewPurchaseOrder(uuid.New(), "PO-000001", uuid.New(), "Acme Supplies", uuid.New(), orderDate, "", lines)
	require.NoError(t, err)
	return order
}

func approvedOrder(t *testing.T, lines ...LineInput) *PurchaseOrder {
	t.Helper()
	order := newTestOrder(t, lines...)
	require.NoError(t, order.Approve())
	order.ClearDomainEvents()
	return order
}

func requireCode(t *testing.T, err error, code string) *shared.DomainError {
	t.Helper()
	require.Error(t, err)
	de, ok := shared.AsDomainError(err)
	require.True(t, ok, "expected a domain error, got %v", err)
	assert.Equal(t, code, de.Code)
	return de
}

func TestPurchaseOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from PurchaseOrderStatus
		to   PurchaseOrderStatus
		ok   bool
	}{
		{PurchaseOrderStatusDraft, PurchaseOrderStatusApproved, true},
		{PurchaseOrderStatusDraft, PurchaseOrderStatusCancelled, true},
		{PurchaseOrderStatusApproved, PurchaseOrderStatusCancelled, true},
		{PurchaseOrderStatusApproved, PurchaseOrderStatusDraft, false},
		{PurchaseOrderStatusApproved, PurchaseOrderStatusApproved, false},
		{PurchaseOrderStatusCancelled, PurchaseOrderStatusApproved, false},
		{PurchaseOrderStatusCancelled, PurchaseOrderStatusDraft, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to))
		})
	}
	assert.False(t, PurchaseOrderStatus("RECEIVED").IsValid())
}

func TestNewPurchaseOrder(t *testing.T) {
	t.Run("computes line and header totals", func(t *testing.T) {
		order := newTestOrder(t, trackedLine("100", "10", "0"), trackedLine("3", "10", "1"))

		assert.Equal(t, PurchaseOrderStatusDraft, order.Status)
		assert.Equal(t, "1000.00", order.Lines[0].LineTotal.StringFixed(2))
		assert.Equal(t, "29.00", order.Lines[1].LineTotal.StringFixed(2))
		assert.Equal(t, "1029.00", order.Total.StringFixed(2))
		assert.Equal(t, 1, order.Lines[0].LineNo)
		assert.Equal(t, 2, order.Lines[1].LineNo)
		assert.Equal(t, "USD", string(order.Currency))

		events := order.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypePurchaseOrderCreated, events[0].EventType())
	})

	t.Run("rejects orders without lines", func(t *testing.T) {
		_, err := NewPurchaseOrder(uuid.New(), "PO-1", uuid.New(), "Acme", uuid.New(), orderDate, "", nil)
		requireCode(t, err, CodeNoLines)
	})

	t.Run("rejects missing location", func(t *testing.T) {
		_, err := NewPurchaseOrder(uuid.New(), "PO-1", uuid.New(), "Acme", uuid.Nil, orderDate, "", []LineInput{trackedLine("1", "1", "0")})
		requireCode(t, err, CodeLocationRequired)
	})

	t.Run("rejects discount above gross", func(t *testing.T) {
		_, err := NewPurchaseOrder(uuid.New(), "PO-1", uuid.New(), "Acme", uuid.New(), orderDate, "", []LineInput{trackedLine("2", "5", "10.01")})
		de := requireCode(t, err, CodeInvalidDiscount)
		assert.Equal(t, "10.00", de.Details["gross"])
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := NewPurchaseOrder(uuid.New(), "PO-1", uuid.New(), "Acme", uuid.New(), orderDate, "", []LineInput{trackedLine("0", "5", "0")})
		de := requireCode(t, err, CodeInvalidLine)
		assert.Equal(t, 1, de.Details["lineNo"])
	})

	t.Run("rejects negative unit cost", func(t *testing.T) {
		_, err := NewPurchaseOrder(uuid.New(), "PO-1", uuid.New(), "Acme", uuid.New(), orderDate, "", []LineInput{trackedLine("1", "-5", "0")})
		requireCode(t, err, CodeInvalidLine)
	})

	t.Run("non-inventory lines need an expense account", func(t *testing.T) {
		line := serviceLine("1", "50")
		line.ExpenseAccountCode = ""
		_, err := NewPurchaseOrder(uuid.New(), "PO-1", uuid.New(), "Acme", uuid.New(), orderDate, "", []LineInput{line})
		requireCode(t, err, CodeInvalidLine)
	})
}

func TestPurchaseOrder_Approve(t *testing.T) {
	order := newTestOrder(t, trackedLine("1", "10", "0"))
	order.ClearDomainEvents()

	require.NoError(t, order.Approve())
	assert.Equal(t, PurchaseOrderStatusApproved, order.Status)
	assert.NotNil(t, order.ApprovedAt)
	assert.Equal(t, 2, order.Version)
	require.Len(t, order.GetDomainEvents(), 1)
	assert.Equal(t, EventTypePurchaseOrderApproved, order.GetDomainEvents()[0].EventType())

	err := order.Approve()
	de := requireCode(t, err, shared.CodeInvalidState)
	assert.Equal(t, []string{"DRAFT"}, de.Details["expected"])
	assert.Equal(t, "APPROVED", de.Details["actual"])
}

func TestPurchaseOrder_Cancel(t *testing.T) {
	t.Run("from draft", func(t *testing.T) {
		order := newTestOrder(t, trackedLine("1", "10", "0"))
		require.NoError(t, order.Cancel("duplicate"))
		assert.Equal(t, PurchaseOrderStatusCancelled, order.Status)
		assert.Equal(t, "duplicate", order.CancelReason)
	})

	t.Run("from approved", func(t *testing.T) {
		order := approvedOrder(t, trackedLine("1", "10", "0"))
		require.NoError(t, order.Cancel(""))
	})

	t.Run("cancelled is terminal", func(t *testing.T) {
		order := approvedOrder(t, trackedLine("1", "10", "0"))
		require.NoError(t, order.Cancel(""))
		requireCode(t, order.Cancel(""), shared.CodeInvalidState)
		requireCode(t, order.Approve(), shared.CodeInvalidState)
	})
}

func TestPurchaseOrder_Update(t *testing.T) {
	t.Run("draft replaces lines and recomputes total", func(t *testing.T) {
		order := newTestOrder(t, trackedLine("1", "10", "0"))
		notes := "rush"
		err := order.Update(UpdateInput{Notes: &notes, Lines: []LineInput{trackedLine("4", "2.5", "0")}}, LinkedDocuments{})
		require.NoError(t, err)
		assert.Equal(t, "10.00", order.Total.StringFixed(2))
		assert.Equal(t, "rush", order.Notes)
	})

	t.Run("approved without links is editable", func(t *testing.T) {
		order := approvedOrder(t, trackedLine("1", "10", "0"))
		require.NoError(t, order.Update(UpdateInput{}, LinkedDocuments{}))
	})

	t.Run("approved with receipts is locked", func(t *testing.T) {
		order := approvedOrder(t, trackedLine("1", "10", "0"))
		err := order.Update(UpdateInput{}, LinkedDocuments{Receipts: 1})
		de := requireCode(t, err, shared.CodeHasLinkedDocuments)
		assert.Equal(t, int64(1), de.Details["receipts"])
	})

	t.Run("cancelled is not editable", func(t *testing.T) {
		order := newTestOrder(t, trackedLine("1", "10", "0"))
		require.NoError(t, order.Cancel(""))
		requireCode(t, order.Update(UpdateInput{}, LinkedDocuments{}), shared.CodeInvalidState)
	})

	t.Run("empty line list is rejected", func(t *testing.T) {
		order := newTestOrder(t, trackedLine("1", "10", "0"))
		requireCode(t, order.Update(UpdateInput{Lines: []LineInput{}}, LinkedDocuments{}), CodeNoLines)
	})
}

func TestPurchaseOrder_EnsureDeletable(t *testing.T) {
	order := approvedOrder(t, trackedLine("1", "10", "0"))
	assert.NoError(t, order.EnsureDeletable(LinkedDocuments{}))
	requireCode(t, order.EnsureDeletable(LinkedDocuments{Bills: 2}), shared.CodeHasLinkedDocuments)

	require.NoError(t, order.Cancel(""))
	requireCode(t, order.EnsureDeletable(LinkedDocuments{}), shared.CodeInvalidState)
}

func TestOrderLockKey(t *testing.T) {
	tenantID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	orderID := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	assert.Equal(t, "purchase-order:11111111-1111-1111-1111-111111111111:22222222-2222-2222-2222-222222222222",
		OrderLockKey(tenantID, orderID))
}
