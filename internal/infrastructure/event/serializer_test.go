package event

import (
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/procurement"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecalcEvent(tenantID uuid.UUID) *inventory.RecalculationRequestedEvent {
	key := inventory.CostKey{TenantID: tenantID, ItemID: uuid.New(), LocationID: uuid.New()}
	return inventory.NewRecalculationRequestedEvent(key, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))
}

func TestEventSerializer_Register(t *testing.T) {
	serializer := NewEventSerializer()
	register[inventory.RecalculationRequestedEvent](serializer, inventory.EventTypeRecalculationRequested)

	assert.True(t, serializer.IsRegistered(inventory.EventTypeRecalculationRequested))
	assert.False(t, serializer.IsRegistered("purchase.order.created"))
}

func TestRegisterAllEvents(t *testing.T) {
	serializer := NewEventSerializer()
	RegisterAllEvents(serializer)

	for _, eventType := range []string{
		procurement.EventTypePurchaseOrderCreated,
		procurement.EventTypePurchaseOrderApproved,
		procurement.EventTypePurchaseReceiptPosted,
		procurement.EventTypePurchaseBillPaymentRecorded,
		ledger.EventTypeJournalEntryCreated,
		inventory.EventTypeRecalculationRequested,
		inventory.EventTypeCostRecalculated,
	} {
		assert.True(t, serializer.IsRegistered(eventType), eventType)
	}
	assert.Len(t, serializer.RegisteredTypes(), 13)
}

func TestEventSerializer_RoundTrip(t *testing.T) {
	serializer := NewEventSerializer()
	RegisterAllEvents(serializer)

	original := newRecalcEvent(uuid.New())
	original.SetTrace("corr-1", "idem-1")

	data, err := serializer.Serialize(original)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"itemId":"`+original.ItemID.String()+`"`)

	decoded, err := serializer.Deserialize(original.EventType(), data)
	require.NoError(t, err)

	event, ok := decoded.(*inventory.RecalculationRequestedEvent)
	require.True(t, ok)
	assert.Equal(t, original.EventID(), event.EventID())
	assert.Equal(t, original.TenantID(), event.TenantID())
	assert.Equal(t, original.Key(), event.Key())
	assert.True(t, original.FromDate.Equal(event.FromDate))
	assert.Equal(t, "corr-1", event.CorrelationID())
	assert.Equal(t, "idem-1", event.CausationID())
}

func TestEventSerializer_SharedStructKeepsType(t *testing.T) {
	serializer := NewEventSerializer()
	RegisterAllEvents(serializer)

	original := &procurement.PurchaseOrderEvent{
		EventMeta: shared.NewEventMeta(procurement.EventTypePurchaseOrderApproved,
			procurement.AggregateTypePurchaseOrder, uuid.New(), uuid.New()),
		OrderNumber: "PO-000001",
		Total:       decimal.RequireFromString("1000.00"),
	}
	data, err := serializer.Serialize(original)
	require.NoError(t, err)

	decoded, err := serializer.Deserialize(procurement.EventTypePurchaseOrderApproved, data)
	require.NoError(t, err)
	assert.Equal(t, procurement.EventTypePurchaseOrderApproved, decoded.EventType())
	assert.Equal(t, "1000", decoded.(*procurement.PurchaseOrderEvent).Total.String())
}

func TestEventSerializer_Deserialize_Errors(t *testing.T) {
	serializer := NewEventSerializer()
	RegisterAllEvents(serializer)

	_, err := serializer.Deserialize("stock.unknown", []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnknownEventType)

	_, err = serializer.Deserialize(ledger.EventTypeJournalEntryCreated, []byte(`invalid json`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal")
	assert.NotErrorIs(t, err, ErrUnknownEventType)

	journal, err := serializer.Serialize(newTestJournalEvent(uuid.New()))
	require.NoError(t, err)
	_, err = serializer.Deserialize(inventory.EventTypeCostRecalculated, journal)
	assert.ErrorContains(t, err, "expected "+inventory.EventTypeCostRecalculated)
}
