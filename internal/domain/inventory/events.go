package inventory

import (
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeStockLedger is the aggregate type of per item/location stock ledgers
const AggregateTypeStockLedger = "StockLedger"

// Event type constants
const (
	EventTypeRecalculationRequested = "inventory.recalculation.requested"
	EventTypeCostRecalculated       = "inventory.cost.recalculated"
)

// RecalculationRequestedEvent asks a consumer to replay a ledger forward from a date
type RecalculationRequestedEvent struct {
	shared.EventMeta
	CompanyID  uuid.UUID `json:"companyId"`
	ItemID     uuid.UUID `json:"itemId"`
	LocationID uuid.UUID `json:"locationId"`
	FromDate   time.Time `json:"fromDate"`
}

// NewRecalculationRequestedEvent creates a new RecalculationRequestedEvent
func NewRecalculationRequestedEvent(key CostKey, fromDate time.Time) *RecalculationRequestedEvent {
	return &RecalculationRequestedEvent{
		EventMeta:  shared.NewEventMeta(EventTypeRecalculationRequested, AggregateTypeStockLedger, key.ItemID, key.TenantID),
		CompanyID:  key.TenantID,
		ItemID:     key.ItemID,
		LocationID: key.LocationID,
		FromDate:   fromDate,
	}
}

// EventType returns the event type name
func (e *RecalculationRequestedEvent) EventType() string {
	return EventTypeRecalculationRequested
}

// Key returns the ledger to replay
func (e *RecalculationRequestedEvent) Key() CostKey {
	return CostKey{TenantID: e.CompanyID, ItemID: e.ItemID, LocationID: e.LocationID}
}

// CostRecalculatedEvent reports the rebuilt state after a forward replay
type CostRecalculatedEvent struct {
	shared.EventMeta
	CompanyID     uuid.UUID       `json:"companyId"`
	ItemID        uuid.UUID       `json:"itemId"`
	LocationID    uuid.UUID       `json:"locationId"`
	FromDate      time.Time       `json:"fromDate"`
	Quantity      decimal.Decimal `json:"quantity"`
	AverageCost   decimal.Decimal `json:"averageCost"`
	MovesReplayed int             `json:"movesReplayed"`
}

// NewCostRecalculatedEvent creates a new CostRecalculatedEvent
func NewCostRecalculatedEvent(state *ItemCostState, fromDate time.Time, replayed int) *CostRecalculatedEvent {
	return &CostRecalculatedEvent{
		EventMeta:     shared.NewEventMeta(EventTypeCostRecalculated, AggregateTypeStockLedger, state.ItemID, state.TenantID),
		CompanyID:     state.TenantID,
		ItemID:        state.ItemID,
		LocationID:    state.LocationID,
		FromDate:      fromDate,
		Quantity:      state.Quantity,
		AverageCost:   state.AverageCost,
		MovesReplayed: replayed,
	}
}

// EventType returns the event type name
func (e *CostRecalculatedEvent) EventType() string {
	return EventTypeCostRecalculated
}
