package inventory

import (
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction is the direction of a stock move
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// IsValid checks if the direction is valid
func (d Direction) IsValid() bool {
	return d == DirectionIn || d == DirectionOut
}

// SourceType identifies the document that caused a move
type SourceType string

const (
	SourcePurchaseReceipt SourceType = "PURCHASE_RECEIPT"
	SourceAdjustment      SourceType = "ADJUSTMENT"
)

// StockMove is an immutable fact in the per item/location ledger.
// Corrections are new compensating moves, never updates.
type StockMove struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	ItemID           uuid.UUID
	LocationID       uuid.UUID
	MoveDate         time.Time
	Sequence         int64
	Direction        Direction
	Quantity         decimal.Decimal
	UnitCostApplied  decimal.Decimal
	TotalCostApplied decimal.Decimal
	SourceType       SourceType
	SourceID         uuid.UUID
	SourceLineID     *uuid.UUID
	JournalEntryID   *uuid.UUID
	CorrelationID    string
	CreatedAt        time.Time
}

// Key returns the ledger the move belongs to
func (m *StockMove) Key() CostKey {
	return CostKey{TenantID: m.TenantID, ItemID: m.ItemID, LocationID: m.LocationID}
}

// SignedQuantity returns +qty for IN and -qty for OUT
func (m *StockMove) SignedQuantity() decimal.Decimal {
	if m.Direction == DirectionOut {
		return m.Quantity.Neg()
	}
	return m.Quantity
}

// MoveRequest is the input of a stock move before costing
type MoveRequest struct {
	TenantID        uuid.UUID
	ItemID          uuid.UUID
	LocationID      uuid.UUID
	MoveDate        time.Time
	Direction       Direction
	Quantity        decimal.Decimal
	UnitCostApplied decimal.Decimal // ignored for OUT moves, which use the running average
	TotalCost       *decimal.Decimal // IN only: exact document value when qty × unit cost would drift
	SourceType      SourceType
	SourceID        uuid.UUID
	SourceLineID    *uuid.UUID
	JournalEntryID  *uuid.UUID
	CorrelationID   string
	AllowNegative   bool
}

// Validate checks the request fields
func (r MoveRequest) Validate() error {
	if r.TenantID == uuid.Nil || r.ItemID == uuid.Nil || r.LocationID == uuid.Nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "Stock move needs tenant, item and location")
	}
	if r.MoveDate.IsZero() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Stock move date is required")
	}
	if !r.Direction.IsValid() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Invalid stock move direction")
	}
	if _, err := valueobject.PositiveQuantity(r.Quantity); err != nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "Stock move quantity must be positive")
	}
	if r.Direction == DirectionIn && r.UnitCostApplied.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Unit cost cannot be negative")
	}
	if r.TotalCost != nil && (r.Direction != DirectionIn || r.TotalCost.IsNegative()) {
		return shared.NewDomainError(shared.CodeInvalidInput, "Total cost applies to non-negative IN moves only")
	}
	return nil
}

// Key returns the ledger the request targets
func (r MoveRequest) Key() CostKey {
	return CostKey{TenantID: r.TenantID, ItemID: r.ItemID, LocationID: r.LocationID}
}
