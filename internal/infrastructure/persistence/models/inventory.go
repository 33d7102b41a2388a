package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemModel is the persistence model for a catalog item
type ItemModel struct {
	AggregateModel
	TenantID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_item_tenant_code,priority:1"`
	Code               string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_item_tenant_code,priority:2"`
	Name               string    `gorm:"type:varchar(200);not null"`
	Unit               string    `gorm:"type:varchar(20);not null;default:'pcs'"`
	Tracked            bool      `gorm:"not null"`
	ExpenseAccountCode string    `gorm:"type:varchar(32)"`
	IsActive           bool      `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ItemModel) TableName() string {
	return "items"
}

// ToDomain converts the persistence model to a domain Item
func (m *ItemModel) ToDomain() *inventory.Item {
	i := &inventory.Item{
		Code:               m.Code,
		Name:               m.Name,
		Unit:               m.Unit,
		Tracked:            m.Tracked,
		ExpenseAccountCode: m.ExpenseAccountCode,
		IsActive:           m.IsActive,
	}
	i.TenantAggregateRoot = m.root(m.TenantID)
	return i
}

// ItemModelFromDomain creates a persistence model from a domain Item
func ItemModelFromDomain(i *inventory.Item) *ItemModel {
	m := &ItemModel{
		Code:               i.Code,
		Name:               i.Name,
		Unit:               i.Unit,
		Tracked:            i.Tracked,
		ExpenseAccountCode: i.ExpenseAccountCode,
		IsActive:           i.IsActive,
	}
	m.AggregateModel = newAggregateModel(i.TenantAggregateRoot)
	m.TenantID = i.TenantID
	return m
}

// LocationModel is the persistence model for a stock location
type LocationModel struct {
	AggregateModel
	TenantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_location_tenant_code,priority:1"`
	Code     string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_location_tenant_code,priority:2"`
	Name     string    `gorm:"type:varchar(200)"`
	IsActive bool      `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LocationModel) TableName() string {
	return "locations"
}

// ToDomain converts the persistence model to a domain Location
func (m *LocationModel) ToDomain() *inventory.Location {
	l := &inventory.Location{
		Code:     m.Code,
		Name:     m.Name,
		IsActive: m.IsActive,
	}
	l.TenantAggregateRoot = m.root(m.TenantID)
	return l
}

// LocationModelFromDomain creates a persistence model from a domain Location
func LocationModelFromDomain(l *inventory.Location) *LocationModel {
	m := &LocationModel{
		Code:     l.Code,
		Name:     l.Name,
		IsActive: l.IsActive,
	}
	m.AggregateModel = newAggregateModel(l.TenantAggregateRoot)
	m.TenantID = l.TenantID
	return m
}

// StockMoveModel is one row of the append-only stock ledger
type StockMoveModel struct {
	ID               uuid.UUID            `gorm:"type:uuid;primary_key"`
	TenantID         uuid.UUID            `gorm:"type:uuid;not null;index:idx_stock_move_key,priority:1;index:idx_stock_move_source,priority:1"`
	ItemID           uuid.UUID            `gorm:"type:uuid;not null;index:idx_stock_move_key,priority:2"`
	LocationID       uuid.UUID            `gorm:"type:uuid;not null;index:idx_stock_move_key,priority:3"`
	MoveDate         time.Time            `gorm:"type:date;not null;index:idx_stock_move_key,priority:4"`
	Sequence         int64                `gorm:"not null;index:idx_stock_move_key,priority:5"`
	Direction        inventory.Direction  `gorm:"type:varchar(3);not null"`
	Quantity         decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	UnitCostApplied  decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	TotalCostApplied decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	SourceType       inventory.SourceType `gorm:"type:varchar(30);not null;index:idx_stock_move_source,priority:2"`
	SourceID         uuid.UUID            `gorm:"type:uuid;not null;index:idx_stock_move_source,priority:3"`
	SourceLineID     *uuid.UUID           `gorm:"type:uuid"`
	JournalEntryID   *uuid.UUID           `gorm:"type:uuid"`
	CorrelationID    string               `gorm:"type:varchar(100)"`
	CreatedAt        time.Time            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockMoveModel) TableName() string {
	return "stock_moves"
}

// ToDomain converts the persistence model to a domain StockMove
func (m *StockMoveModel) ToDomain() *inventory.StockMove {
	return &inventory.StockMove{
		ID:               m.ID,
		TenantID:         m.TenantID,
		ItemID:           m.ItemID,
		LocationID:       m.LocationID,
		MoveDate:         m.MoveDate,
		Sequence:         m.Sequence,
		Direction:        m.Direction,
		Quantity:         m.Quantity,
		UnitCostApplied:  m.UnitCostApplied,
		TotalCostApplied: m.TotalCostApplied,
		SourceType:       m.SourceType,
		SourceID:         m.SourceID,
		SourceLineID:     m.SourceLineID,
		JournalEntryID:   m.JournalEntryID,
		CorrelationID:    m.CorrelationID,
		CreatedAt:        m.CreatedAt,
	}
}

// StockMoveModelFromDomain creates a persistence model from a domain StockMove
func StockMoveModelFromDomain(s *inventory.StockMove) *StockMoveModel {
	return &StockMoveModel{
		ID:               s.ID,
		TenantID:         s.TenantID,
		ItemID:           s.ItemID,
		LocationID:       s.LocationID,
		MoveDate:         s.MoveDate,
		Sequence:         s.Sequence,
		Direction:        s.Direction,
		Quantity:         s.Quantity,
		UnitCostApplied:  s.UnitCostApplied,
		TotalCostApplied: s.TotalCostApplied,
		SourceType:       s.SourceType,
		SourceID:         s.SourceID,
		SourceLineID:     s.SourceLineID,
		JournalEntryID:   s.JournalEntryID,
		CorrelationID:    s.CorrelationID,
		CreatedAt:        s.CreatedAt,
	}
}

// CostStateModel is the derived snapshot of one (item, location) ledger
type CostStateModel struct {
	TenantID     uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ItemID       uuid.UUID       `gorm:"type:uuid;primaryKey"`
	LocationID   uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Quantity     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AverageCost  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LastMoveDate *time.Time      `gorm:"type:date"`
	LastSequence int64           `gorm:"not null;default:0"`
	Version      int             `gorm:"not null;default:1"`
	UpdatedAt    time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CostStateModel) TableName() string {
	return "inventory_cost_states"
}

// ToDomain converts the persistence model to a domain ItemCostState
func (m *CostStateModel) ToDomain() *inventory.ItemCostState {
	return &inventory.ItemCostState{
		CostKey: inventory.CostKey{
			TenantID:   m.TenantID,
			ItemID:     m.ItemID,
			LocationID: m.LocationID,
		},
		Quantity:     m.Quantity,
		AverageCost:  m.AverageCost,
		LastMoveDate: m.LastMoveDate,
		LastSequence: m.LastSequence,
		Version:      m.Version,
		UpdatedAt:    m.UpdatedAt,
	}
}

// CostStateModelFromDomain creates a persistence model from a domain ItemCostState
func CostStateModelFromDomain(s *inventory.ItemCostState) *CostStateModel {
	return &CostStateModel{
		TenantID:     s.TenantID,
		ItemID:       s.ItemID,
		LocationID:   s.LocationID,
		Quantity:     s.Quantity,
		AverageCost:  s.AverageCost,
		LastMoveDate: s.LastMoveDate,
		LastSequence: s.LastSequence,
		Version:      s.Version,
		UpdatedAt:    s.UpdatedAt,
	}
}
