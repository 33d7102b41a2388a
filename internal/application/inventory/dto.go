package inventory

import (
	"time"

	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockPositionResponse is the weighted-average position of one item at one location
type StockPositionResponse struct {
	ItemID       uuid.UUID       `json:"item_id"`
	ItemCode     string          `json:"item_code"`
	LocationID   uuid.UUID       `json:"location_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	AverageCost  decimal.Decimal `json:"average_cost"`
	TotalValue   decimal.Decimal `json:"total_value"`
	LastMoveDate *time.Time      `json:"last_move_date,omitempty"`
	// Moves is filled only when requested
	Moves []StockMoveResponse `json:"moves,omitempty"`
}

// StockMoveResponse represents a stock move in API responses
type StockMoveResponse struct {
	ID               uuid.UUID       `json:"id"`
	MoveDate         time.Time       `json:"move_date"`
	Sequence         int64           `json:"sequence"`
	Direction        string          `json:"direction"`
	Quantity         decimal.Decimal `json:"quantity"`
	UnitCostApplied  decimal.Decimal `json:"unit_cost_applied"`
	TotalCostApplied decimal.Decimal `json:"total_cost_applied"`
	SourceType       string          `json:"source_type"`
	SourceID         uuid.UUID       `json:"source_id"`
	JournalEntryID   *uuid.UUID      `json:"journal_entry_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// ToStockPositionResponse converts a cost state to a response DTO
func ToStockPositionResponse(item *inventory.Item, state *inventory.ItemCostState) StockPositionResponse {
	return StockPositionResponse{
		ItemID:       item.ID,
		ItemCode:     item.Code,
		LocationID:   state.LocationID,
		Quantity:     state.Quantity,
		AverageCost:  state.AverageCost,
		TotalValue:   state.Value(),
		LastMoveDate: state.LastMoveDate,
	}
}

// ToStockMoveResponse converts a domain StockMove to a response DTO
func ToStockMoveResponse(m *inventory.StockMove) StockMoveResponse {
	return StockMoveResponse{
		ID:               m.ID,
		MoveDate:         m.MoveDate,
		Sequence:         m.Sequence,
		Direction:        string(m.Direction),
		Quantity:         m.Quantity,
		UnitCostApplied:  m.UnitCostApplied,
		TotalCostApplied: m.TotalCostApplied,
		SourceType:       string(m.SourceType),
		SourceID:         m.SourceID,
		JournalEntryID:   m.JournalEntryID,
		CreatedAt:        m.CreatedAt,
	}
}

// ToStockMoveResponses converts a slice of domain StockMoves to responses
func ToStockMoveResponses(moves []*inventory.StockMove) []StockMoveResponse {
	responses := make([]StockMoveResponse, len(moves))
	for i, m := range moves {
		responses[i] = ToStockMoveResponse(m)
	}
	return responses
}
