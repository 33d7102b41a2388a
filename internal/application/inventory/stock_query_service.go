package inventory

import (
	"context"

	"github.com/erp/ledger/internal/application/command"
	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// StockQueryService reads stock positions outside any command
type StockQueryService struct {
	reads command.Repositories
}

// NewStockQueryService creates a new StockQueryService
func NewStockQueryService(reads command.Repositories) *StockQueryService {
	return &StockQueryService{reads: reads}
}

// GetPosition returns the quantity and average cost of an item at a location.
// A ledger with no moves is reported as an empty position.
func (s *StockQueryService) GetPosition(ctx context.Context, tenantID, itemID, locationID uuid.UUID, withMoves bool) (*StockPositionResponse, error) {
	items, err := s.reads.Items().FindByIDs(ctx, tenantID, []uuid.UUID{itemID})
	if err != nil {
		return nil, err
	}
	item, ok := items[itemID]
	if !ok {
		return nil, shared.NewDomainError(inventory.CodeItemNotFound, "Item not found").
			WithDetails(map[string]any{"itemId": itemID})
	}
	if !item.Tracked {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Item is not tracked in stock").
			WithDetails(map[string]any{"itemId": itemID})
	}
	if _, err := s.reads.Locations().FindByIDForTenant(ctx, tenantID, locationID); err != nil {
		return nil, err
	}

	key := inventory.CostKey{TenantID: tenantID, ItemID: itemID, LocationID: locationID}
	state, err := s.reads.CostStates().Find(ctx, key)
	if err != nil {
		return nil, err
	}
	resp := ToStockPositionResponse(item, state)
	if withMoves {
		moves, err := s.reads.StockMoves().ListForKey(ctx, key)
		if err != nil {
			return nil, err
		}
		resp.Moves = ToStockMoveResponses(moves)
	}
	return &resp, nil
}
