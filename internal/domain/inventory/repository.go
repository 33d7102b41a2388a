package inventory

import (
	"context"

	"github.com/google/uuid"
)

// StockMoveRepository is the append-only stock ledger
type StockMoveRepository interface {
	// Create inserts a move. Moves are never updated.
	Create(ctx context.Context, move *StockMove) error

	// ListForKey returns every move of a ledger ordered by (date, sequence)
	ListForKey(ctx context.Context, key CostKey) ([]*StockMove, error)

	// FindBySource lists the moves created for a source document
	FindBySource(ctx context.Context, tenantID uuid.UUID, sourceType SourceType, sourceID uuid.UUID) ([]*StockMove, error)
}

// CostStateRepository stores the derived per-ledger snapshot
type CostStateRepository interface {
	// GetForUpdate loads the snapshot row with a row lock, creating an empty one if missing.
	// This row lock is the correctness floor for a ledger.
	GetForUpdate(ctx context.Context, key CostKey) (*ItemCostState, error)

	// Find loads the snapshot without locking
	Find(ctx context.Context, key CostKey) (*ItemCostState, error)

	// Save writes the snapshot
	Save(ctx context.Context, state *ItemCostState) error
}

// ItemRepository resolves catalog items
type ItemRepository interface {
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*Item, error)
	ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]*Item, error)
	Save(ctx context.Context, item *Item) error
}

// LocationRepository resolves stock locations
type LocationRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Location, error)
	ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]*Location, error)
	Save(ctx context.Context, location *Location) error
}
