package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/application/command"
	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CostingConfig holds the weighted-average costing settings
type CostingConfig struct {
	AllowNegativeStock bool
	// RecalculateInline replays backdated ledgers in the posting transaction.
	// When false a recalculation request event is emitted instead.
	RecalculateInline bool
}

// MoveResult is the outcome of ApplyStockMove
type MoveResult struct {
	Move  *inventory.StockMove
	State *inventory.ItemCostState
	// RequiresRecalcFromDate is set when the move was dated before the last applied move
	RequiresRecalcFromDate *time.Time
}

// CostingService maintains the per item/location stock ledgers.
// It holds no state of its own; every call runs inside the caller's transaction.
type CostingService struct {
	config CostingConfig
	logger *zap.Logger
}

// NewCostingService creates a new CostingService
func NewCostingService(config CostingConfig, logger *zap.Logger) *CostingService {
	return &CostingService{config: config, logger: logger}
}

// ApplyStockMove records one move against its ledger. The ledger row is locked for the
// rest of the transaction, so callers touching several ledgers must go in sorted key order.
func (s *CostingService) ApplyStockMove(ctx context.Context, tx *command.Tx, req inventory.MoveRequest) (*MoveResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.CorrelationID == "" {
		req.CorrelationID = tx.Command().CorrelationID
	}
	req.AllowNegative = req.AllowNegative || s.config.AllowNegativeStock

	key := req.Key()
	state, err := tx.CostStates().GetForUpdate(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to lock cost state: %w", err)
	}

	if state.IsBackdated(req.MoveDate) {
		return s.applyBackdated(ctx, tx, state, req)
	}

	move, err := state.Record(req, time.Now())
	if err != nil {
		return nil, err
	}
	if err := tx.StockMoves().Create(ctx, move); err != nil {
		return nil, fmt.Errorf("failed to save stock move: %w", err)
	}
	if err := tx.CostStates().Save(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to save cost state: %w", err)
	}
	return &MoveResult{Move: move, State: state}, nil
}

// applyBackdated costs the move against the ledger as it stood on its date,
// then brings the snapshot forward.
func (s *CostingService) applyBackdated(ctx context.Context, tx *command.Tx, current *inventory.ItemCostState, req inventory.MoveRequest) (*MoveResult, error) {
	key := req.Key()
	moves, err := tx.StockMoves().ListForKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load stock moves: %w", err)
	}
	asOf, err := inventory.StateAt(key, moves, req.MoveDate, req.AllowNegative)
	if err != nil {
		return nil, err
	}
	asOf.LastSequence = current.LastSequence

	move, err := asOf.Record(req, time.Now())
	if err != nil {
		return nil, err
	}
	if err := tx.StockMoves().Create(ctx, move); err != nil {
		return nil, fmt.Errorf("failed to save stock move: %w", err)
	}

	from := move.MoveDate
	result := &MoveResult{Move: move, RequiresRecalcFromDate: &from}
	s.logger.Info("backdated stock move",
		zap.String("item_id", key.ItemID.String()),
		zap.String("location_id", key.LocationID.String()),
		zap.Time("move_date", move.MoveDate),
		zap.Time("last_move_date", *current.LastMoveDate),
	)

	if s.config.RecalculateInline {
		state, err := s.replay(ctx, tx, current, append(moves, move), from, req.AllowNegative)
		if err != nil {
			return nil, err
		}
		result.State = state
		return result, nil
	}

	// Later outbound moves must still be covered once this one lands.
	var later []*inventory.StockMove
	for _, m := range moves {
		if m.MoveDate.After(move.MoveDate) {
			later = append(later, m)
		}
	}
	if _, err := inventory.ReplayFrom(asOf, later, req.AllowNegative); err != nil {
		return nil, err
	}

	// The quantity stays exact until the consumer rebuilds the average.
	current.Quantity = current.Quantity.Add(move.SignedQuantity())
	current.LastSequence = move.Sequence
	current.UpdatedAt = move.CreatedAt
	if err := tx.CostStates().Save(ctx, current); err != nil {
		return nil, fmt.Errorf("failed to save cost state: %w", err)
	}
	tx.Emit(inventory.NewRecalculationRequestedEvent(key, from))
	result.State = current
	return result, nil
}

// RecalculateFrom replays the ledger forward from a date and saves the rebuilt snapshot
func (s *CostingService) RecalculateFrom(ctx context.Context, tx *command.Tx, key inventory.CostKey, from time.Time) (*inventory.ItemCostState, error) {
	current, err := tx.CostStates().GetForUpdate(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to lock cost state: %w", err)
	}
	moves, err := tx.StockMoves().ListForKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load stock moves: %w", err)
	}
	return s.replay(ctx, tx, current, moves, from, s.config.AllowNegativeStock)
}

// Rebuild recomputes the snapshot from the whole ledger
func (s *CostingService) Rebuild(ctx context.Context, tx *command.Tx, key inventory.CostKey) (*inventory.ItemCostState, error) {
	return s.RecalculateFrom(ctx, tx, key, time.Time{})
}

func (s *CostingService) replay(ctx context.Context, tx *command.Tx, current *inventory.ItemCostState, moves []*inventory.StockMove, from time.Time, allowNegative bool) (*inventory.ItemCostState, error) {
	key := current.CostKey
	log := s.logger.With(
		zap.String("tenant_id", key.TenantID.String()),
		zap.String("item_id", key.ItemID.String()),
		zap.String("location_id", key.LocationID.String()),
		zap.Time("from", from),
	)
	log.Info("inventory.recalc.start", zap.Int("moves", len(moves)))

	var before, after []*inventory.StockMove
	for _, m := range moves {
		if m.MoveDate.Before(from) {
			before = append(before, m)
		} else {
			after = append(after, m)
		}
	}
	checkpoint, err := inventory.Replay(key, before, allowNegative)
	if err != nil {
		return nil, err
	}
	rebuilt, err := inventory.ReplayFrom(checkpoint, after, allowNegative)
	if err != nil {
		return nil, err
	}
	rebuilt.Version = current.Version
	rebuilt.UpdatedAt = time.Now()
	if err := tx.CostStates().Save(ctx, rebuilt); err != nil {
		return nil, fmt.Errorf("failed to save cost state: %w", err)
	}
	tx.Emit(inventory.NewCostRecalculatedEvent(rebuilt, from, len(after)))

	log.Info("inventory.recalc.done",
		zap.Int("replayed", len(after)),
		zap.String("quantity", rebuilt.Quantity.String()),
		zap.String("average_cost", rebuilt.AverageCost.String()),
	)
	return rebuilt, nil
}

// RecalculationService runs ledger replays as standalone commands
type RecalculationService struct {
	costing  *CostingService
	executor *command.Executor
}

// NewRecalculationService creates a new RecalculationService
func NewRecalculationService(costing *CostingService, executor *command.Executor) *RecalculationService {
	return &RecalculationService{costing: costing, executor: executor}
}

// CostStateResponse is the snapshot returned after a replay
type CostStateResponse struct {
	CompanyID    uuid.UUID  `json:"companyId"`
	ItemID       uuid.UUID  `json:"itemId"`
	LocationID   uuid.UUID  `json:"locationId"`
	Quantity     string     `json:"quantity"`
	AverageCost  string     `json:"averageCost"`
	Value        string     `json:"value"`
	LastMoveDate *time.Time `json:"lastMoveDate,omitempty"`
}

// Recalculate replays one ledger forward from a date under its stock lock
func (s *RecalculationService) Recalculate(ctx context.Context, meta command.Command, key inventory.CostKey, from time.Time) (*CostStateResponse, error) {
	meta.TenantID = key.TenantID
	meta.Action = "inventory.recalculate"
	meta.EntityType = inventory.AggregateTypeStockLedger
	meta.EntityID = key.ItemID
	meta.LockKeys = []string{key.LockKey()}
	meta.Request = struct {
		ItemID     uuid.UUID `json:"itemId"`
		LocationID uuid.UUID `json:"locationId"`
		FromDate   time.Time `json:"fromDate"`
	}{key.ItemID, key.LocationID, from}

	resp, _, err := command.Run(ctx, s.executor, meta, func(ctx context.Context, tx *command.Tx) (*CostStateResponse, error) {
		state, err := s.costing.RecalculateFrom(ctx, tx, key, from)
		if err != nil {
			return nil, err
		}
		tx.AddMetadata("locationId", key.LocationID.String())
		tx.AddMetadata("fromDate", from.Format(time.DateOnly))
		return ToCostStateResponse(state), nil
	})
	return resp, err
}

// ToCostStateResponse converts a snapshot to its response
func ToCostStateResponse(s *inventory.ItemCostState) *CostStateResponse {
	return &CostStateResponse{
		CompanyID:    s.TenantID,
		ItemID:       s.ItemID,
		LocationID:   s.LocationID,
		Quantity:     s.Quantity.String(),
		AverageCost:  s.AverageCost.StringFixed(4),
		Value:        s.Value().StringFixed(2),
		LastMoveDate: s.LastMoveDate,
	}
}
