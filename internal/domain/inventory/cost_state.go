package inventory

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CostKey identifies one stock ledger
type CostKey struct {
	TenantID   uuid.UUID
	ItemID     uuid.UUID
	LocationID uuid.UUID
}

// LockKey is the distributed lock key for the ledger
func (k CostKey) LockKey() string {
	return fmt.Sprintf("stock:%s:%s:%s", k.TenantID, k.ItemID, k.LocationID)
}

// ItemCostState is the running quantity and weighted-average unit cost of one ledger.
// It is derived from the stock moves and can always be rebuilt with Replay.
type ItemCostState struct {
	CostKey
	Quantity     decimal.Decimal
	AverageCost  decimal.Decimal
	LastMoveDate *time.Time
	LastSequence int64
	Version      int
	UpdatedAt    time.Time
}

// NewItemCostState creates an empty ledger state
func NewItemCostState(key CostKey) *ItemCostState {
	return &ItemCostState{
		CostKey:     key,
		Quantity:    decimal.Zero,
		AverageCost: decimal.Zero,
		Version:     1,
	}
}

// AppliedCost is the costing outcome of one move
type AppliedCost struct {
	UnitCost  decimal.Decimal
	TotalCost decimal.Decimal
}

// IsBackdated reports whether a move dated on date would land before the last applied move
func (s *ItemCostState) IsBackdated(date time.Time) bool {
	return s.LastMoveDate != nil && date.Before(*s.LastMoveDate)
}

// Value returns quantity × average cost at two places
func (s *ItemCostState) Value() decimal.Decimal {
	return valueobject.RoundMoney(s.Quantity.Mul(s.AverageCost))
}

// Apply folds one move into the state.
// IN moves re-average the cost; OUT moves are deducted at the current average.
func (s *ItemCostState) Apply(direction Direction, qty, unitCost decimal.Decimal, allowNegative bool) (AppliedCost, error) {
	qty = valueobject.RoundQuantity(qty)
	switch direction {
	case DirectionIn:
		unitCost = valueobject.RoundCost(unitCost)
		return s.applyIn(qty, unitCost, valueobject.RoundMoney(qty.Mul(unitCost))), nil
	case DirectionOut:
		return s.applyOut(qty, allowNegative)
	}
	return AppliedCost{}, fmt.Errorf("unknown stock move direction %q", direction)
}

// applyIn averages in a receipt valued at total
func (s *ItemCostState) applyIn(qty, unitCost, total decimal.Decimal) AppliedCost {
	newQty := s.Quantity.Add(qty)
	if s.Quantity.LessThanOrEqual(decimal.Zero) || newQty.IsZero() {
		// nothing (or a deficit) on hand to average against
		s.AverageCost = unitCost
	} else {
		totalValue := s.Quantity.Mul(s.AverageCost).Add(total)
		s.AverageCost = valueobject.RoundCost(totalValue.Div(newQty))
	}
	s.Quantity = newQty
	return AppliedCost{UnitCost: unitCost, TotalCost: total}
}

func (s *ItemCostState) applyOut(qty decimal.Decimal, allowNegative bool) (AppliedCost, error) {
	newQty := s.Quantity.Sub(qty)
	if newQty.IsNegative() && !allowNegative {
		return AppliedCost{}, NewInsufficientStockError(s.CostKey, s.Quantity, qty)
	}
	s.Quantity = newQty
	return AppliedCost{UnitCost: s.AverageCost, TotalCost: valueobject.RoundMoney(qty.Mul(s.AverageCost))}, nil
}

// applyMove re-applies a stored move. IN moves keep their recorded value.
func (s *ItemCostState) applyMove(m *StockMove, allowNegative bool) error {
	if m.Direction == DirectionIn {
		s.applyIn(m.Quantity, m.UnitCostApplied, m.TotalCostApplied)
	} else if _, err := s.applyOut(m.Quantity, allowNegative); err != nil {
		return err
	}
	s.advance(m.MoveDate, m.Sequence)
	return nil
}

// advance records the position of the last applied move
func (s *ItemCostState) advance(date time.Time, sequence int64) {
	if s.LastMoveDate == nil || !date.Before(*s.LastMoveDate) {
		d := date
		s.LastMoveDate = &d
	}
	if sequence > s.LastSequence {
		s.LastSequence = sequence
	}
}

// Record applies a new move request and returns the immutable move to insert.
// The caller must hold the ledger lock; the sequence is taken from the state.
func (s *ItemCostState) Record(req MoveRequest, now time.Time) (*StockMove, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var applied AppliedCost
	if req.Direction == DirectionIn && req.TotalCost != nil {
		applied = s.applyIn(valueobject.RoundQuantity(req.Quantity), valueobject.RoundCost(req.UnitCostApplied), valueobject.RoundMoney(*req.TotalCost))
	} else {
		var err error
		if applied, err = s.Apply(req.Direction, req.Quantity, req.UnitCostApplied, req.AllowNegative); err != nil {
			return nil, err
		}
	}
	move := &StockMove{
		ID:               uuid.New(),
		TenantID:         req.TenantID,
		ItemID:           req.ItemID,
		LocationID:       req.LocationID,
		MoveDate:         req.MoveDate,
		Sequence:         s.LastSequence + 1,
		Direction:        req.Direction,
		Quantity:         valueobject.RoundQuantity(req.Quantity),
		UnitCostApplied:  applied.UnitCost,
		TotalCostApplied: applied.TotalCost,
		SourceType:       req.SourceType,
		SourceID:         req.SourceID,
		SourceLineID:     req.SourceLineID,
		JournalEntryID:   req.JournalEntryID,
		CorrelationID:    req.CorrelationID,
		CreatedAt:        now,
	}
	s.advance(move.MoveDate, move.Sequence)
	s.UpdatedAt = now
	return move, nil
}

// SortMoves orders moves by (date, insertion sequence)
func SortMoves(moves []*StockMove) {
	slices.SortStableFunc(moves, func(a, b *StockMove) int {
		if c := a.MoveDate.Compare(b.MoveDate); c != 0 {
			return c
		}
		return cmp.Compare(a.Sequence, b.Sequence)
	})
}

// Replay rebuilds the state of a ledger from its moves in (date, sequence) order.
// OUT moves are re-deducted at the replayed average; their stored unit cost is left untouched.
func Replay(key CostKey, moves []*StockMove, allowNegative bool) (*ItemCostState, error) {
	ordered := slices.Clone(moves)
	SortMoves(ordered)

	state := NewItemCostState(key)
	for _, m := range ordered {
		if err := state.applyMove(m, allowNegative); err != nil {
			return nil, err
		}
	}
	return state, nil
}

// ReplayFrom continues from a checkpoint state with moves dated on or after from
func ReplayFrom(checkpoint *ItemCostState, moves []*StockMove, allowNegative bool) (*ItemCostState, error) {
	ordered := slices.Clone(moves)
	SortMoves(ordered)

	state := *checkpoint
	for _, m := range ordered {
		if err := state.applyMove(m, allowNegative); err != nil {
			return nil, err
		}
	}
	return &state, nil
}

// StateAt computes the ledger state as of the end of date
func StateAt(key CostKey, moves []*StockMove, date time.Time, allowNegative bool) (*ItemCostState, error) {
	upTo := make([]*StockMove, 0, len(moves))
	for _, m := range moves {
		if !m.MoveDate.After(date) {
			upTo = append(upTo, m)
		}
	}
	return Replay(key, upTo, allowNegative)
}
