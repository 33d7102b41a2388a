package inventory

import (
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(n int) time.Time {
	return time.Date(2026, 1, n, 0, 0, 0, 0, time.UTC)
}

func testKey() CostKey {
	return CostKey{TenantID: uuid.New(), ItemID: uuid.New(), LocationID: uuid.New()}
}

func request(key CostKey, date time.Time, dir Direction, qty, cost string) MoveRequest {
	return MoveRequest{
		TenantID:        key.TenantID,
		ItemID:          key.ItemID,
		LocationID:      key.LocationID,
		MoveDate:        date,
		Direction:       dir,
		Quantity:        d(qty),
		UnitCostApplied: d(cost),
		SourceType:      SourceAdjustment,
		SourceID:        uuid.New(),
	}
}

func TestItemCostState_WeightedAverage(t *testing.T) {
	key := testKey()
	state := NewItemCostState(key)

	m1, err := state.Record(request(key, day(1), DirectionIn, "10", "100"), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), m1.Sequence)
	assert.True(t, m1.TotalCostApplied.Equal(d("1000")))

	_, err = state.Record(request(key, day(2), DirectionIn, "10", "120"), time.Now())
	require.NoError(t, err)
	assert.True(t, state.Quantity.Equal(d("20")), "qty %s", state.Quantity)
	assert.True(t, state.AverageCost.Equal(d("110")), "avg %s", state.AverageCost)

	out, err := state.Record(request(key, day(3), DirectionOut, "5", "0"), time.Now())
	require.NoError(t, err)
	assert.True(t, state.Quantity.Equal(d("15")))
	assert.True(t, state.AverageCost.Equal(d("110")))
	assert.True(t, out.UnitCostApplied.Equal(d("110")))
	assert.True(t, out.TotalCostApplied.Equal(d("550")))
	assert.Equal(t, int64(3), state.LastSequence)
	assert.True(t, state.LastMoveDate.Equal(day(3)))
}

func TestItemCostState_InsufficientStock(t *testing.T) {
	key := testKey()
	state := NewItemCostState(key)
	_, err := state.Record(request(key, day(1), DirectionIn, "3", "10"), time.Now())
	require.NoError(t, err)

	_, err = state.Record(request(key, day(2), DirectionOut, "4", "0"), time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	assert.True(t, state.Quantity.Equal(d("3")), "state must not change on rejection")
	assert.Equal(t, int64(1), state.LastSequence)

	req := request(key, day(2), DirectionOut, "4", "0")
	req.AllowNegative = true
	_, err = state.Record(req, time.Now())
	require.NoError(t, err)
	assert.True(t, state.Quantity.Equal(d("-1")))

	// an IN on a deficit takes the incoming cost
	_, err = state.Record(request(key, day(3), DirectionIn, "5", "12"), time.Now())
	require.NoError(t, err)
	assert.True(t, state.Quantity.Equal(d("4")))
	assert.True(t, state.AverageCost.Equal(d("12")))
}

func TestMoveRequest_Validate(t *testing.T) {
	key := testKey()
	tests := []struct {
		name   string
		mutate func(r *MoveRequest)
	}{
		{"zero quantity", func(r *MoveRequest) { r.Quantity = decimal.Zero }},
		{"negative cost", func(r *MoveRequest) { r.UnitCostApplied = d("-1") }},
		{"bad direction", func(r *MoveRequest) { r.Direction = "SIDEWAYS" }},
		{"missing date", func(r *MoveRequest) { r.MoveDate = time.Time{} }},
		{"missing item", func(r *MoveRequest) { r.ItemID = uuid.Nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := request(key, day(1), DirectionIn, "1", "1")
			tt.mutate(&r)
			assert.Error(t, r.Validate())
		})
	}
}

func TestItemCostState_IsBackdated(t *testing.T) {
	state := NewItemCostState(testKey())
	assert.False(t, state.IsBackdated(day(1)))
	state.advance(day(5), 1)
	assert.True(t, state.IsBackdated(day(4)))
	assert.False(t, state.IsBackdated(day(5)), "same day is not backdated")
	assert.False(t, state.IsBackdated(day(6)))
}

func TestReplay_BackdatedInsertIsDeterministic(t *testing.T) {
	key := testKey()
	mk := func(date time.Time, seq int64, dir Direction, qty, cost string) *StockMove {
		return &StockMove{
			ID: uuid.New(), TenantID: key.TenantID, ItemID: key.ItemID, LocationID: key.LocationID,
			MoveDate: date, Sequence: seq, Direction: dir, Quantity: d(qty), UnitCostApplied: d(cost),
		}
	}

	existing := []*StockMove{
		mk(day(2), 1, DirectionIn, "10", "100"),
		mk(day(4), 2, DirectionOut, "5", "100"),
		mk(day(6), 3, DirectionIn, "5", "130"),
	}
	before, err := Replay(key, existing, false)
	require.NoError(t, err)
	// 10@100, out 5 -> 5@100, in 5@130 -> 10@115
	assert.True(t, before.AverageCost.Equal(d("115")), "avg %s", before.AverageCost)

	backdated := mk(day(1), 4, DirectionIn, "10", "70")
	withBackdated := append([]*StockMove{backdated}, existing...)
	after, err := Replay(key, withBackdated, false)
	require.NoError(t, err)
	// 10@70, in 10@100 -> 20@85, out 5 -> 15@85, in 5@130 -> 20@96.25
	assert.True(t, after.Quantity.Equal(d("20")))
	assert.True(t, after.AverageCost.Equal(d("96.25")), "avg %s", after.AverageCost)

	reversed := []*StockMove{existing[2], existing[1], backdated, existing[0]}
	again, err := Replay(key, reversed, false)
	require.NoError(t, err)
	assert.True(t, after.Quantity.Equal(again.Quantity))
	assert.True(t, after.AverageCost.Equal(again.AverageCost))
	assert.Equal(t, int64(4), again.LastSequence)
	assert.True(t, again.LastMoveDate.Equal(day(6)))
}

func TestReplay_SameDayOrderedBySequence(t *testing.T) {
	key := testKey()
	moves := []*StockMove{
		{MoveDate: day(1), Sequence: 2, Direction: DirectionOut, Quantity: d("5")},
		{MoveDate: day(1), Sequence: 1, Direction: DirectionIn, Quantity: d("5"), UnitCostApplied: d("10")},
	}
	state, err := Replay(key, moves, false)
	require.NoError(t, err)
	assert.True(t, state.Quantity.IsZero())
}

func TestStateAtAndReplayFrom(t *testing.T) {
	key := testKey()
	moves := []*StockMove{
		{MoveDate: day(1), Sequence: 1, Direction: DirectionIn, Quantity: d("10"), UnitCostApplied: d("100")},
		{MoveDate: day(3), Sequence: 2, Direction: DirectionIn, Quantity: d("10"), UnitCostApplied: d("120")},
	}
	at2, err := StateAt(key, moves, day(2), false)
	require.NoError(t, err)
	assert.True(t, at2.Quantity.Equal(d("10")))
	assert.True(t, at2.AverageCost.Equal(d("100")))

	full, err := ReplayFrom(at2, moves[1:], false)
	require.NoError(t, err)
	assert.True(t, full.AverageCost.Equal(d("110")))
	assert.True(t, at2.Quantity.Equal(d("10")), "checkpoint is not mutated")
}

func TestCostKey_LockKey(t *testing.T) {
	key := testKey()
	assert.Equal(t, "stock:"+key.TenantID.String()+":"+key.ItemID.String()+":"+key.LocationID.String(), key.LockKey())
}

func TestItemCostState_RecordKeepsDocumentTotal(t *testing.T) {
	key := testKey()
	state := NewItemCostState(key)

	req := request(key, day(1), DirectionIn, "30000", "0.0333")
	total := d("1000.00")
	req.TotalCost = &total

	move, err := state.Record(req, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "1000.00", move.TotalCostApplied.StringFixed(2))
	assert.Equal(t, "0.0333", move.UnitCostApplied.StringFixed(4))

	rebuilt, err := Replay(key, []*StockMove{move}, false)
	require.NoError(t, err)
	assert.True(t, rebuilt.Quantity.Equal(state.Quantity))
	assert.True(t, rebuilt.AverageCost.Equal(state.AverageCost))

	bad := request(key, day(2), DirectionOut, "1", "0")
	bad.TotalCost = &total
	assert.Error(t, bad.Validate())
}
