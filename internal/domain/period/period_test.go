package period

import (
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountingPeriod(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	p, err := NewAccountingPeriod(uuid.New(), "2026-01", start, end)
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, p.Status)

	assert.True(t, p.Contains(start))
	assert.True(t, p.Contains(end.Add(23*time.Hour)), "end day is inclusive")
	assert.False(t, p.Contains(end.AddDate(0, 0, 1)))
	assert.False(t, p.Contains(start.Add(-time.Second)))

	require.NoError(t, p.Close("controller"))
	assert.Equal(t, StatusClosed, p.Status)
	assert.NotNil(t, p.ClosedAt)
	assert.ErrorIs(t, p.Close("again"), shared.ErrInvalidState)

	require.NoError(t, p.Reopen())
	assert.Equal(t, StatusOpen, p.Status)
	assert.Error(t, p.Reopen())
}

func TestNewAccountingPeriod_Validation(t *testing.T) {
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	_, err := NewAccountingPeriod(uuid.New(), "", start, start)
	assert.Error(t, err)
	_, err = NewAccountingPeriod(uuid.New(), "bad", start, start.AddDate(0, 0, -1))
	assert.Error(t, err)
}

func TestNewPeriodClosedError(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p, err := NewAccountingPeriod(uuid.New(), "2026-01", start, start.AddDate(0, 1, -1))
	require.NoError(t, err)

	perr := NewPeriodClosedError(start.AddDate(0, 0, 9), p, "purchase_order.approve")
	assert.Equal(t, shared.CodePeriodClosed, perr.Code)
	assert.Equal(t, "2026-01-10", perr.Details["date"])
	assert.Equal(t, "2026-01-31", perr.Details["periodEnd"])
	assert.Equal(t, "purchase_order.approve", perr.Details["action"])
}
