package period

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/period"
	"github.com/google/uuid"
)

// Guard rejects mutations dated inside a closed accounting period
type Guard struct {
	periods period.Repository
}

// NewGuard creates a new Guard
func NewGuard(periods period.Repository) *Guard {
	return &Guard{periods: periods}
}

// AssertOpenPeriod fails with PERIOD_CLOSED when date lies in a closed period of the tenant
func (g *Guard) AssertOpenPeriod(ctx context.Context, tenantID uuid.UUID, date time.Time, action string) error {
	if date.IsZero() {
		return nil
	}
	closed, err := g.periods.FindClosedContaining(ctx, tenantID, period.TruncateDay(date))
	if err != nil {
		return fmt.Errorf("failed to check accounting period: %w", err)
	}
	if closed != nil {
		return period.NewPeriodClosedError(date, closed, action)
	}
	return nil
}
