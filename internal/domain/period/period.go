package period

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Status of an accounting period
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// AccountingPeriod is a date range a tenant can freeze against further mutation
type AccountingPeriod struct {
	shared.TenantAggregateRoot
	Name      string
	StartDate time.Time
	EndDate   time.Time
	Status    Status
	ClosedAt  *time.Time
	ClosedBy  string
}

// NewAccountingPeriod creates an open period covering [start, end] (whole days)
func NewAccountingPeriod(tenantID uuid.UUID, name string, start, end time.Time) (*AccountingPeriod, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Period name cannot be empty")
	}
	start, end = TruncateDay(start), TruncateDay(end)
	if start.IsZero() || end.IsZero() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Period start and end dates are required")
	}
	if end.Before(start) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Period end date cannot be before its start date")
	}
	return &AccountingPeriod{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		StartDate:           start,
		EndDate:             end,
		Status:              StatusOpen,
	}, nil
}

// Contains reports whether date falls inside the period (inclusive on both ends)
func (p *AccountingPeriod) Contains(date time.Time) bool {
	day := TruncateDay(date)
	return !day.Before(p.StartDate) && !day.After(p.EndDate)
}

// Close freezes the period
func (p *AccountingPeriod) Close(actor string) error {
	if p.Status == StatusClosed {
		return shared.NewStateConflictError("accounting period", "close", string(p.Status), string(StatusOpen))
	}
	now := time.Now()
	p.Status = StatusClosed
	p.ClosedAt = &now
	p.ClosedBy = actor
	p.UpdatedAt = now
	p.IncrementVersion()
	return nil
}

// Reopen unfreezes the period
func (p *AccountingPeriod) Reopen() error {
	if p.Status != StatusClosed {
		return shared.NewStateConflictError("accounting period", "reopen", string(p.Status), string(StatusClosed))
	}
	p.Status = StatusOpen
	p.ClosedAt = nil
	p.ClosedBy = ""
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// TruncateDay drops the time of day, keeping the calendar date in UTC
func TruncateDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewPeriodClosedError reports a mutation dated inside a closed period
func NewPeriodClosedError(date time.Time, p *AccountingPeriod, action string) *shared.DomainError {
	return shared.NewDomainError(shared.CodePeriodClosed,
		fmt.Sprintf("Accounting period %s is closed; %s dated %s is not allowed",
			p.Name, action, date.Format(time.DateOnly))).
		WithDetails(map[string]any{
			"date":        date.Format(time.DateOnly),
			"periodId":    p.ID.String(),
			"periodStart": p.StartDate.Format(time.DateOnly),
			"periodEnd":   p.EndDate.Format(time.DateOnly),
			"action":      action,
		})
}

// Repository persists accounting periods
type Repository interface {
	// FindClosedContaining returns the closed period containing date, or nil
	FindClosedContaining(ctx context.Context, tenantID uuid.UUID, date time.Time) (*AccountingPeriod, error)

	// FindOverlapping lists periods intersecting [start, end]
	FindOverlapping(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]*AccountingPeriod, error)

	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*AccountingPeriod, error)
	Save(ctx context.Context, p *AccountingPeriod) error
}
