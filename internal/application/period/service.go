package period

import (
	"context"

	"github.com/erp/ledger/internal/application/command"
	"github.com/erp/ledger/internal/domain/period"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Service manages accounting periods
type Service struct {
	executor *command.Executor
}

// NewService creates a new period Service
func NewService(executor *command.Executor) *Service {
	return &Service{executor: executor}
}

// Create opens a new period. Periods of a tenant never overlap.
func (s *Service) Create(ctx context.Context, meta command.Command, req CreatePeriodRequest) (*PeriodResponse, error) {
	meta.Action = "accounting_period.create"
	meta.EntityType = "AccountingPeriod"
	meta.Request = req

	resp, _, err := command.Run(ctx, s.executor, meta, func(ctx context.Context, tx *command.Tx) (*PeriodResponse, error) {
		p, err := period.NewAccountingPeriod(meta.TenantID, req.Name, req.StartDate, req.EndDate)
		if err != nil {
			return nil, err
		}
		overlapping, err := tx.Periods().FindOverlapping(ctx, meta.TenantID, p.StartDate, p.EndDate)
		if err != nil {
			return nil, err
		}
		if len(overlapping) > 0 {
			return nil, shared.NewDomainError(shared.CodeAlreadyExists, "Accounting period overlaps an existing period").
				WithDetails(map[string]any{"periodId": overlapping[0].ID.String(), "name": overlapping[0].Name})
		}
		if err := tx.Periods().Save(ctx, p); err != nil {
			return nil, err
		}
		tx.SetEntity(p.ID)
		tx.AddMetadata("startDate", p.StartDate)
		tx.AddMetadata("endDate", p.EndDate)
		out := ToPeriodResponse(p)
		return &out, nil
	})
	return resp, err
}

// Close freezes a period against further postings
func (s *Service) Close(ctx context.Context, meta command.Command, periodID uuid.UUID) (*PeriodResponse, error) {
	return s.transition(ctx, meta, periodID, "accounting_period.close", func(p *period.AccountingPeriod) error {
		return p.Close(meta.Actor)
	})
}

// Reopen unfreezes a closed period
func (s *Service) Reopen(ctx context.Context, meta command.Command, periodID uuid.UUID) (*PeriodResponse, error) {
	return s.transition(ctx, meta, periodID, "accounting_period.reopen", func(p *period.AccountingPeriod) error {
		return p.Reopen()
	})
}

func (s *Service) transition(ctx context.Context, meta command.Command, periodID uuid.UUID, action string, apply func(*period.AccountingPeriod) error) (*PeriodResponse, error) {
	meta.Action = action
	meta.EntityType = "AccountingPeriod"
	meta.EntityID = periodID
	meta.Request = map[string]string{"periodId": periodID.String()}

	resp, _, err := command.Run(ctx, s.executor, meta, func(ctx context.Context, tx *command.Tx) (*PeriodResponse, error) {
		p, err := tx.Periods().FindByIDForTenant(ctx, meta.TenantID, periodID)
		if err != nil {
			return nil, err
		}
		if err := apply(p); err != nil {
			return nil, err
		}
		if err := tx.Periods().Save(ctx, p); err != nil {
			return nil, err
		}
		tx.AddMetadata("status", string(p.Status))
		out := ToPeriodResponse(p)
		return &out, nil
	})
	return resp, err
}
