package period

import (
	"time"

	"github.com/erp/ledger/internal/domain/period"
	"github.com/google/uuid"
)

// CreatePeriodRequest is the input for creating an accounting period
type CreatePeriodRequest struct {
	Name      string    `json:"name" binding:"required,max=50"`
	StartDate time.Time `json:"startDate" binding:"required"`
	EndDate   time.Time `json:"endDate" binding:"required"`
}

// PeriodResponse is the API view of an accounting period
type PeriodResponse struct {
	ID        uuid.UUID  `json:"id"`
	CompanyID uuid.UUID  `json:"companyId"`
	Name      string     `json:"name"`
	StartDate string     `json:"startDate"`
	EndDate   string     `json:"endDate"`
	Status    string     `json:"status"`
	ClosedAt  *time.Time `json:"closedAt,omitempty"`
	ClosedBy  string     `json:"closedBy,omitempty"`
}

// ToPeriodResponse converts the domain period to its response
func ToPeriodResponse(p *period.AccountingPeriod) PeriodResponse {
	return PeriodResponse{
		ID:        p.ID,
		CompanyID: p.TenantID,
		Name:      p.Name,
		StartDate: p.StartDate.Format(time.DateOnly),
		EndDate:   p.EndDate.Format(time.DateOnly),
		Status:    string(p.Status),
		ClosedAt:  p.ClosedAt,
		ClosedBy:  p.ClosedBy,
	}
}
