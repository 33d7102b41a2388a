package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/ledger/internal/domain/period"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPeriodRepository implements period.Repository using GORM
type GormPeriodRepository struct {
	db *gorm.DB
}

// NewGormPeriodRepository creates a new GormPeriodRepository
func NewGormPeriodRepository(db *gorm.DB) *GormPeriodRepository {
	return &GormPeriodRepository{db: db}
}

// FindClosedContaining returns the closed period containing date, or nil
func (r *GormPeriodRepository) FindClosedContaining(ctx context.Context, tenantID uuid.UUID, date time.Time) (*period.AccountingPeriod, error) {
	day := period.TruncateDay(date)
	var model models.AccountingPeriodModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ? AND start_date <= ? AND end_date >= ?", tenantID, period.StatusClosed, day, day).
		Order("start_date").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindOverlapping lists periods intersecting [start, end]
func (r *GormPeriodRepository) FindOverlapping(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]*period.AccountingPeriod, error) {
	var rows []models.AccountingPeriodModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND start_date <= ? AND end_date >= ?", tenantID, period.TruncateDay(end), period.TruncateDay(start)).
		Order("start_date").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*period.AccountingPeriod, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// FindByIDForTenant finds a period by ID within a tenant
func (r *GormPeriodRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*period.AccountingPeriod, error) {
	var model models.AccountingPeriodModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, notFound(err, "accounting_period", id)
	}
	return model.ToDomain(), nil
}

// Save creates or updates a period
func (r *GormPeriodRepository) Save(ctx context.Context, p *period.AccountingPeriod) error {
	return saveVersioned(r.db.WithContext(ctx), models.AccountingPeriodModelFromDomain(p), p.ID, p.Version)
}

var _ period.Repository = (*GormPeriodRepository)(nil)
