package persistence

import (
	"context"

	"github.com/erp/ledger/internal/domain/audit"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAuditRepository writes the append-only audit trail
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// Append inserts the entry
func (r *GormAuditRepository) Append(ctx context.Context, entry *audit.Entry) error {
	return r.db.WithContext(ctx).Create(models.AuditLogModelFromDomain(entry)).Error
}

// ListByEntity returns the trail of one entity, oldest first
func (r *GormAuditRepository) ListByEntity(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID) ([]*audit.Entry, error) {
	var rows []models.AuditLogModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND entity_type = ? AND entity_id = ?", tenantID, entityType, entityID).
		Order("created_at").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*audit.Entry, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// CountByIdempotencyKey counts the records produced by one command
func (r *GormAuditRepository) CountByIdempotencyKey(ctx context.Context, tenantID uuid.UUID, key string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AuditLogModel{}).
		Where("tenant_id = ? AND idempotency_key = ?", tenantID, key).
		Count(&count).Error
	return count, err
}

var _ audit.Repository = (*GormAuditRepository)(nil)
