package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/ledger/internal/domain/idempotency"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormIdempotencyRepository stores command outcomes keyed by (tenant, key).
// The unique index on those columns is what makes Claim safe under concurrency.
type GormIdempotencyRepository struct {
	db *gorm.DB
}

// NewGormIdempotencyRepository creates a new GormIdempotencyRepository
func NewGormIdempotencyRepository(db *gorm.DB) *GormIdempotencyRepository {
	return &GormIdempotencyRepository{db: db}
}

// Find returns the record for (tenant, key) or nil
func (r *GormIdempotencyRepository) Find(ctx context.Context, tenantID uuid.UUID, key string) (*idempotency.Record, error) {
	var model models.IdempotencyRecordModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND key = ?", tenantID, key).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// Claim inserts the record, returning ErrInProgress when the key already exists
func (r *GormIdempotencyRepository) Claim(ctx context.Context, record *idempotency.Record) error {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "key"}},
			DoNothing: true,
		}).
		Create(models.IdempotencyRecordModelFromDomain(record))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return idempotency.ErrInProgress
	}
	return nil
}

// Complete writes the final outcome
func (r *GormIdempotencyRepository) Complete(ctx context.Context, record *idempotency.Record) error {
	return r.db.WithContext(ctx).
		Model(&models.IdempotencyRecordModel{}).
		Where("id = ?", record.ID).
		Updates(map[string]any{
			"status":        record.Status,
			"response":      []byte(record.Response),
			"error_code":    record.ErrorCode,
			"error_message": record.ErrorMessage,
			"error_details": []byte(record.ErrorDetails),
			"completed_at":  record.CompletedAt,
		}).Error
}

// DeleteOlderThan purges records created before the cutoff
func (r *GormIdempotencyRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", before).
		Delete(&models.IdempotencyRecordModel{})
	return result.RowsAffected, result.Error
}

var _ idempotency.Repository = (*GormIdempotencyRepository)(nil)
