package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSequenceGenerator issues document numbers from a counter row per (tenant, prefix).
// The row stays locked until the caller's transaction ends, so numbers are gap-free.
type GormSequenceGenerator struct {
	db *gorm.DB
}

// NewGormSequenceGenerator creates a new GormSequenceGenerator
func NewGormSequenceGenerator(db *gorm.DB) *GormSequenceGenerator {
	return &GormSequenceGenerator{db: db}
}

// Next returns the next number formatted as PREFIX-000001
func (g *GormSequenceGenerator) Next(ctx context.Context, tenantID uuid.UUID, prefix string) (string, error) {
	db := g.db.WithContext(ctx)
	seed := &models.DocumentSequenceModel{TenantID: tenantID, Prefix: prefix, UpdatedAt: time.Now()}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(seed).Error; err != nil {
		return "", fmt.Errorf("failed to seed %s sequence: %w", prefix, err)
	}

	var row models.DocumentSequenceModel
	if err := db.Clauses(forUpdate).
		Where("tenant_id = ? AND prefix = ?", tenantID, prefix).
		First(&row).Error; err != nil {
		return "", fmt.Errorf("failed to lock %s sequence: %w", prefix, err)
	}
	next := row.LastValue + 1
	if err := db.Model(&models.DocumentSequenceModel{}).
		Where("tenant_id = ? AND prefix = ?", tenantID, prefix).
		Updates(map[string]any{"last_value": next, "updated_at": time.Now()}).Error; err != nil {
		return "", fmt.Errorf("failed to advance %s sequence: %w", prefix, err)
	}
	return fmt.Sprintf("%s-%06d", prefix, next), nil
}

var _ shared.SequenceGenerator = (*GormSequenceGenerator)(nil)
