package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate is the row lock taken by FindByIDForUpdate. SQLite ignores it.
var forUpdate = clause.Locking{Strength: "UPDATE"}

// notFound maps gorm.ErrRecordNotFound to a NOT_FOUND domain error naming the entity
func notFound(err error, entity string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound.WithDetails(map[string]any{"entity": entity, "id": id})
	}
	return err
}

// saveVersioned inserts an aggregate at version 1, otherwise updates it
// only if the stored row still has the previous version.
func saveVersioned(tx *gorm.DB, model any, id uuid.UUID, version int, omit ...string) error {
	if version <= 1 {
		return tx.Omit(omit...).Create(model).Error
	}
	result := tx.Model(model).
		Select("*").
		Omit(append([]string{"id", "tenant_id", "created_at"}, omit...)...).
		Where("id = ? AND version = ?", id, version-1).
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.WithDetails(map[string]any{"id": id.String(), "version": version})
	}
	return nil
}

// replaceLines removes child rows no longer present and upserts the rest
func replaceLines[T any](tx *gorm.DB, parentColumn string, parentID uuid.UUID, ids []uuid.UUID, lines []T) error {
	var zero T
	query := tx.Where(parentColumn+" = ?", parentID)
	if len(ids) > 0 {
		query = query.Where("id NOT IN ?", ids)
	}
	if err := query.Delete(&zero).Error; err != nil {
		return err
	}
	for i := range lines {
		if err := tx.Save(&lines[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func touch(t *time.Time) {
	if t.IsZero() {
		*t = time.Now()
	}
}

// existsByCode checks the (tenant_id, code) unique key of model's table
func existsByCode(ctx context.Context, db *gorm.DB, model any, tenantID uuid.UUID, code string) (bool, error) {
	var count int64
	if err := db.WithContext(ctx).Model(model).
		Where("tenant_id = ? AND code = ?", tenantID, code).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
