package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockMoveRepository implements the append-only stock ledger
type GormStockMoveRepository struct {
	db *gorm.DB
}

// NewGormStockMoveRepository creates a new GormStockMoveRepository
func NewGormStockMoveRepository(db *gorm.DB) *GormStockMoveRepository {
	return &GormStockMoveRepository{db: db}
}

// Create inserts a move
func (r *GormStockMoveRepository) Create(ctx context.Context, move *inventory.StockMove) error {
	touch(&move.CreatedAt)
	return r.db.WithContext(ctx).Create(models.StockMoveModelFromDomain(move)).Error
}

// ListForKey returns every move of a ledger ordered by (date, sequence)
func (r *GormStockMoveRepository) ListForKey(ctx context.Context, key inventory.CostKey) ([]*inventory.StockMove, error) {
	var rows []models.StockMoveModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND item_id = ? AND location_id = ?", key.TenantID, key.ItemID, key.LocationID).
		Order("move_date, sequence").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toStockMoves(rows), nil
}

// FindBySource lists the moves created for a source document
func (r *GormStockMoveRepository) FindBySource(ctx context.Context, tenantID uuid.UUID, sourceType inventory.SourceType, sourceID uuid.UUID) ([]*inventory.StockMove, error) {
	var rows []models.StockMoveModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND source_type = ? AND source_id = ?", tenantID, sourceType, sourceID).
		Order("sequence").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toStockMoves(rows), nil
}

func toStockMoves(rows []models.StockMoveModel) []*inventory.StockMove {
	out := make([]*inventory.StockMove, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

// GormCostStateRepository stores the per-ledger snapshot. Callers hold the row lock
// from GetForUpdate, so Save is a plain upsert that advances the version.
type GormCostStateRepository struct {
	db *gorm.DB
}

// NewGormCostStateRepository creates a new GormCostStateRepository
func NewGormCostStateRepository(db *gorm.DB) *GormCostStateRepository {
	return &GormCostStateRepository{db: db}
}

// GetForUpdate loads the snapshot with a row lock, inserting an empty row first if missing
func (r *GormCostStateRepository) GetForUpdate(ctx context.Context, key inventory.CostKey) (*inventory.ItemCostState, error) {
	db := r.db.WithContext(ctx)
	empty := models.CostStateModelFromDomain(inventory.NewItemCostState(key))
	empty.UpdatedAt = time.Now()
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(empty).Error; err != nil {
		return nil, err
	}

	var model models.CostStateModel
	if err := db.Clauses(forUpdate).
		Where("tenant_id = ? AND item_id = ? AND location_id = ?", key.TenantID, key.ItemID, key.LocationID).
		First(&model).Error; err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// Find loads the snapshot without locking. A ledger with no moves yields an empty state.
func (r *GormCostStateRepository) Find(ctx context.Context, key inventory.CostKey) (*inventory.ItemCostState, error) {
	var model models.CostStateModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND item_id = ? AND location_id = ?", key.TenantID, key.ItemID, key.LocationID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return inventory.NewItemCostState(key), nil
	}
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save writes the snapshot
func (r *GormCostStateRepository) Save(ctx context.Context, state *inventory.ItemCostState) error {
	state.Version++
	state.UpdatedAt = time.Now()
	model := models.CostStateModelFromDomain(state)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "item_id"}, {Name: "location_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "average_cost", "last_move_date", "last_sequence", "version", "updated_at"}),
		}).
		Create(model).Error
}

// GormItemRepository implements inventory.ItemRepository using GORM
type GormItemRepository struct {
	db *gorm.DB
}

// NewGormItemRepository creates a new GormItemRepository
func NewGormItemRepository(db *gorm.DB) *GormItemRepository {
	return &GormItemRepository{db: db}
}

// FindByIDs returns the items that exist, keyed by ID
func (r *GormItemRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*inventory.Item, error) {
	out := make(map[uuid.UUID]*inventory.Item, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.ItemModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		item := rows[i].ToDomain()
		out[item.ID] = item
	}
	return out, nil
}

// ExistsByCode reports whether the tenant already has an item with code
func (r *GormItemRepository) ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error) {
	return existsByCode(ctx, r.db, &models.ItemModel{}, tenantID, code)
}

// List returns the tenant's items ordered by code
func (r *GormItemRepository) List(ctx context.Context, tenantID uuid.UUID) ([]*inventory.Item, error) {
	var rows []models.ItemModel
	if err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("code").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*inventory.Item, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Save creates or updates an item
func (r *GormItemRepository) Save(ctx context.Context, item *inventory.Item) error {
	return saveVersioned(r.db.WithContext(ctx), models.ItemModelFromDomain(item), item.ID, item.Version)
}

// GormLocationRepository implements inventory.LocationRepository using GORM
type GormLocationRepository struct {
	db *gorm.DB
}

// NewGormLocationRepository creates a new GormLocationRepository
func NewGormLocationRepository(db *gorm.DB) *GormLocationRepository {
	return &GormLocationRepository{db: db}
}

// FindByIDForTenant finds a location by ID within a tenant
func (r *GormLocationRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*inventory.Location, error) {
	var model models.LocationModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, notFound(err, "location", id)
	}
	return model.ToDomain(), nil
}

// ExistsByCode reports whether the tenant already has a location with code
func (r *GormLocationRepository) ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error) {
	return existsByCode(ctx, r.db, &models.LocationModel{}, tenantID, code)
}

// List returns the tenant's locations ordered by code
func (r *GormLocationRepository) List(ctx context.Context, tenantID uuid.UUID) ([]*inventory.Location, error) {
	var rows []models.LocationModel
	if err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("code").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*inventory.Location, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Save creates or updates a location
func (r *GormLocationRepository) Save(ctx context.Context, location *inventory.Location) error {
	return saveVersioned(r.db.WithContext(ctx), models.LocationModelFromDomain(location), location.ID, location.Version)
}

var (
	_ inventory.StockMoveRepository = (*GormStockMoveRepository)(nil)
	_ inventory.CostStateRepository = (*GormCostStateRepository)(nil)
	_ inventory.ItemRepository      = (*GormItemRepository)(nil)
	_ inventory.LocationRepository  = (*GormLocationRepository)(nil)
)
