package persistence

import (
	"context"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAccountRepository implements ledger.AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByCodes returns the accounts that exist, keyed by code
func (r *GormAccountRepository) FindByCodes(ctx context.Context, tenantID uuid.UUID, codes []string) (map[string]*ledger.Account, error) {
	out := make(map[string]*ledger.Account, len(codes))
	if len(codes) == 0 {
		return out, nil
	}
	var rows []models.AccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND code IN ?", tenantID, codes).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		a := rows[i].ToDomain()
		out[a.Code] = a
	}
	return out, nil
}

// List returns the tenant's accounts ordered by code
func (r *GormAccountRepository) List(ctx context.Context, tenantID uuid.UUID) ([]*ledger.Account, error) {
	var rows []models.AccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("code").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*ledger.Account, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Save creates or updates an account
func (r *GormAccountRepository) Save(ctx context.Context, account *ledger.Account) error {
	return saveVersioned(r.db.WithContext(ctx), models.AccountModelFromDomain(account), account.ID, account.Version)
}

// GormJournalEntryRepository implements ledger.JournalEntryRepository using GORM.
// Entries are insert-only.
type GormJournalEntryRepository struct {
	db *gorm.DB
}

// NewGormJournalEntryRepository creates a new GormJournalEntryRepository
func NewGormJournalEntryRepository(db *gorm.DB) *GormJournalEntryRepository {
	return &GormJournalEntryRepository{db: db}
}

// Create inserts the entry and its lines
func (r *GormJournalEntryRepository) Create(ctx context.Context, entry *ledger.JournalEntry) error {
	model := models.JournalEntryModelFromDomain(entry)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByIDForTenant loads an entry with its lines
func (r *GormJournalEntryRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.JournalEntry, error) {
	var model models.JournalEntryModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no") }).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, notFound(err, "journal_entry", id)
	}
	return model.ToDomain(), nil
}

// FindBySource lists entries posted for a source document, oldest first
func (r *GormJournalEntryRepository) FindBySource(ctx context.Context, tenantID uuid.UUID, sourceType ledger.SourceType, sourceID uuid.UUID) ([]*ledger.JournalEntry, error) {
	var rows []models.JournalEntryModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no") }).
		Where("tenant_id = ? AND source_type = ? AND source_id = ?", tenantID, sourceType, sourceID).
		Order("created_at").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*ledger.JournalEntry, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// ExistsReversalOf reports whether the entry was already reversed
func (r *GormJournalEntryRepository) ExistsReversalOf(ctx context.Context, tenantID, entryID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.JournalEntryModel{}).
		Where("tenant_id = ? AND reversal_of = ?", tenantID, entryID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

var (
	_ ledger.AccountRepository      = (*GormAccountRepository)(nil)
	_ ledger.JournalEntryRepository = (*GormJournalEntryRepository)(nil)
)
