package persistence

import (
	"context"
	"errors"

	"github.com/erp/ledger/internal/domain/procurement"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func orderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("line_no")
}

// GormPurchaseOrderRepository implements procurement.PurchaseOrderRepository using GORM
type GormPurchaseOrderRepository struct {
	db *gorm.DB
}

// NewGormPurchaseOrderRepository creates a new GormPurchaseOrderRepository
func NewGormPurchaseOrderRepository(db *gorm.DB) *GormPurchaseOrderRepository {
	return &GormPurchaseOrderRepository{db: db}
}

// FindByIDForTenant finds a purchase order by ID within a tenant
func (r *GormPurchaseOrderRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.PurchaseOrder, error) {
	return r.find(r.db.WithContext(ctx), tenantID, id)
}

// FindByIDForUpdate loads the order holding a row lock until the transaction ends
func (r *GormPurchaseOrderRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*procurement.PurchaseOrder, error) {
	return r.find(r.db.WithContext(ctx).Clauses(forUpdate), tenantID, id)
}

func (r *GormPurchaseOrderRepository) find(db *gorm.DB, tenantID, id uuid.UUID) (*procurement.PurchaseOrder, error) {
	var model models.PurchaseOrderModel
	if err := db.
		Preload("Lines", orderedLines).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, notFound(err, "purchase_order", id)
	}
	return model.ToDomain(), nil
}

// Save inserts a new order or updates an existing one with a version check, replacing its lines
func (r *GormPurchaseOrderRepository) Save(ctx context.Context, order *procurement.PurchaseOrder) error {
	model := models.PurchaseOrderModelFromDomain(order)
	db := r.db.WithContext(ctx)
	if order.Version <= 1 {
		return db.Create(model).Error
	}
	if err := saveVersioned(db, model, order.ID, order.Version, "Lines"); err != nil {
		return err
	}
	ids := make([]uuid.UUID, len(model.Lines))
	for i, l := range model.Lines {
		ids[i] = l.ID
	}
	return replaceLines(db, "order_id", order.ID, ids, model.Lines)
}

// Delete removes a purchase order and its lines
func (r *GormPurchaseOrderRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("tenant_id = ? AND order_id = ?", tenantID, id).
		Delete(&models.PurchaseOrderLineModel{}).Error; err != nil {
		return err
	}
	result := db.Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&models.PurchaseOrderModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "purchase_order", id)
	}
	return nil
}

// CountLinkedDocuments counts the receipts and bills raised against an order
func (r *GormPurchaseOrderRepository) CountLinkedDocuments(ctx context.Context, tenantID, id uuid.UUID) (procurement.LinkedDocuments, error) {
	var linked procurement.LinkedDocuments
	db := r.db.WithContext(ctx)
	if err := db.Model(&models.PurchaseReceiptModel{}).
		Where("tenant_id = ? AND purchase_order_id = ?", tenantID, id).
		Count(&linked.Receipts).Error; err != nil {
		return linked, err
	}
	if err := db.Model(&models.PurchaseBillModel{}).
		Where("tenant_id = ? AND purchase_order_id = ?", tenantID, id).
		Count(&linked.Bills).Error; err != nil {
		return linked, err
	}
	return linked, nil
}

// GormPurchaseReceiptRepository implements procurement.PurchaseReceiptRepository using GORM
type GormPurchaseReceiptRepository struct {
	db *gorm.DB
}

// NewGormPurchaseReceiptRepository creates a new GormPurchaseReceiptRepository
func NewGormPurchaseReceiptRepository(db *gorm.DB) *GormPurchaseReceiptRepository {
	return &GormPurchaseReceiptRepository{db: db}
}

// FindByIDForTenant finds a receipt by ID within a tenant
func (r *GormPurchaseReceiptRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.PurchaseReceipt, error) {
	return r.find(r.db.WithContext(ctx), tenantID, id)
}

// FindByIDForUpdate loads the receipt holding a row lock
func (r *GormPurchaseReceiptRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*procurement.PurchaseReceipt, error) {
	return r.find(r.db.WithContext(ctx).Clauses(forUpdate), tenantID, id)
}

func (r *GormPurchaseReceiptRepository) find(db *gorm.DB, tenantID, id uuid.UUID) (*procurement.PurchaseReceipt, error) {
	var model models.PurchaseReceiptModel
	if err := db.
		Preload("Lines", orderedLines).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, notFound(err, "purchase_receipt", id)
	}
	return model.ToDomain(), nil
}

// ListByOrder returns the receipts of an order, oldest first
func (r *GormPurchaseReceiptRepository) ListByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]*procurement.PurchaseReceipt, error) {
	var rows []models.PurchaseReceiptModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		Where("tenant_id = ? AND purchase_order_id = ?", tenantID, orderID).
		Order("created_at").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*procurement.PurchaseReceipt, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Save inserts a new receipt or updates its header with a version check.
// Receipt lines never change after creation.
func (r *GormPurchaseReceiptRepository) Save(ctx context.Context, receipt *procurement.PurchaseReceipt) error {
	model := models.PurchaseReceiptModelFromDomain(receipt)
	db := r.db.WithContext(ctx)
	if receipt.Version <= 1 {
		return db.Create(model).Error
	}
	return saveVersioned(db, model, receipt.ID, receipt.Version, "Lines")
}

// GormPurchaseBillRepository implements procurement.PurchaseBillRepository using GORM
type GormPurchaseBillRepository struct {
	db *gorm.DB
}

// NewGormPurchaseBillRepository creates a new GormPurchaseBillRepository
func NewGormPurchaseBillRepository(db *gorm.DB) *GormPurchaseBillRepository {
	return &GormPurchaseBillRepository{db: db}
}

// FindByIDForTenant finds a bill by ID within a tenant
func (r *GormPurchaseBillRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.PurchaseBill, error) {
	return r.find(r.db.WithContext(ctx), tenantID, id)
}

// FindByIDForUpdate loads the bill holding a row lock
func (r *GormPurchaseBillRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*procurement.PurchaseBill, error) {
	return r.find(r.db.WithContext(ctx).Clauses(forUpdate), tenantID, id)
}

func (r *GormPurchaseBillRepository) find(db *gorm.DB, tenantID, id uuid.UUID) (*procurement.PurchaseBill, error) {
	var model models.PurchaseBillModel
	if err := db.
		Preload("Lines", orderedLines).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, notFound(err, "purchase_bill", id)
	}
	return model.ToDomain(), nil
}

// ListByOrder returns the bills of an order, oldest first
func (r *GormPurchaseBillRepository) ListByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]*procurement.PurchaseBill, error) {
	var rows []models.PurchaseBillModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		Where("tenant_id = ? AND purchase_order_id = ?", tenantID, orderID).
		Order("created_at").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*procurement.PurchaseBill, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// FindByReceipt returns the bill matched to a receipt, or nil
func (r *GormPurchaseBillRepository) FindByReceipt(ctx context.Context, tenantID, receiptID uuid.UUID) (*procurement.PurchaseBill, error) {
	var model models.PurchaseBillModel
	err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		Where("tenant_id = ? AND receipt_id = ?", tenantID, receiptID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save inserts a new bill or updates its header with a version check
func (r *GormPurchaseBillRepository) Save(ctx context.Context, bill *procurement.PurchaseBill) error {
	model := models.PurchaseBillModelFromDomain(bill)
	db := r.db.WithContext(ctx)
	if bill.Version <= 1 {
		return db.Create(model).Error
	}
	return saveVersioned(db, model, bill.ID, bill.Version, "Lines")
}

var (
	_ procurement.PurchaseOrderRepository   = (*GormPurchaseOrderRepository)(nil)
	_ procurement.PurchaseReceiptRepository = (*GormPurchaseReceiptRepository)(nil)
	_ procurement.PurchaseBillRepository    = (*GormPurchaseBillRepository)(nil)
)
