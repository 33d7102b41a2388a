package procurement

import (
	"context"

	"github.com/google/uuid"
)

// PurchaseOrderRepository persists purchase orders with their lines.
// Save inserts new orders and updates existing ones with an optimistic version check.
type PurchaseOrderRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*PurchaseOrder, error)
	// FindByIDForUpdate loads the order holding a row lock until the transaction ends
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*PurchaseOrder, error)
	Save(ctx context.Context, order *PurchaseOrder) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	CountLinkedDocuments(ctx context.Context, tenantID, id uuid.UUID) (LinkedDocuments, error)
}

// PurchaseReceiptRepository persists goods receipts with their lines
type PurchaseReceiptRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*PurchaseReceipt, error)
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*PurchaseReceipt, error)
	ListByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]*PurchaseReceipt, error)
	Save(ctx context.Context, receipt *PurchaseReceipt) error
}

// PurchaseBillRepository persists vendor bills with their lines
type PurchaseBillRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*PurchaseBill, error)
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*PurchaseBill, error)
	ListByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]*PurchaseBill, error)
	// FindByReceipt returns the bill matched to a receipt, or nil
	FindByReceipt(ctx context.Context, tenantID, receiptID uuid.UUID) (*PurchaseBill, error)
	Save(ctx context.Context, bill *PurchaseBill) error
}
