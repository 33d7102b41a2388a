package procurement

import (
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constants
const (
	AggregateTypePurchaseOrder   = "PurchaseOrder"
	AggregateTypePurchaseReceipt = "PurchaseReceipt"
	AggregateTypePurchaseBill    = "PurchaseBill"
)

// Event type constants
const (
	EventTypePurchaseOrderCreated   = "purchase.order.created"
	EventTypePurchaseOrderUpdated   = "purchase.order.updated"
	EventTypePurchaseOrderApproved  = "purchase.order.approved"
	EventTypePurchaseOrderCancelled = "purchase.order.cancelled"
	EventTypePurchaseOrderDeleted   = "purchase.order.deleted"

	EventTypePurchaseReceiptCreated = "purchase.receipt.created"
	EventTypePurchaseReceiptPosted  = "purchase.receipt.posted"

	EventTypePurchaseBillCreated         = "purchase.bill.created"
	EventTypePurchaseBillPosted          = "purchase.bill.posted"
	EventTypePurchaseBillPaymentRecorded = "purchase.bill.payment_recorded"
)

// PurchaseOrderEvent is shared by the order lifecycle events
type PurchaseOrderEvent struct {
	shared.EventMeta
	PurchaseOrderID uuid.UUID           `json:"purchaseOrderId"`
	CompanyID       uuid.UUID           `json:"companyId"`
	OrderNumber     string              `json:"orderNumber"`
	VendorID        uuid.UUID           `json:"vendorId"`
	Status          PurchaseOrderStatus `json:"status"`
	Total           decimal.Decimal     `json:"total"`
	Reason          string              `json:"reason,omitempty"`
}

func newPurchaseOrderEvent(eventType string, o *PurchaseOrder) *PurchaseOrderEvent {
	return &PurchaseOrderEvent{
		EventMeta:       shared.NewEventMeta(eventType, AggregateTypePurchaseOrder, o.ID, o.TenantID),
		PurchaseOrderID: o.ID,
		CompanyID:       o.TenantID,
		OrderNumber:     o.OrderNumber,
		VendorID:        o.VendorID,
		Status:          o.Status,
		Total:           o.Total,
	}
}

// NewPurchaseOrderCreatedEvent creates a purchase.order.created event
func NewPurchaseOrderCreatedEvent(o *PurchaseOrder) *PurchaseOrderEvent {
	return newPurchaseOrderEvent(EventTypePurchaseOrderCreated, o)
}

// NewPurchaseOrderUpdatedEvent creates a purchase.order.updated event
func NewPurchaseOrderUpdatedEvent(o *PurchaseOrder) *PurchaseOrderEvent {
	return newPurchaseOrderEvent(EventTypePurchaseOrderUpdated, o)
}

// NewPurchaseOrderApprovedEvent creates a purchase.order.approved event
func NewPurchaseOrderApprovedEvent(o *PurchaseOrder) *PurchaseOrderEvent {
	return newPurchaseOrderEvent(EventTypePurchaseOrderApproved, o)
}

// NewPurchaseOrderCancelledEvent creates a purchase.order.cancelled event
func NewPurchaseOrderCancelledEvent(o *PurchaseOrder) *PurchaseOrderEvent {
	e := newPurchaseOrderEvent(EventTypePurchaseOrderCancelled, o)
	e.Reason = o.CancelReason
	return e
}

// NewPurchaseOrderDeletedEvent creates a purchase.order.deleted event
func NewPurchaseOrderDeletedEvent(o *PurchaseOrder) *PurchaseOrderEvent {
	return newPurchaseOrderEvent(EventTypePurchaseOrderDeleted, o)
}

// PurchaseReceiptEvent is raised when a receipt is created or posted
type PurchaseReceiptEvent struct {
	shared.EventMeta
	PurchaseReceiptID uuid.UUID       `json:"purchaseReceiptId"`
	CompanyID         uuid.UUID       `json:"companyId"`
	ReceiptNumber     string          `json:"receiptNumber"`
	PurchaseOrderID   *uuid.UUID      `json:"purchaseOrderId,omitempty"`
	LocationID        uuid.UUID       `json:"locationId"`
	ReceiptDate       time.Time       `json:"receiptDate"`
	Total             decimal.Decimal `json:"total"`
	JournalEntryID    *uuid.UUID      `json:"journalEntryId,omitempty"`
}

func newPurchaseReceiptEvent(eventType string, r *PurchaseReceipt) *PurchaseReceiptEvent {
	return &PurchaseReceiptEvent{
		EventMeta:         shared.NewEventMeta(eventType, AggregateTypePurchaseReceipt, r.ID, r.TenantID),
		PurchaseReceiptID: r.ID,
		CompanyID:         r.TenantID,
		ReceiptNumber:     r.ReceiptNumber,
		PurchaseOrderID:   r.PurchaseOrderID,
		LocationID:        r.LocationID,
		ReceiptDate:       r.ReceiptDate,
		Total:             r.Total,
		JournalEntryID:    r.JournalEntryID,
	}
}

// NewPurchaseReceiptCreatedEvent creates a purchase.receipt.created event
func NewPurchaseReceiptCreatedEvent(r *PurchaseReceipt) *PurchaseReceiptEvent {
	return newPurchaseReceiptEvent(EventTypePurchaseReceiptCreated, r)
}

// NewPurchaseReceiptPostedEvent creates a purchase.receipt.posted event
func NewPurchaseReceiptPostedEvent(r *PurchaseReceipt) *PurchaseReceiptEvent {
	return newPurchaseReceiptEvent(EventTypePurchaseReceiptPosted, r)
}

// PurchaseBillEvent is raised on bill creation, posting and payment
type PurchaseBillEvent struct {
	shared.EventMeta
	PurchaseBillID    uuid.UUID          `json:"purchaseBillId"`
	CompanyID         uuid.UUID          `json:"companyId"`
	BillNumber        string             `json:"billNumber"`
	PurchaseOrderID   *uuid.UUID         `json:"purchaseOrderId,omitempty"`
	PurchaseReceiptID *uuid.UUID         `json:"purchaseReceiptId,omitempty"`
	Status            PurchaseBillStatus `json:"status"`
	Total             decimal.Decimal    `json:"total"`
	AmountPaid        decimal.Decimal    `json:"amountPaid"`
	Payment           *decimal.Decimal   `json:"payment,omitempty"`
	DueDate           time.Time          `json:"dueDate"`
}

func newPurchaseBillEvent(eventType string, b *PurchaseBill) *PurchaseBillEvent {
	return &PurchaseBillEvent{
		EventMeta:         shared.NewEventMeta(eventType, AggregateTypePurchaseBill, b.ID, b.TenantID),
		PurchaseBillID:    b.ID,
		CompanyID:         b.TenantID,
		BillNumber:        b.BillNumber,
		PurchaseOrderID:   b.PurchaseOrderID,
		PurchaseReceiptID: b.ReceiptID,
		Status:            b.Status,
		Total:             b.Total,
		AmountPaid:        b.AmountPaid,
		DueDate:           b.DueDate,
	}
}

// NewPurchaseBillCreatedEvent creates a purchase.bill.created event
func NewPurchaseBillCreatedEvent(b *PurchaseBill) *PurchaseBillEvent {
	return newPurchaseBillEvent(EventTypePurchaseBillCreated, b)
}

// NewPurchaseBillPostedEvent creates a purchase.bill.posted event
func NewPurchaseBillPostedEvent(b *PurchaseBill) *PurchaseBillEvent {
	return newPurchaseBillEvent(EventTypePurchaseBillPosted, b)
}

// NewPurchaseBillPaymentRecordedEvent creates a purchase.bill.payment_recorded event
func NewPurchaseBillPaymentRecordedEvent(b *PurchaseBill, amount decimal.Decimal) *PurchaseBillEvent {
	e := newPurchaseBillEvent(EventTypePurchaseBillPaymentRecorded, b)
	e.Payment = &amount
	return e
}
