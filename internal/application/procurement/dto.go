package procurement

import (
	"time"

	"github.com/erp/ledger/internal/domain/procurement"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLineInput is one line of a create or update request
type OrderLineInput struct {
	ItemID      uuid.UUID       `json:"itemId" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity" binding:"decimal_gt0"`
	UnitCost    decimal.Decimal `json:"unitCost" binding:"decimal_gte0"`
	Discount    decimal.Decimal `json:"discount" binding:"decimal_gte0"`
	Description string          `json:"description" binding:"max=500"`
}

// CreatePurchaseOrderRequest represents a request to create a purchase order
type CreatePurchaseOrderRequest struct {
	VendorID   uuid.UUID        `json:"vendorId" binding:"required"`
	VendorName string           `json:"vendorName" binding:"required,min=1,max=200"`
	LocationID uuid.UUID        `json:"locationId" binding:"required"`
	OrderDate  time.Time        `json:"orderDate" binding:"required"`
	Currency   string           `json:"currency" binding:"omitempty,len=3"`
	Notes      string           `json:"notes" binding:"max=2000"`
	Lines      []OrderLineInput `json:"lines" binding:"required,min=1,dive"`
}

// UpdatePurchaseOrderRequest represents an edit; omitted fields are unchanged
type UpdatePurchaseOrderRequest struct {
	VendorName *string          `json:"vendorName" binding:"omitempty,min=1,max=200"`
	LocationID *uuid.UUID       `json:"locationId"`
	OrderDate  *time.Time       `json:"orderDate"`
	Notes      *string          `json:"notes" binding:"omitempty,max=2000"`
	Lines      []OrderLineInput `json:"lines" binding:"omitempty,min=1,dive"`
}

// CancelPurchaseOrderRequest represents a cancellation
type CancelPurchaseOrderRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// ReceiptLineInput requests a quantity of one order line
type ReceiptLineInput struct {
	OrderLineID uuid.UUID       `json:"orderLineId" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// CreateReceiptRequest creates a DRAFT receipt. No lines means everything remaining.
type CreateReceiptRequest struct {
	ReceiptDate *time.Time         `json:"receiptDate"`
	Lines       []ReceiptLineInput `json:"lines" binding:"omitempty,dive"`
}

// ConvertToBillRequest bills non-inventory lines directly. No lines means every remaining line.
type ConvertToBillRequest struct {
	BillDate *time.Time         `json:"billDate"`
	Lines    []ReceiptLineInput `json:"lines" binding:"omitempty,dive"`
}

// ReceiveAndBillRequest receives, posts and bills in one command
type ReceiveAndBillRequest struct {
	ReceiptDate *time.Time         `json:"receiptDate"`
	BillDate    *time.Time         `json:"billDate"`
	Lines       []ReceiptLineInput `json:"lines" binding:"omitempty,dive"`
}

// PostReceiptRequest posts a DRAFT receipt
type PostReceiptRequest struct{}

// RecordPaymentRequest records an externally settled payment
type RecordPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"decimal_gt0"`
	PaymentDate *time.Time      `json:"paymentDate"`
	Reference   string          `json:"reference" binding:"max=100"`
}

func toRequestedLines(in []ReceiptLineInput) []procurement.RequestedLine {
	if len(in) == 0 {
		return nil
	}
	out := make([]procurement.RequestedLine, len(in))
	for i, l := range in {
		out[i] = procurement.RequestedLine{OrderLineID: l.OrderLineID, Quantity: l.Quantity}
	}
	return out
}

// PurchaseOrderLineResponse is the API view of an order line
type PurchaseOrderLineResponse struct {
	ID                 uuid.UUID       `json:"id"`
	LineNo             int             `json:"lineNo"`
	ItemID             uuid.UUID       `json:"itemId"`
	ItemCode           string          `json:"itemCode"`
	ItemName           string          `json:"itemName"`
	Tracked            bool            `json:"tracked"`
	ExpenseAccountCode string          `json:"expenseAccountCode,omitempty"`
	Quantity           decimal.Decimal `json:"quantity"`
	UnitCost           decimal.Decimal `json:"unitCost"`
	Discount           decimal.Decimal `json:"discount"`
	LineTotal          decimal.Decimal `json:"lineTotal"`
	Description        string          `json:"description,omitempty"`
}

// PurchaseOrderResponse is the API view of a purchase order
type PurchaseOrderResponse struct {
	ID           uuid.UUID                   `json:"id"`
	CompanyID    uuid.UUID                   `json:"companyId"`
	OrderNumber  string                      `json:"orderNumber"`
	VendorID     uuid.UUID                   `json:"vendorId"`
	VendorName   string                      `json:"vendorName"`
	LocationID   uuid.UUID                   `json:"locationId"`
	OrderDate    string                      `json:"orderDate"`
	Currency     string                      `json:"currency"`
	Status       string                      `json:"status"`
	Total        decimal.Decimal             `json:"total"`
	Notes        string                      `json:"notes,omitempty"`
	Lines        []PurchaseOrderLineResponse `json:"lines"`
	ApprovedAt   *time.Time                  `json:"approvedAt,omitempty"`
	CancelledAt  *time.Time                  `json:"cancelledAt,omitempty"`
	CancelReason string                      `json:"cancelReason,omitempty"`
	Version      int                         `json:"version"`
	CreatedAt    time.Time                   `json:"createdAt"`
	UpdatedAt    time.Time                   `json:"updatedAt"`
}

// ToPurchaseOrderResponse converts the domain order to its response
func ToPurchaseOrderResponse(o *procurement.PurchaseOrder) *PurchaseOrderResponse {
	lines := make([]PurchaseOrderLineResponse, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = PurchaseOrderLineResponse{
			ID:                 l.ID,
			LineNo:             l.LineNo,
			ItemID:             l.ItemID,
			ItemCode:           l.ItemCode,
			ItemName:           l.ItemName,
			Tracked:            l.Tracked,
			ExpenseAccountCode: l.ExpenseAccountCode,
			Quantity:           l.Quantity,
			UnitCost:           l.UnitCost,
			Discount:           l.Discount,
			LineTotal:          l.LineTotal,
			Description:        l.Description,
		}
	}
	return &PurchaseOrderResponse{
		ID:           o.ID,
		CompanyID:    o.TenantID,
		OrderNumber:  o.OrderNumber,
		VendorID:     o.VendorID,
		VendorName:   o.VendorName,
		LocationID:   o.LocationID,
		OrderDate:    o.OrderDate.Format(time.DateOnly),
		Currency:     string(o.Currency),
		Status:       o.Status.String(),
		Total:        o.Total,
		Notes:        o.Notes,
		Lines:        lines,
		ApprovedAt:   o.ApprovedAt,
		CancelledAt:  o.CancelledAt,
		CancelReason: o.CancelReason,
		Version:      o.Version,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}

// ReceiptLineResponse is the API view of a receipt line
type ReceiptLineResponse struct {
	ID          uuid.UUID       `json:"id"`
	LineNo      int             `json:"lineNo"`
	OrderLineID *uuid.UUID      `json:"orderLineId,omitempty"`
	ItemID      uuid.UUID       `json:"itemId"`
	ItemCode    string          `json:"itemCode"`
	ItemName    string          `json:"itemName"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unitCost"`
	Discount    decimal.Decimal `json:"discount"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// ReceiptResponse is the API view of a goods receipt
type ReceiptResponse struct {
	ID              uuid.UUID             `json:"id"`
	CompanyID       uuid.UUID             `json:"companyId"`
	ReceiptNumber   string                `json:"receiptNumber"`
	PurchaseOrderID *uuid.UUID            `json:"purchaseOrderId,omitempty"`
	VendorID        uuid.UUID             `json:"vendorId"`
	LocationID      uuid.UUID             `json:"locationId"`
	ReceiptDate     string                `json:"receiptDate"`
	Currency        string                `json:"currency"`
	Status          string                `json:"status"`
	Total           decimal.Decimal       `json:"total"`
	JournalEntryID  *uuid.UUID            `json:"journalEntryId,omitempty"`
	PostedAt        *time.Time            `json:"postedAt,omitempty"`
	Lines           []ReceiptLineResponse `json:"lines"`
}

// ToReceiptResponse converts the domain receipt to its response
func ToReceiptResponse(r *procurement.PurchaseReceipt) *ReceiptResponse {
	lines := make([]ReceiptLineResponse, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = ReceiptLineResponse{
			ID:          l.ID,
			LineNo:      l.LineNo,
			OrderLineID: l.OrderLineID,
			ItemID:      l.ItemID,
			ItemCode:    l.ItemCode,
			ItemName:    l.ItemName,
			Quantity:    l.Quantity,
			UnitCost:    l.UnitCost,
			Discount:    l.Discount,
			LineTotal:   l.LineTotal,
		}
	}
	return &ReceiptResponse{
		ID:              r.ID,
		CompanyID:       r.TenantID,
		ReceiptNumber:   r.ReceiptNumber,
		PurchaseOrderID: r.PurchaseOrderID,
		VendorID:        r.VendorID,
		LocationID:      r.LocationID,
		ReceiptDate:     r.ReceiptDate.Format(time.DateOnly),
		Currency:        string(r.Currency),
		Status:          r.Status.String(),
		Total:           r.Total,
		JournalEntryID:  r.JournalEntryID,
		PostedAt:        r.PostedAt,
		Lines:           lines,
	}
}

// BillLineResponse is the API view of a bill line
type BillLineResponse struct {
	ID            uuid.UUID       `json:"id"`
	LineNo        int             `json:"lineNo"`
	OrderLineID   *uuid.UUID      `json:"orderLineId,omitempty"`
	ReceiptLineID *uuid.UUID      `json:"receiptLineId,omitempty"`
	ItemID        uuid.UUID       `json:"itemId"`
	Description   string          `json:"description"`
	AccountCode   string          `json:"accountCode"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitCost      decimal.Decimal `json:"unitCost"`
	Discount      decimal.Decimal `json:"discount"`
	LineTotal     decimal.Decimal `json:"lineTotal"`
}

// BillResponse is the API view of a vendor bill
type BillResponse struct {
	ID              uuid.UUID          `json:"id"`
	CompanyID       uuid.UUID          `json:"companyId"`
	BillNumber      string             `json:"billNumber"`
	VendorID        uuid.UUID          `json:"vendorId"`
	VendorName      string             `json:"vendorName"`
	PurchaseOrderID *uuid.UUID         `json:"purchaseOrderId,omitempty"`
	ReceiptID       *uuid.UUID         `json:"receiptId,omitempty"`
	BillDate        string             `json:"billDate"`
	DueDate         string             `json:"dueDate"`
	Currency        string             `json:"currency"`
	Status          string             `json:"status"`
	Total           decimal.Decimal    `json:"total"`
	AmountPaid      decimal.Decimal    `json:"amountPaid"`
	Outstanding     decimal.Decimal    `json:"outstanding"`
	JournalEntryID  *uuid.UUID         `json:"journalEntryId,omitempty"`
	PostedAt        *time.Time         `json:"postedAt,omitempty"`
	Lines           []BillLineResponse `json:"lines"`
}

// ToBillResponse converts the domain bill to its response
func ToBillResponse(b *procurement.PurchaseBill) *BillResponse {
	lines := make([]BillLineResponse, len(b.Lines))
	for i, l := range b.Lines {
		lines[i] = BillLineResponse{
			ID:            l.ID,
			LineNo:        l.LineNo,
			OrderLineID:   l.OrderLineID,
			ReceiptLineID: l.ReceiptLineID,
			ItemID:        l.ItemID,
			Description:   l.Description,
			AccountCode:   l.AccountCode,
			Quantity:      l.Quantity,
			UnitCost:      l.UnitCost,
			Discount:      l.Discount,
			LineTotal:     l.LineTotal,
		}
	}
	return &BillResponse{
		ID:              b.ID,
		CompanyID:       b.TenantID,
		BillNumber:      b.BillNumber,
		VendorID:        b.VendorID,
		VendorName:      b.VendorName,
		PurchaseOrderID: b.PurchaseOrderID,
		ReceiptID:       b.ReceiptID,
		BillDate:        b.BillDate.Format(time.DateOnly),
		DueDate:         b.DueDate.Format(time.DateOnly),
		Currency:        string(b.Currency),
		Status:          b.Status.String(),
		Total:           b.Total,
		AmountPaid:      b.AmountPaid,
		Outstanding:     b.Outstanding(),
		JournalEntryID:  b.JournalEntryID,
		PostedAt:        b.PostedAt,
		Lines:           lines,
	}
}

// StockMoveResponse is the API view of a stock move created by a receipt
type StockMoveResponse struct {
	ID               uuid.UUID       `json:"id"`
	ItemID           uuid.UUID       `json:"itemId"`
	LocationID       uuid.UUID       `json:"locationId"`
	MoveDate         string          `json:"moveDate"`
	Direction        string          `json:"direction"`
	Quantity         decimal.Decimal `json:"quantity"`
	UnitCostApplied  decimal.Decimal `json:"unitCostApplied"`
	TotalCostApplied decimal.Decimal `json:"totalCostApplied"`
	RecalcFromDate   *string         `json:"requiresRecalcFromDate,omitempty"`
}

// PostReceiptResponse is returned when a receipt is posted
type PostReceiptResponse struct {
	Receipt        *ReceiptResponse    `json:"receipt"`
	JournalEntryID *uuid.UUID          `json:"journalEntryId,omitempty"`
	StockMoves     []StockMoveResponse `json:"stockMoves"`
}

// ReceiveAndBillResponse is returned by the composite receive-and-bill command
type ReceiveAndBillResponse struct {
	Receipt        *ReceiptResponse    `json:"receipt"`
	Bill           *BillResponse       `json:"bill"`
	JournalEntryID *uuid.UUID          `json:"journalEntryId,omitempty"`
	StockMoves     []StockMoveResponse `json:"stockMoves"`
}
