package procurement

import (
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseReceiptStatus represents the status of a goods receipt
type PurchaseReceiptStatus string

const (
	PurchaseReceiptStatusDraft  PurchaseReceiptStatus = "DRAFT"
	PurchaseReceiptStatusPosted PurchaseReceiptStatus = "POSTED"
)

// String returns the string representation of PurchaseReceiptStatus
func (s PurchaseReceiptStatus) String() string {
	return string(s)
}

// PurchaseReceiptLine records goods received against one order line
type PurchaseReceiptLine struct {
	ID          uuid.UUID
	ReceiptID   uuid.UUID
	LineNo      int
	OrderLineID *uuid.UUID
	ItemID      uuid.UUID
	ItemCode    string
	ItemName    string
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal
	Discount    decimal.Decimal
	LineTotal   decimal.Decimal
}

// NetUnitCost is the line total spread over its quantity, at cost precision
func (l *PurchaseReceiptLine) NetUnitCost() decimal.Decimal {
	if l.Quantity.IsZero() {
		return decimal.Zero
	}
	return valueobject.RoundCost(l.LineTotal.Div(l.Quantity))
}

// PurchaseReceipt is a goods receipt. Posting it creates stock moves and the GRNI entry.
type PurchaseReceipt struct {
	shared.TenantAggregateRoot
	ReceiptNumber   string
	PurchaseOrderID *uuid.UUID
	VendorID        uuid.UUID
	VendorName      string
	LocationID      uuid.UUID
	ReceiptDate     time.Time
	Currency        valueobject.Currency
	Status          PurchaseReceiptStatus
	Total           decimal.Decimal
	JournalEntryID  *uuid.UUID
	PostedAt        *time.Time
	Lines           []PurchaseReceiptLine
}

// Allocation is a quantity taken from one order line
type Allocation struct {
	Line     PurchaseOrderLine
	Quantity decimal.Decimal
}

// NewReceiptFromOrder creates a DRAFT receipt for the allocated order lines.
// Each line discount is the order line discount prorated by quantity.
func NewReceiptFromOrder(order *PurchaseOrder, receiptNumber string, receiptDate time.Time, allocations []Allocation) (*PurchaseReceipt, error) {
	if err := order.EnsureOpenForMatching("receive"); err != nil {
		return nil, err
	}
	if len(allocations) == 0 {
		return nil, newNothingToReceiveError()
	}
	if receiptDate.IsZero() {
		receiptDate = order.OrderDate
	}

	orderID := order.ID
	receipt := &PurchaseReceipt{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(order.TenantID),
		ReceiptNumber:       receiptNumber,
		PurchaseOrderID:     &orderID,
		VendorID:            order.VendorID,
		VendorName:          order.VendorName,
		LocationID:          order.LocationID,
		ReceiptDate:         receiptDate,
		Currency:            order.Currency,
		Status:              PurchaseReceiptStatusDraft,
	}

	for i, a := range allocations {
		if !a.Line.Tracked {
			return nil, newNotTrackedLineError(&a.Line)
		}
		lineID := a.Line.ID
		gross := valueobject.RoundMoney(a.Quantity.Mul(a.Line.UnitCost))
		discount := a.Line.ProratedDiscount(a.Quantity, order.Currency)
		receipt.Lines = append(receipt.Lines, PurchaseReceiptLine{
			ID:          uuid.New(),
			ReceiptID:   receipt.ID,
			LineNo:      i + 1,
			OrderLineID: &lineID,
			ItemID:      a.Line.ItemID,
			ItemCode:    a.Line.ItemCode,
			ItemName:    a.Line.ItemName,
			Quantity:    a.Quantity,
			UnitCost:    a.Line.UnitCost,
			Discount:    discount,
			LineTotal:   gross.Sub(discount),
		})
	}
	receipt.Total = receipt.LinesTotal()

	receipt.AddDomainEvent(NewPurchaseReceiptCreatedEvent(receipt))
	return receipt, nil
}

// LinesTotal sums the line totals at money precision
func (r *PurchaseReceipt) LinesTotal() decimal.Decimal {
	totals := make([]decimal.Decimal, len(r.Lines))
	for i, l := range r.Lines {
		totals[i] = l.LineTotal
	}
	return valueobject.SumMoney(totals...)
}

// VerifyTotal compares the stored total with the lines
func (r *PurchaseReceipt) VerifyTotal() error {
	if recomputed := r.LinesTotal(); !valueobject.MoneyEqual(recomputed, r.Total) {
		return NewRoundingMismatchError(r.Total, recomputed)
	}
	return nil
}

// EnsurePostable checks the receipt can be posted
func (r *PurchaseReceipt) EnsurePostable() error {
	if r.Status != PurchaseReceiptStatusDraft {
		return shared.NewStateConflictError("purchase receipt", "post", r.Status.String(), PurchaseReceiptStatusDraft.String())
	}
	return r.VerifyTotal()
}

// Post moves the receipt to POSTED, linking the journal entry when one was created
func (r *PurchaseReceipt) Post(journalEntryID *uuid.UUID) error {
	if err := r.EnsurePostable(); err != nil {
		return err
	}

	now := time.Now()
	r.Status = PurchaseReceiptStatusPosted
	r.JournalEntryID = journalEntryID
	r.PostedAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()

	r.AddDomainEvent(NewPurchaseReceiptPostedEvent(r))
	return nil
}

// IsPosted reports whether the receipt counts toward received quantities
func (r *PurchaseReceipt) IsPosted() bool {
	return r.Status == PurchaseReceiptStatusPosted
}
