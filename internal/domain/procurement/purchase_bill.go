package procurement

import (
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseBillStatus represents the status of a vendor bill
type PurchaseBillStatus string

const (
	PurchaseBillStatusDraft   PurchaseBillStatus = "DRAFT"
	PurchaseBillStatusPosted  PurchaseBillStatus = "POSTED"
	PurchaseBillStatusPartial PurchaseBillStatus = "PARTIAL"
	PurchaseBillStatusPaid    PurchaseBillStatus = "PAID"
)

// String returns the string representation of PurchaseBillStatus
func (s PurchaseBillStatus) String() string {
	return string(s)
}

// PurchaseBillLine carries the ledger account the line is charged to
type PurchaseBillLine struct {
	ID            uuid.UUID
	BillID        uuid.UUID
	LineNo        int
	OrderLineID   *uuid.UUID
	ReceiptLineID *uuid.UUID
	ItemID        uuid.UUID
	Description   string
	AccountCode   string
	Quantity      decimal.Decimal
	UnitCost      decimal.Decimal
	Discount      decimal.Decimal
	LineTotal     decimal.Decimal
}

// PurchaseBill is a vendor invoice, either matched to a receipt or raised from non-inventory order lines
type PurchaseBill struct {
	shared.TenantAggregateRoot
	BillNumber      string
	VendorID        uuid.UUID
	VendorName      string
	PurchaseOrderID *uuid.UUID
	ReceiptID       *uuid.UUID
	BillDate        time.Time
	DueDate         time.Time
	Currency        valueobject.Currency
	Status          PurchaseBillStatus
	Total           decimal.Decimal
	AmountPaid      decimal.Decimal
	JournalEntryID  *uuid.UUID
	PostedAt        *time.Time
	Lines           []PurchaseBillLine
}

func newBill(tenantID uuid.UUID, billNumber string, billDate time.Time, paymentTermDays int) *PurchaseBill {
	return &PurchaseBill{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		BillNumber:          billNumber,
		BillDate:            billDate,
		DueDate:             billDate.AddDate(0, 0, paymentTermDays),
		Status:              PurchaseBillStatusDraft,
		AmountPaid:          decimal.Zero,
	}
}

// NewBillFromReceipt creates a DRAFT bill matched 1:1 to a posted receipt.
// Every line is charged to the inventory account so posting clears GRNI.
func NewBillFromReceipt(receipt *PurchaseReceipt, billNumber string, billDate time.Time, paymentTermDays int, inventoryAccount string) (*PurchaseBill, error) {
	if !receipt.IsPosted() {
		return nil, shared.NewDomainError(CodeReceiptNotPosted, "Only posted receipts can be billed").
			WithDetails(map[string]any{"expected": []string{PurchaseReceiptStatusPosted.String()}, "actual": receipt.Status.String()})
	}
	if billDate.IsZero() {
		billDate = receipt.ReceiptDate
	}

	bill := newBill(receipt.TenantID, billNumber, billDate, paymentTermDays)
	receiptID := receipt.ID
	bill.ReceiptID = &receiptID
	bill.PurchaseOrderID = receipt.PurchaseOrderID
	bill.VendorID = receipt.VendorID
	bill.VendorName = receipt.VendorName
	bill.Currency = receipt.Currency

	for _, rl := range receipt.Lines {
		receiptLineID := rl.ID
		bill.Lines = append(bill.Lines, PurchaseBillLine{
			ID:            uuid.New(),
			BillID:        bill.ID,
			LineNo:        rl.LineNo,
			OrderLineID:   rl.OrderLineID,
			ReceiptLineID: &receiptLineID,
			ItemID:        rl.ItemID,
			Description:   rl.ItemName,
			AccountCode:   inventoryAccount,
			Quantity:      rl.Quantity,
			UnitCost:      rl.UnitCost,
			Discount:      rl.Discount,
			LineTotal:     rl.LineTotal,
		})
	}
	bill.Total = bill.LinesTotal()
	if err := bill.verifyAgainst(receipt.Total); err != nil {
		return nil, err
	}

	bill.AddDomainEvent(NewPurchaseBillCreatedEvent(bill))
	return bill, nil
}

// NewBillFromOrderLines creates a DRAFT bill straight from non-inventory order lines
func NewBillFromOrderLines(order *PurchaseOrder, billNumber string, billDate time.Time, paymentTermDays int, allocations []Allocation) (*PurchaseBill, error) {
	if err := order.EnsureOpenForMatching("convert to bill"); err != nil {
		return nil, err
	}
	if len(allocations) == 0 {
		return nil, shared.NewDomainError(CodeNoLines, "No order lines selected for billing")
	}
	var tracked []int
	for _, a := range allocations {
		if a.Line.Tracked {
			tracked = append(tracked, a.Line.LineNo)
		}
	}
	if len(tracked) > 0 {
		return nil, NewTrackedItemRequiresReceiptError(tracked)
	}
	if billDate.IsZero() {
		billDate = order.OrderDate
	}

	bill := newBill(order.TenantID, billNumber, billDate, paymentTermDays)
	orderID := order.ID
	bill.PurchaseOrderID = &orderID
	bill.VendorID = order.VendorID
	bill.VendorName = order.VendorName
	bill.Currency = order.Currency

	for i, a := range allocations {
		orderLineID := a.Line.ID
		gross := valueobject.RoundMoney(a.Quantity.Mul(a.Line.UnitCost))
		discount := a.Line.ProratedDiscount(a.Quantity, order.Currency)
		description := a.Line.Description
		if description == "" {
			description = a.Line.ItemName
		}
		bill.Lines = append(bill.Lines, PurchaseBillLine{
			ID:          uuid.New(),
			BillID:      bill.ID,
			LineNo:      i + 1,
			OrderLineID: &orderLineID,
			ItemID:      a.Line.ItemID,
			Description: description,
			AccountCode: a.Line.ExpenseAccountCode,
			Quantity:    a.Quantity,
			UnitCost:    a.Line.UnitCost,
			Discount:    discount,
			LineTotal:   gross.Sub(discount),
		})
	}
	bill.Total = bill.LinesTotal()

	bill.AddDomainEvent(NewPurchaseBillCreatedEvent(bill))
	return bill, nil
}

// LinesTotal sums the line totals at money precision
func (b *PurchaseBill) LinesTotal() decimal.Decimal {
	totals := make([]decimal.Decimal, len(b.Lines))
	for i, l := range b.Lines {
		totals[i] = l.LineTotal
	}
	return valueobject.SumMoney(totals...)
}

func (b *PurchaseBill) verifyAgainst(expected decimal.Decimal) error {
	if !valueobject.MoneyEqual(b.Total, expected) {
		return NewRoundingMismatchError(b.Total, expected)
	}
	return nil
}

// IsReceiptMatched reports whether the bill clears GRNI for a receipt
func (b *PurchaseBill) IsReceiptMatched() bool {
	return b.ReceiptID != nil
}

// AmountsByAccount groups line totals by account code, in first-seen order
func (b *PurchaseBill) AmountsByAccount() ([]string, map[string]decimal.Decimal) {
	order := make([]string, 0, len(b.Lines))
	amounts := make(map[string]decimal.Decimal, len(b.Lines))
	for _, l := range b.Lines {
		if _, ok := amounts[l.AccountCode]; !ok {
			order = append(order, l.AccountCode)
			amounts[l.AccountCode] = decimal.Zero
		}
		amounts[l.AccountCode] = amounts[l.AccountCode].Add(l.LineTotal)
	}
	return order, amounts
}

// EnsurePostable checks the bill can be posted
func (b *PurchaseBill) EnsurePostable() error {
	if b.Status != PurchaseBillStatusDraft {
		return shared.NewStateConflictError("purchase bill", "post", b.Status.String(), PurchaseBillStatusDraft.String())
	}
	if recomputed := b.LinesTotal(); !valueobject.MoneyEqual(recomputed, b.Total) {
		return NewRoundingMismatchError(b.Total, recomputed)
	}
	return nil
}

// Post recognizes the liability
func (b *PurchaseBill) Post(journalEntryID *uuid.UUID) error {
	if err := b.EnsurePostable(); err != nil {
		return err
	}

	now := time.Now()
	b.Status = PurchaseBillStatusPosted
	b.JournalEntryID = journalEntryID
	b.PostedAt = &now
	b.UpdatedAt = now
	b.IncrementVersion()

	b.AddDomainEvent(NewPurchaseBillPostedEvent(b))
	return nil
}

// Outstanding returns the unpaid balance
func (b *PurchaseBill) Outstanding() decimal.Decimal {
	return valueobject.RoundMoney(b.Total.Sub(b.AmountPaid))
}

// RecordPayment applies an externally settled payment
func (b *PurchaseBill) RecordPayment(amount decimal.Decimal) error {
	if b.Status != PurchaseBillStatusPosted && b.Status != PurchaseBillStatusPartial {
		return shared.NewStateConflictError("purchase bill", "record payment on", b.Status.String(),
			PurchaseBillStatusPosted.String(), PurchaseBillStatusPartial.String())
	}
	amount = valueobject.RoundMoney(amount)
	if !amount.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Payment amount must be positive")
	}
	outstanding := b.Outstanding()
	if amount.GreaterThan(outstanding) {
		return shared.NewDomainError(CodeOverpayment,
			fmt.Sprintf("Payment %s exceeds outstanding balance %s", amount.StringFixed(2), outstanding.StringFixed(2))).
			WithDetails(map[string]any{"requested": amount.StringFixed(2), "outstanding": outstanding.StringFixed(2)})
	}

	b.AmountPaid = b.AmountPaid.Add(amount)
	if b.AmountPaid.Equal(b.Total) {
		b.Status = PurchaseBillStatusPaid
	} else {
		b.Status = PurchaseBillStatusPartial
	}
	b.UpdatedAt = time.Now()
	b.IncrementVersion()

	b.AddDomainEvent(NewPurchaseBillPaymentRecordedEvent(b, amount))
	return nil
}
