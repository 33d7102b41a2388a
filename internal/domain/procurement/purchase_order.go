package procurement

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrderStatus represents the status of a purchase order
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusDraft     PurchaseOrderStatus = "DRAFT"
	PurchaseOrderStatusApproved  PurchaseOrderStatus = "APPROVED"
	PurchaseOrderStatusCancelled PurchaseOrderStatus = "CANCELLED"
)

// IsValid checks if the status is a valid PurchaseOrderStatus
func (s PurchaseOrderStatus) IsValid() bool {
	switch s {
	case PurchaseOrderStatusDraft, PurchaseOrderStatusApproved, PurchaseOrderStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of PurchaseOrderStatus
func (s PurchaseOrderStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s PurchaseOrderStatus) CanTransitionTo(target PurchaseOrderStatus) bool {
	switch s {
	case PurchaseOrderStatusDraft:
		return target == PurchaseOrderStatusApproved || target == PurchaseOrderStatusCancelled
	case PurchaseOrderStatusApproved:
		return target == PurchaseOrderStatusCancelled
	}
	return false
}

// LinkedDocuments counts the receipts and bills referencing an order
type LinkedDocuments struct {
	Receipts int64
	Bills    int64
}

// IsEmpty reports whether nothing references the order
func (l LinkedDocuments) IsEmpty() bool {
	return l.Receipts == 0 && l.Bills == 0
}

// LineInput describes a purchase order line to create
type LineInput struct {
	ItemID             uuid.UUID
	ItemCode           string
	ItemName           string
	Tracked            bool
	ExpenseAccountCode string
	Quantity           decimal.Decimal
	UnitCost           decimal.Decimal
	Discount           decimal.Decimal
	Description        string
}

// PurchaseOrderLine is one ordered item. Item fields are snapshotted at creation.
type PurchaseOrderLine struct {
	ID                 uuid.UUID
	OrderID            uuid.UUID
	LineNo             int
	ItemID             uuid.UUID
	ItemCode           string
	ItemName           string
	Tracked            bool
	ExpenseAccountCode string
	Quantity           decimal.Decimal
	UnitCost           decimal.Decimal
	Discount           decimal.Decimal
	LineTotal          decimal.Decimal
	Description        string
}

// NewPurchaseOrderLine validates the input and computes qty×unitCost − discount
func NewPurchaseOrderLine(orderID uuid.UUID, lineNo int, in LineInput) (*PurchaseOrderLine, error) {
	if in.ItemID == uuid.Nil {
		return nil, newLineError(lineNo, "item is required")
	}
	qty, err := valueobject.PositiveQuantity(in.Quantity)
	if err != nil {
		return nil, newLineError(lineNo, "quantity must be positive")
	}
	unitCost := valueobject.RoundCost(in.UnitCost)
	if unitCost.IsNegative() {
		return nil, newLineError(lineNo, "unit cost cannot be negative")
	}
	discount, err := valueobject.NonNegativeAmount(in.Discount)
	if err != nil {
		return nil, shared.NewDomainError(CodeInvalidDiscount, fmt.Sprintf("Line %d: discount cannot be negative", lineNo))
	}
	gross := valueobject.RoundMoney(qty.Mul(unitCost))
	if discount.GreaterThan(gross) {
		return nil, shared.NewDomainError(CodeInvalidDiscount,
			fmt.Sprintf("Line %d: discount %s exceeds gross amount %s", lineNo, discount.StringFixed(2), gross.StringFixed(2))).
			WithDetails(map[string]any{"lineNo": lineNo, "discount": discount.StringFixed(2), "gross": gross.StringFixed(2)})
	}
	if !in.Tracked && strings.TrimSpace(in.ExpenseAccountCode) == "" {
		return nil, newLineError(lineNo, "non-inventory lines need an expense account")
	}

	return &PurchaseOrderLine{
		ID:                 uuid.New(),
		OrderID:            orderID,
		LineNo:             lineNo,
		ItemID:             in.ItemID,
		ItemCode:           in.ItemCode,
		ItemName:           in.ItemName,
		Tracked:            in.Tracked,
		ExpenseAccountCode: strings.TrimSpace(in.ExpenseAccountCode),
		Quantity:           qty,
		UnitCost:           unitCost,
		Discount:           discount,
		LineTotal:          gross.Sub(discount),
		Description:        in.Description,
	}, nil
}

// Gross returns qty × unit cost at two places
func (l *PurchaseOrderLine) Gross() decimal.Decimal {
	return valueobject.RoundMoney(l.Quantity.Mul(l.UnitCost))
}

// ProratedDiscount returns discount × qty / ordered at two places
func (l *PurchaseOrderLine) ProratedDiscount(qty decimal.Decimal, currency valueobject.Currency) decimal.Decimal {
	if qty.Equal(l.Quantity) {
		return l.Discount
	}
	return valueobject.MustMoney(l.Discount, currency).Prorate(qty, l.Quantity).Amount()
}

// PurchaseOrder is the aggregate root of a vendor order
type PurchaseOrder struct {
	shared.TenantAggregateRoot
	OrderNumber  string
	VendorID     uuid.UUID
	VendorName   string
	LocationID   uuid.UUID
	OrderDate    time.Time
	Currency     valueobject.Currency
	Status       PurchaseOrderStatus
	Total        decimal.Decimal
	Notes        string
	Lines        []PurchaseOrderLine
	ApprovedAt   *time.Time
	CancelledAt  *time.Time
	CancelReason string
}

// NewPurchaseOrder creates a DRAFT purchase order
func NewPurchaseOrder(
	tenantID uuid.UUID,
	orderNumber string,
	vendorID uuid.UUID,
	vendorName string,
	locationID uuid.UUID,
	orderDate time.Time,
	currency valueobject.Currency,
	lines []LineInput,
) (*PurchaseOrder, error) {
	if orderNumber == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Order number cannot be empty")
	}
	if vendorID == uuid.Nil {
		return nil, shared.NewDomainError(CodeVendorRequired, "Vendor is required")
	}
	if locationID == uuid.Nil {
		return nil, shared.NewDomainError(CodeLocationRequired, "Location is required")
	}
	if orderDate.IsZero() {
		return nil, shared.NewDomainError(CodeOrderDateRequired, "Order date is required")
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}

	order := &PurchaseOrder{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		OrderNumber:         orderNumber,
		VendorID:            vendorID,
		VendorName:          vendorName,
		LocationID:          locationID,
		OrderDate:           orderDate,
		Currency:            currency,
		Status:              PurchaseOrderStatusDraft,
		Total:               decimal.Zero,
	}
	if err := order.replaceLines(lines); err != nil {
		return nil, err
	}

	order.AddDomainEvent(NewPurchaseOrderCreatedEvent(order))
	return order, nil
}

func (o *PurchaseOrder) replaceLines(inputs []LineInput) error {
	if len(inputs) == 0 {
		return shared.NewDomainError(CodeNoLines, "Purchase order needs at least one line")
	}
	lines := make([]PurchaseOrderLine, 0, len(inputs))
	for i, in := range inputs {
		line, err := NewPurchaseOrderLine(o.ID, i+1, in)
		if err != nil {
			return err
		}
		lines = append(lines, *line)
	}
	o.Lines = lines
	o.recalculateTotal()
	return nil
}

// recalculateTotal sums the line totals
func (o *PurchaseOrder) recalculateTotal() {
	totals := make([]decimal.Decimal, len(o.Lines))
	for i, l := range o.Lines {
		totals[i] = l.LineTotal
	}
	o.Total = valueobject.SumMoney(totals...)
}

// UpdateInput carries the editable fields; nil means unchanged
type UpdateInput struct {
	VendorName *string
	LocationID *uuid.UUID
	OrderDate  *time.Time
	Notes      *string
	Lines      []LineInput
}

// CanEdit reports whether the order accepts edits given its linked documents
func (o *PurchaseOrder) CanEdit(linked LinkedDocuments) error {
	switch o.Status {
	case PurchaseOrderStatusDraft:
		return nil
	case PurchaseOrderStatusApproved:
		if !linked.IsEmpty() {
			return NewHasLinkedDocumentsError("edit", linked)
		}
		return nil
	}
	return shared.NewStateConflictError("purchase order", "edit", o.Status.String(),
		PurchaseOrderStatusDraft.String(), PurchaseOrderStatusApproved.String())
}

// Update applies an edit. Lines, when given, replace the existing ones.
func (o *PurchaseOrder) Update(in UpdateInput, linked LinkedDocuments) error {
	if err := o.CanEdit(linked); err != nil {
		return err
	}
	if in.LocationID != nil {
		if *in.LocationID == uuid.Nil {
			return shared.NewDomainError(CodeLocationRequired, "Location is required")
		}
		o.LocationID = *in.LocationID
	}
	if in.OrderDate != nil {
		if in.OrderDate.IsZero() {
			return shared.NewDomainError(CodeOrderDateRequired, "Order date is required")
		}
		o.OrderDate = *in.OrderDate
	}
	if in.VendorName != nil {
		o.VendorName = *in.VendorName
	}
	if in.Notes != nil {
		o.Notes = *in.Notes
	}
	if in.Lines != nil {
		if err := o.replaceLines(in.Lines); err != nil {
			return err
		}
	}

	o.UpdatedAt = time.Now()
	o.IncrementVersion()
	o.AddDomainEvent(NewPurchaseOrderUpdatedEvent(o))
	return nil
}

// Approve moves the order from DRAFT to APPROVED
func (o *PurchaseOrder) Approve() error {
	if !o.Status.CanTransitionTo(PurchaseOrderStatusApproved) {
		return shared.NewStateConflictError("purchase order", "approve", o.Status.String(), PurchaseOrderStatusDraft.String())
	}
	if len(o.Lines) == 0 {
		return shared.NewDomainError(CodeNoLines, "Cannot approve an order without lines")
	}

	now := time.Now()
	o.Status = PurchaseOrderStatusApproved
	o.ApprovedAt = &now
	o.UpdatedAt = now
	o.IncrementVersion()

	o.AddDomainEvent(NewPurchaseOrderApprovedEvent(o))
	return nil
}

// Cancel moves a DRAFT or APPROVED order to CANCELLED
func (o *PurchaseOrder) Cancel(reason string) error {
	if !o.Status.CanTransitionTo(PurchaseOrderStatusCancelled) {
		return shared.NewStateConflictError("purchase order", "cancel", o.Status.String(),
			PurchaseOrderStatusDraft.String(), PurchaseOrderStatusApproved.String())
	}

	now := time.Now()
	o.Status = PurchaseOrderStatusCancelled
	o.CancelledAt = &now
	o.CancelReason = reason
	o.UpdatedAt = now
	o.IncrementVersion()

	o.AddDomainEvent(NewPurchaseOrderCancelledEvent(o))
	return nil
}

// EnsureDeletable checks the order may be removed
func (o *PurchaseOrder) EnsureDeletable(linked LinkedDocuments) error {
	if o.Status != PurchaseOrderStatusDraft && o.Status != PurchaseOrderStatusApproved {
		return shared.NewStateConflictError("purchase order", "delete", o.Status.String(),
			PurchaseOrderStatusDraft.String(), PurchaseOrderStatusApproved.String())
	}
	if !linked.IsEmpty() {
		return NewHasLinkedDocumentsError("delete", linked)
	}
	return nil
}

// MarkDeleted records the deletion event; the repository removes the rows
func (o *PurchaseOrder) MarkDeleted() {
	o.AddDomainEvent(NewPurchaseOrderDeletedEvent(o))
}

// EnsureOpenForMatching checks receipts and bills may be created against the order
func (o *PurchaseOrder) EnsureOpenForMatching(action string) error {
	if o.Status != PurchaseOrderStatusApproved {
		return shared.NewStateConflictError("purchase order", action, o.Status.String(), PurchaseOrderStatusApproved.String())
	}
	return nil
}

// Line returns the order line with the given ID
func (o *PurchaseOrder) Line(id uuid.UUID) *PurchaseOrderLine {
	for i := range o.Lines {
		if o.Lines[i].ID == id {
			return &o.Lines[i]
		}
	}
	return nil
}

// TrackedLines returns the lines that hold inventory items
func (o *PurchaseOrder) TrackedLines() []PurchaseOrderLine {
	out := make([]PurchaseOrderLine, 0, len(o.Lines))
	for _, l := range o.Lines {
		if l.Tracked {
			out = append(out, l)
		}
	}
	return out
}

// LockKey is the distributed lock key for the order
func (o *PurchaseOrder) LockKey() string {
	return OrderLockKey(o.TenantID, o.ID)
}

// OrderLockKey builds the lock key of a purchase order
func OrderLockKey(tenantID, orderID uuid.UUID) string {
	return fmt.Sprintf("purchase-order:%s:%s", tenantID, orderID)
}
