package procurement

import (
	"fmt"
	"strings"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Procurement error codes
const (
	CodeNoLines           = "NO_LINES"
	CodeInvalidLine       = "INVALID_LINE"
	CodeNothingToReceive  = "NOTHING_TO_RECEIVE"
	CodeNoTrackedLines    = "NO_TRACKED_LINES"
	CodeNotTrackedLine    = "LINE_NOT_TRACKED"
	CodeOverpayment       = "OVERPAYMENT"
	CodeUnknownOrderLine  = "UNKNOWN_ORDER_LINE"
	CodeInvalidDiscount   = "INVALID_DISCOUNT"
	CodeReceiptNotPosted  = "RECEIPT_NOT_POSTED"
	CodeReceiptBilled     = "RECEIPT_ALREADY_BILLED"
	CodeVendorRequired    = "VENDOR_REQUIRED"
	CodeLocationRequired  = "LOCATION_REQUIRED"
	CodeOrderDateRequired = "ORDER_DATE_REQUIRED"
)

// NewExceedsRemainingQuantityError reports a receipt or bill line above what is left on the order
func NewExceedsRemainingQuantityError(lineID uuid.UUID, lineNo int, requested, remaining decimal.Decimal) *shared.DomainError {
	return shared.NewDomainError(shared.CodeExceedsRemaining,
		fmt.Sprintf("Line %d: requested quantity %s exceeds remaining quantity %s", lineNo, requested.String(), remaining.String())).
		WithDetails(map[string]any{
			"orderLineId": lineID.String(),
			"lineNo":      lineNo,
			"requested":   requested.String(),
			"remaining":   remaining.String(),
		})
}

// NewTrackedItemRequiresReceiptError reports tracked lines passed to convert-to-bill
func NewTrackedItemRequiresReceiptError(lineNos []int) *shared.DomainError {
	nos := make([]string, len(lineNos))
	for i, n := range lineNos {
		nos[i] = fmt.Sprint(n)
	}
	return shared.NewDomainError(shared.CodeTrackedItemNeedReceipt,
		fmt.Sprintf("Lines %s hold inventory items; use receive-and-bill instead", strings.Join(nos, ", "))).
		WithDetails(map[string]any{"lineNos": lineNos})
}

// NewRoundingMismatchError reports a posted total that no longer matches its lines
func NewRoundingMismatchError(stored, recomputed decimal.Decimal) *shared.DomainError {
	return shared.NewDomainError(shared.CodeRoundingMismatch,
		fmt.Sprintf("Document total %s does not match the sum of its lines %s",
			stored.StringFixed(valueobject.MoneyScale), recomputed.StringFixed(valueobject.MoneyScale))).
		WithDetails(map[string]any{
			"expected": recomputed.StringFixed(valueobject.MoneyScale),
			"actual":   stored.StringFixed(valueobject.MoneyScale),
		})
}

// NewHasLinkedDocumentsError reports an order that receipts or bills already reference
func NewHasLinkedDocumentsError(action string, linked LinkedDocuments) *shared.DomainError {
	return shared.NewDomainError(shared.CodeHasLinkedDocuments,
		fmt.Sprintf("Cannot %s purchase order: it has %d receipt(s) and %d bill(s)", action, linked.Receipts, linked.Bills)).
		WithDetails(map[string]any{
			"receipts": linked.Receipts,
			"bills":    linked.Bills,
		})
}

func newLineError(lineNo int, msg string) *shared.DomainError {
	return shared.NewDomainError(CodeInvalidLine, fmt.Sprintf("Line %d: %s", lineNo, msg)).
		WithDetails(map[string]any{"lineNo": lineNo})
}

func newNothingToReceiveError() *shared.DomainError {
	return shared.NewDomainError(CodeNothingToReceive, "Nothing left to receive on this purchase order")
}

func newNoTrackedLinesError() *shared.DomainError {
	return shared.NewDomainError(CodeNoTrackedLines, "Purchase order has no inventory lines to receive; use convert-to-bill")
}

func newNotTrackedLineError(l *PurchaseOrderLine) *shared.DomainError {
	return shared.NewDomainError(CodeNotTrackedLine, fmt.Sprintf("Line %d is not an inventory item and cannot be received", l.LineNo)).
		WithDetails(map[string]any{"orderLineId": l.ID.String(), "lineNo": l.LineNo})
}

func newUnknownOrderLineError(id uuid.UUID) *shared.DomainError {
	return shared.NewDomainError(CodeUnknownOrderLine, "Order line does not belong to this purchase order").
		WithDetails(map[string]any{"orderLineId": id.String()})
}

func newNegativeRequestError(id uuid.UUID) *shared.DomainError {
	return shared.NewDomainError(shared.CodeInvalidInput, "Requested quantity cannot be negative").
		WithDetails(map[string]any{"orderLineId": id.String()})
}
