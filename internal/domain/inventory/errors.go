package inventory

import (
	"fmt"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Inventory error codes
const (
	CodeItemNotFound     = "ITEM_NOT_FOUND"
	CodeLocationNotFound = "LOCATION_NOT_FOUND"
)

// NewInsufficientStockError reports an OUT move that would drive the ledger negative
func NewInsufficientStockError(key CostKey, available, requested decimal.Decimal) *shared.DomainError {
	msg := fmt.Sprintf("Insufficient stock for item %s at location %s: available %s, requested %s",
		key.ItemID, key.LocationID, available.String(), requested.String())
	return shared.NewDomainError(shared.CodeInsufficientStock, msg).WithDetails(map[string]any{
		"itemId":     key.ItemID.String(),
		"locationId": key.LocationID.String(),
		"available":  available.String(),
		"requested":  requested.String(),
	})
}
