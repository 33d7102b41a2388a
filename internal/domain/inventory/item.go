package inventory

import (
	"strings"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Item is the catalog entry a purchase line refers to.
// Tracked items are valued through the stock ledger; others are expensed when billed.
type Item struct {
	shared.TenantAggregateRoot
	Code               string
	Name               string
	Unit               string
	Tracked            bool
	ExpenseAccountCode string
	IsActive           bool
}

// NewItem creates a catalog item
func NewItem(tenantID uuid.UUID, code, name string, tracked bool) (*Item, error) {
	if strings.TrimSpace(code) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Item code cannot be empty")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Item name cannot be empty")
	}
	return &Item{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                strings.TrimSpace(code),
		Name:                name,
		Unit:                "pcs",
		Tracked:             tracked,
		IsActive:            true,
	}, nil
}

// Location is a stock-holding place (warehouse, store, bin)
type Location struct {
	shared.TenantAggregateRoot
	Code     string
	Name     string
	IsActive bool
}

// NewLocation creates a location
func NewLocation(tenantID uuid.UUID, code, name string) (*Location, error) {
	if strings.TrimSpace(code) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Location code cannot be empty")
	}
	return &Location{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                strings.TrimSpace(code),
		Name:                name,
		IsActive:            true,
	}, nil
}
