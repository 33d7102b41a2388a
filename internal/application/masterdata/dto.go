package masterdata

import (
	"time"

	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
)

// CreateAccountRequest is the input for adding a chart-of-accounts entry
type CreateAccountRequest struct {
	Code string `json:"code" binding:"required,max=32"`
	Name string `json:"name" binding:"required,max=200"`
	Type string `json:"type" binding:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
}

// CreateItemRequest is the input for adding a catalog item
type CreateItemRequest struct {
	Code               string `json:"code" binding:"required,max=50"`
	Name               string `json:"name" binding:"required,max=200"`
	Unit               string `json:"unit" binding:"omitempty,max=20"`
	Tracked            bool   `json:"tracked"`
	ExpenseAccountCode string `json:"expenseAccountCode" binding:"omitempty,max=32"`
}

// CreateLocationRequest is the input for adding a stock location
type CreateLocationRequest struct {
	Code string `json:"code" binding:"required,max=50"`
	Name string `json:"name" binding:"max=200"`
}

// AccountResponse is the API view of an account
type AccountResponse struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	IsActive  bool      `json:"isActive"`
	IsSystem  bool      `json:"isSystem"`
	CreatedAt time.Time `json:"createdAt"`
}

// ItemResponse is the API view of an item
type ItemResponse struct {
	ID                 uuid.UUID `json:"id"`
	Code               string    `json:"code"`
	Name               string    `json:"name"`
	Unit               string    `json:"unit"`
	Tracked            bool      `json:"tracked"`
	ExpenseAccountCode string    `json:"expenseAccountCode,omitempty"`
	IsActive           bool      `json:"isActive"`
	CreatedAt          time.Time `json:"createdAt"`
}

// LocationResponse is the API view of a location
type LocationResponse struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

func toAccountResponse(a *ledger.Account) AccountResponse {
	return AccountResponse{
		ID:        a.ID,
		Code:      a.Code,
		Name:      a.Name,
		Type:      string(a.Type),
		IsActive:  a.IsActive,
		IsSystem:  a.IsSystem,
		CreatedAt: a.CreatedAt,
	}
}

func toItemResponse(i *inventory.Item) ItemResponse {
	return ItemResponse{
		ID:                 i.ID,
		Code:               i.Code,
		Name:               i.Name,
		Unit:               i.Unit,
		Tracked:            i.Tracked,
		ExpenseAccountCode: i.ExpenseAccountCode,
		IsActive:           i.IsActive,
		CreatedAt:          i.CreatedAt,
	}
}

func toLocationResponse(l *inventory.Location) LocationResponse {
	return LocationResponse{
		ID:        l.ID,
		Code:      l.Code,
		Name:      l.Name,
		IsActive:  l.IsActive,
		CreatedAt: l.CreatedAt,
	}
}
