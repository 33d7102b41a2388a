package ledger

import (
	"strings"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// AccountType classifies a chart-of-accounts entry
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// IsValid checks if the account type is valid
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// Account is one entry of a tenant's chart of accounts
type Account struct {
	shared.TenantAggregateRoot
	Code     string
	Name     string
	Type     AccountType
	IsActive bool
	IsSystem bool
}

// NewAccount creates an active account
func NewAccount(tenantID uuid.UUID, code, name string, accountType AccountType) (*Account, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Account code cannot be empty")
	}
	if len(code) > 32 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Account code cannot exceed 32 characters")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Account name cannot be empty")
	}
	if !accountType.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid account type")
	}
	return &Account{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Name:                name,
		Type:                accountType,
		IsActive:            true,
	}, nil
}

// MarkSystem flags accounts that postings resolve internally (inventory, GRNI, payables)
func (a *Account) MarkSystem() {
	a.IsSystem = true
}

// Deactivate blocks further manual postings to the account
func (a *Account) Deactivate() {
	a.IsActive = false
	a.IncrementVersion()
}
