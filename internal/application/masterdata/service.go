// Package masterdata maintains the chart of accounts, the item catalog and the
// stock locations that purchasing documents refer to.
package masterdata

import (
	"context"
	"fmt"
	"strings"

	"github.com/erp/ledger/internal/application/command"
	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Service creates and lists master data. Creation goes through the command
// executor so it is idempotent and audited like every other write.
type Service struct {
	executor *command.Executor
	reads    command.Repositories
}

// NewService creates a new master data Service
func NewService(executor *command.Executor, reads command.Repositories) *Service {
	return &Service{executor: executor, reads: reads}
}

// CreateAccount adds an account to the tenant's chart of accounts
func (s *Service) CreateAccount(ctx context.Context, meta command.Command, req CreateAccountRequest) (*AccountResponse, error) {
	meta.Action = "account.create"
	meta.EntityType = "Account"
	meta.Request = req
	meta.LockKeys = append(meta.LockKeys, codeLock(meta.TenantID, "account", req.Code))

	resp, _, err := command.Run(ctx, s.executor, meta, func(ctx context.Context, tx *command.Tx) (*AccountResponse, error) {
		account, err := ledger.NewAccount(meta.TenantID, req.Code, req.Name, ledger.AccountType(req.Type))
		if err != nil {
			return nil, err
		}
		existing, err := tx.Accounts().FindByCodes(ctx, meta.TenantID, []string{account.Code})
		if err != nil {
			return nil, err
		}
		if _, ok := existing[account.Code]; ok {
			return nil, alreadyExists("Account", account.Code)
		}
		if err := tx.Accounts().Save(ctx, account); err != nil {
			return nil, err
		}
		tx.SetEntity(account.ID)
		tx.AddMetadata("code", account.Code)
		out := toAccountResponse(account)
		return &out, nil
	})
	return resp, err
}

// ListAccounts returns the chart of accounts ordered by code
func (s *Service) ListAccounts(ctx context.Context, tenantID uuid.UUID) ([]AccountResponse, error) {
	accounts, err := s.reads.Accounts().List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]AccountResponse, len(accounts))
	for i, a := range accounts {
		out[i] = toAccountResponse(a)
	}
	return out, nil
}

// CreateItem adds a catalog item. A non-tracked item may name the expense
// account its bill lines post to; the account must exist.
func (s *Service) CreateItem(ctx context.Context, meta command.Command, req CreateItemRequest) (*ItemResponse, error) {
	meta.Action = "item.create"
	meta.EntityType = "Item"
	meta.Request = req
	meta.LockKeys = append(meta.LockKeys, codeLock(meta.TenantID, "item", req.Code))

	resp, _, err := command.Run(ctx, s.executor, meta, func(ctx context.Context, tx *command.Tx) (*ItemResponse, error) {
		item, err := inventory.NewItem(meta.TenantID, req.Code, req.Name, req.Tracked)
		if err != nil {
			return nil, err
		}
		if req.Unit != "" {
			item.Unit = req.Unit
		}
		if code := strings.TrimSpace(req.ExpenseAccountCode); code != "" {
			if req.Tracked {
				return nil, shared.NewDomainError(shared.CodeInvalidInput, "Tracked items are valued on the inventory account and take no expense account").
					WithDetails(map[string]any{"expenseAccountCode": code})
			}
			found, err := tx.Accounts().FindByCodes(ctx, meta.TenantID, []string{code})
			if err != nil {
				return nil, err
			}
			if _, ok := found[code]; !ok {
				return nil, ledger.NewAccountNotFoundError(code)
			}
			item.ExpenseAccountCode = code
		}

		exists, err := tx.Items().ExistsByCode(ctx, meta.TenantID, item.Code)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, alreadyExists("Item", item.Code)
		}
		if err := tx.Items().Save(ctx, item); err != nil {
			return nil, err
		}
		tx.SetEntity(item.ID)
		tx.AddMetadata("code", item.Code)
		tx.AddMetadata("tracked", item.Tracked)
		out := toItemResponse(item)
		return &out, nil
	})
	return resp, err
}

// ListItems returns the item catalog ordered by code
func (s *Service) ListItems(ctx context.Context, tenantID uuid.UUID) ([]ItemResponse, error) {
	items, err := s.reads.Items().List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]ItemResponse, len(items))
	for i, item := range items {
		out[i] = toItemResponse(item)
	}
	return out, nil
}

// CreateLocation adds a stock location
func (s *Service) CreateLocation(ctx context.Context, meta command.Command, req CreateLocationRequest) (*LocationResponse, error) {
	meta.Action = "location.create"
	meta.EntityType = "Location"
	meta.Request = req
	meta.LockKeys = append(meta.LockKeys, codeLock(meta.TenantID, "location", req.Code))

	resp, _, err := command.Run(ctx, s.executor, meta, func(ctx context.Context, tx *command.Tx) (*LocationResponse, error) {
		location, err := inventory.NewLocation(meta.TenantID, req.Code, req.Name)
		if err != nil {
			return nil, err
		}
		exists, err := tx.Locations().ExistsByCode(ctx, meta.TenantID, location.Code)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, alreadyExists("Location", location.Code)
		}
		if err := tx.Locations().Save(ctx, location); err != nil {
			return nil, err
		}
		tx.SetEntity(location.ID)
		tx.AddMetadata("code", location.Code)
		out := toLocationResponse(location)
		return &out, nil
	})
	return resp, err
}

// ListLocations returns the stock locations ordered by code
func (s *Service) ListLocations(ctx context.Context, tenantID uuid.UUID) ([]LocationResponse, error) {
	locations, err := s.reads.Locations().List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]LocationResponse, len(locations))
	for i, l := range locations {
		out[i] = toLocationResponse(l)
	}
	return out, nil
}

// codeLock serializes concurrent creates of the same code
func codeLock(tenantID uuid.UUID, kind, code string) string {
	return fmt.Sprintf("%s:%s:%s", kind, tenantID, strings.TrimSpace(code))
}

func alreadyExists(entity, code string) error {
	return shared.NewDomainError(shared.CodeAlreadyExists, fmt.Sprintf("%s %s already exists", entity, code)).
		WithDetails(map[string]any{"code": code})
}
