package ledger

import (
	"context"

	"github.com/google/uuid"
)

// AccountRepository is the chart-of-accounts lookup
type AccountRepository interface {
	// FindByCodes returns the accounts that exist, keyed by code
	FindByCodes(ctx context.Context, tenantID uuid.UUID, codes []string) (map[string]*Account, error)

	// List returns the tenant's chart of accounts ordered by code
	List(ctx context.Context, tenantID uuid.UUID) ([]*Account, error)

	// Save creates or updates an account
	Save(ctx context.Context, account *Account) error
}

// JournalEntryRepository persists journal entries. There is no update method.
type JournalEntryRepository interface {
	// Create inserts the entry and its lines
	Create(ctx context.Context, entry *JournalEntry) error

	// FindByIDForTenant loads an entry with its lines
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*JournalEntry, error)

	// FindBySource lists entries posted for a source document
	FindBySource(ctx context.Context, tenantID uuid.UUID, sourceType SourceType, sourceID uuid.UUID) ([]*JournalEntry, error)

	// ExistsReversalOf reports whether the entry was already reversed
	ExistsReversalOf(ctx context.Context, tenantID, entryID uuid.UUID) (bool, error)
}
