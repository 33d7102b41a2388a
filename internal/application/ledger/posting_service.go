package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/application/command"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PostingRequest is the input of a journal posting
type PostingRequest struct {
	TenantID    uuid.UUID
	Date        time.Time
	Description string
	Lines       []ledger.LineInput
	SourceType  ledger.SourceType
	SourceID    *uuid.UUID
	// System postings resolve their accounts internally and skip the chart-of-accounts lookup
	System bool
}

// PostingService persists balanced journal entries inside the caller's transaction
type PostingService struct {
	logger *zap.Logger
}

// NewPostingService creates a new PostingService
func NewPostingService(logger *zap.Logger) *PostingService {
	return &PostingService{logger: logger}
}

// Post validates and stores one entry, queueing its events on tx
func (s *PostingService) Post(ctx context.Context, tx *command.Tx, req PostingRequest) (*ledger.JournalEntry, error) {
	number, err := tx.Sequences().Next(ctx, req.TenantID, shared.SequenceJournalEntry)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate journal entry number: %w", err)
	}
	entry, err := ledger.NewJournalEntry(req.TenantID, number, req.Date, req.Description, req.SourceType, req.SourceID, req.Lines)
	if err != nil {
		return nil, err
	}
	return entry, s.store(ctx, tx, entry, req.System)
}

func (s *PostingService) store(ctx context.Context, tx *command.Tx, entry *ledger.JournalEntry, system bool) error {
	if !system {
		if err := s.validateAccounts(ctx, tx, entry); err != nil {
			return err
		}
	}
	entry.CorrelationID = tx.Command().CorrelationID
	if err := tx.JournalEntries().Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to save journal entry: %w", err)
	}
	tx.Collect(entry)

	s.logger.Debug("journal entry posted",
		zap.String("entry_id", entry.ID.String()),
		zap.String("entry_number", entry.EntryNumber),
		zap.String("source_type", string(entry.SourceType)),
		zap.String("total", entry.TotalDebit.StringFixed(2)),
	)
	return nil
}

func (s *PostingService) validateAccounts(ctx context.Context, tx *command.Tx, entry *ledger.JournalEntry) error {
	codes := entry.AccountCodes()
	accounts, err := tx.Accounts().FindByCodes(ctx, entry.TenantID, codes)
	if err != nil {
		return fmt.Errorf("failed to load accounts: %w", err)
	}
	for _, code := range codes {
		acc, ok := accounts[code]
		if !ok {
			return ledger.NewAccountNotFoundError(code)
		}
		if !acc.IsActive {
			return ledger.NewAccountInactiveError(code)
		}
	}
	return nil
}

// Reverse posts the mirror image of an entry
func (s *PostingService) Reverse(ctx context.Context, tx *command.Tx, tenantID, entryID uuid.UUID, date time.Time, description string) (*ledger.JournalEntry, error) {
	original, err := tx.JournalEntries().FindByIDForTenant(ctx, tenantID, entryID)
	if err != nil {
		return nil, err
	}
	reversed, err := tx.JournalEntries().ExistsReversalOf(ctx, tenantID, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing reversal: %w", err)
	}
	if reversed {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Journal entry was already reversed").
			WithDetails(map[string]any{"journalEntryId": entryID.String()})
	}
	if date.IsZero() {
		date = original.EntryDate
	}
	number, err := tx.Sequences().Next(ctx, tenantID, shared.SequenceJournalEntry)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate journal entry number: %w", err)
	}
	rev, err := original.Reversal(number, date, description)
	if err != nil {
		return nil, err
	}
	return rev, s.store(ctx, tx, rev, true)
}
