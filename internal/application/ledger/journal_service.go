package ledger

import (
	"context"
	"time"

	"github.com/erp/ledger/internal/application/command"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
)

// JournalService exposes journal entries to the API
type JournalService struct {
	entries  ledger.JournalEntryRepository
	posting  *PostingService
	executor *command.Executor
}

// NewJournalService creates a new JournalService
func NewJournalService(entries ledger.JournalEntryRepository, posting *PostingService, executor *command.Executor) *JournalService {
	return &JournalService{entries: entries, posting: posting, executor: executor}
}

// GetByID loads one entry
func (s *JournalService) GetByID(ctx context.Context, tenantID, entryID uuid.UUID) (*JournalEntryResponse, error) {
	entry, err := s.entries.FindByIDForTenant(ctx, tenantID, entryID)
	if err != nil {
		return nil, err
	}
	resp := ToJournalEntryResponse(entry)
	return &resp, nil
}

// Post records a manual entry against the chart of accounts
func (s *JournalService) Post(ctx context.Context, meta command.Command, req CreateJournalEntryRequest) (*JournalEntryResponse, error) {
	meta.Action = "journal_entry.create"
	meta.EntityType = ledger.AggregateTypeJournalEntry
	meta.Request = req
	meta.EffectiveDates = []time.Time{req.EntryDate}

	lines := make([]ledger.LineInput, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = ledger.LineInput{AccountCode: l.AccountCode, Debit: l.Debit, Credit: l.Credit, Memo: l.Memo}
	}

	resp, _, err := command.Run(ctx, s.executor, meta, func(ctx context.Context, tx *command.Tx) (*JournalEntryResponse, error) {
		entry, err := s.posting.Post(ctx, tx, PostingRequest{
			TenantID:    meta.TenantID,
			Date:        req.EntryDate,
			Description: req.Description,
			Lines:       lines,
			SourceType:  ledger.SourceManual,
		})
		if err != nil {
			return nil, err
		}
		tx.SetEntity(entry.ID)
		tx.AddMetadata("entryNumber", entry.EntryNumber)
		out := ToJournalEntryResponse(entry)
		return &out, nil
	})
	return resp, err
}

// Reverse posts a reversing entry dated on the requested date, or the original date
func (s *JournalService) Reverse(ctx context.Context, meta command.Command, entryID uuid.UUID, req ReverseEntryRequest) (*JournalEntryResponse, error) {
	date := time.Time{}
	if req.Date != nil {
		date = *req.Date
	} else {
		original, err := s.entries.FindByIDForTenant(ctx, meta.TenantID, entryID)
		if err != nil {
			return nil, err
		}
		date = original.EntryDate
	}

	meta.Action = "journal_entry.reverse"
	meta.EntityType = ledger.AggregateTypeJournalEntry
	meta.EntityID = entryID
	meta.Request = struct {
		EntryID uuid.UUID `json:"entryId"`
		ReverseEntryRequest
	}{entryID, req}
	meta.EffectiveDates = []time.Time{date}

	resp, _, err := command.Run(ctx, s.executor, meta, func(ctx context.Context, tx *command.Tx) (*JournalEntryResponse, error) {
		rev, err := s.posting.Reverse(ctx, tx, meta.TenantID, entryID, date, req.Description)
		if err != nil {
			return nil, err
		}
		tx.SetEntity(rev.ID)
		tx.AddMetadata("reversalOf", entryID.String())
		out := ToJournalEntryResponse(rev)
		return &out, nil
	})
	return resp, err
}
