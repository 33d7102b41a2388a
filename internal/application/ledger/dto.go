package ledger

import (
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JournalLineResponse is the API view of a journal line
type JournalLineResponse struct {
	LineNo      int             `json:"lineNo"`
	AccountCode string          `json:"accountCode"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Memo        string          `json:"memo,omitempty"`
}

// JournalEntryResponse is the API view of a journal entry
type JournalEntryResponse struct {
	ID          uuid.UUID             `json:"id"`
	CompanyID   uuid.UUID             `json:"companyId"`
	EntryNumber string                `json:"entryNumber"`
	EntryDate   string                `json:"entryDate"`
	Description string                `json:"description"`
	SourceType  string                `json:"sourceType"`
	SourceID    *uuid.UUID            `json:"sourceId,omitempty"`
	ReversalOf  *uuid.UUID            `json:"reversalOf,omitempty"`
	TotalDebit  decimal.Decimal       `json:"totalDebit"`
	TotalCredit decimal.Decimal       `json:"totalCredit"`
	Lines       []JournalLineResponse `json:"lines"`
	CreatedAt   time.Time             `json:"createdAt"`
}

// JournalLineInput is one line of a manual entry
type JournalLineInput struct {
	AccountCode string          `json:"accountCode" binding:"required,max=20"`
	Debit       decimal.Decimal `json:"debit" binding:"decimal_gte0"`
	Credit      decimal.Decimal `json:"credit" binding:"decimal_gte0"`
	Memo        string          `json:"memo" binding:"max=500"`
}

// CreateJournalEntryRequest posts a manual entry
type CreateJournalEntryRequest struct {
	EntryDate   time.Time          `json:"entryDate" binding:"required"`
	Description string             `json:"description" binding:"required,max=500"`
	Lines       []JournalLineInput `json:"lines" binding:"required,dive"`
}

// ReverseEntryRequest is the input of a reversal
type ReverseEntryRequest struct {
	Date        *time.Time `json:"date,omitempty"`
	Description string     `json:"description,omitempty" binding:"max=500"`
}

// ToJournalEntryResponse converts an entry to its response
func ToJournalEntryResponse(e *ledger.JournalEntry) JournalEntryResponse {
	lines := make([]JournalLineResponse, len(e.Lines))
	for i, l := range e.Lines {
		lines[i] = JournalLineResponse{
			LineNo:      l.LineNo,
			AccountCode: l.AccountCode,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Memo:        l.Memo,
		}
	}
	return JournalEntryResponse{
		ID:          e.ID,
		CompanyID:   e.TenantID,
		EntryNumber: e.EntryNumber,
		EntryDate:   e.EntryDate.Format(time.DateOnly),
		Description: e.Description,
		SourceType:  string(e.SourceType),
		SourceID:    e.SourceID,
		ReversalOf:  e.ReversalOf,
		TotalDebit:  e.TotalDebit,
		TotalCredit: e.TotalCredit,
		Lines:       lines,
		CreatedAt:   e.CreatedAt,
	}
}
