package ledger

import (
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SourceType identifies the document a journal entry was posted for
type SourceType string

const (
	SourceManual          SourceType = "MANUAL"
	SourcePurchaseReceipt SourceType = "PURCHASE_RECEIPT"
	SourcePurchaseBill    SourceType = "PURCHASE_BILL"
	SourceReversal        SourceType = "REVERSAL"
)

// JournalLine is one debit or credit of an entry
type JournalLine struct {
	ID          uuid.UUID
	EntryID     uuid.UUID
	LineNo      int
	AccountCode string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Memo        string
}

// LineInput describes a line to post
type LineInput struct {
	AccountCode string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Memo        string
}

// JournalEntry is an immutable, balanced double-entry record.
// There is no mutation method: corrections are posted as reversals.
type JournalEntry struct {
	shared.TenantAggregateRoot
	EntryNumber   string
	EntryDate     time.Time
	Description   string
	SourceType    SourceType
	SourceID      *uuid.UUID
	ReversalOf    *uuid.UUID
	CorrelationID string
	TotalDebit    decimal.Decimal
	TotalCredit   decimal.Decimal
	Lines         []JournalLine
}

// NewJournalEntry validates the lines and builds a balanced entry
func NewJournalEntry(
	tenantID uuid.UUID,
	entryNumber string,
	entryDate time.Time,
	description string,
	sourceType SourceType,
	sourceID *uuid.UUID,
	inputs []LineInput,
) (*JournalEntry, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Tenant ID cannot be empty")
	}
	if entryDate.IsZero() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Entry date is required")
	}
	if len(inputs) < 2 {
		return nil, shared.NewDomainError(CodeInvalidLine, "Journal entry needs at least two lines")
	}

	entry := &JournalEntry{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		EntryNumber:         entryNumber,
		EntryDate:           entryDate,
		Description:         strings.TrimSpace(description),
		SourceType:          sourceType,
		SourceID:            sourceID,
		Lines:               make([]JournalLine, 0, len(inputs)),
	}

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for i, in := range inputs {
		lineNo := i + 1
		if strings.TrimSpace(in.AccountCode) == "" {
			return nil, newInvalidLineError(lineNo, "account is required")
		}
		debit := valueobject.RoundMoney(in.Debit)
		credit := valueobject.RoundMoney(in.Credit)
		if debit.IsNegative() || credit.IsNegative() {
			return nil, newInvalidLineError(lineNo, "debit and credit cannot be negative")
		}
		if debit.IsPositive() && credit.IsPositive() {
			return nil, newInvalidLineError(lineNo, "a line cannot carry both debit and credit")
		}
		if debit.IsZero() && credit.IsZero() {
			return nil, newInvalidLineError(lineNo, "a line needs a debit or a credit")
		}
		totalDebit = totalDebit.Add(debit)
		totalCredit = totalCredit.Add(credit)
		entry.Lines = append(entry.Lines, JournalLine{
			ID:          uuid.New(),
			EntryID:     entry.ID,
			LineNo:      lineNo,
			AccountCode: strings.TrimSpace(in.AccountCode),
			Debit:       debit,
			Credit:      credit,
			Memo:        in.Memo,
		})
	}

	if !totalDebit.Equal(totalCredit) {
		return nil, NewUnbalancedEntryError(totalDebit, totalCredit)
	}
	entry.TotalDebit = totalDebit
	entry.TotalCredit = totalCredit

	entry.AddDomainEvent(NewJournalEntryCreatedEvent(entry))
	return entry, nil
}

// AccountCodes returns the distinct account codes referenced by the entry
func (e *JournalEntry) AccountCodes() []string {
	seen := make(map[string]struct{}, len(e.Lines))
	codes := make([]string, 0, len(e.Lines))
	for _, l := range e.Lines {
		if _, ok := seen[l.AccountCode]; ok {
			continue
		}
		seen[l.AccountCode] = struct{}{}
		codes = append(codes, l.AccountCode)
	}
	return codes
}

// IsBalanced re-checks the invariant on loaded data
func (e *JournalEntry) IsBalanced() bool {
	debit := decimal.Zero
	credit := decimal.Zero
	for _, l := range e.Lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return valueobject.MoneyEqual(debit, credit) && valueobject.MoneyEqual(debit, e.TotalDebit)
}

// Reversal builds a new entry with every debit and credit swapped
func (e *JournalEntry) Reversal(entryNumber string, date time.Time, description string) (*JournalEntry, error) {
	if e.ReversalOf != nil {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "A reversal entry cannot be reversed again")
	}
	inputs := make([]LineInput, len(e.Lines))
	for i, l := range e.Lines {
		inputs[i] = LineInput{
			AccountCode: l.AccountCode,
			Debit:       l.Credit,
			Credit:      l.Debit,
			Memo:        l.Memo,
		}
	}
	if description == "" {
		description = "Reversal of " + e.EntryNumber
	}
	sourceID := e.ID
	rev, err := NewJournalEntry(e.TenantID, entryNumber, date, description, SourceReversal, &sourceID, inputs)
	if err != nil {
		return nil, err
	}
	rev.ReversalOf = &sourceID
	return rev, nil
}
