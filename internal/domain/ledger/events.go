package ledger

import (
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeJournalEntry is the aggregate type of journal entries
const AggregateTypeJournalEntry = "JournalEntry"

// EventTypeJournalEntryCreated is published once per posted entry
const EventTypeJournalEntryCreated = "journal.entry.created"

// JournalEntryCreatedEvent notifies reporting consumers of a new entry
type JournalEntryCreatedEvent struct {
	shared.EventMeta
	JournalEntryID uuid.UUID       `json:"journalEntryId"`
	CompanyID      uuid.UUID       `json:"companyId"`
	EntryNumber    string          `json:"entryNumber"`
	SourceType     SourceType      `json:"sourceType"`
	SourceID       *uuid.UUID      `json:"sourceId,omitempty"`
	TotalDebit     decimal.Decimal `json:"totalDebit"`
	TotalCredit    decimal.Decimal `json:"totalCredit"`
}

// NewJournalEntryCreatedEvent creates a new JournalEntryCreatedEvent
func NewJournalEntryCreatedEvent(e *JournalEntry) *JournalEntryCreatedEvent {
	return &JournalEntryCreatedEvent{
		EventMeta:      shared.NewEventMeta(EventTypeJournalEntryCreated, AggregateTypeJournalEntry, e.ID, e.TenantID),
		JournalEntryID: e.ID,
		CompanyID:      e.TenantID,
		EntryNumber:    e.EntryNumber,
		SourceType:     e.SourceType,
		SourceID:       e.SourceID,
		TotalDebit:     e.TotalDebit,
		TotalCredit:    e.TotalCredit,
	}
}

// EventType returns the event type name
func (e *JournalEntryCreatedEvent) EventType() string {
	return EventTypeJournalEntryCreated
}
