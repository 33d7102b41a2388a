package ledger

import (
	"context"
	"fmt"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"go.uber.org/zap"
)

// JournalEntryCreatedHandler logs posted entries for downstream reporting
type JournalEntryCreatedHandler struct {
	logger *zap.Logger
}

// NewJournalEntryCreatedHandler creates a new JournalEntryCreatedHandler
func NewJournalEntryCreatedHandler(logger *zap.Logger) *JournalEntryCreatedHandler {
	return &JournalEntryCreatedHandler{logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *JournalEntryCreatedHandler) EventTypes() []string {
	return []string{ledger.EventTypeJournalEntryCreated}
}

// Handle processes a JournalEntryCreatedEvent
func (h *JournalEntryCreatedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	created, ok := event.(*ledger.JournalEntryCreatedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			ledger.EventTypeJournalEntryCreated, event.EventType())
	}
	h.logger.Info("journal entry received",
		zap.String("event_id", event.EventID().String()),
		zap.String("tenant_id", created.CompanyID.String()),
		zap.String("journal_entry_id", created.JournalEntryID.String()),
		zap.String("entry_number", created.EntryNumber),
		zap.String("total_debit", created.TotalDebit.StringFixed(2)),
		zap.String("total_credit", created.TotalCredit.StringFixed(2)),
		zap.String("correlation_id", created.CorrelationID()),
	)
	return nil
}

var _ shared.EventHandler = (*JournalEntryCreatedHandler)(nil)
