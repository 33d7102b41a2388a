package shared

import (
	"context"

	"github.com/google/uuid"
)

// SequenceGenerator issues gap-free, per-tenant document numbers such as PO-000001.
// Implementations must be called inside the transaction that persists the document.
type SequenceGenerator interface {
	Next(ctx context.Context, tenantID uuid.UUID, prefix string) (string, error)
}

// Document number prefixes
const (
	SequencePurchaseOrder   = "PO"
	SequencePurchaseReceipt = "GR"
	SequencePurchaseBill    = "BILL"
	SequenceJournalEntry    = "JE"
)
