package event

import (
	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/procurement"
)

// RegisterAllEvents registers every domain event the service emits.
// The outbox dispatcher and the push consumer both decode through it.
func RegisterAllEvents(s *EventSerializer) {
	register[procurement.PurchaseOrderEvent](s,
		procurement.EventTypePurchaseOrderCreated,
		procurement.EventTypePurchaseOrderUpdated,
		procurement.EventTypePurchaseOrderApproved,
		procurement.EventTypePurchaseOrderCancelled,
		procurement.EventTypePurchaseOrderDeleted,
	)
	register[procurement.PurchaseReceiptEvent](s,
		procurement.EventTypePurchaseReceiptCreated,
		procurement.EventTypePurchaseReceiptPosted,
	)
	register[procurement.PurchaseBillEvent](s,
		procurement.EventTypePurchaseBillCreated,
		procurement.EventTypePurchaseBillPosted,
		procurement.EventTypePurchaseBillPaymentRecorded,
	)
	register[ledger.JournalEntryCreatedEvent](s, ledger.EventTypeJournalEntryCreated)
	register[inventory.RecalculationRequestedEvent](s, inventory.EventTypeRecalculationRequested)
	register[inventory.CostRecalculatedEvent](s, inventory.EventTypeCostRecalculated)
}
