package event

import (
	"testing"

	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/procurement"
	"github.com/stretchr/testify/assert"
)

func TestSubscriptions_Route(t *testing.T) {
	subs := newSubscriptions()
	posting := newTestHandler()
	audit := newTestHandler()
	subs.add(audit, nil)
	subs.add(posting, []string{ledger.EventTypeJournalEntryCreated, procurement.EventTypePurchaseBillPosted})

	got := subs.route(procurement.EventTypePurchaseBillPosted)
	if assert.Len(t, got, 2) {
		assert.Same(t, posting, got[0])
		assert.Same(t, audit, got[1])
	}
	assert.Len(t, subs.route(inventory.EventTypeRecalculationRequested), 1)
	assert.Equal(t, []string{ledger.EventTypeJournalEntryCreated, procurement.EventTypePurchaseBillPosted}, subs.types())
}

func TestSubscriptions_Remove(t *testing.T) {
	subs := newSubscriptions()
	h := newTestHandler()
	other := newTestHandler()
	subs.add(h, []string{procurement.EventTypePurchaseReceiptPosted, procurement.EventTypePurchaseOrderCreated})
	subs.add(h, nil)
	subs.add(other, []string{procurement.EventTypePurchaseOrderCreated})

	subs.remove(h)

	assert.Equal(t, []string{procurement.EventTypePurchaseOrderCreated}, subs.types())
	assert.Len(t, subs.route(procurement.EventTypePurchaseOrderCreated), 1)
	assert.Empty(t, subs.route(procurement.EventTypePurchaseReceiptPosted))
}
