// Package models holds the GORM rows behind the ledger repositories.
// Domain types carry no ORM tags; each file here pairs a row struct with
// the conversions to and from its aggregate.
//
//   - base.go: AggregateModel, the id/version/timestamps every aggregate row embeds
//   - ledger.go: accounts, journal entries and lines
//   - inventory.go: items, locations, stock moves, cost state snapshots
//   - procurement.go: purchase orders, receipts, bills and their lines
//   - command.go: accounting periods, idempotency records, audit logs, document sequences
//   - outbox.go: events awaiting delivery
//
// Tenant-scoped unique indexes lead with tenant_id. Amounts are
// decimal(18,2); quantities and unit costs decimal(18,4).
package models

// All returns every model, in dependency order, for AutoMigrate
func All() []any {
	return []any{
		&AccountModel{},
		&JournalEntryModel{},
		&JournalLineModel{},
		&ItemModel{},
		&LocationModel{},
		&StockMoveModel{},
		&CostStateModel{},
		&PurchaseOrderModel{},
		&PurchaseOrderLineModel{},
		&PurchaseReceiptModel{},
		&PurchaseReceiptLineModel{},
		&PurchaseBillModel{},
		&PurchaseBillLineModel{},
		&AccountingPeriodModel{},
		&IdempotencyRecordModel{},
		&AuditLogModel{},
		&DocumentSequenceModel{},
		&OutboxEntryModel{},
	}
}
