package persistence

import (
	"context"

	"github.com/erp/ledger/internal/application/command"
	"github.com/erp/ledger/internal/domain/audit"
	"github.com/erp/ledger/internal/domain/idempotency"
	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/period"
	"github.com/erp/ledger/internal/domain/procurement"
	"github.com/erp/ledger/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxWriter writes serialized events through the given transaction
type OutboxWriter interface {
	PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error
}

// GormTransactionScope implements command.TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db     *gorm.DB
	outbox OutboxWriter
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB, outbox OutboxWriter) *GormTransactionScope {
	return &GormTransactionScope{db: db, outbox: outbox}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos command.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormRepositories(tx, s.outbox))
	})
}

// GormRepositories binds every repository to one *gorm.DB, either a transaction
// or the root handle for non-transactional reads.
type GormRepositories struct {
	db     *gorm.DB
	outbox OutboxWriter
}

// NewGormRepositories creates repositories on db. outbox may be nil for read-only use.
func NewGormRepositories(db *gorm.DB, outbox OutboxWriter) *GormRepositories {
	return &GormRepositories{db: db, outbox: outbox}
}

// Accounts returns the account repository
func (r *GormRepositories) Accounts() ledger.AccountRepository {
	return NewGormAccountRepository(r.db)
}

// JournalEntries returns the journal entry repository
func (r *GormRepositories) JournalEntries() ledger.JournalEntryRepository {
	return NewGormJournalEntryRepository(r.db)
}

// StockMoves returns the stock move repository
func (r *GormRepositories) StockMoves() inventory.StockMoveRepository {
	return NewGormStockMoveRepository(r.db)
}

// CostStates returns the cost state repository
func (r *GormRepositories) CostStates() inventory.CostStateRepository {
	return NewGormCostStateRepository(r.db)
}

// Items returns the item repository
func (r *GormRepositories) Items() inventory.ItemRepository {
	return NewGormItemRepository(r.db)
}

// Locations returns the location repository
func (r *GormRepositories) Locations() inventory.LocationRepository {
	return NewGormLocationRepository(r.db)
}

// PurchaseOrders returns the purchase order repository
func (r *GormRepositories) PurchaseOrders() procurement.PurchaseOrderRepository {
	return NewGormPurchaseOrderRepository(r.db)
}

// PurchaseReceipts returns the purchase receipt repository
func (r *GormRepositories) PurchaseReceipts() procurement.PurchaseReceiptRepository {
	return NewGormPurchaseReceiptRepository(r.db)
}

// PurchaseBills returns the purchase bill repository
func (r *GormRepositories) PurchaseBills() procurement.PurchaseBillRepository {
	return NewGormPurchaseBillRepository(r.db)
}

// Periods returns the accounting period repository
func (r *GormRepositories) Periods() period.Repository {
	return NewGormPeriodRepository(r.db)
}

// Idempotency returns the idempotency record repository
func (r *GormRepositories) Idempotency() idempotency.Repository {
	return NewGormIdempotencyRepository(r.db)
}

// Audit returns the audit repository
func (r *GormRepositories) Audit() audit.Repository {
	return NewGormAuditRepository(r.db)
}

// Sequences returns the document number generator
func (r *GormRepositories) Sequences() shared.SequenceGenerator {
	return NewGormSequenceGenerator(r.db)
}

// Events returns the outbox writer bound to this handle
func (r *GormRepositories) Events() command.EventWriter {
	return outboxEvents{db: r.db, outbox: r.outbox}
}

type outboxEvents struct {
	db     *gorm.DB
	outbox OutboxWriter
}

func (e outboxEvents) Append(ctx context.Context, events ...shared.DomainEvent) error {
	if len(events) == 0 || e.outbox == nil {
		return nil
	}
	return e.outbox.PublishWithTx(ctx, e.db, events...)
}

var (
	_ command.TransactionScope = (*GormTransactionScope)(nil)
	_ command.Repositories     = (*GormRepositories)(nil)
)
