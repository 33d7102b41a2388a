package command

import (
	"context"
	"time"

	"github.com/erp/ledger/internal/domain/audit"
	"github.com/erp/ledger/internal/domain/idempotency"
	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/period"
	"github.com/erp/ledger/internal/domain/procurement"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// TransactionScope provides transactional access to the repositories.
// All repository operations inside fn commit or roll back together.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// Repositories provides every repository bound to one database transaction.
type Repositories interface {
	Accounts() ledger.AccountRepository
	JournalEntries() ledger.JournalEntryRepository
	StockMoves() inventory.StockMoveRepository
	CostStates() inventory.CostStateRepository
	Items() inventory.ItemRepository
	Locations() inventory.LocationRepository
	PurchaseOrders() procurement.PurchaseOrderRepository
	PurchaseReceipts() procurement.PurchaseReceiptRepository
	PurchaseBills() procurement.PurchaseBillRepository
	Periods() period.Repository
	Idempotency() idempotency.Repository
	Audit() audit.Repository
	Sequences() shared.SequenceGenerator
	// Events writes domain events to the outbox in the current transaction
	Events() EventWriter
}

// EventWriter appends domain events to the transactional outbox
type EventWriter interface {
	Append(ctx context.Context, events ...shared.DomainEvent) error
}

// Locker is the fast-path mutual exclusion taken before the transaction starts.
// Implementations acquire keys in sorted order and may fall back to the row locks.
type Locker interface {
	WithLocks(ctx context.Context, keys []string, ttl time.Duration, fn func(ctx context.Context) error) error
}

// PeriodGuard rejects effective dates inside closed accounting periods
type PeriodGuard interface {
	AssertOpenPeriod(ctx context.Context, tenantID uuid.UUID, date time.Time, action string) error
}

// Notifier is woken after a commit that produced events
type Notifier interface {
	Notify()
}

// MetricsRecorder records command outcomes
type MetricsRecorder interface {
	RecordCommand(ctx context.Context, action, outcome string, duration time.Duration)
}
