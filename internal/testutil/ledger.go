// Package testutil provides common test utilities for the ledger service.
// Harness wires the real command stack on an in-memory sqlite database so
// application tests run every query and transaction the server runs.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/erp/ledger/internal/application/command"
	periodapp "github.com/erp/ledger/internal/application/period"
	"github.com/erp/ledger/internal/domain/audit"
	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/period"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/event"
	"github.com/erp/ledger/internal/infrastructure/lock"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Default account codes used by Harness.Seed
const (
	InventoryAccount = "1300"
	GRNIAccount      = "2100"
	PayableAccount   = "2000"
	ExpenseAccount   = "6100"
)

// Harness is a fully wired command stack on sqlite
type Harness struct {
	DB         *persistence.Database
	Executor   *command.Executor
	Reads      *persistence.GormRepositories
	Serializer *event.EventSerializer
	Outbox     *event.GormOutboxRepository
	Logger     *zap.Logger
}

// NewHarness opens a fresh in-memory database and wires an executor on it
func NewHarness(t *testing.T) *Harness {
	t.Helper()
	db, err := persistence.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewHarnessOn(t, db)
}

// NewHarnessOn wires the command stack on an already migrated database
func NewHarnessOn(t *testing.T, db *persistence.Database) *Harness {
	t.Helper()
	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	publisher := event.NewOutboxPublisher(serializer, 0)

	logger := zap.NewNop()
	scope := persistence.NewGormTransactionScope(db.DB, publisher)
	guard := periodapp.NewGuard(persistence.NewGormPeriodRepository(db.DB))
	executor := command.NewExecutor(
		scope,
		persistence.NewGormIdempotencyRepository(db.DB),
		guard,
		lock.NoopLocker{},
		command.ExecutorConfig{},
		logger,
	)

	return &Harness{
		DB:         db,
		Executor:   executor,
		Reads:      persistence.NewGormRepositories(db.DB, nil),
		Serializer: serializer,
		Outbox:     event.NewGormOutboxRepository(db.DB),
		Logger:     logger,
	}
}

// Gorm returns the root gorm handle
func (h *Harness) Gorm() *gorm.DB {
	return h.DB.DB
}

// Command returns command metadata for a tenant with the given idempotency key
func Command(tenantID uuid.UUID, key string) command.Command {
	return command.Command{
		TenantID:       tenantID,
		IdempotencyKey: key,
		CorrelationID:  "corr-" + key,
		Actor:          "user:test",
	}
}

// Fixture is the master data of one seeded company
type Fixture struct {
	TenantID   uuid.UUID
	LocationID uuid.UUID
	// Widget is a tracked item, Service is expensed on billing
	Widget  *inventory.Item
	Service *inventory.Item
}

// Seed creates a company with a location, a tracked and a non-tracked item and the purchasing accounts
func (h *Harness) Seed(t *testing.T) *Fixture {
	t.Helper()
	ctx := context.Background()
	tenantID := uuid.New()

	for _, a := range []struct {
		code string
		name string
		typ  ledger.AccountType
	}{
		{InventoryAccount, "Inventory", ledger.AccountTypeAsset},
		{GRNIAccount, "Goods received not invoiced", ledger.AccountTypeLiability},
		{PayableAccount, "Accounts payable", ledger.AccountTypeLiability},
		{ExpenseAccount, "Services expense", ledger.AccountTypeExpense},
	} {
		account, err := ledger.NewAccount(tenantID, a.code, a.name, a.typ)
		require.NoError(t, err)
		require.NoError(t, h.Reads.Accounts().Save(ctx, account))
	}

	location, err := inventory.NewLocation(tenantID, "MAIN", "Main warehouse")
	require.NoError(t, err)
	require.NoError(t, h.Reads.Locations().Save(ctx, location))

	widget, err := inventory.NewItem(tenantID, "WIDGET", "Widget", true)
	require.NoError(t, err)
	require.NoError(t, h.Reads.Items().Save(ctx, widget))

	service, err := inventory.NewItem(tenantID, "SVC", "Installation service", false)
	require.NoError(t, err)
	service.ExpenseAccountCode = ExpenseAccount
	require.NoError(t, h.Reads.Items().Save(ctx, service))

	return &Fixture{TenantID: tenantID, LocationID: location.ID, Widget: widget, Service: service}
}

// ClosePeriod stores a CLOSED period covering [start, end]
func (h *Harness) ClosePeriod(t *testing.T, tenantID uuid.UUID, start, end time.Time) *period.AccountingPeriod {
	t.Helper()
	p, err := period.NewAccountingPeriod(tenantID, start.Format("2006-01"), start, end)
	require.NoError(t, err)
	require.NoError(t, h.Reads.Periods().Save(context.Background(), p))
	require.NoError(t, p.Close("user:test"))
	require.NoError(t, h.Reads.Periods().Save(context.Background(), p))
	return p
}

// Counts is a snapshot of the rows commands write
type Counts struct {
	JournalEntries int64
	StockMoves     int64
	Receipts       int64
	Bills          int64
	AuditEntries   int64
	OutboxEvents   int64
}

// CountRows counts a tenant's journal, stock, document, audit and outbox rows
func (h *Harness) CountRows(t *testing.T, tenantID uuid.UUID) Counts {
	t.Helper()
	var c Counts
	count := func(model any, dest *int64) {
		require.NoError(t, h.Gorm().Model(model).Where("tenant_id = ?", tenantID).Count(dest).Error)
	}
	count(&models.JournalEntryModel{}, &c.JournalEntries)
	count(&models.StockMoveModel{}, &c.StockMoves)
	count(&models.PurchaseReceiptModel{}, &c.Receipts)
	count(&models.PurchaseBillModel{}, &c.Bills)
	count(&models.AuditLogModel{}, &c.AuditEntries)
	count(&models.OutboxEntryModel{}, &c.OutboxEvents)
	return c
}

// AuditTrail returns the audit entries of an entity
func (h *Harness) AuditTrail(t *testing.T, tenantID uuid.UUID, entityType string, entityID uuid.UUID) []*audit.Entry {
	t.Helper()
	entries, err := h.Reads.Audit().ListByEntity(context.Background(), tenantID, entityType, entityID)
	require.NoError(t, err)
	return entries
}

// OutboxTypes returns the event types staged for a tenant, oldest first
func (h *Harness) OutboxTypes(t *testing.T, tenantID uuid.UUID) []string {
	t.Helper()
	var types []string
	require.NoError(t, h.Gorm().Model(&models.OutboxEntryModel{}).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Pluck("event_type", &types).Error)
	return types
}

// Date returns midnight UTC of the given day
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

var _ shared.SequenceGenerator = (*persistence.GormSequenceGenerator)(nil)
