//go:build integration

package migration_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	inventoryapp "github.com/erp/ledger/internal/application/inventory"
	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/application/procurement"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/migration"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/internal/testutil"
	"github.com/erp/ledger/migrations"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("ledger_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestPostgres_SchemaRoundTrip(t *testing.T) {
	dsn := startPostgres(t)

	sqlDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	defer sqlDB.Close()

	m, err := migration.New(sqlDB, migrations.FS, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, m.Up())
	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(20260105090200), version)
	assert.False(t, dirty)

	st, err := m.Status()
	require.NoError(t, err)
	assert.Equal(t, migration.Status{Applied: version, Latest: version}, st)
	assert.False(t, st.Pending())

	// a second run is a no-op
	require.NoError(t, m.Up())

	var tables int
	require.NoError(t, sqlDB.QueryRow(`SELECT count(*) FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name <> 'schema_migrations'`).Scan(&tables))
	assert.Equal(t, 18, tables)

	require.NoError(t, m.Down())
	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Zero(t, version)
}

func TestPostgres_ConcurrentReceiptsNeverOverReceive(t *testing.T) {
	dsn := startPostgres(t)

	sqlDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	m, err := migration.New(sqlDB, migrations.FS, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())

	gdb, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	db := &persistence.Database{DB: gdb, Driver: "postgres"}
	t.Cleanup(func() { _ = db.Close() })

	h := testutil.NewHarnessOn(t, db)
	fix := h.Seed(t)
	ctx := context.Background()

	costing := inventoryapp.NewCostingService(inventoryapp.CostingConfig{RecalculateInline: true}, zap.NewNop())
	svc := procurement.NewService(h.Executor, h.Reads, ledgerapp.NewPostingService(zap.NewNop()), costing,
		procurement.AccountingConfig{
			InventoryAccount: testutil.InventoryAccount,
			GRNIAccount:      testutil.GRNIAccount,
			PayableAccount:   testutil.PayableAccount,
		}, zap.NewNop())

	order, err := svc.Create(ctx, testutil.Command(fix.TenantID, "po-create"), procurement.CreatePurchaseOrderRequest{
		VendorID:   uuid.New(),
		VendorName: "Acme Supplies",
		LocationID: fix.LocationID,
		OrderDate:  testutil.Date(2024, 3, 1),
		Lines: []procurement.OrderLineInput{
			{ItemID: fix.Widget.ID, Quantity: decimal.NewFromInt(10), UnitCost: decimal.NewFromInt(5)},
		},
	})
	require.NoError(t, err)
	_, err = svc.Approve(ctx, testutil.Command(fix.TenantID, "po-approve"), order.ID)
	require.NoError(t, err)

	const workers = 4
	receiptDate := testutil.Date(2024, 3, 5)
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ReceiveAndBill(ctx, testutil.Command(fix.TenantID, uuid.NewString()), order.ID,
				procurement.ReceiveAndBillRequest{
					ReceiptDate: &receiptDate,
					Lines: []procurement.ReceiptLineInput{
						{OrderLineID: order.Lines[0].ID, Quantity: decimal.NewFromInt(6)},
					},
				})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			de, ok := shared.AsDomainError(err)
			if !assert.True(t, ok, "unexpected error: %v", err) {
				return
			}
			assert.Contains(t, []string{
				shared.CodeExceedsRemaining,
				shared.CodeConcurrencyConflict,
				shared.CodeLockNotAcquired,
			}, de.Code)
			rejected++
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, rejected)

	summary, err := svc.ReceivingSummary(ctx, fix.TenantID, order.ID)
	require.NoError(t, err)
	require.Len(t, summary.Lines, 1)
	assert.True(t, decimal.NewFromInt(6).Equal(summary.Lines[0].Received))
}
