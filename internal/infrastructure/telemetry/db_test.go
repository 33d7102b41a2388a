package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testAccount struct {
	ID   uint `gorm:"primaryKey"`
	Code string
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&testAccount{}))
	return db
}

func TestRegisterDBMetrics(t *testing.T) {
	reader, mp := setupTestMeter(t)
	db := openTestDB(t)

	m, err := RegisterDBMetrics(db, mp, DBMetricsConfig{Enabled: true}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, m)
	t.Cleanup(func() { _ = m.Stop() })

	ctx := context.Background()
	require.NoError(t, db.WithContext(ctx).Create(&testAccount{Code: "1000"}).Error)
	var got []testAccount
	require.NoError(t, db.WithContext(ctx).Find(&got).Error)
	require.NoError(t, db.WithContext(ctx).Exec("DELETE FROM test_accounts WHERE code = ?", "none").Error)

	rm := collect(t, reader)
	ops := sumBy(t, findMetric(rm, "db_query_total"), AttrDBOperation)
	assert.Equal(t, int64(1), ops["INSERT"])
	assert.Equal(t, int64(1), ops["SELECT"])
	assert.Equal(t, int64(1), ops["DELETE"])

	pool := findMetric(rm, "db_pool_connections")
	require.NotNil(t, pool)
	gauge, ok := pool.Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	states := map[string]int64{}
	for _, dp := range gauge.DataPoints {
		v, _ := dp.Attributes.Value(AttrDBState)
		states[v.AsString()] = dp.Value
	}
	assert.Equal(t, int64(1), states["max"])
}

func TestRegisterDBMetrics_Disabled(t *testing.T) {
	db := openTestDB(t)
	_, mp := setupTestMeter(t)

	m, err := RegisterDBMetrics(db, mp, DBMetricsConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.NoError(t, m.Stop())
}

func TestDBMetrics_SlowQueries(t *testing.T) {
	reader, mp := setupTestMeter(t)
	m, err := NewDBMetrics(mp.Meter("test"), DBMetricsConfig{SlowQueryThreshold: 10 * time.Millisecond}, nil)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordQuery(ctx, "select", "stock_moves", time.Millisecond)
	m.RecordQuery(ctx, "select", "stock_moves", 50*time.Millisecond)
	m.RecordQuery(ctx, "update", "", 50*time.Millisecond)

	rm := collect(t, reader)
	assert.Equal(t,
		map[string]int64{"stock_moves": 1, "unknown": 1},
		sumBy(t, findMetric(rm, "db_slow_query_total"), AttrDBTable),
	)
}

func TestOperationOf(t *testing.T) {
	assert.Equal(t, "INSERT", operationOf("create", ""))
	assert.Equal(t, "SELECT", operationOf("row", "  select 1"))
	assert.Equal(t, "UPDATE", operationOf("raw", "UPDATE cost_states SET qty = 1"))
	assert.Equal(t, "OTHER", operationOf("raw", "PRAGMA foreign_keys = ON"))
}

func TestRegisterDBTracing(t *testing.T) {
	recorder := setupTestTracer(t)
	db := openTestDB(t)

	require.NoError(t, RegisterDBTracing(db, DBTracingConfig{Enabled: true, DBSystem: "sqlite"}, zap.NewNop()))

	ctx, parent := StartSpan(context.Background(), "command.execute")
	require.NoError(t, db.WithContext(ctx).Create(&testAccount{Code: "2000"}).Error)
	err := db.WithContext(ctx).Exec("INSERT INTO missing_table VALUES (1)").Error
	require.Error(t, err)
	parent.End()

	var dbSpans int
	var failed bool
	for _, s := range recorder.Ended() {
		if s.Parent().SpanID() != parent.SpanContext().SpanID() {
			continue
		}
		dbSpans++
		if s.Status().Code == codes.Error {
			failed = true
		}
	}
	assert.GreaterOrEqual(t, dbSpans, 2)
	assert.True(t, failed)
}

func TestRegisterDBTracing_Disabled(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, RegisterDBTracing(db, DBTracingConfig{}, zap.NewNop()))
	assert.Nil(t, db.Config.Plugins["otelgorm"])
}
