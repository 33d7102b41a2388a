package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGorm(level gormlogger.LogLevel, slow time.Duration) (*GormLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, slow), logs
}

func stmt(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func TestGormLogger_Trace(t *testing.T) {
	ctx := WithScope(context.Background(), func(s *Scope) {
		s.TenantID = "c-1"
		s.CorrelationID = "corr-1"
	})
	fast := time.Now()
	slow := time.Now().Add(-time.Second)

	tests := []struct {
		name    string
		level   gormlogger.LogLevel
		begin   time.Time
		err     error
		wantMsg string
	}{
		{"failure", gormlogger.Warn, fast, errors.New("deadlock detected"), "sql failed"},
		{"not found is quiet", gormlogger.Info, fast, gormlogger.ErrRecordNotFound, "sql"},
		{"slow", gormlogger.Warn, slow, nil, "slow sql"},
		{"fast at warn", gormlogger.Warn, fast, nil, ""},
		{"fast at info", gormlogger.Info, fast, nil, "sql"},
		{"silent", gormlogger.Silent, slow, errors.New("x"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gl, logs := newObservedGorm(tt.level, 200*time.Millisecond)
			gl.Trace(ctx, tt.begin, stmt("SELECT * FROM accounts", 3), tt.err)

			if tt.wantMsg == "" {
				assert.Zero(t, logs.Len())
				return
			}
			require.Equal(t, 1, logs.Len())
			entry := logs.All()[0]
			assert.Equal(t, tt.wantMsg, entry.Message)
			fields := entry.ContextMap()
			assert.Equal(t, "c-1", fields["tenant_id"])
			assert.Equal(t, "corr-1", fields["correlation_id"])
			assert.Equal(t, "SELECT * FROM accounts", fields["sql"])
			assert.EqualValues(t, 3, fields["rows"])
		})
	}
}

func TestGormLogger_SlowQueryDisabled(t *testing.T) {
	gl, logs := newObservedGorm(gormlogger.Warn, 0)
	gl.Trace(context.Background(), time.Now().Add(-time.Minute), stmt("SELECT 1", 1), nil)
	assert.Zero(t, logs.Len())
}

func TestGormLogger_MessagesAndLogMode(t *testing.T) {
	gl, logs := newObservedGorm(gormlogger.Warn, DefaultSlowQuery)
	ctx := WithScope(context.Background(), func(s *Scope) { s.RequestID = "req-7" })

	gl.Info(ctx, "migrated %d tables", 18)
	gl.Warn(ctx, "retrying %s", "lock")
	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, "retrying lock", logs.All()[0].Message)
	assert.Equal(t, "req-7", logs.All()[0].ContextMap()["request_id"])

	verbose := gl.LogMode(gormlogger.Info)
	verbose.Info(ctx, "migrated %d tables", 18)
	assert.Equal(t, 2, logs.Len())
	assert.Equal(t, gormlogger.Warn, gl.level, "LogMode returns a copy")
}

func TestGormLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Info, GormLevel("debug"))
	assert.Equal(t, gormlogger.Warn, GormLevel("info"))
	assert.Equal(t, gormlogger.Warn, GormLevel("warn"))
	assert.Equal(t, gormlogger.Error, GormLevel("error"))
	assert.Equal(t, gormlogger.Silent, GormLevel("silent"))
}
