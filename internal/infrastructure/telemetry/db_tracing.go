package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// gormOps are the gorm callback chains the plugins in this package hook into
var gormOps = []string{"create", "query", "update", "delete", "row", "raw"}

// registrar is satisfied by gorm's callback builder
type registrar interface {
	Register(name string, fn func(*gorm.DB)) error
}

// orderable lets a gorm callback builder be placed before another callback
type orderable[C any] interface {
	registrar
	Before(name string) C
}

func placeBefore[C orderable[C]](c C, name string) registrar {
	if name == "" {
		return c
	}
	return c.Before(name)
}

// hooks returns builders for callbacks around the gorm:<op> step. The after
// hook is additionally placed before afterAnchor when it is set.
func hooks(db *gorm.DB, op, afterAnchor string) (before, after registrar, err error) {
	cb := db.Callback()
	step := "gorm:" + op
	switch op {
	case "create":
		return cb.Create().Before(step), placeBefore(cb.Create().After(step), afterAnchor), nil
	case "query":
		return cb.Query().Before(step), placeBefore(cb.Query().After(step), afterAnchor), nil
	case "update":
		return cb.Update().Before(step), placeBefore(cb.Update().After(step), afterAnchor), nil
	case "delete":
		return cb.Delete().Before(step), placeBefore(cb.Delete().After(step), afterAnchor), nil
	case "row":
		return cb.Row().Before(step), placeBefore(cb.Row().After(step), afterAnchor), nil
	case "raw":
		return cb.Raw().Before(step), placeBefore(cb.Raw().After(step), afterAnchor), nil
	}
	return nil, nil, fmt.Errorf("unknown gorm operation %q", op)
}

// DBTracingConfig holds database tracing configuration.
type DBTracingConfig struct {
	Enabled bool
	// LogFullSQL keeps bound values in db.statement; leave it off outside development.
	LogFullSQL      bool
	SlowQueryThresh time.Duration
	DBSystem        string
}

// DefaultDBTracingConfig returns the default database tracing configuration.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}
}

type queryStartKey struct{}

// RegisterDBTracing installs otelgorm on db plus callbacks that annotate its
// spans with row counts, errors and slow-query events.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = DefaultDBTracingConfig().SlowQueryThresh
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return fmt.Errorf("register otelgorm: %w", err)
	}

	for _, op := range gormOps {
		before, after, err := hooks(db, op, "otel:after_"+op)
		if err != nil {
			return err
		}
		if err := before.Register("ledger_trace:before_"+op, markQueryStart); err != nil {
			return err
		}
		if err := after.Register("ledger_trace:after_"+op, annotateSpan(cfg.SlowQueryThresh)); err != nil {
			return err
		}
	}

	logger.Info("database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
	)
	return nil
}

func markQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func annotateSpan(threshold time.Duration) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			return
		}
		span := trace.SpanFromContext(ctx)
		if !span.IsRecording() {
			return
		}

		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		if db.Statement.Table != "" {
			span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
		}
		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			span.RecordError(db.Error)
			span.SetStatus(codes.Error, db.Error.Error())
		}

		start, ok := ctx.Value(queryStartKey{}).(time.Time)
		if !ok {
			return
		}
		if elapsed := time.Since(start); elapsed > threshold {
			span.SetAttributes(attribute.Bool("db.slow_query", true))
			span.AddEvent("slow_query", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", threshold.Milliseconds()),
			))
		}
	}
}
