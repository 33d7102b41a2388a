package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowQuery is the elapsed time above which a statement logs at warn
const DefaultSlowQuery = 200 * time.Millisecond

// GormLogger routes GORM statements into zap with the request scope of the
// statement's context. Failed lookups (ErrRecordNotFound) are not logged:
// repositories turn them into NOT_FOUND domain errors.
type GormLogger struct {
	log       *zap.Logger
	level     gormlogger.LogLevel
	slowQuery time.Duration
}

// NewGormLogger creates a GORM logger; slowQuery <= 0 disables slow-query warnings
func NewGormLogger(log *zap.Logger, level gormlogger.LogLevel, slowQuery time.Duration) *GormLogger {
	return &GormLogger{log: log.Named("gorm"), level: level, slowQuery: slowQuery}
}

// GormLevel maps the service log level onto GORM's coarser scale. Statement
// tracing (Info) is enabled only for debug.
func GormLevel(level string) gormlogger.LogLevel {
	switch level {
	case "debug":
		return gormlogger.Info
	case "error":
		return gormlogger.Error
	case "silent":
		return gormlogger.Silent
	default:
		return gormlogger.Warn
	}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.log.Sugar().With(fieldsAny(ctx)...).Infof(msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.log.Sugar().With(fieldsAny(ctx)...).Warnf(msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.log.Sugar().With(fieldsAny(ctx)...).Errorf(msg, data...)
	}
}

// Trace logs one executed statement
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	slow := l.slowQuery > 0 && elapsed > l.slowQuery
	failed := err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound)

	switch {
	case failed && l.level >= gormlogger.Error:
	case slow && l.level >= gormlogger.Warn:
	case l.level >= gormlogger.Info:
	default:
		return
	}

	sql, rows := fc()
	fields := append(ScopeFrom(ctx).Fields(),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	)
	switch {
	case failed:
		l.log.Error("sql failed", append(fields, zap.Error(err))...)
	case slow:
		l.log.Warn("slow sql", append(fields, zap.Duration("threshold", l.slowQuery))...)
	default:
		l.log.Debug("sql", fields...)
	}
}

func fieldsAny(ctx context.Context) []any {
	fields := ScopeFrom(ctx).Fields()
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = f
	}
	return out
}

var _ gormlogger.Interface = (*GormLogger)(nil)
