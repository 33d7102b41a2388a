package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Scope identifies the request a log line belongs to. Empty fields are omitted.
type Scope struct {
	RequestID     string
	CorrelationID string
	TenantID      string
	Actor         string
}

// Fields renders the non-empty scope values as zap fields
func (s Scope) Fields() []zap.Field {
	fields := make([]zap.Field, 0, 4)
	for _, kv := range [...]struct{ key, val string }{
		{"request_id", s.RequestID},
		{"correlation_id", s.CorrelationID},
		{"tenant_id", s.TenantID},
		{"actor", s.Actor},
	} {
		if kv.val != "" {
			fields = append(fields, zap.String(kv.key, kv.val))
		}
	}
	return fields
}

type ctxKey struct{}

type ctxState struct {
	base  *zap.Logger
	scope Scope
}

func stateFrom(ctx context.Context) ctxState {
	st, _ := ctx.Value(ctxKey{}).(ctxState)
	return st
}

// WithLogger attaches base as the logger FromContext derives from
func WithLogger(ctx context.Context, base *zap.Logger) context.Context {
	st := stateFrom(ctx)
	st.base = base
	return context.WithValue(ctx, ctxKey{}, st)
}

// WithScope returns a context whose scope is the current one after update.
// The parent context's scope is not changed.
func WithScope(ctx context.Context, update func(*Scope)) context.Context {
	st := stateFrom(ctx)
	update(&st.scope)
	return context.WithValue(ctx, ctxKey{}, st)
}

// ScopeFrom returns the scope bound to ctx, zero if none
func ScopeFrom(ctx context.Context) Scope {
	return stateFrom(ctx).scope
}

// FromContext returns the attached logger carrying the scope fields and,
// when a span is recording, its trace and span ids. Without an attached
// logger it returns a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	st := stateFrom(ctx)
	if st.base == nil {
		return zap.NewNop()
	}
	fields := st.scope.Fields()
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	return st.base.With(fields...)
}
