// Package middleware provides the HTTP middleware of the ledger API.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig names the service recorded on server spans
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// Tracing opens one server span per request named "METHOD route", e.g.
// "POST /api/v1/companies/:id/purchase-orders".
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return passThrough
	}
	name := cfg.ServiceName
	if name == "" {
		name = "ledger"
	}
	return otelgin.Middleware(name)
}

// spanTags are the request-scoped ids copied onto the server span
var spanTags = []struct {
	key   string
	value func(*gin.Context) string
}{
	{"request_id", GetRequestID},
	{"correlation_id", GetCorrelationID},
	{"tenant_id", func(c *gin.Context) string {
		if id, ok := GetTenantID(c); ok {
			return id.String()
		}
		return ""
	}},
	{"actor", func(c *gin.Context) string { return c.GetString(ActorKey) }},
	{"idempotency_key", GetIdempotencyKey},
}

// SpanTags tags the current span with the request, tenant and actor ids.
// It belongs inside the company group, after the auth and scope middleware.
func SpanTags() gin.HandlerFunc {
	return func(c *gin.Context) {
		if span := trace.SpanFromContext(c.Request.Context()); span.IsRecording() {
			attrs := make([]attribute.KeyValue, 0, len(spanTags))
			for _, t := range spanTags {
				if v := t.value(c); v != "" {
					attrs = append(attrs, attribute.String(t.key, v))
				}
			}
			span.SetAttributes(attrs...)
		}
		c.Next()
	}
}

// SpanErrors sets an error status on spans of 4xx and 5xx responses
func SpanErrors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		span := trace.SpanFromContext(c.Request.Context())
		if status < http.StatusBadRequest || !span.IsRecording() {
			return
		}
		span.SetStatus(codes.Error, http.StatusText(status))
		span.SetAttributes(attribute.Int("http.status_code", status))
		if last := c.Errors.Last(); last != nil {
			span.SetAttributes(attribute.String("error.code", last.Error()))
		}
	}
}
