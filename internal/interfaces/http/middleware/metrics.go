package middleware

import (
	"time"

	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
)

func passThrough(c *gin.Context) { c.Next() }

// HTTPMetrics records request count, latency and response size per route.
// A nil or disabled provider yields a pass-through.
func HTTPMetrics(mp *telemetry.MeterProvider) gin.HandlerFunc {
	if mp == nil || !mp.IsEnabled() {
		return passThrough
	}
	return HTTPMetricsWithMeter(mp.Meter("ledger.http"))
}

// HTTPMetricsWithMeter is HTTPMetrics on an existing meter
func HTTPMetricsWithMeter(meter metric.Meter) gin.HandlerFunc {
	m, err := telemetry.NewHTTPMetrics(meter)
	if err != nil {
		return passThrough
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		end := m.Begin(ctx)
		c.Next()
		end()

		req := telemetry.HTTPRequest{
			Method:   c.Request.Method,
			Route:    routePattern(c),
			Status:   c.Writer.Status(),
			Duration: time.Since(start),
			Size:     c.Writer.Size(),
		}
		if id, ok := GetTenantID(c); ok {
			req.TenantID = id.String()
		}
		m.Record(ctx, req)
	}
}

// routePattern is the matched route template; unmatched paths collapse to
// "unknown" so raw URLs never become label values.
func routePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unknown"
}
