package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetrics holds the server instruments recorded per matched route
type HTTPMetrics struct {
	requests *Counter
	latency  *Histogram
	size     *Histogram
	inFlight metric.Int64UpDownCounter
}

// HTTPRequest is the part of a finished request the instruments need
type HTTPRequest struct {
	Method   string
	Route    string
	Status   int
	TenantID string
	Duration time.Duration
	Size     int
}

func NewHTTPMetrics(meter metric.Meter) (*HTTPMetrics, error) {
	var m HTTPMetrics
	var errs [4]error
	m.requests, errs[0] = NewCounter(meter, "http_server_request_total", "HTTP requests served", "{request}")
	m.latency, errs[1] = NewHistogram(meter, HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency",
		Unit:        "s",
		Boundaries:  HTTPDurationBuckets,
	})
	m.size, errs[2] = NewHistogram(meter, HistogramOpts{
		Name:        "http_server_response_size_bytes",
		Description: "HTTP response body size",
		Unit:        "By",
		Boundaries:  ResponseSizeBuckets,
	})
	m.inFlight, errs[3] = meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("HTTP requests being served"),
		metric.WithUnit("{request}"))
	if err := errors.Join(errs[:]...); err != nil {
		return nil, err
	}
	return &m, nil
}

// Begin counts a request in flight and returns the func that ends it
func (m *HTTPMetrics) Begin(ctx context.Context) func() {
	m.inFlight.Add(ctx, 1)
	return func() { m.inFlight.Add(ctx, -1) }
}

// Record records a finished request. The tenant only labels the counter so
// the histograms stay bounded by route.
func (m *HTTPMetrics) Record(ctx context.Context, r HTTPRequest) {
	route := []attribute.KeyValue{AttrHTTPMethod.String(r.Method), AttrHTTPRoute.String(r.Route)}

	counted := append(route[:len(route):len(route)], AttrHTTPStatusCode.Int(r.Status))
	if r.TenantID != "" {
		counted = append(counted, AttrTenantID.String(r.TenantID))
	}
	m.requests.Inc(ctx, counted...)
	m.latency.RecordDuration(ctx, r.Duration, route...)
	if r.Size > 0 {
		m.size.Record(ctx, float64(r.Size), route...)
	}
}
