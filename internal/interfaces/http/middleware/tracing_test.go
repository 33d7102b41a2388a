package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithSpanProcessor(recorder),
	)
	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
		_ = tp.Shutdown(t.Context())
	})
	return recorder
}

func spanAttrs(attrs []attribute.KeyValue) map[string]string {
	out := make(map[string]string, len(attrs))
	for _, a := range attrs {
		out[string(a.Key)] = a.Value.Emit()
	}
	return out
}

func TestTracing_Disabled(t *testing.T) {
	recorder := setupTestTracer(t)

	router := gin.New()
	router.Use(Tracing(TracingConfig{ServiceName: "ledger", Enabled: false}))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(router, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, recorder.Ended())
}

func TestTracing_InjectsRequestAttributes(t *testing.T) {
	recorder := setupTestTracer(t)
	company := uuid.New()

	router := gin.New()
	router.Use(
		RequestContext(zap.NewNop()),
		Tracing(TracingConfig{Enabled: true}),
		SpanErrors(),
		JWTAuthMiddleware(JWTMiddlewareConfig{}),
	)
	group := router.Group("/companies/:id", CompanyScope(), RequireIdempotencyKey(), SpanTags())
	group.POST("/purchase-orders", func(c *gin.Context) { c.Status(http.StatusCreated) })

	req := httptest.NewRequest(http.MethodPost, "/companies/"+company.String()+"/purchase-orders", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	req.Header.Set(HeaderIdempotencyKey, "key-1")
	w := serve(router, req)
	require.Equal(t, http.StatusCreated, w.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	attrs := spanAttrs(spans[0].Attributes())
	assert.Equal(t, "req-42", attrs["request_id"])
	assert.Equal(t, "req-42", attrs["correlation_id"])
	assert.Equal(t, company.String(), attrs["tenant_id"])
	assert.Equal(t, AnonymousActor, attrs["actor"])
	assert.Equal(t, "key-1", attrs["idempotency_key"])
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestSpanErrors(t *testing.T) {
	recorder := setupTestTracer(t)

	router := gin.New()
	router.Use(Tracing(TracingConfig{Enabled: true}), SpanErrors())
	router.GET("/conflict", func(c *gin.Context) {
		_ = c.Error(assert.AnError)
		c.Status(http.StatusConflict)
	})

	serve(router, httptest.NewRequest(http.MethodGet, "/conflict", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	attrs := spanAttrs(spans[0].Attributes())
	assert.Equal(t, "409", attrs["http.status_code"])
	assert.Equal(t, assert.AnError.Error(), attrs["error.code"])
}
