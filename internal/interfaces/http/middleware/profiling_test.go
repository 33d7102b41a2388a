package middleware

import (
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceFromRoute(t *testing.T) {
	tests := []struct {
		route string
		want  string
	}{
		{"/api/v1/companies/:id/purchase-orders", "purchase-orders"},
		{"/api/v1/companies/:id/purchase-orders/:poId/approve", "purchase-orders"},
		{"/api/v1/companies/:id/journal-entries/:entryId/reverse", "journal-entries"},
		{"/api/v1/pubsub/push", "push"},
		{"/health", "health"},
		{"/api/v1/companies/:id", "companies"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			assert.Equal(t, tt.want, resourceFromRoute(tt.route))
		})
	}
}

func TestProfilingLabels(t *testing.T) {
	company := uuid.New()
	labels := map[string]string{}

	router := gin.New()
	router.Use(ProfilingLabels(true))
	router.POST("/api/v1/companies/:id/purchase-orders", CompanyScope(), func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})
	router.GET("/api/v1/companies/:id/accounts", func(c *gin.Context) {
		pprof.ForLabels(c.Request.Context(), func(key, value string) bool {
			labels[key] = value
			return true
		})
		c.Status(http.StatusOK)
	})

	w := serve(router, httptest.NewRequest(http.MethodPost, "/api/v1/companies/"+company.String()+"/purchase-orders", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/companies/"+company.String()+"/accounts", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.MethodGet, labels[telemetry.ProfilingLabelMethod])
	assert.Equal(t, "/api/v1/companies/:id/accounts", labels[telemetry.ProfilingLabelRoute])
	assert.Equal(t, "accounts", labels[telemetry.ProfilingLabelResource])
}

func TestProfilingLabels_Disabled(t *testing.T) {
	router := gin.New()
	router.Use(ProfilingLabels(false))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(router, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
