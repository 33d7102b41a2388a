package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newBodyLimitEngine(limit int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	e := gin.New()
	e.Use(BodyLimit(limit))
	e.POST("/journal-entries", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.String(http.StatusRequestEntityTooLarge, "cut off at %d", tooLarge.Limit)
			return
		}
		c.String(http.StatusCreated, "posted")
	})
	return e
}

func TestBodyLimit(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		contentLength int64
		wantStatus    int
		wantBody      string
	}{
		{"within limit", `{"memo":"rent"}`, 15, http.StatusCreated, "posted"},
		{"declared length over limit", strings.Repeat("x", 80), 80, http.StatusRequestEntityTooLarge, `"limitBytes":32`},
		{"chunked body over limit", strings.Repeat("x", 80), -1, http.StatusRequestEntityTooLarge, "cut off at 32"},
		{"empty body", "", 0, http.StatusCreated, "posted"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/journal-entries", strings.NewReader(tt.body))
			req.ContentLength = tt.contentLength
			w := httptest.NewRecorder()
			newBodyLimitEngine(32).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}
