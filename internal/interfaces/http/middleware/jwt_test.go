package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erp/ledger/internal/infrastructure/auth"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Enabled: true,
		Secret:  "middleware-test-secret-32-chars!",
		Issuer:  "ledger-test",
	})
}

func jwtRouter(cfg JWTMiddlewareConfig) *gin.Engine {
	router := gin.New()
	router.Use(JWTAuthMiddleware(cfg))
	router.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"actor":    GetActor(c),
			"logActor": logger.ScopeFrom(c.Request.Context()).Actor,
			"claims":   GetJWTClaims(c) != nil,
		})
	})
	return router
}

func bearer(t *testing.T, svc *auth.JWTService, subject string, ttl time.Duration, companies ...uuid.UUID) string {
	t.Helper()
	token, err := svc.IssueToken(subject, companies, ttl)
	require.NoError(t, err)
	return BearerPrefix + token
}

func TestJWTAuthMiddleware(t *testing.T) {
	svc := testJWTService()

	t.Run("disabled service runs anonymous", func(t *testing.T) {
		router := jwtRouter(JWTMiddlewareConfig{})
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(AuthHeaderKey, "Bearer whatever")
		w := serve(router, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"actor":"anonymous","logActor":"anonymous","claims":false}`, w.Body.String())
	})

	t.Run("optional without header runs anonymous", func(t *testing.T) {
		router := jwtRouter(JWTMiddlewareConfig{JWTService: svc})
		w := serve(router, httptest.NewRequest(http.MethodGet, "/whoami", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"actor":"anonymous"`)
	})

	t.Run("required without header", func(t *testing.T) {
		router := jwtRouter(JWTMiddlewareConfig{JWTService: svc, Required: true})
		w := serve(router, httptest.NewRequest(http.MethodGet, "/whoami", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
	})

	t.Run("valid token sets actor", func(t *testing.T) {
		router := jwtRouter(JWTMiddlewareConfig{JWTService: svc, Required: true})
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(AuthHeaderKey, bearer(t, svc, "alice", time.Minute))
		w := serve(router, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"actor":"user:alice","logActor":"user:alice","claims":true}`, w.Body.String())
	})

	t.Run("presented invalid token is rejected when optional", func(t *testing.T) {
		router := jwtRouter(JWTMiddlewareConfig{JWTService: svc})
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(AuthHeaderKey, "Bearer not-a-token")
		w := serve(router, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid token")
	})

	t.Run("expired token", func(t *testing.T) {
		router := jwtRouter(JWTMiddlewareConfig{JWTService: svc})
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(AuthHeaderKey, bearer(t, svc, "alice", -time.Minute))
		w := serve(router, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Token has expired")
	})

	t.Run("wrong scheme", func(t *testing.T) {
		router := jwtRouter(JWTMiddlewareConfig{JWTService: svc})
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(AuthHeaderKey, "Basic YWxpY2U6c2VjcmV0")
		w := serve(router, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
