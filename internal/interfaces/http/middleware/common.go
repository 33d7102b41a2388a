package middleware

import (
	"time"

	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Gin context keys shared by the middleware chain and the handlers
const (
	RequestIDKey      = "request_id"
	CorrelationIDKey  = "correlation_id"
	TenantIDKey       = "tenant_id"
	ActorKey          = "actor"
	IdempotencyKeyKey = "idempotency_key"
)

// Request headers
const (
	HeaderRequestID      = "X-Request-ID"
	HeaderCorrelationID  = "X-Correlation-ID"
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderRetryAfter     = "Retry-After"
)

// MaxRequestIDLength caps request and correlation ids taken from headers
const MaxRequestIDLength = 128

// CORSConfig holds CORS middleware configuration
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultCORSConfig returns default CORS configuration.
// AllowOrigins is empty: cross-origin requests are rejected until origins are configured.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type", "Authorization", HeaderRequestID, HeaderCorrelationID,
			HeaderIdempotencyKey, "Accept", "Origin", "Cache-Control",
		},
		ExposeHeaders:    []string{HeaderRequestID, HeaderCorrelationID, HeaderRetryAfter},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

// CORSWithConfig returns a CORS middleware backed by gin-contrib/cors
func CORSWithConfig(cfg CORSConfig) gin.HandlerFunc {
	if len(cfg.AllowOrigins) == 0 {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	cc := cors.Config{
		AllowMethods:     cfg.AllowMethods,
		AllowHeaders:     cfg.AllowHeaders,
		ExposeHeaders:    cfg.ExposeHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			cc.AllowAllOrigins = true
			// browsers refuse credentials with a wildcard origin
			cc.AllowCredentials = false
			break
		}
	}
	if !cc.AllowAllOrigins {
		cc.AllowOrigins = cfg.AllowOrigins
	}
	return cors.New(cc)
}

// RequestContext assigns the request and correlation ids and seeds the request
// context logger with them. The correlation id defaults to the request id and is
// carried onto audit records and outbox events.
func RequestContext(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := truncate(c.GetHeader(HeaderRequestID), MaxRequestIDLength)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		correlationID := truncate(c.GetHeader(HeaderCorrelationID), MaxRequestIDLength)
		if correlationID == "" {
			correlationID = requestID
		}

		c.Set(RequestIDKey, requestID)
		c.Set(CorrelationIDKey, correlationID)
		c.Writer.Header().Set(HeaderRequestID, requestID)
		c.Writer.Header().Set(HeaderCorrelationID, correlationID)

		ctx := logger.WithLogger(c.Request.Context(), base)
		ctx = logger.WithScope(ctx, func(s *logger.Scope) {
			s.RequestID = requestID
			s.CorrelationID = correlationID
		})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// Secure adds the standard security headers to responses
func Secure() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Next()
	}
}

// GetRequestID returns the request id set by RequestContext
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// GetCorrelationID returns the correlation id set by RequestContext
func GetCorrelationID(c *gin.Context) string {
	return c.GetString(CorrelationIDKey)
}

func truncate(s string, limit int) string {
	if len(s) > limit {
		return s[:limit]
	}
	return s
}
