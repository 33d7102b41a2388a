package middleware

import (
	"net/http"
	"strings"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/gin-gonic/gin"
)

// MaxIdempotencyKeyLength bounds the stored key column
const MaxIdempotencyKeyLength = 255

// RequireIdempotencyKey rejects mutating requests without an Idempotency-Key header.
// The trimmed key is stored under IdempotencyKeyKey for the handlers.
func RequireIdempotencyKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isMutating(c.Request.Method) {
			c.Next()
			return
		}

		key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
		if key == "" {
			abort(c, shared.CodeMissingIdempotencyKey, "Idempotency-Key header is required")
			return
		}
		if len(key) > MaxIdempotencyKeyLength {
			abort(c, shared.CodeInvalidInput, "Idempotency-Key header is too long")
			return
		}

		c.Set(IdempotencyKeyKey, key)
		c.Next()
	}
}

// GetIdempotencyKey returns the key accepted by RequireIdempotencyKey
func GetIdempotencyKey(c *gin.Context) string {
	return c.GetString(IdempotencyKeyKey)
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
