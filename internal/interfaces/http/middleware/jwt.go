package middleware

import (
	"errors"
	"strings"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/auth"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// JWT context keys
const (
	JWTClaimsKey  = "jwt_claims"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// AnonymousActor is recorded on audit entries when no bearer token was presented
const AnonymousActor = "anonymous"

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	// JWTService validates tokens. A nil service disables authentication.
	JWTService *auth.JWTService
	// Required rejects requests without a valid token; otherwise they run as AnonymousActor
	Required bool
	Logger   *zap.Logger
}

// JWTAuthMiddleware resolves the actor of the request from a bearer token.
// The actor ends up on the audit entry of every command the request runs.
func JWTAuthMiddleware(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		if cfg.JWTService == nil {
			setActor(c, AnonymousActor)
			c.Next()
			return
		}

		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			if cfg.Required {
				abort(c, shared.CodeUnauthorized, "Missing authorization header")
				return
			}
			setActor(c, AnonymousActor)
			c.Next()
			return
		}
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			abort(c, shared.CodeUnauthorized, "Invalid authorization header format")
			return
		}

		// A presented token must be valid even when authentication is optional
		claims, err := cfg.JWTService.ValidateToken(strings.TrimPrefix(authHeader, BearerPrefix))
		if err != nil {
			log.Warn("jwt rejected",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
			)
			abort(c, shared.CodeUnauthorized, authErrorMessage(err))
			return
		}

		c.Set(JWTClaimsKey, claims)
		setActor(c, claims.Actor())
		c.Next()
	}
}

func setActor(c *gin.Context, actor string) {
	c.Set(ActorKey, actor)
	c.Request = c.Request.WithContext(logger.WithScope(c.Request.Context(), func(s *logger.Scope) {
		s.Actor = actor
	}))
}

func authErrorMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token has expired"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		return "Token is not yet valid"
	case errors.Is(err, auth.ErrMissingSubject):
		return "Token has no subject"
	default:
		return "Invalid token"
	}
}

// GetJWTClaims retrieves JWT claims from gin.Context
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, exists := c.Get(JWTClaimsKey); exists {
		if jwtClaims, ok := claims.(*auth.Claims); ok {
			return jwtClaims
		}
	}
	return nil
}

// GetActor returns the actor resolved by JWTAuthMiddleware
func GetActor(c *gin.Context) string {
	if actor := c.GetString(ActorKey); actor != "" {
		return actor
	}
	return AnonymousActor
}
