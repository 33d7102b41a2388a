package middleware

import (
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CompanyParam is the route parameter that names the tenant
const CompanyParam = "id"

// CompanyScope binds the request to the company in the path. Every query a
// handler runs is filtered by this tenant id.
func CompanyScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		companyID, err := uuid.Parse(c.Param(CompanyParam))
		if err != nil {
			abort(c, shared.CodeInvalidInput, "Invalid company ID")
			return
		}

		if claims := GetJWTClaims(c); claims != nil && !claims.AllowsCompany(companyID) {
			abort(c, shared.CodeForbidden, "Token is not valid for this company")
			return
		}

		c.Set(TenantIDKey, companyID)
		c.Request = c.Request.WithContext(logger.WithScope(c.Request.Context(), func(s *logger.Scope) {
			s.TenantID = companyID.String()
		}))
		c.Next()
	}
}

// GetTenantID returns the company bound by CompanyScope
func GetTenantID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(TenantIDKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}
