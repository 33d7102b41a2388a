// Package handler holds the HTTP handlers of the ledger API.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/erp/ledger/internal/application/command"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a 200 response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.OK(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.Paged(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.OK(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response, deriving the status from the code
func (h *BaseHandler) Error(c *gin.Context, code, message string) {
	h.errorWithDetails(c, code, message, nil)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, dto.ErrCodeBadRequest, message)
}

func (h *BaseHandler) errorWithDetails(c *gin.Context, code, message string, details map[string]any) {
	if dto.IsRetryableCode(code) {
		c.Header(middleware.HeaderRetryAfter, dto.RetryAfterSeconds)
	}
	_ = c.Error(errors.New(code))
	c.JSON(dto.GetHTTPStatus(code), dto.Fail(code, message, middleware.GetRequestID(c)).WithDetails(details))
}

// HandleError converts an application error to an HTTP response.
// Domain errors keep their code and details; anything else is a 500 whose
// cause is logged but not sent to the client.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	if de, ok := shared.AsDomainError(err); ok {
		h.errorWithDetails(c, de.Code, de.Message, de.Details)
		return
	}

	logger.FromContext(c.Request.Context()).Error("request failed",
		zap.String("route", c.FullPath()),
		zap.Error(err),
	)
	h.Error(c, dto.ErrCodeInternal, "An unexpected error occurred")
}

// BindJSON decodes the body into req and validates it. It writes the 4xx
// response itself and returns false when the request is rejected.
func (h *BaseHandler) BindJSON(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}

	var (
		maxBytesErr *http.MaxBytesError
		syntaxErr   *json.SyntaxError
		typeErr     *json.UnmarshalTypeError
		validErrs   validator.ValidationErrors
	)
	switch {
	case errors.As(err, &maxBytesErr):
		h.Error(c, dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size")
	case errors.Is(err, io.EOF):
		h.Error(c, dto.ErrCodeInvalidJSON, "Request body is empty")
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		h.Error(c, dto.ErrCodeInvalidJSON, "Request body is not valid JSON")
	case errors.As(err, &typeErr):
		h.errorWithDetails(c, dto.ErrCodeInvalidJSON, "Request body has a field of the wrong type",
			map[string]any{"field": typeErr.Field})
	case errors.As(err, &validErrs):
		_ = c.Error(errors.New(dto.ErrCodeValidation))
		middleware.HandleValidationError(c, err)
	default:
		// decimal and time parse failures surface as plain errors
		h.errorWithDetails(c, dto.ErrCodeInvalidJSON, "Request body could not be decoded",
			map[string]any{"reason": err.Error()})
	}
	return false
}

// BindOptionalJSON is BindJSON for endpoints whose body may be omitted
func (h *BaseHandler) BindOptionalJSON(c *gin.Context, req any) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	return h.BindJSON(c, req)
}

// PathUUID parses a UUID route parameter, answering 400 when it is malformed
func (h *BaseHandler) PathUUID(c *gin.Context, param, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		h.errorWithDetails(c, shared.CodeInvalidInput, "Invalid "+label+" ID",
			map[string]any{"param": param, "value": c.Param(param)})
		return uuid.Nil, false
	}
	return id, true
}

// Tenant returns the company bound by middleware.CompanyScope
func (h *BaseHandler) Tenant(c *gin.Context) (uuid.UUID, bool) {
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		h.Error(c, shared.CodeInvalidInput, "Company is not set")
	}
	return tenantID, ok
}

// Command builds the metadata of a mutating request: the company, the
// idempotency key, the correlation id and the acting principal.
func (h *BaseHandler) Command(c *gin.Context) (command.Command, bool) {
	tenantID, ok := h.Tenant(c)
	if !ok {
		return command.Command{}, false
	}
	key := middleware.GetIdempotencyKey(c)
	if key == "" {
		h.Error(c, shared.CodeMissingIdempotencyKey, "Idempotency-Key header is required")
		return command.Command{}, false
	}
	return command.Command{
		TenantID:       tenantID,
		IdempotencyKey: key,
		CorrelationID:  middleware.GetCorrelationID(c),
		Actor:          middleware.GetActor(c),
	}, true
}
