package dto

import (
	"net/http"

	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/procurement"
	"github.com/erp/ledger/internal/domain/shared"
)

// Transport error codes. Domain codes are sent to clients unchanged.
const (
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeInvalidJSON     = "INVALID_JSON"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeRouteNotFound   = "ROUTE_NOT_FOUND"
)

// RetryAfterSeconds is sent with every retryable conflict
const RetryAfterSeconds = "1"

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRouteNotFound:   http.StatusNotFound,

	// Request shape -> 400
	ErrCodeValidation:                http.StatusBadRequest,
	ErrCodeBadRequest:                http.StatusBadRequest,
	ErrCodeInvalidJSON:               http.StatusBadRequest,
	shared.CodeInvalidInput:          http.StatusBadRequest,
	shared.CodeMissingIdempotencyKey: http.StatusBadRequest,

	// Auth
	shared.CodeUnauthorized: http.StatusUnauthorized,
	shared.CodeForbidden:    http.StatusForbidden,

	// Resource lookups. Only the addressed resource is a 404; referenced
	// master data that does not exist is a validation failure.
	shared.CodeNotFound:            http.StatusNotFound,
	ledger.CodeAccountNotFound:     http.StatusBadRequest,
	inventory.CodeItemNotFound:     http.StatusBadRequest,
	inventory.CodeLocationNotFound: http.StatusBadRequest,

	// State conflicts and business rules -> 400 with details
	shared.CodeInvalidState:           http.StatusBadRequest,
	shared.CodePeriodClosed:           http.StatusBadRequest,
	shared.CodeUnbalancedEntry:        http.StatusBadRequest,
	shared.CodeRoundingMismatch:       http.StatusBadRequest,
	shared.CodeExceedsRemaining:       http.StatusBadRequest,
	shared.CodeTrackedItemNeedReceipt: http.StatusBadRequest,
	shared.CodeHasLinkedDocuments:     http.StatusBadRequest,
	shared.CodeInsufficientStock:      http.StatusBadRequest,
	ledger.CodeAccountInactive:        http.StatusBadRequest,
	ledger.CodeInvalidLine:            http.StatusBadRequest,
	procurement.CodeNoLines:           http.StatusBadRequest,
	procurement.CodeInvalidLine:       http.StatusBadRequest,
	procurement.CodeNothingToReceive:  http.StatusBadRequest,
	procurement.CodeNoTrackedLines:    http.StatusBadRequest,
	procurement.CodeNotTrackedLine:    http.StatusBadRequest,
	procurement.CodeOverpayment:       http.StatusBadRequest,
	procurement.CodeUnknownOrderLine:  http.StatusBadRequest,
	procurement.CodeInvalidDiscount:   http.StatusBadRequest,
	procurement.CodeReceiptNotPosted:  http.StatusBadRequest,
	procurement.CodeReceiptBilled:     http.StatusBadRequest,
	procurement.CodeVendorRequired:    http.StatusBadRequest,
	procurement.CodeLocationRequired:  http.StatusBadRequest,
	procurement.CodeOrderDateRequired: http.StatusBadRequest,

	// Concurrency -> 409 (+ Retry-After when retryable)
	shared.CodeAlreadyExists:         http.StatusConflict,
	shared.CodeConcurrencyConflict:   http.StatusConflict,
	shared.CodeLockNotAcquired:       http.StatusConflict,
	shared.CodeIdempotencyInProgress: http.StatusConflict,

	// Same key, different request
	shared.CodeIdempotencyKeyReused: http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unlisted codes are domain rule violations and map to 400.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusBadRequest
}

// IsRetryableCode reports whether clients should retry the same request later
func IsRetryableCode(code string) bool {
	switch code {
	case shared.CodeConcurrencyConflict, shared.CodeLockNotAcquired, shared.CodeIdempotencyInProgress:
		return true
	}
	return false
}
