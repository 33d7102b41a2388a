package shared

import (
	"errors"
	"maps"
	"strings"
)

// DomainError represents a domain-level error.
// Details carries machine readable context (expected/actual status, requested/remaining quantity)
// that the HTTP layer returns verbatim.
type DomainError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code.
// This lets callers match on the sentinel values below with errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetails returns a copy of the error carrying the given details
func (e *DomainError) WithDetails(details map[string]any) *DomainError {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+len(details))
	maps.Copy(cp.Details, e.Details)
	maps.Copy(cp.Details, details)
	return &cp
}

// WithCause returns a copy of the error wrapping cause
func (e *DomainError) WithCause(cause error) *DomainError {
	cp := *e
	cp.Err = cause
	return &cp
}

// Retryable reports whether the caller may retry the same command
func (e *DomainError) Retryable() bool {
	switch e.Code {
	case CodeConcurrencyConflict, CodeLockNotAcquired, CodeIdempotencyInProgress:
		return true
	}
	return false
}

// IsNotFound reports whether the error names a missing resource (NOT_FOUND, ITEM_NOT_FOUND, ...)
func (e *DomainError) IsNotFound() bool {
	return strings.HasSuffix(e.Code, CodeNotFound)
}

// IsNotFound reports whether err carries a *_NOT_FOUND domain error
func IsNotFound(err error) bool {
	de, ok := AsDomainError(err)
	return ok && de.IsNotFound()
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewStateConflictError reports that an operation needs the document in one of expected states
func NewStateConflictError(entity, action, actual string, expected ...string) *DomainError {
	return NewDomainError(CodeInvalidState, "Cannot "+action+" "+entity+" in status "+actual).
		WithDetails(map[string]any{
			"expected": expected,
			"actual":   actual,
		})
}

// AsDomainError extracts a DomainError from an error chain
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Error codes shared across bounded contexts
const (
	CodeNotFound               = "NOT_FOUND"
	CodeAlreadyExists          = "ALREADY_EXISTS"
	CodeInvalidInput           = "INVALID_INPUT"
	CodeInvalidState           = "INVALID_STATE"
	CodeConcurrencyConflict    = "CONCURRENCY_CONFLICT"
	CodeLockNotAcquired        = "LOCK_NOT_ACQUIRED"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeForbidden              = "FORBIDDEN"
	CodeInsufficientStock      = "INSUFFICIENT_STOCK"
	CodeMissingIdempotencyKey  = "MISSING_IDEMPOTENCY_KEY"
	CodeIdempotencyKeyReused   = "IDEMPOTENCY_KEY_REUSED"
	CodeIdempotencyInProgress  = "IDEMPOTENCY_IN_PROGRESS"
	CodePeriodClosed           = "PERIOD_CLOSED"
	CodeUnbalancedEntry        = "UNBALANCED_ENTRY"
	CodeRoundingMismatch       = "ROUNDING_MISMATCH"
	CodeExceedsRemaining       = "EXCEEDS_REMAINING_QUANTITY"
	CodeTrackedItemNeedReceipt = "TRACKED_ITEM_REQUIRES_RECEIPT"
	CodeHasLinkedDocuments     = "HAS_LINKED_DOCUMENTS"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrLockNotAcquired     = NewDomainError(CodeLockNotAcquired, "Resource is locked by another command, retry later")
	ErrUnauthorized        = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
	ErrForbidden           = NewDomainError(CodeForbidden, "Access to this resource is forbidden")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrInsufficientStock   = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
)
