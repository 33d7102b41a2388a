package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Status of a command execution
type Status string

const (
	StatusStarted   Status = "STARTED"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
)

// Record stores the outcome of one command keyed by (tenant, key)
type Record struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	Key           string
	Action        string
	RequestHash   string
	Status        Status
	Response      json.RawMessage
	ErrorCode     string
	ErrorMessage  string
	ErrorDetails  json.RawMessage
	CorrelationID string
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

// NewRecord creates a STARTED record
func NewRecord(tenantID uuid.UUID, key, action, requestHash, correlationID string) *Record {
	return &Record{
		ID:            uuid.New(),
		TenantID:      tenantID,
		Key:           key,
		Action:        action,
		RequestHash:   requestHash,
		Status:        StatusStarted,
		CorrelationID: correlationID,
		CreatedAt:     time.Now(),
	}
}

// Succeed stores the response
func (r *Record) Succeed(response json.RawMessage) {
	now := time.Now()
	r.Status = StatusSucceeded
	r.Response = response
	r.CompletedAt = &now
}

// Fail stores a business failure so a replay returns the same error
func (r *Record) Fail(err *shared.DomainError) {
	now := time.Now()
	r.Status = StatusFailed
	r.ErrorCode = err.Code
	r.ErrorMessage = err.Message
	if len(err.Details) > 0 {
		if b, mErr := json.Marshal(err.Details); mErr == nil {
			r.ErrorDetails = b
		}
	}
	r.CompletedAt = &now
}

// IsComplete reports whether the record holds a final outcome
func (r *Record) IsComplete() bool {
	return r.Status == StatusSucceeded || r.Status == StatusFailed
}

// Matches reports whether a retry targets the same operation
func (r *Record) Matches(action, requestHash string) bool {
	if r.Action != action {
		return false
	}
	return r.RequestHash == "" || requestHash == "" || r.RequestHash == requestHash
}

// StoredError rebuilds the recorded business failure
func (r *Record) StoredError() *shared.DomainError {
	err := shared.NewDomainError(r.ErrorCode, r.ErrorMessage)
	if len(r.ErrorDetails) > 0 {
		var details map[string]any
		if json.Unmarshal(r.ErrorDetails, &details) == nil {
			err = err.WithDetails(details)
		}
	}
	return err
}

// HashRequest fingerprints a request body
func HashRequest(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Errors raised by the executor
var (
	ErrMissingKey = shared.NewDomainError(shared.CodeMissingIdempotencyKey, "Idempotency-Key header is required for this operation")
	ErrKeyReused  = shared.NewDomainError(shared.CodeIdempotencyKeyReused, "Idempotency key was already used for a different request")
	ErrInProgress = shared.NewDomainError(shared.CodeIdempotencyInProgress, "A request with this idempotency key is still being processed")
)

// Repository persists idempotency records
type Repository interface {
	// Find returns the record for (tenant, key) or nil
	Find(ctx context.Context, tenantID uuid.UUID, key string) (*Record, error)

	// Claim inserts a STARTED record. It returns ErrInProgress when the key already exists.
	Claim(ctx context.Context, record *Record) error

	// Complete writes the final outcome
	Complete(ctx context.Context, record *Record) error

	// DeleteOlderThan purges expired records
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}
