package shared

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is the delivery state of an outbox row.
//
//	PENDING -> PROCESSING -> SENT
//	              |
//	              v
//	           FAILED -> PROCESSING ...   (until MaxAttempts)
//	              |
//	              v
//	            DEAD -> PENDING           (manual revive)
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	OutboxStatusDead       OutboxStatus = "DEAD"
)

const (
	DefaultMaxAttempts = 5
	DefaultBaseBackoff = time.Second
	// MaxBackoff caps the delay between two delivery attempts
	MaxBackoff = 5 * time.Minute
)

var (
	ErrOutboxNotClaimable = errors.New("outbox entry is not pending or failed")
	ErrOutboxNotDead      = errors.New("only dead outbox entries can be revived")
)

// OutboxEntry is a serialized domain event waiting to be published. It is
// written in the same transaction as the state change that raised the event.
type OutboxEntry struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	EventID       uuid.UUID
	EventType     string
	AggregateID   uuid.UUID
	AggregateType string
	SchemaVersion int
	CorrelationID string
	CausationID   string
	OccurredAt    time.Time
	Payload       []byte
	Status        OutboxStatus
	Attempts      int
	MaxAttempts   int
	LastError     string
	RetryAt       *time.Time
	SentAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOutboxEntry wraps an already serialized event
func NewOutboxEntry(tenantID uuid.UUID, event DomainEvent, payload []byte) *OutboxEntry {
	now := time.Now()
	entry := &OutboxEntry{
		ID:            uuid.New(),
		TenantID:      tenantID,
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		SchemaVersion: 1,
		OccurredAt:    event.OccurredAt(),
		Payload:       payload,
		Status:        OutboxStatusPending,
		MaxAttempts:   DefaultMaxAttempts,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if v, ok := event.(VersionedEvent); ok {
		entry.SchemaVersion = v.SchemaVersion()
	}
	if t, ok := event.(TracedEvent); ok {
		entry.CorrelationID = t.CorrelationID()
		entry.CausationID = t.CausationID()
	}
	return entry
}

// Retryable reports whether a failed entry still has attempts left
func (e *OutboxEntry) Retryable() bool {
	return e.Status == OutboxStatusFailed && e.Attempts < e.MaxAttempts
}

// Due reports whether the dispatcher may pick the entry up at now
func (e *OutboxEntry) Due(now time.Time) bool {
	switch e.Status {
	case OutboxStatusPending:
		return true
	case OutboxStatusFailed:
		return e.RetryAt == nil || !e.RetryAt.After(now)
	}
	return false
}

// Claim moves a pending or failed entry to processing
func (e *OutboxEntry) Claim(now time.Time) error {
	if e.Status != OutboxStatusPending && e.Status != OutboxStatusFailed {
		return ErrOutboxNotClaimable
	}
	e.Status = OutboxStatusProcessing
	e.UpdatedAt = now
	return nil
}

// MarkSent records a successful publish
func (e *OutboxEntry) MarkSent(now time.Time) {
	e.Status = OutboxStatusSent
	e.SentAt = &now
	e.RetryAt = nil
	e.UpdatedAt = now
}

// MarkFailed records a failed publish. The entry is scheduled again after
// Backoff(Attempts) or goes dead once MaxAttempts is reached.
func (e *OutboxEntry) MarkFailed(now time.Time, cause error) {
	e.Attempts++
	e.UpdatedAt = now
	if cause != nil {
		e.LastError = cause.Error()
	}
	if e.Attempts >= e.MaxAttempts {
		e.Status = OutboxStatusDead
		e.RetryAt = nil
		return
	}
	e.Status = OutboxStatusFailed
	at := now.Add(Backoff(e.Attempts))
	e.RetryAt = &at
}

// Revive puts a dead entry back in the queue with a fresh attempt budget
func (e *OutboxEntry) Revive(now time.Time) error {
	if e.Status != OutboxStatusDead {
		return ErrOutboxNotDead
	}
	e.Status = OutboxStatusPending
	e.Attempts = 0
	e.LastError = ""
	e.RetryAt = nil
	e.UpdatedAt = now
	return nil
}

// IsDead reports whether the entry ran out of attempts
func (e *OutboxEntry) IsDead() bool {
	return e.Status == OutboxStatusDead
}

// Backoff is the delay after the given number of failed attempts:
// 1s, 2s, 4s ... capped at MaxBackoff.
func Backoff(attempts int) time.Duration {
	if attempts < 1 {
		return 0
	}
	d := DefaultBaseBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= MaxBackoff {
			return MaxBackoff
		}
	}
	return d
}

// OutboxRepository persists outbox entries.
// Dispatcher methods span tenants; the inspection methods are tenant scoped.
type OutboxRepository interface {
	Save(ctx context.Context, entries ...*OutboxEntry) error
	// ClaimDue locks pending and due failed entries, skipping rows claimed by
	// another dispatcher, and marks them processing
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*OutboxEntry, error)
	// RequeueStale returns processing entries untouched since before to pending
	RequeueStale(ctx context.Context, before time.Time) (int64, error)
	Update(ctx context.Context, entry *OutboxEntry) error
	// DeleteOlderThan drops entries sent before the given time
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
	FindDead(ctx context.Context, tenantID uuid.UUID, page, pageSize int) ([]*OutboxEntry, int64, error)
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*OutboxEntry, error)
	CountByStatus(ctx context.Context, tenantID uuid.UUID) (map[OutboxStatus]int64, error)
}
