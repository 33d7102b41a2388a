package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Entry is an append-only record of one successful mutating command
type Entry struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	Actor          string
	Action         string
	EntityType     string
	EntityID       uuid.UUID
	IdempotencyKey string
	CorrelationID  string
	Metadata       json.RawMessage
	CreatedAt      time.Time
}

// NewEntry creates an audit entry; metadata is marshalled to JSON
func NewEntry(tenantID uuid.UUID, actor, action, entityType string, entityID uuid.UUID, idempotencyKey, correlationID string, metadata map[string]any) (*Entry, error) {
	var raw json.RawMessage
	if len(metadata) > 0 {
		b, err := json.Marshal(metadata)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	if actor == "" {
		actor = "system"
	}
	return &Entry{
		ID:             uuid.New(),
		TenantID:       tenantID,
		Actor:          actor,
		Action:         action,
		EntityType:     entityType,
		EntityID:       entityID,
		IdempotencyKey: idempotencyKey,
		CorrelationID:  correlationID,
		Metadata:       raw,
		CreatedAt:      time.Now(),
	}, nil
}

// Repository is the write contract for audit records
type Repository interface {
	// Append inserts the entry in the caller's transaction
	Append(ctx context.Context, entry *Entry) error

	// ListByEntity returns the trail of one entity, oldest first
	ListByEntity(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID) ([]*Entry, error)

	// CountByIdempotencyKey counts the records produced by one command
	CountByIdempotencyKey(ctx context.Context, tenantID uuid.UUID, key string) (int64, error)
}
