package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a fact raised by an aggregate, published after commit
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	TenantID() uuid.UUID
}

// VersionedEvent carries the version of its payload schema
type VersionedEvent interface {
	DomainEvent
	SchemaVersion() int
}

// TracedEvent carries the correlation of the command that raised it. The
// causation id is the command's idempotency key.
type TracedEvent interface {
	DomainEvent
	CorrelationID() string
	CausationID() string
	SetTrace(correlationID, causationID string)
}

// EventMeta is embedded by every domain event. Its JSON keys sit next to the
// event's own fields in the serialized payload.
type EventMeta struct {
	ID          uuid.UUID `json:"eventId"`
	Type        string    `json:"type"`
	At          time.Time `json:"occurredAt"`
	Aggregate   uuid.UUID `json:"aggregateId"`
	Kind        string    `json:"aggregateType"`
	Tenant      uuid.UUID `json:"tenantId"`
	Version     int       `json:"schemaVersion,omitempty"`
	Correlation string    `json:"correlationId,omitempty"`
	Causation   string    `json:"causationId,omitempty"`
}

// NewEventMeta stamps a fresh id and the current time at schema version 1
func NewEventMeta(eventType, aggregateType string, aggregateID, tenantID uuid.UUID) EventMeta {
	return EventMeta{
		ID:        uuid.New(),
		Type:      eventType,
		At:        time.Now().UTC(),
		Aggregate: aggregateID,
		Kind:      aggregateType,
		Tenant:    tenantID,
		Version:   1,
	}
}

func (m *EventMeta) EventID() uuid.UUID     { return m.ID }
func (m *EventMeta) EventType() string      { return m.Type }
func (m *EventMeta) OccurredAt() time.Time  { return m.At }
func (m *EventMeta) AggregateID() uuid.UUID { return m.Aggregate }
func (m *EventMeta) AggregateType() string  { return m.Kind }
func (m *EventMeta) TenantID() uuid.UUID    { return m.Tenant }
func (m *EventMeta) CorrelationID() string  { return m.Correlation }
func (m *EventMeta) CausationID() string    { return m.Causation }

// SchemaVersion is 1 for payloads written before versioning
func (m *EventMeta) SchemaVersion() int {
	return max(m.Version, 1)
}

func (m *EventMeta) SetTrace(correlationID, causationID string) {
	m.Correlation = correlationID
	m.Causation = causationID
}

// Meta exposes the embedded metadata so decoders can fill gaps from a
// transport envelope
func (m *EventMeta) Meta() *EventMeta {
	return m
}
