package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// EnvelopeSchemaVersion is the only envelope layout this service reads and writes
const EnvelopeSchemaVersion = "v1"

// DefaultEventSource names this service in published envelopes
const DefaultEventSource = "ledger-api"

// ErrInvalidEnvelope is returned for push bodies that are not a decodable envelope
var ErrInvalidEnvelope = errors.New("invalid event envelope")

// Envelope is the wire format of events on the Pub/Sub topic
type Envelope struct {
	EventID       string          `json:"eventId"`
	EventType     string          `json:"eventType"`
	SchemaVersion string          `json:"schemaVersion"`
	OccurredAt    time.Time       `json:"occurredAt"`
	CompanyID     string          `json:"companyId"`
	Source        string          `json:"source"`
	CorrelationID string          `json:"correlationId,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope wraps a serialized event
func NewEnvelope(event shared.DomainEvent, payload []byte, source string) *Envelope {
	env := &Envelope{
		EventID:       event.EventID().String(),
		EventType:     event.EventType(),
		SchemaVersion: EnvelopeSchemaVersion,
		OccurredAt:    event.OccurredAt().UTC(),
		CompanyID:     event.TenantID().String(),
		Source:        source,
		Payload:       payload,
	}
	if t, ok := event.(shared.TracedEvent); ok {
		env.CorrelationID = t.CorrelationID()
	}
	return env
}

// Validate checks the fields every consumer relies on
func (e *Envelope) Validate() error {
	switch {
	case e.EventID == "":
		return fmt.Errorf("%w: eventId is required", ErrInvalidEnvelope)
	case e.EventType == "":
		return fmt.Errorf("%w: eventType is required", ErrInvalidEnvelope)
	case e.SchemaVersion != "" && e.SchemaVersion != EnvelopeSchemaVersion:
		return fmt.Errorf("%w: unsupported schemaVersion %q", ErrInvalidEnvelope, e.SchemaVersion)
	case len(e.Payload) == 0:
		return fmt.Errorf("%w: payload is required", ErrInvalidEnvelope)
	}
	return nil
}

// Decode deserializes the payload into its registered event type.
// Producers outside this service send bare payloads, so envelope metadata
// fills whatever the payload left empty.
func (e *Envelope) Decode(serializer *EventSerializer) (shared.DomainEvent, error) {
	event, err := serializer.Deserialize(e.EventType, e.Payload)
	if err != nil {
		return nil, err
	}

	carrier, ok := event.(interface{ Meta() *shared.EventMeta })
	if !ok {
		return event, nil
	}
	if err := e.fill(carrier.Meta()); err != nil {
		return nil, err
	}
	return event, nil
}

func (e *Envelope) fill(m *shared.EventMeta) error {
	if m.ID == uuid.Nil {
		id, err := uuid.Parse(e.EventID)
		if err != nil {
			return fmt.Errorf("%w: eventId %q is not a uuid", ErrInvalidEnvelope, e.EventID)
		}
		m.ID = id
	}
	if m.Tenant == uuid.Nil && e.CompanyID != "" {
		tenantID, err := uuid.Parse(e.CompanyID)
		if err != nil {
			return fmt.Errorf("%w: companyId %q is not a uuid", ErrInvalidEnvelope, e.CompanyID)
		}
		m.Tenant = tenantID
	}
	if m.Type == "" {
		m.Type = e.EventType
	}
	if m.At.IsZero() {
		m.At = e.OccurredAt
	}
	if m.Correlation == "" {
		m.Correlation = e.CorrelationID
	}
	return nil
}
