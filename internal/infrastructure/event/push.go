package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/erp/ledger/internal/domain/shared"
	"go.uber.org/zap"
)

// PushRequest is the body Pub/Sub POSTs to a push endpoint.
// encoding/json decodes the base64 data field straight into bytes.
type PushRequest struct {
	Message struct {
		Data        []byte            `json:"data"`
		MessageID   string            `json:"messageId"`
		Attributes  map[string]string `json:"attributes"`
		PublishTime string            `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// DecodePushRequest extracts the envelope from a push body
func DecodePushRequest(body []byte) (*PushRequest, *Envelope, error) {
	var req PushRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if len(req.Message.Data) == 0 {
		return nil, nil, fmt.Errorf("%w: message.data is empty", ErrInvalidEnvelope)
	}

	var env Envelope
	if err := json.Unmarshal(req.Message.Data, &env); err != nil {
		return &req, nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if err := env.Validate(); err != nil {
		return &req, nil, err
	}
	return &req, &env, nil
}

// PushConsumer turns push deliveries into handler calls, once per event id
type PushConsumer struct {
	serializer *EventSerializer
	bus        *InMemoryEventBus
	handler    *DedupHandler
	logger     *zap.Logger
}

// NewPushConsumer creates a consumer dispatching to bus. Deduplication spans
// the whole bus, so a redelivered event reaches none of its handlers twice.
func NewPushConsumer(serializer *EventSerializer, bus *InMemoryEventBus, store shared.ConsumedEventStore, cfg shared.DedupConfig, logger *zap.Logger) *PushConsumer {
	return &PushConsumer{
		serializer: serializer,
		bus:        bus,
		handler:    NewDedupHandler(busHandler{bus: bus}, store, cfg, logger),
		logger:     logger,
	}
}

// Consume processes one push body.
// Malformed bodies return ErrInvalidEnvelope. Events with no registered type or
// no handler are acknowledged and dropped. Handler failures are returned so the
// endpoint answers non-2xx and Pub/Sub redelivers.
func (c *PushConsumer) Consume(ctx context.Context, body []byte) error {
	req, env, err := DecodePushRequest(body)
	if err != nil {
		return err
	}

	logger := c.logger.With(
		zap.String("event_id", env.EventID),
		zap.String("event_type", env.EventType),
		zap.String("tenant_id", env.CompanyID),
		zap.String("message_id", req.Message.MessageID),
	)

	if !c.bus.HasHandlers(env.EventType) {
		logger.Debug("no handler for pushed event, acknowledging")
		return nil
	}

	event, err := env.Decode(c.serializer)
	if errors.Is(err, ErrUnknownEventType) {
		logger.Warn("dropping pushed event of unregistered type")
		return nil
	}
	if err != nil {
		return err
	}

	return c.handler.Handle(ctx, event)
}

// Stats returns the consumer's dedupe counters
func (c *PushConsumer) Stats() DedupStats {
	return c.handler.Stats()
}

// busHandler adapts the bus to a single EventHandler for the dedup wrapper
type busHandler struct {
	bus *InMemoryEventBus
}

func (h busHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	return h.bus.Publish(ctx, event)
}

func (h busHandler) EventTypes() []string {
	return nil
}
