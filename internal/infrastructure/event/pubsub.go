package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/config"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// NewPubSubClient connects to Pub/Sub, or to the emulator when one is configured
func NewPubSubClient(ctx context.Context, cfg config.PubSubConfig, opts ...option.ClientOption) (*pubsub.Client, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("pubsub project id is required")
	}
	if cfg.EmulatorHost != "" {
		opts = append(opts,
			option.WithEndpoint(cfg.EmulatorHost),
			option.WithoutAuthentication(),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client (project_id=%s): %w", cfg.ProjectID, err)
	}
	return client, nil
}

// EnsureTopic returns the topic, creating it when missing
func EnsureTopic(ctx context.Context, client *pubsub.Client, topicID string) (*pubsub.Topic, error) {
	if topicID == "" {
		return nil, errors.New("pubsub topic is required")
	}
	topic := client.Topic(topicID)
	ok, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check topic %q: %w", topicID, err)
	}
	if ok {
		return topic, nil
	}
	topic, err = client.CreateTopic(ctx, topicID)
	if err != nil {
		return nil, fmt.Errorf("create topic %q: %w", topicID, err)
	}
	return topic, nil
}

// PubSubPublisher is the outbox sink that sends envelopes to a Pub/Sub topic
type PubSubPublisher struct {
	topic      *pubsub.Topic
	serializer *EventSerializer
	source     string
	logger     *zap.Logger
}

// NewPubSubPublisher creates a publisher on topic
func NewPubSubPublisher(topic *pubsub.Topic, serializer *EventSerializer, source string, logger *zap.Logger) *PubSubPublisher {
	if source == "" {
		source = DefaultEventSource
	}
	return &PubSubPublisher{
		topic:      topic,
		serializer: serializer,
		source:     source,
		logger:     logger,
	}
}

// Publish sends every event and waits for the server acknowledgements
func (p *PubSubPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	results := make([]*pubsub.PublishResult, 0, len(events))
	for _, event := range events {
		payload, err := p.serializer.Serialize(event)
		if err != nil {
			return err
		}
		data, err := json.Marshal(NewEnvelope(event, payload, p.source))
		if err != nil {
			return fmt.Errorf("marshal envelope: %w", err)
		}
		results = append(results, p.topic.Publish(ctx, &pubsub.Message{
			Data: data,
			Attributes: map[string]string{
				"eventId":   event.EventID().String(),
				"eventType": event.EventType(),
				"companyId": event.TenantID().String(),
			},
		}))
	}

	var errs []error
	for i, result := range results {
		serverID, err := result.Get(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", events[i].EventID(), err))
			continue
		}
		p.logger.Debug("event published to pubsub",
			zap.String("event_id", events[i].EventID().String()),
			zap.String("event_type", events[i].EventType()),
			zap.String("message_id", serverID),
		)
	}
	return errors.Join(errs...)
}

// Stop flushes pending messages
func (p *PubSubPublisher) Stop() {
	p.topic.Stop()
}

var _ shared.EventPublisher = (*PubSubPublisher)(nil)
