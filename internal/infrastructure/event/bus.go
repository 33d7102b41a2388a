package event

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/ledger/internal/domain/shared"
	"go.uber.org/zap"
)

// InMemoryEventBus delivers events to in-process subscribers synchronously.
// The outbox processor publishes to it when Pub/Sub is off, and the push
// consumer feeds Pub/Sub deliveries into it when Pub/Sub is on.
type InMemoryEventBus struct {
	subs   *subscriptions
	logger *zap.Logger
}

// NewInMemoryEventBus creates an empty bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{subs: newSubscriptions(), logger: logger}
}

// Publish runs every matching handler for every event. A failing handler
// does not stop the others; the failures come back joined so the outbox
// entry is retried as a whole.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	var errs []error
	for _, ev := range events {
		for _, h := range b.subs.route(ev.EventType()) {
			if err := b.deliver(ctx, h, ev); err != nil {
				b.logger.Error("event handler failed", append(eventFields(ev), zap.Error(err))...)
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// HasHandlers reports whether an event of this type would reach anyone
func (b *InMemoryEventBus) HasHandlers(eventType string) bool {
	return len(b.subs.route(eventType)) > 0
}

// Subscribe registers h for eventTypes, or for h.EventTypes() when none are given
func (b *InMemoryEventBus) Subscribe(h shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = h.EventTypes()
	}
	b.subs.add(h, eventTypes)
	b.logger.Debug("event handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe drops every subscription of h
func (b *InMemoryEventBus) Unsubscribe(h shared.EventHandler) {
	b.subs.remove(h)
}

// Start is a no-op beyond logging the routing table; delivery is synchronous
func (b *InMemoryEventBus) Start(context.Context) error {
	b.logger.Info("event bus started", zap.Strings("routed_types", b.subs.types()))
	return nil
}

// Stop is a no-op; there is no background delivery to drain
func (b *InMemoryEventBus) Stop(context.Context) error {
	b.logger.Info("event bus stopped")
	return nil
}

func (b *InMemoryEventBus) deliver(ctx context.Context, h shared.EventHandler, ev shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", append(eventFields(ev), zap.Any("panic", r))...)
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.Handle(ctx, ev)
}

// eventFields identifies an event in logs, including its command correlation when traced
func eventFields(ev shared.DomainEvent) []zap.Field {
	fields := []zap.Field{
		zap.String("event_type", ev.EventType()),
		zap.String("event_id", ev.EventID().String()),
		zap.String("tenant_id", ev.TenantID().String()),
	}
	if traced, ok := ev.(shared.TracedEvent); ok && traced.CorrelationID() != "" {
		fields = append(fields, zap.String("correlation_id", traced.CorrelationID()))
	}
	return fields
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
