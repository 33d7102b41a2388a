package shared

import "context"

// EventHandler reacts to committed domain events. Handlers must tolerate
// redelivery: the outbox is at-least-once.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the types the handler consumes; nil means every type.
	EventTypes() []string
}

// EventPublisher hands events to a delivery channel (in-process bus or Pub/Sub)
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventBus is an in-process publisher that handlers can subscribe to
type EventBus interface {
	EventPublisher
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
