package event

import (
	"context"

	"github.com/erp/ledger/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxPublisher stages domain events as outbox rows inside the caller's
// transaction, so the events commit or roll back with the state change.
type OutboxPublisher struct {
	serializer  *EventSerializer
	maxAttempts int
}

// NewOutboxPublisher creates a publisher whose rows get maxAttempts delivery
// attempts. Zero or less keeps shared.DefaultMaxAttempts.
func NewOutboxPublisher(serializer *EventSerializer, maxAttempts int) *OutboxPublisher {
	if maxAttempts <= 0 {
		maxAttempts = shared.DefaultMaxAttempts
	}
	return &OutboxPublisher{serializer: serializer, maxAttempts: maxAttempts}
}

func (p *OutboxPublisher) PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	rows := make([]*shared.OutboxEntry, len(events))
	for i, ev := range events {
		payload, err := p.serializer.Serialize(ev)
		if err != nil {
			return err
		}
		rows[i] = shared.NewOutboxEntry(ev.TenantID(), ev, payload)
		rows[i].MaxAttempts = p.maxAttempts
	}
	return NewGormOutboxRepository(tx).Save(ctx, rows...)
}
