package shared

import (
	"time"

	"github.com/google/uuid"
)

// AggregateRoot holds the events raised by its state changes until a command
// collects them into the outbox
type AggregateRoot interface {
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// TenantAggregateRoot is the identity and version of an aggregate owned by one company.
// Repositories compare Version on save; a stale copy is a CONCURRENCY_CONFLICT.
type TenantAggregateRoot struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time

	events []DomainEvent
}

// NewTenantAggregateRoot starts a fresh aggregate at version 1
func NewTenantAggregateRoot(tenantID uuid.UUID) TenantAggregateRoot {
	now := time.Now()
	return RestoreTenantAggregateRoot(uuid.New(), tenantID, 1, now, now)
}

// RestoreTenantAggregateRoot rebuilds a stored aggregate's root; no events are pending
func RestoreTenantAggregateRoot(id, tenantID uuid.UUID, version int, createdAt, updatedAt time.Time) TenantAggregateRoot {
	return TenantAggregateRoot{ID: id, TenantID: tenantID, Version: version, CreatedAt: createdAt, UpdatedAt: updatedAt}
}

func (a *TenantAggregateRoot) IncrementVersion() { a.Version++ }

// AddDomainEvent queues event until the command writes it to the outbox
func (a *TenantAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.events = append(a.events, event)
}

func (a *TenantAggregateRoot) GetDomainEvents() []DomainEvent { return a.events }
func (a *TenantAggregateRoot) ClearDomainEvents()             { a.events = nil }
