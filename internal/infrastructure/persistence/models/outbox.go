package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// OutboxEntryModel is one row of outbox_events. The dispatcher scans by
// (status, created_at) and retry_at; the inspection endpoints by tenant.
type OutboxEntryModel struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID           `gorm:"type:uuid;not null;index:idx_outbox_tenant_status,priority:1"`
	EventID       uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex"`
	EventType     string              `gorm:"type:varchar(255);not null"`
	AggregateID   uuid.UUID           `gorm:"type:uuid;not null"`
	AggregateType string              `gorm:"type:varchar(255);not null"`
	SchemaVersion int                 `gorm:"not null;default:1"`
	CorrelationID string              `gorm:"type:varchar(100);index"`
	CausationID   string              `gorm:"type:varchar(255)"`
	OccurredAt    time.Time           `gorm:"not null"`
	Payload       []byte              `gorm:"type:jsonb;not null"`
	Status        shared.OutboxStatus `gorm:"type:varchar(20);default:'PENDING';index:idx_outbox_tenant_status,priority:2;index:idx_outbox_status_created,priority:1"`
	Attempts      int                 `gorm:"not null;default:0"`
	MaxAttempts   int                 `gorm:"not null;default:5"`
	LastError     string              `gorm:"type:text"`
	RetryAt       *time.Time          `gorm:"index:idx_outbox_retry_at"`
	SentAt        *time.Time          `gorm:"index:idx_outbox_sent_at"`
	CreatedAt     time.Time           `gorm:"not null;index:idx_outbox_status_created,priority:2"`
	UpdatedAt     time.Time           `gorm:"not null"`
}

func (OutboxEntryModel) TableName() string {
	return "outbox_events"
}

// ToDomain converts the row back to an outbox entry. The row mirrors the
// entry field for field, so the two convert directly.
func (m *OutboxEntryModel) ToDomain() *shared.OutboxEntry {
	e := shared.OutboxEntry(*m)
	return &e
}

// OutboxEntryModelFromDomain creates the row for an outbox entry
func OutboxEntryModelFromDomain(e *shared.OutboxEntry) *OutboxEntryModel {
	m := OutboxEntryModel(*e)
	return &m
}
