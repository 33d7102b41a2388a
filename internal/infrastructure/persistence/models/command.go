package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/audit"
	"github.com/erp/ledger/internal/domain/idempotency"
	"github.com/erp/ledger/internal/domain/period"
	"github.com/google/uuid"
)

// AccountingPeriodModel is the persistence model for an accounting period
type AccountingPeriodModel struct {
	AggregateModel
	TenantID  uuid.UUID     `gorm:"type:uuid;not null;index:idx_period_range,priority:1"`
	Name      string        `gorm:"type:varchar(100);not null"`
	StartDate time.Time     `gorm:"type:date;not null;index:idx_period_range,priority:2"`
	EndDate   time.Time     `gorm:"type:date;not null;index:idx_period_range,priority:3"`
	Status    period.Status `gorm:"type:varchar(20);not null;default:'OPEN'"`
	ClosedAt  *time.Time
	ClosedBy  string `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (AccountingPeriodModel) TableName() string {
	return "accounting_periods"
}

// ToDomain converts the persistence model to a domain AccountingPeriod
func (m *AccountingPeriodModel) ToDomain() *period.AccountingPeriod {
	p := &period.AccountingPeriod{
		Name:      m.Name,
		StartDate: m.StartDate,
		EndDate:   m.EndDate,
		Status:    m.Status,
		ClosedAt:  m.ClosedAt,
		ClosedBy:  m.ClosedBy,
	}
	p.TenantAggregateRoot = m.root(m.TenantID)
	return p
}

// AccountingPeriodModelFromDomain creates a persistence model from a domain AccountingPeriod
func AccountingPeriodModelFromDomain(p *period.AccountingPeriod) *AccountingPeriodModel {
	m := &AccountingPeriodModel{
		Name:      p.Name,
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
		Status:    p.Status,
		ClosedAt:  p.ClosedAt,
		ClosedBy:  p.ClosedBy,
	}
	m.AggregateModel = newAggregateModel(p.TenantAggregateRoot)
	m.TenantID = p.TenantID
	return m
}

// IdempotencyRecordModel stores one command outcome keyed by (tenant, key)
type IdempotencyRecordModel struct {
	ID            uuid.UUID          `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_idempotency_tenant_key,priority:1"`
	Key           string             `gorm:"column:key;type:varchar(255);not null;uniqueIndex:idx_idempotency_tenant_key,priority:2"`
	Action        string             `gorm:"type:varchar(100);not null"`
	RequestHash   string             `gorm:"type:varchar(64)"`
	Status        idempotency.Status `gorm:"type:varchar(20);not null"`
	Response      []byte             `gorm:"type:jsonb"`
	ErrorCode     string             `gorm:"type:varchar(64)"`
	ErrorMessage  string             `gorm:"type:text"`
	ErrorDetails  []byte             `gorm:"type:jsonb"`
	CorrelationID string             `gorm:"type:varchar(100)"`
	CreatedAt     time.Time          `gorm:"not null;index"`
	CompletedAt   *time.Time
}

// TableName returns the table name for GORM
func (IdempotencyRecordModel) TableName() string {
	return "idempotency_records"
}

// ToDomain converts the persistence model to a domain Record
func (m *IdempotencyRecordModel) ToDomain() *idempotency.Record {
	return &idempotency.Record{
		ID:            m.ID,
		TenantID:      m.TenantID,
		Key:           m.Key,
		Action:        m.Action,
		RequestHash:   m.RequestHash,
		Status:        m.Status,
		Response:      m.Response,
		ErrorCode:     m.ErrorCode,
		ErrorMessage:  m.ErrorMessage,
		ErrorDetails:  m.ErrorDetails,
		CorrelationID: m.CorrelationID,
		CreatedAt:     m.CreatedAt,
		CompletedAt:   m.CompletedAt,
	}
}

// IdempotencyRecordModelFromDomain creates a persistence model from a domain Record
func IdempotencyRecordModelFromDomain(r *idempotency.Record) *IdempotencyRecordModel {
	return &IdempotencyRecordModel{
		ID:            r.ID,
		TenantID:      r.TenantID,
		Key:           r.Key,
		Action:        r.Action,
		RequestHash:   r.RequestHash,
		Status:        r.Status,
		Response:      r.Response,
		ErrorCode:     r.ErrorCode,
		ErrorMessage:  r.ErrorMessage,
		ErrorDetails:  r.ErrorDetails,
		CorrelationID: r.CorrelationID,
		CreatedAt:     r.CreatedAt,
		CompletedAt:   r.CompletedAt,
	}
}

// AuditLogModel is one append-only audit record
type AuditLogModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID       uuid.UUID `gorm:"type:uuid;not null;index:idx_audit_entity,priority:1;index:idx_audit_key,priority:1"`
	Actor          string    `gorm:"type:varchar(100);not null"`
	Action         string    `gorm:"type:varchar(100);not null"`
	EntityType     string    `gorm:"type:varchar(50);not null;index:idx_audit_entity,priority:2"`
	EntityID       uuid.UUID `gorm:"type:uuid;index:idx_audit_entity,priority:3"`
	IdempotencyKey string    `gorm:"type:varchar(255);index:idx_audit_key,priority:2"`
	CorrelationID  string    `gorm:"type:varchar(100);index"`
	Metadata       []byte    `gorm:"type:jsonb"`
	CreatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// ToDomain converts the persistence model to a domain audit Entry
func (m *AuditLogModel) ToDomain() *audit.Entry {
	return &audit.Entry{
		ID:             m.ID,
		TenantID:       m.TenantID,
		Actor:          m.Actor,
		Action:         m.Action,
		EntityType:     m.EntityType,
		EntityID:       m.EntityID,
		IdempotencyKey: m.IdempotencyKey,
		CorrelationID:  m.CorrelationID,
		Metadata:       m.Metadata,
		CreatedAt:      m.CreatedAt,
	}
}

// AuditLogModelFromDomain creates a persistence model from a domain audit Entry
func AuditLogModelFromDomain(e *audit.Entry) *AuditLogModel {
	return &AuditLogModel{
		ID:             e.ID,
		TenantID:       e.TenantID,
		Actor:          e.Actor,
		Action:         e.Action,
		EntityType:     e.EntityType,
		EntityID:       e.EntityID,
		IdempotencyKey: e.IdempotencyKey,
		CorrelationID:  e.CorrelationID,
		Metadata:       e.Metadata,
		CreatedAt:      e.CreatedAt,
	}
}

// DocumentSequenceModel holds the last number issued per (tenant, prefix)
type DocumentSequenceModel struct {
	TenantID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	Prefix    string    `gorm:"type:varchar(20);primaryKey"`
	LastValue int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DocumentSequenceModel) TableName() string {
	return "document_sequences"
}
