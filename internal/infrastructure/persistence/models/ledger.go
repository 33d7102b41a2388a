package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountModel is the persistence model for a chart-of-accounts entry
type AccountModel struct {
	AggregateModel
	TenantID uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_account_tenant_code,priority:1"`
	Code     string             `gorm:"type:varchar(32);not null;uniqueIndex:idx_account_tenant_code,priority:2"`
	Name     string             `gorm:"type:varchar(200);not null"`
	Type     ledger.AccountType `gorm:"type:varchar(20);not null"`
	IsActive bool               `gorm:"not null"`
	IsSystem bool               `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts the persistence model to a domain Account
func (m *AccountModel) ToDomain() *ledger.Account {
	a := &ledger.Account{
		Code:     m.Code,
		Name:     m.Name,
		Type:     m.Type,
		IsActive: m.IsActive,
		IsSystem: m.IsSystem,
	}
	a.TenantAggregateRoot = m.root(m.TenantID)
	return a
}

// AccountModelFromDomain creates a persistence model from a domain Account
func AccountModelFromDomain(a *ledger.Account) *AccountModel {
	m := &AccountModel{
		Code:     a.Code,
		Name:     a.Name,
		Type:     a.Type,
		IsActive: a.IsActive,
		IsSystem: a.IsSystem,
	}
	m.AggregateModel = newAggregateModel(a.TenantAggregateRoot)
	m.TenantID = a.TenantID
	return m
}

// JournalEntryModel is the persistence model for a posted journal entry
type JournalEntryModel struct {
	AggregateModel
	TenantID      uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_journal_tenant_number,priority:1;index:idx_journal_source,priority:1"`
	EntryNumber   string             `gorm:"type:varchar(50);not null;uniqueIndex:idx_journal_tenant_number,priority:2"`
	EntryDate     time.Time          `gorm:"type:date;not null;index"`
	Description   string             `gorm:"type:varchar(500)"`
	SourceType    ledger.SourceType  `gorm:"type:varchar(30);not null;index:idx_journal_source,priority:2"`
	SourceID      *uuid.UUID         `gorm:"type:uuid;index:idx_journal_source,priority:3"`
	ReversalOf    *uuid.UUID         `gorm:"type:uuid;index"`
	CorrelationID string             `gorm:"type:varchar(100);index"`
	TotalDebit    decimal.Decimal    `gorm:"type:decimal(18,2);not null"`
	TotalCredit   decimal.Decimal    `gorm:"type:decimal(18,2);not null"`
	Lines         []JournalLineModel `gorm:"foreignKey:EntryID;references:ID"`
}

// TableName returns the table name for GORM
func (JournalEntryModel) TableName() string {
	return "journal_entries"
}

// ToDomain converts the persistence model to a domain JournalEntry
func (m *JournalEntryModel) ToDomain() *ledger.JournalEntry {
	e := &ledger.JournalEntry{
		EntryNumber:   m.EntryNumber,
		EntryDate:     m.EntryDate,
		Description:   m.Description,
		SourceType:    m.SourceType,
		SourceID:      m.SourceID,
		ReversalOf:    m.ReversalOf,
		CorrelationID: m.CorrelationID,
		TotalDebit:    m.TotalDebit,
		TotalCredit:   m.TotalCredit,
		Lines:         make([]ledger.JournalLine, len(m.Lines)),
	}
	e.TenantAggregateRoot = m.root(m.TenantID)
	for i, l := range m.Lines {
		e.Lines[i] = ledger.JournalLine{
			ID:          l.ID,
			EntryID:     l.EntryID,
			LineNo:      l.LineNo,
			AccountCode: l.AccountCode,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Memo:        l.Memo,
		}
	}
	return e
}

// JournalEntryModelFromDomain creates a persistence model from a domain JournalEntry
func JournalEntryModelFromDomain(e *ledger.JournalEntry) *JournalEntryModel {
	m := &JournalEntryModel{
		EntryNumber:   e.EntryNumber,
		EntryDate:     e.EntryDate,
		Description:   e.Description,
		SourceType:    e.SourceType,
		SourceID:      e.SourceID,
		ReversalOf:    e.ReversalOf,
		CorrelationID: e.CorrelationID,
		TotalDebit:    e.TotalDebit,
		TotalCredit:   e.TotalCredit,
		Lines:         make([]JournalLineModel, len(e.Lines)),
	}
	m.AggregateModel = newAggregateModel(e.TenantAggregateRoot)
	m.TenantID = e.TenantID
	for i, l := range e.Lines {
		m.Lines[i] = JournalLineModel{
			ID:          l.ID,
			TenantID:    e.TenantID,
			EntryID:     e.ID,
			LineNo:      l.LineNo,
			AccountCode: l.AccountCode,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Memo:        l.Memo,
		}
	}
	return m
}

// JournalLineModel is one debit or credit of an entry
type JournalLineModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_journal_line_account,priority:1"`
	EntryID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNo      int             `gorm:"not null"`
	AccountCode string          `gorm:"type:varchar(32);not null;index:idx_journal_line_account,priority:2"`
	Debit       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Credit      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Memo        string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (JournalLineModel) TableName() string {
	return "journal_lines"
}

