package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/procurement"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrderModel is the persistence model for the PurchaseOrder aggregate root
type PurchaseOrderModel struct {
	AggregateModel
	TenantID     uuid.UUID                       `gorm:"type:uuid;not null;index;uniqueIndex:idx_po_tenant_number,priority:1"`
	OrderNumber  string                          `gorm:"type:varchar(50);not null;uniqueIndex:idx_po_tenant_number,priority:2"`
	VendorID     uuid.UUID                       `gorm:"type:uuid;not null;index"`
	VendorName   string                          `gorm:"type:varchar(200);not null"`
	LocationID   uuid.UUID                       `gorm:"type:uuid;not null"`
	OrderDate    time.Time                       `gorm:"type:date;not null"`
	Currency     string                          `gorm:"type:varchar(3);not null"`
	Status       procurement.PurchaseOrderStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	Total        decimal.Decimal                 `gorm:"type:decimal(18,2);not null"`
	Notes        string                          `gorm:"type:text"`
	ApprovedAt   *time.Time
	CancelledAt  *time.Time
	CancelReason string                   `gorm:"type:varchar(500)"`
	Lines        []PurchaseOrderLineModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (PurchaseOrderModel) TableName() string {
	return "purchase_orders"
}

// ToDomain converts the persistence model to a domain PurchaseOrder
func (m *PurchaseOrderModel) ToDomain() *procurement.PurchaseOrder {
	o := &procurement.PurchaseOrder{
		OrderNumber:  m.OrderNumber,
		VendorID:     m.VendorID,
		VendorName:   m.VendorName,
		LocationID:   m.LocationID,
		OrderDate:    m.OrderDate,
		Currency:     valueobject.Currency(m.Currency),
		Status:       m.Status,
		Total:        m.Total,
		Notes:        m.Notes,
		ApprovedAt:   m.ApprovedAt,
		CancelledAt:  m.CancelledAt,
		CancelReason: m.CancelReason,
		Lines:        make([]procurement.PurchaseOrderLine, len(m.Lines)),
	}
	o.TenantAggregateRoot = m.root(m.TenantID)
	for i, l := range m.Lines {
		o.Lines[i] = *l.ToDomain()
	}
	return o
}

// PurchaseOrderModelFromDomain creates a persistence model from a domain PurchaseOrder
func PurchaseOrderModelFromDomain(o *procurement.PurchaseOrder) *PurchaseOrderModel {
	m := &PurchaseOrderModel{
		OrderNumber:  o.OrderNumber,
		VendorID:     o.VendorID,
		VendorName:   o.VendorName,
		LocationID:   o.LocationID,
		OrderDate:    o.OrderDate,
		Currency:     string(o.Currency),
		Status:       o.Status,
		Total:        o.Total,
		Notes:        o.Notes,
		ApprovedAt:   o.ApprovedAt,
		CancelledAt:  o.CancelledAt,
		CancelReason: o.CancelReason,
		Lines:        make([]PurchaseOrderLineModel, len(o.Lines)),
	}
	m.AggregateModel = newAggregateModel(o.TenantAggregateRoot)
	m.TenantID = o.TenantID
	for i := range o.Lines {
		m.Lines[i] = *PurchaseOrderLineModelFromDomain(o.TenantID, &o.Lines[i])
	}
	return m
}

// PurchaseOrderLineModel is the persistence model for an order line
type PurchaseOrderLineModel struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrderID            uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNo             int             `gorm:"not null"`
	ItemID             uuid.UUID       `gorm:"type:uuid;not null;index"`
	ItemCode           string          `gorm:"type:varchar(50);not null"`
	ItemName           string          `gorm:"type:varchar(200);not null"`
	Tracked            bool            `gorm:"not null"`
	ExpenseAccountCode string          `gorm:"type:varchar(32)"`
	Quantity           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCost           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Discount           decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	LineTotal          decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Description        string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (PurchaseOrderLineModel) TableName() string {
	return "purchase_order_lines"
}

// ToDomain converts the persistence model to a domain PurchaseOrderLine
func (m *PurchaseOrderLineModel) ToDomain() *procurement.PurchaseOrderLine {
	return &procurement.PurchaseOrderLine{
		ID:                 m.ID,
		OrderID:            m.OrderID,
		LineNo:             m.LineNo,
		ItemID:             m.ItemID,
		ItemCode:           m.ItemCode,
		ItemName:           m.ItemName,
		Tracked:            m.Tracked,
		ExpenseAccountCode: m.ExpenseAccountCode,
		Quantity:           m.Quantity,
		UnitCost:           m.UnitCost,
		Discount:           m.Discount,
		LineTotal:          m.LineTotal,
		Description:        m.Description,
	}
}

// PurchaseOrderLineModelFromDomain creates a persistence model from a domain PurchaseOrderLine
func PurchaseOrderLineModelFromDomain(tenantID uuid.UUID, l *procurement.PurchaseOrderLine) *PurchaseOrderLineModel {
	return &PurchaseOrderLineModel{
		ID:                 l.ID,
		TenantID:           tenantID,
		OrderID:            l.OrderID,
		LineNo:             l.LineNo,
		ItemID:             l.ItemID,
		ItemCode:           l.ItemCode,
		ItemName:           l.ItemName,
		Tracked:            l.Tracked,
		ExpenseAccountCode: l.ExpenseAccountCode,
		Quantity:           l.Quantity,
		UnitCost:           l.UnitCost,
		Discount:           l.Discount,
		LineTotal:          l.LineTotal,
		Description:        l.Description,
	}
}

// PurchaseReceiptModel is the persistence model for a goods receipt
type PurchaseReceiptModel struct {
	AggregateModel
	TenantID        uuid.UUID                         `gorm:"type:uuid;not null;index;uniqueIndex:idx_receipt_tenant_number,priority:1"`
	ReceiptNumber   string                            `gorm:"type:varchar(50);not null;uniqueIndex:idx_receipt_tenant_number,priority:2"`
	PurchaseOrderID *uuid.UUID                        `gorm:"type:uuid;index"`
	VendorID        uuid.UUID                         `gorm:"type:uuid;not null"`
	VendorName      string                            `gorm:"type:varchar(200);not null"`
	LocationID      uuid.UUID                         `gorm:"type:uuid;not null"`
	ReceiptDate     time.Time                         `gorm:"type:date;not null"`
	Currency        string                            `gorm:"type:varchar(3);not null"`
	Status          procurement.PurchaseReceiptStatus `gorm:"type:varchar(20);not null;index"`
	Total           decimal.Decimal                   `gorm:"type:decimal(18,2);not null"`
	JournalEntryID  *uuid.UUID                        `gorm:"type:uuid"`
	PostedAt        *time.Time
	Lines           []PurchaseReceiptLineModel `gorm:"foreignKey:ReceiptID;references:ID"`
}

// TableName returns the table name for GORM
func (PurchaseReceiptModel) TableName() string {
	return "purchase_receipts"
}

// ToDomain converts the persistence model to a domain PurchaseReceipt
func (m *PurchaseReceiptModel) ToDomain() *procurement.PurchaseReceipt {
	r := &procurement.PurchaseReceipt{
		ReceiptNumber:   m.ReceiptNumber,
		PurchaseOrderID: m.PurchaseOrderID,
		VendorID:        m.VendorID,
		VendorName:      m.VendorName,
		LocationID:      m.LocationID,
		ReceiptDate:     m.ReceiptDate,
		Currency:        valueobject.Currency(m.Currency),
		Status:          m.Status,
		Total:           m.Total,
		JournalEntryID:  m.JournalEntryID,
		PostedAt:        m.PostedAt,
		Lines:           make([]procurement.PurchaseReceiptLine, len(m.Lines)),
	}
	r.TenantAggregateRoot = m.root(m.TenantID)
	for i, l := range m.Lines {
		r.Lines[i] = procurement.PurchaseReceiptLine{
			ID:          l.ID,
			ReceiptID:   l.ReceiptID,
			LineNo:      l.LineNo,
			OrderLineID: l.OrderLineID,
			ItemID:      l.ItemID,
			ItemCode:    l.ItemCode,
			ItemName:    l.ItemName,
			Quantity:    l.Quantity,
			UnitCost:    l.UnitCost,
			Discount:    l.Discount,
			LineTotal:   l.LineTotal,
		}
	}
	return r
}

// PurchaseReceiptModelFromDomain creates a persistence model from a domain PurchaseReceipt
func PurchaseReceiptModelFromDomain(r *procurement.PurchaseReceipt) *PurchaseReceiptModel {
	m := &PurchaseReceiptModel{
		ReceiptNumber:   r.ReceiptNumber,
		PurchaseOrderID: r.PurchaseOrderID,
		VendorID:        r.VendorID,
		VendorName:      r.VendorName,
		LocationID:      r.LocationID,
		ReceiptDate:     r.ReceiptDate,
		Currency:        string(r.Currency),
		Status:          r.Status,
		Total:           r.Total,
		JournalEntryID:  r.JournalEntryID,
		PostedAt:        r.PostedAt,
		Lines:           make([]PurchaseReceiptLineModel, len(r.Lines)),
	}
	m.AggregateModel = newAggregateModel(r.TenantAggregateRoot)
	m.TenantID = r.TenantID
	for i, l := range r.Lines {
		m.Lines[i] = PurchaseReceiptLineModel{
			ID:          l.ID,
			TenantID:    r.TenantID,
			ReceiptID:   r.ID,
			LineNo:      l.LineNo,
			OrderLineID: l.OrderLineID,
			ItemID:      l.ItemID,
			ItemCode:    l.ItemCode,
			ItemName:    l.ItemName,
			Quantity:    l.Quantity,
			UnitCost:    l.UnitCost,
			Discount:    l.Discount,
			LineTotal:   l.LineTotal,
		}
	}
	return m
}

// PurchaseReceiptLineModel is the persistence model for a receipt line
type PurchaseReceiptLineModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ReceiptID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNo      int             `gorm:"not null"`
	OrderLineID *uuid.UUID      `gorm:"type:uuid;index"`
	ItemID      uuid.UUID       `gorm:"type:uuid;not null"`
	ItemCode    string          `gorm:"type:varchar(50);not null"`
	ItemName    string          `gorm:"type:varchar(200);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCost    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Discount    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (PurchaseReceiptLineModel) TableName() string {
	return "purchase_receipt_lines"
}

// PurchaseBillModel is the persistence model for a vendor bill
type PurchaseBillModel struct {
	AggregateModel
	TenantID        uuid.UUID                      `gorm:"type:uuid;not null;index;uniqueIndex:idx_bill_tenant_number,priority:1"`
	BillNumber      string                         `gorm:"type:varchar(50);not null;uniqueIndex:idx_bill_tenant_number,priority:2"`
	VendorID        uuid.UUID                      `gorm:"type:uuid;not null;index"`
	VendorName      string                         `gorm:"type:varchar(200);not null"`
	PurchaseOrderID *uuid.UUID                     `gorm:"type:uuid;index"`
	ReceiptID       *uuid.UUID                     `gorm:"type:uuid;index"`
	BillDate        time.Time                      `gorm:"type:date;not null"`
	DueDate         time.Time                      `gorm:"type:date;not null"`
	Currency        string                         `gorm:"type:varchar(3);not null"`
	Status          procurement.PurchaseBillStatus `gorm:"type:varchar(20);not null;index"`
	Total           decimal.Decimal                `gorm:"type:decimal(18,2);not null"`
	AmountPaid      decimal.Decimal                `gorm:"type:decimal(18,2);not null;default:0"`
	JournalEntryID  *uuid.UUID                     `gorm:"type:uuid"`
	PostedAt        *time.Time
	Lines           []PurchaseBillLineModel `gorm:"foreignKey:BillID;references:ID"`
}

// TableName returns the table name for GORM
func (PurchaseBillModel) TableName() string {
	return "purchase_bills"
}

// ToDomain converts the persistence model to a domain PurchaseBill
func (m *PurchaseBillModel) ToDomain() *procurement.PurchaseBill {
	b := &procurement.PurchaseBill{
		BillNumber:      m.BillNumber,
		VendorID:        m.VendorID,
		VendorName:      m.VendorName,
		PurchaseOrderID: m.PurchaseOrderID,
		ReceiptID:       m.ReceiptID,
		BillDate:        m.BillDate,
		DueDate:         m.DueDate,
		Currency:        valueobject.Currency(m.Currency),
		Status:          m.Status,
		Total:           m.Total,
		AmountPaid:      m.AmountPaid,
		JournalEntryID:  m.JournalEntryID,
		PostedAt:        m.PostedAt,
		Lines:           make([]procurement.PurchaseBillLine, len(m.Lines)),
	}
	b.TenantAggregateRoot = m.root(m.TenantID)
	for i, l := range m.Lines {
		b.Lines[i] = procurement.PurchaseBillLine{
			ID:            l.ID,
			BillID:        l.BillID,
			LineNo:        l.LineNo,
			OrderLineID:   l.OrderLineID,
			ReceiptLineID: l.ReceiptLineID,
			ItemID:        l.ItemID,
			Description:   l.Description,
			AccountCode:   l.AccountCode,
			Quantity:      l.Quantity,
			UnitCost:      l.UnitCost,
			Discount:      l.Discount,
			LineTotal:     l.LineTotal,
		}
	}
	return b
}

// PurchaseBillModelFromDomain creates a persistence model from a domain PurchaseBill
func PurchaseBillModelFromDomain(b *procurement.PurchaseBill) *PurchaseBillModel {
	m := &PurchaseBillModel{
		BillNumber:      b.BillNumber,
		VendorID:        b.VendorID,
		VendorName:      b.VendorName,
		PurchaseOrderID: b.PurchaseOrderID,
		ReceiptID:       b.ReceiptID,
		BillDate:        b.BillDate,
		DueDate:         b.DueDate,
		Currency:        string(b.Currency),
		Status:          b.Status,
		Total:           b.Total,
		AmountPaid:      b.AmountPaid,
		JournalEntryID:  b.JournalEntryID,
		PostedAt:        b.PostedAt,
		Lines:           make([]PurchaseBillLineModel, len(b.Lines)),
	}
	m.AggregateModel = newAggregateModel(b.TenantAggregateRoot)
	m.TenantID = b.TenantID
	for i, l := range b.Lines {
		m.Lines[i] = PurchaseBillLineModel{
			ID:            l.ID,
			TenantID:      b.TenantID,
			BillID:        b.ID,
			LineNo:        l.LineNo,
			OrderLineID:   l.OrderLineID,
			ReceiptLineID: l.ReceiptLineID,
			ItemID:        l.ItemID,
			Description:   l.Description,
			AccountCode:   l.AccountCode,
			Quantity:      l.Quantity,
			UnitCost:      l.UnitCost,
			Discount:      l.Discount,
			LineTotal:     l.LineTotal,
		}
	}
	return m
}

// PurchaseBillLineModel is the persistence model for a bill line
type PurchaseBillLineModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	BillID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNo        int             `gorm:"not null"`
	OrderLineID   *uuid.UUID      `gorm:"type:uuid;index"`
	ReceiptLineID *uuid.UUID      `gorm:"type:uuid"`
	ItemID        uuid.UUID       `gorm:"type:uuid;not null"`
	Description   string          `gorm:"type:varchar(500)"`
	AccountCode   string          `gorm:"type:varchar(32);not null"`
	Quantity      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCost      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Discount      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	LineTotal     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (PurchaseBillLineModel) TableName() string {
	return "purchase_bill_lines"
}
