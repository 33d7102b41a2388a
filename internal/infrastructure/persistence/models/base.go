package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateModel holds the identity and optimistic-lock columns of an aggregate table.
// Each table declares tenant_id itself so the column can lead its composite indexes.
type AggregateModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Version   int       `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func newAggregateModel(root shared.TenantAggregateRoot) AggregateModel {
	return AggregateModel{
		ID:        root.ID,
		Version:   root.Version,
		CreatedAt: root.CreatedAt,
		UpdatedAt: root.UpdatedAt,
	}
}

// root restores the domain root of the row
func (m AggregateModel) root(tenantID uuid.UUID) shared.TenantAggregateRoot {
	return shared.RestoreTenantAggregateRoot(m.ID, tenantID, m.Version, m.CreatedAt, m.UpdatedAt)
}
