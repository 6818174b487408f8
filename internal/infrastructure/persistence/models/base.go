package models

import (
	"time"

	"github.com/escola/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateModel holds the identity, timestamps and version of an aggregate root
type AggregateModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	Version   int       `gorm:"not null;default:1"`
}

// FromDomainAggregateRoot populates the model from a domain aggregate root
func (m *AggregateModel) FromDomainAggregateRoot(a shared.BaseAggregateRoot) {
	m.ID = a.ID
	m.CreatedAt = a.CreatedAt
	m.UpdatedAt = a.UpdatedAt
	m.Version = a.Version
}

// ToDomainAggregateRoot returns the aggregate root fields held by the model
func (m *AggregateModel) ToDomainAggregateRoot() shared.BaseAggregateRoot {
	root := shared.NewBaseAggregateRoot()
	root.ID = m.ID
	root.CreatedAt = m.CreatedAt
	root.UpdatedAt = m.UpdatedAt
	root.Version = m.Version
	return root
}
