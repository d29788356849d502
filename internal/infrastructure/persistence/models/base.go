package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sgi/backend/internal/domain/shared"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// SoftDeleteModel extends BaseModel with a deleted_at column. gorm hides rows
// with deleted_at set from every query unless Unscoped is used.
type SoftDeleteModel struct {
	BaseModel
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// LineModel holds the columns shared by presupuesto and factura items
type LineModel struct {
	ID          int64           `gorm:"primaryKey;autoIncrement"`
	Position    int             `gorm:"not null"`
	Description string          `gorm:"type:varchar(500);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(14,4);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(14,4);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(14,2);not null"`
}

// ToDomain converts the line columns to a domain line
func (m LineModel) ToDomain() shared.Line {
	return shared.Line{
		ID:          m.ID,
		Position:    m.Position,
		Description: m.Description,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		Amount:      m.Amount,
	}
}

// LineModelFromDomain converts a domain line to its columns
func LineModelFromDomain(l shared.Line) LineModel {
	return LineModel{
		ID:          l.ID,
		Position:    l.Position,
		Description: l.Description,
		Quantity:    l.Quantity,
		UnitPrice:   l.UnitPrice,
		Amount:      l.Amount,
	}
}
