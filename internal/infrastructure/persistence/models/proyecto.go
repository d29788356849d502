package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sgi/backend/internal/domain/proyecto"
)

// ProyectoModel is the persistence model for the Proyecto domain entity.
type ProyectoModel struct {
	SoftDeleteModel
	Code             string          `gorm:"type:varchar(30);not null;uniqueIndex"`
	Name             string          `gorm:"type:varchar(200);not null"`
	ClienteID        int64           `gorm:"not null;index"`
	Description      string          `gorm:"type:text"`
	Location         string          `gorm:"type:varchar(255)"`
	StartDate        *time.Time      `gorm:"type:date"`
	EstimatedEndDate *time.Time      `gorm:"type:date"`
	ActualEndDate    *time.Time      `gorm:"type:date"`
	Budget           decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Status           proyecto.Status `gorm:"type:varchar(20);not null;index"`
	Progress         decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (ProyectoModel) TableName() string {
	return "proyectos"
}

// ToDomain converts the persistence model to a domain Proyecto entity.
func (m *ProyectoModel) ToDomain() *proyecto.Proyecto {
	return &proyecto.Proyecto{
		BaseEntity:       m.BaseModel.ToDomain(),
		Code:             m.Code,
		Name:             m.Name,
		ClienteID:        m.ClienteID,
		Description:      m.Description,
		Location:         m.Location,
		StartDate:        m.StartDate,
		EstimatedEndDate: m.EstimatedEndDate,
		ActualEndDate:    m.ActualEndDate,
		Budget:           m.Budget,
		Status:           m.Status,
		Progress:         m.Progress,
	}
}

// FromDomain populates the persistence model from a domain Proyecto entity.
func (m *ProyectoModel) FromDomain(p *proyecto.Proyecto) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.Code = p.Code
	m.Name = p.Name
	m.ClienteID = p.ClienteID
	m.Description = p.Description
	m.Location = p.Location
	m.StartDate = p.StartDate
	m.EstimatedEndDate = p.EstimatedEndDate
	m.ActualEndDate = p.ActualEndDate
	m.Budget = p.Budget
	m.Status = p.Status
	m.Progress = p.Progress
}

// ProyectoModelFromDomain creates a new persistence model from a domain Proyecto entity.
func ProyectoModelFromDomain(p *proyecto.Proyecto) *ProyectoModel {
	m := &ProyectoModel{}
	m.FromDomain(p)
	return m
}
