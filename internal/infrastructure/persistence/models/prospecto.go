package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sgi/backend/internal/domain/prospecto"
)

// ProspectoModel is the persistence model for the Prospecto domain entity.
type ProspectoModel struct {
	SoftDeleteModel
	Name               string           `gorm:"type:varchar(200);not null"`
	Company            string           `gorm:"type:varchar(200)"`
	Email              string           `gorm:"type:varchar(200)"`
	Phone              string           `gorm:"type:varchar(50)"`
	Source             prospecto.Source `gorm:"type:varchar(20);not null"`
	Status             prospecto.Status `gorm:"type:varchar(20);not null;index"`
	EstimatedValue     decimal.Decimal  `gorm:"type:decimal(14,2);not null;default:0"`
	NextContactDate    *time.Time       `gorm:"type:date;index"`
	Notes              string           `gorm:"type:text"`
	ConvertedClienteID *int64           `gorm:"index"`
	LostReason         string           `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (ProspectoModel) TableName() string {
	return "prospectos"
}

// ToDomain converts the persistence model to a domain Prospecto entity.
func (m *ProspectoModel) ToDomain() *prospecto.Prospecto {
	return &prospecto.Prospecto{
		BaseEntity:         m.BaseModel.ToDomain(),
		Name:               m.Name,
		Company:            m.Company,
		Email:              m.Email,
		Phone:              m.Phone,
		Source:             m.Source,
		Status:             m.Status,
		EstimatedValue:     m.EstimatedValue,
		NextContactDate:    m.NextContactDate,
		Notes:              m.Notes,
		ConvertedClienteID: m.ConvertedClienteID,
		LostReason:         m.LostReason,
	}
}

// FromDomain populates the persistence model from a domain Prospecto entity.
func (m *ProspectoModel) FromDomain(p *prospecto.Prospecto) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.Name = p.Name
	m.Company = p.Company
	m.Email = p.Email
	m.Phone = p.Phone
	m.Source = p.Source
	m.Status = p.Status
	m.EstimatedValue = p.EstimatedValue
	m.NextContactDate = p.NextContactDate
	m.Notes = p.Notes
	m.ConvertedClienteID = p.ConvertedClienteID
	m.LostReason = p.LostReason
}

// ProspectoModelFromDomain creates a new persistence model from a domain Prospecto entity.
func ProspectoModelFromDomain(p *prospecto.Prospecto) *ProspectoModel {
	m := &ProspectoModel{}
	m.FromDomain(p)
	return m
}
