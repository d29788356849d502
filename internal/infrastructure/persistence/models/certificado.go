package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sgi/backend/internal/domain/certificado"
)

// CertificadoModel is the persistence model for the Certificado domain entity.
type CertificadoModel struct {
	BaseModel
	ProyectoID int64              `gorm:"not null;uniqueIndex:idx_certificado_proyecto_number,priority:1"`
	ClienteID  *int64             `gorm:"index"`
	Number     int                `gorm:"not null;uniqueIndex:idx_certificado_proyecto_number,priority:2"`
	Date       time.Time          `gorm:"type:date;not null"`
	Period     string             `gorm:"type:varchar(100)"`
	Percent    decimal.Decimal    `gorm:"type:decimal(5,2);not null"`
	Amount     decimal.Decimal    `gorm:"type:decimal(14,2);not null;default:0"`
	Status     certificado.Status `gorm:"type:varchar(20);not null;index"`
	FacturaID  *int64             `gorm:"index"`
	Notes      string             `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (CertificadoModel) TableName() string {
	return "certificados"
}

// ToDomain converts the persistence model to a domain Certificado entity.
// Legacy rows may have a NULL cliente_id, which maps to zero.
func (m *CertificadoModel) ToDomain() *certificado.Certificado {
	c := &certificado.Certificado{
		BaseEntity: m.BaseModel.ToDomain(),
		ProyectoID: m.ProyectoID,
		Number:     m.Number,
		Date:       m.Date,
		Period:     m.Period,
		Percent:    m.Percent,
		Amount:     m.Amount,
		Status:     m.Status,
		FacturaID:  m.FacturaID,
		Notes:      m.Notes,
	}
	if m.ClienteID != nil {
		c.ClienteID = *m.ClienteID
	}
	return c
}

// FromDomain populates the persistence model from a domain Certificado entity.
func (m *CertificadoModel) FromDomain(c *certificado.Certificado) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.ProyectoID = c.ProyectoID
	m.ClienteID = nil
	if c.ClienteID > 0 {
		id := c.ClienteID
		m.ClienteID = &id
	}
	m.Number = c.Number
	m.Date = c.Date
	m.Period = c.Period
	m.Percent = c.Percent
	m.Amount = c.Amount
	m.Status = c.Status
	m.FacturaID = c.FacturaID
	m.Notes = c.Notes
}

// CertificadoModelFromDomain creates a new persistence model from a domain Certificado entity.
func CertificadoModelFromDomain(c *certificado.Certificado) *CertificadoModel {
	m := &CertificadoModel{}
	m.FromDomain(c)
	return m
}
