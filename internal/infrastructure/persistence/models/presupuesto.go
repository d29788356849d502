package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sgi/backend/internal/domain/presupuesto"
	"github.com/sgi/backend/internal/domain/shared"
)

// PresupuestoModel is the persistence model for the Presupuesto domain entity.
type PresupuestoModel struct {
	SoftDeleteModel
	Number      string             `gorm:"type:varchar(20);not null;uniqueIndex"`
	Year        int                `gorm:"not null;index"`
	ClienteID   int64              `gorm:"not null;index"`
	ProyectoID  *int64             `gorm:"index"`
	Title       string             `gorm:"type:varchar(200);not null"`
	Description string             `gorm:"type:text"`
	IssueDate   time.Time          `gorm:"type:date;not null"`
	ValidUntil  time.Time          `gorm:"type:date;not null"`
	Status      presupuesto.Status `gorm:"type:varchar(20);not null;index"`
	Subtotal    decimal.Decimal    `gorm:"type:decimal(14,2);not null;default:0"`
	IVARate     decimal.Decimal    `gorm:"column:iva_rate;type:decimal(5,2);not null;default:21"`
	IVAAmount   decimal.Decimal    `gorm:"column:iva_amount;type:decimal(14,2);not null;default:0"`
	Total       decimal.Decimal    `gorm:"type:decimal(14,2);not null;default:0"`
	Notes       string             `gorm:"type:text"`
	SentAt      *time.Time
	DecidedAt   *time.Time
	RejectNote  string                 `gorm:"type:varchar(500)"`
	Items       []PresupuestoItemModel `gorm:"foreignKey:PresupuestoID"`
}

// TableName returns the table name for GORM
func (PresupuestoModel) TableName() string {
	return "presupuestos"
}

// PresupuestoItemModel is a line of a presupuesto
type PresupuestoItemModel struct {
	LineModel
	PresupuestoID int64 `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (PresupuestoItemModel) TableName() string {
	return "presupuesto_items"
}

// ToDomain converts the persistence model to a domain Presupuesto entity.
func (m *PresupuestoModel) ToDomain() *presupuesto.Presupuesto {
	p := &presupuesto.Presupuesto{
		BaseEntity:  m.BaseModel.ToDomain(),
		Number:      m.Number,
		ClienteID:   m.ClienteID,
		ProyectoID:  m.ProyectoID,
		Title:       m.Title,
		Description: m.Description,
		IssueDate:   m.IssueDate,
		ValidUntil:  m.ValidUntil,
		Status:      m.Status,
		Subtotal:    m.Subtotal,
		IVARate:     m.IVARate,
		IVAAmount:   m.IVAAmount,
		Total:       m.Total,
		Notes:       m.Notes,
		SentAt:      m.SentAt,
		DecidedAt:   m.DecidedAt,
		RejectNote:  m.RejectNote,
		Items:       make([]shared.Line, len(m.Items)),
	}
	for i, it := range m.Items {
		p.Items[i] = it.LineModel.ToDomain()
	}
	return p
}

// FromDomain populates the persistence model from a domain Presupuesto entity.
func (m *PresupuestoModel) FromDomain(p *presupuesto.Presupuesto) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.Number = p.Number
	m.Year = p.IssueDate.Year()
	m.ClienteID = p.ClienteID
	m.ProyectoID = p.ProyectoID
	m.Title = p.Title
	m.Description = p.Description
	m.IssueDate = p.IssueDate
	m.ValidUntil = p.ValidUntil
	m.Status = p.Status
	m.Subtotal = p.Subtotal
	m.IVARate = p.IVARate
	m.IVAAmount = p.IVAAmount
	m.Total = p.Total
	m.Notes = p.Notes
	m.SentAt = p.SentAt
	m.DecidedAt = p.DecidedAt
	m.RejectNote = p.RejectNote
	m.Items = make([]PresupuestoItemModel, len(p.Items))
	for i, it := range p.Items {
		m.Items[i] = PresupuestoItemModel{LineModel: LineModelFromDomain(it), PresupuestoID: p.ID}
	}
}

// PresupuestoModelFromDomain creates a new persistence model from a domain Presupuesto entity.
func PresupuestoModelFromDomain(p *presupuesto.Presupuesto) *PresupuestoModel {
	m := &PresupuestoModel{}
	m.FromDomain(p)
	return m
}
