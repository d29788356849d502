package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sgi/backend/internal/domain/factura"
	"github.com/sgi/backend/internal/domain/shared"
)

// FacturaModel is the persistence model for the Factura domain entity.
// Facturas carry no deleted_at column: they are annulled, never removed.
type FacturaModel struct {
	BaseModel
	ClienteID        int64           `gorm:"not null;index"`
	PresupuestoID    *int64          `gorm:"index"`
	ProyectoID       *int64          `gorm:"index"`
	CertificadoID    *int64          `gorm:"index"`
	Type             factura.Type    `gorm:"not null"`
	PointOfSale      int             `gorm:"not null"`
	Number           *int64          `gorm:"index"`
	Concept          factura.Concept `gorm:"not null;default:2"`
	IssueDate        time.Time       `gorm:"type:date;not null;index"`
	DueDate          *time.Time      `gorm:"type:date"`
	ServiceFrom      *time.Time      `gorm:"type:date"`
	ServiceTo        *time.Time      `gorm:"type:date"`
	IVARate          decimal.Decimal `gorm:"column:iva_rate;type:decimal(5,2);not null"`
	Net              decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	IVAAmount        decimal.Decimal `gorm:"column:iva_amount;type:decimal(14,2);not null;default:0"`
	Exempt           decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Total            decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Currency         string          `gorm:"type:char(3);not null;default:'PES'"`
	Status           factura.Status  `gorm:"type:varchar(20);not null;index"`
	CAE              string          `gorm:"column:cae;type:varchar(14)"`
	CAEDueDate       *time.Time      `gorm:"column:cae_due_date;type:date"`
	AFIPResult       string          `gorm:"column:afip_result;type:char(1)"`
	AFIPObservations string          `gorm:"column:afip_observations;type:text"`
	Attempts         int             `gorm:"not null;default:0"`
	LastAttemptAt    *time.Time
	PaidAt           *time.Time
	AnnulReason      string             `gorm:"type:varchar(500)"`
	Notes            string             `gorm:"type:text"`
	PDFKey           string             `gorm:"column:pdf_key;type:varchar(255)"`
	Items            []FacturaItemModel `gorm:"foreignKey:FacturaID"`
}

// TableName returns the table name for GORM
func (FacturaModel) TableName() string {
	return "facturas"
}

// FacturaItemModel is a line of a factura
type FacturaItemModel struct {
	LineModel
	FacturaID int64 `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (FacturaItemModel) TableName() string {
	return "factura_items"
}

// ToDomain converts the persistence model to a domain Factura entity.
func (m *FacturaModel) ToDomain() *factura.Factura {
	f := &factura.Factura{
		BaseEntity:       m.BaseModel.ToDomain(),
		ClienteID:        m.ClienteID,
		PresupuestoID:    m.PresupuestoID,
		ProyectoID:       m.ProyectoID,
		CertificadoID:    m.CertificadoID,
		Type:             m.Type,
		PointOfSale:      m.PointOfSale,
		Concept:          m.Concept,
		IssueDate:        m.IssueDate,
		DueDate:          m.DueDate,
		ServiceFrom:      m.ServiceFrom,
		ServiceTo:        m.ServiceTo,
		IVARate:          m.IVARate,
		Net:              m.Net,
		IVAAmount:        m.IVAAmount,
		Exempt:           m.Exempt,
		Total:            m.Total,
		Currency:         m.Currency,
		Status:           m.Status,
		CAE:              m.CAE,
		CAEDueDate:       m.CAEDueDate,
		AFIPResult:       m.AFIPResult,
		AFIPObservations: m.AFIPObservations,
		Attempts:         m.Attempts,
		LastAttemptAt:    m.LastAttemptAt,
		PaidAt:           m.PaidAt,
		AnnulReason:      m.AnnulReason,
		Notes:            m.Notes,
		PDFKey:           m.PDFKey,
		Items:            make([]shared.Line, len(m.Items)),
	}
	if m.Number != nil {
		f.Number = *m.Number
	}
	for i, it := range m.Items {
		f.Items[i] = it.LineModel.ToDomain()
	}
	return f
}

// FromDomain populates the persistence model from a domain Factura entity.
// Drafts have no number and store NULL.
func (m *FacturaModel) FromDomain(f *factura.Factura) {
	m.FromDomainBaseEntity(f.BaseEntity)
	m.ClienteID = f.ClienteID
	m.PresupuestoID = f.PresupuestoID
	m.ProyectoID = f.ProyectoID
	m.CertificadoID = f.CertificadoID
	m.Type = f.Type
	m.PointOfSale = f.PointOfSale
	m.Number = nil
	if f.Number > 0 {
		n := f.Number
		m.Number = &n
	}
	m.Concept = f.Concept
	m.IssueDate = f.IssueDate
	m.DueDate = f.DueDate
	m.ServiceFrom = f.ServiceFrom
	m.ServiceTo = f.ServiceTo
	m.IVARate = f.IVARate
	m.Net = f.Net
	m.IVAAmount = f.IVAAmount
	m.Exempt = f.Exempt
	m.Total = f.Total
	m.Currency = f.Currency
	m.Status = f.Status
	m.CAE = f.CAE
	m.CAEDueDate = f.CAEDueDate
	m.AFIPResult = f.AFIPResult
	m.AFIPObservations = f.AFIPObservations
	m.Attempts = f.Attempts
	m.LastAttemptAt = f.LastAttemptAt
	m.PaidAt = f.PaidAt
	m.AnnulReason = f.AnnulReason
	m.Notes = f.Notes
	m.PDFKey = f.PDFKey
	m.Items = make([]FacturaItemModel, len(f.Items))
	for i, it := range f.Items {
		m.Items[i] = FacturaItemModel{LineModel: LineModelFromDomain(it), FacturaID: f.ID}
	}
}

// FacturaModelFromDomain creates a new persistence model from a domain Factura entity.
func FacturaModelFromDomain(f *factura.Factura) *FacturaModel {
	m := &FacturaModel{}
	m.FromDomain(f)
	return m
}
