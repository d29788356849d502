// Package presupuesto models budgets/quotes issued to clientes before invoicing
package presupuesto

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sgi/backend/internal/domain/shared"
)

// Status is the lifecycle status of a presupuesto
type Status string

const (
	StatusBorrador  Status = "BORRADOR"
	StatusEnviado   Status = "ENVIADO"
	StatusAprobado  Status = "APROBADO"
	StatusRechazado Status = "RECHAZADO"
	StatusVencido   Status = "VENCIDO"
	StatusFacturado Status = "FACTURADO"
)

// AllStatuses lists every presupuesto status in pipeline order
func AllStatuses() []Status {
	return []Status{StatusBorrador, StatusEnviado, StatusAprobado, StatusRechazado, StatusVencido, StatusFacturado}
}

// IsValid reports whether s is a known status
func (s Status) IsValid() bool {
	for _, v := range AllStatuses() {
		if v == s {
			return true
		}
	}
	return false
}

// DefaultValidity is used when no valid-until date is given
const DefaultValidity = 30 * 24 * time.Hour

// Presupuesto is a budget sent to a cliente
type Presupuesto struct {
	shared.BaseEntity
	Number      string
	ClienteID   int64
	ProyectoID  *int64
	Title       string
	Description string
	IssueDate   time.Time
	ValidUntil  time.Time
	Status      Status
	Items       []shared.Line
	Subtotal    decimal.Decimal
	IVARate     decimal.Decimal
	IVAAmount   decimal.Decimal
	Total       decimal.Decimal
	Notes       string
	SentAt      *time.Time
	DecidedAt   *time.Time
	RejectNote  string
}

// NewPresupuesto creates a draft presupuesto
func NewPresupuesto(clienteID int64, title string, issueDate time.Time, ivaRate decimal.Decimal) (*Presupuesto, error) {
	if clienteID <= 0 {
		return nil, shared.NewDomainError("INVALID_CLIENTE", "El presupuesto debe tener un cliente")
	}
	if err := shared.ValidateLength("INVALID_TITLE", "El título", title, 200); err != nil {
		return nil, err
	}
	if !shared.ValidIVARate(ivaRate) {
		return nil, shared.NewDomainError("INVALID_IVA_RATE", "Alícuota de IVA inválida")
	}
	if issueDate.IsZero() {
		issueDate = time.Now()
	}
	p := &Presupuesto{
		BaseEntity: shared.NewBaseEntity(),
		ClienteID:  clienteID,
		Title:      strings.TrimSpace(title),
		IssueDate:  truncateDay(issueDate),
		ValidUntil: truncateDay(issueDate.Add(DefaultValidity)),
		Status:     StatusBorrador,
		IVARate:    ivaRate,
	}
	p.recalculate()
	return p, nil
}

// FormatNumber renders the presupuesto number for a year and sequence
func FormatNumber(year, seq int) string {
	return fmt.Sprintf("P-%04d-%04d", year, seq)
}

// Editable reports whether items and header may still change
func (p *Presupuesto) Editable() bool {
	return p.Status == StatusBorrador || p.Status == StatusEnviado
}

// Update changes the header fields
func (p *Presupuesto) Update(title, description, notes string, validUntil time.Time, proyectoID *int64) error {
	if !p.Editable() {
		return p.stateError("modificar")
	}
	if err := shared.ValidateLength("INVALID_TITLE", "El título", title, 200); err != nil {
		return err
	}
	if !validUntil.IsZero() {
		if validUntil.Before(p.IssueDate) {
			return shared.NewDomainError("INVALID_DATE", "La fecha de validez no puede ser anterior a la emisión")
		}
		p.ValidUntil = truncateDay(validUntil)
	}
	p.Title = strings.TrimSpace(title)
	p.Description = description
	p.Notes = notes
	p.ProyectoID = proyectoID
	p.Touch()
	return nil
}

// SetIVARate changes the VAT aliquot and recomputes the totals
func (p *Presupuesto) SetIVARate(rate decimal.Decimal) error {
	if !p.Editable() {
		return p.stateError("modificar")
	}
	if !shared.ValidIVARate(rate) {
		return shared.NewDomainError("INVALID_IVA_RATE", "Alícuota de IVA inválida")
	}
	p.IVARate = rate
	p.recalculate()
	p.Touch()
	return nil
}

// ReplaceItems replaces every item and recomputes the totals
func (p *Presupuesto) ReplaceItems(items []shared.Line) error {
	if !p.Editable() {
		return p.stateError("modificar los ítems de")
	}
	p.Items = make([]shared.Line, len(items))
	for i, it := range items {
		it.Position = i + 1
		p.Items[i] = it
	}
	p.recalculate()
	p.Touch()
	return nil
}

// Send marks the presupuesto as sent to the cliente
func (p *Presupuesto) Send(now time.Time) error {
	if p.Status != StatusBorrador {
		return p.stateError("enviar")
	}
	if len(p.Items) == 0 {
		return shared.NewDomainError("NO_ITEMS", "El presupuesto debe tener al menos un ítem")
	}
	p.Status = StatusEnviado
	p.SentAt = &now
	p.Touch()
	return nil
}

// Approve records the cliente's acceptance
func (p *Presupuesto) Approve(now time.Time) error {
	if p.Status != StatusEnviado {
		return p.stateError("aprobar")
	}
	if p.IsExpired(now) {
		return shared.NewDomainError("EXPIRED", "El presupuesto está vencido")
	}
	p.Status = StatusAprobado
	p.DecidedAt = &now
	p.Touch()
	return nil
}

// Reject records the cliente's refusal
func (p *Presupuesto) Reject(now time.Time, note string) error {
	if p.Status != StatusEnviado {
		return p.stateError("rechazar")
	}
	p.Status = StatusRechazado
	p.DecidedAt = &now
	p.RejectNote = strings.TrimSpace(note)
	p.Touch()
	return nil
}

// Expire moves a sent presupuesto past its validity to VENCIDO
func (p *Presupuesto) Expire(now time.Time) error {
	if p.Status != StatusEnviado || !p.IsExpired(now) {
		return p.stateError("vencer")
	}
	p.Status = StatusVencido
	p.Touch()
	return nil
}

// MarkInvoiced records that a factura was generated from the presupuesto
func (p *Presupuesto) MarkInvoiced() error {
	if p.Status != StatusAprobado {
		return p.stateError("facturar")
	}
	p.Status = StatusFacturado
	p.Touch()
	return nil
}

// CanDelete reports whether the presupuesto may be removed
func (p *Presupuesto) CanDelete() bool {
	return p.Status == StatusBorrador
}

// IsExpired reports whether the validity date has passed
func (p *Presupuesto) IsExpired(now time.Time) bool {
	return truncateDay(now).After(p.ValidUntil)
}

// Duplicate copies the presupuesto into a new draft dated today
func (p *Presupuesto) Duplicate(now time.Time) *Presupuesto {
	dup := &Presupuesto{
		BaseEntity:  shared.NewBaseEntity(),
		ClienteID:   p.ClienteID,
		ProyectoID:  p.ProyectoID,
		Title:       p.Title,
		Description: p.Description,
		IssueDate:   truncateDay(now),
		ValidUntil:  truncateDay(now.Add(DefaultValidity)),
		Status:      StatusBorrador,
		IVARate:     p.IVARate,
		Notes:       p.Notes,
	}
	dup.Items = make([]shared.Line, len(p.Items))
	for i, it := range p.Items {
		it.ID = 0
		dup.Items[i] = it
	}
	dup.recalculate()
	return dup
}

func (p *Presupuesto) recalculate() {
	t := shared.ComputeTotals(p.Items, p.IVARate)
	p.Subtotal = t.Subtotal
	p.IVAAmount = t.IVAAmount
	p.Total = t.Total
}

func (p *Presupuesto) stateError(action string) error {
	return shared.NewDomainError("INVALID_STATE",
		fmt.Sprintf("No se puede %s un presupuesto en estado %s", action, p.Status))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
