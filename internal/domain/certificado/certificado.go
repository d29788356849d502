// Package certificado models work-completion certificates. Each certificado
// certifies a percent of a proyecto's progress and may later be invoiced.
package certificado

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sgi/backend/internal/domain/proyecto"
	"github.com/sgi/backend/internal/domain/shared"
)

// Status is the lifecycle status of a certificado
type Status string

const (
	StatusBorrador  Status = "BORRADOR"
	StatusAprobado  Status = "APROBADO"
	StatusFacturado Status = "FACTURADO"
	StatusAnulado   Status = "ANULADO"
)

// IsValid reports whether s is a known status
func (s Status) IsValid() bool {
	switch s {
	case StatusBorrador, StatusAprobado, StatusFacturado, StatusAnulado:
		return true
	}
	return false
}

// Certificado certifies progress of a proyecto
type Certificado struct {
	shared.BaseEntity
	ProyectoID int64
	ClienteID  int64
	Number     int
	Date       time.Time
	Period     string
	Percent    decimal.Decimal
	Amount     decimal.Decimal
	Status     Status
	FacturaID  *int64
	Notes      string
}

// NewCertificado creates a draft certificado for an in-progress proyecto.
// certified is the percent already covered by the proyecto's other
// non-annulled certificados.
func NewCertificado(p *proyecto.Proyecto, number int, date time.Time, period string, pct, amount, certified decimal.Decimal) (*Certificado, error) {
	if p == nil || p.ID <= 0 {
		return nil, shared.NewDomainError("INVALID_PROYECTO", "El certificado debe pertenecer a un proyecto")
	}
	if !p.AcceptsCertificados() {
		return nil, shared.NewDomainError("PROYECTO_NOT_IN_PROGRESS",
			fmt.Sprintf("Sólo se certifican proyectos en curso (estado actual %s)", p.Status))
	}
	if number <= 0 {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Número de certificado inválido")
	}
	c := &Certificado{
		BaseEntity: shared.NewBaseEntity(),
		ProyectoID: p.ID,
		ClienteID:  p.ClienteID,
		Number:     number,
		Status:     StatusBorrador,
	}
	if err := c.apply(date, period, pct, amount, certified, ""); err != nil {
		return nil, err
	}
	return c, nil
}

// Update changes a draft certificado
func (c *Certificado) Update(date time.Time, period string, pct, amount, certified decimal.Decimal, notes string) error {
	if c.Status != StatusBorrador {
		return c.stateError("modificar")
	}
	return c.apply(date, period, pct, amount, certified, notes)
}

func (c *Certificado) apply(date time.Time, period string, pct, amount, certified decimal.Decimal, notes string) error {
	if err := ValidatePercent(pct, certified); err != nil {
		return err
	}
	if amount.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "El monto no puede ser negativo")
	}
	if len(period) > 100 {
		return shared.NewDomainError("INVALID_PERIOD", "El período es demasiado largo")
	}
	if date.IsZero() {
		date = time.Now()
	}
	y, m, d := date.Date()
	c.Date = time.Date(y, m, d, 0, 0, 0, 0, date.Location())
	c.Period = strings.TrimSpace(period)
	c.Percent = pct
	c.Amount = shared.RoundMoney(amount)
	c.Notes = notes
	c.Touch()
	return nil
}

// ValidatePercent checks that pct is in (0, 100] and that adding it to the
// already certified percent does not exceed 100.
func ValidatePercent(pct, certified decimal.Decimal) error {
	if !pct.IsPositive() || pct.GreaterThan(shared.Hundred) {
		return shared.NewDomainError("INVALID_PERCENT", "El porcentaje debe estar entre 0 y 100")
	}
	if certified.Add(pct).GreaterThan(shared.Hundred) {
		available := shared.Hundred.Sub(certified)
		if available.IsNegative() {
			available = decimal.Zero
		}
		return shared.NewDomainError("PERCENT_EXCEEDED",
			fmt.Sprintf("El avance acumulado supera el 100%% (disponible %s%%)", available.String()))
	}
	return nil
}

// Approve approves a draft certificado
func (c *Certificado) Approve() error {
	if c.Status != StatusBorrador {
		return c.stateError("aprobar")
	}
	c.Status = StatusAprobado
	c.Touch()
	return nil
}

// Annul annuls a certificado that was not invoiced
func (c *Certificado) Annul(reason string) error {
	if c.Status != StatusBorrador && c.Status != StatusAprobado {
		return c.stateError("anular")
	}
	c.Status = StatusAnulado
	if reason = strings.TrimSpace(reason); reason != "" {
		if c.Notes != "" {
			c.Notes += "\n"
		}
		c.Notes += "Anulado: " + reason
	}
	c.Touch()
	return nil
}

// MarkInvoiced links the certificado to the factura that billed it
func (c *Certificado) MarkInvoiced(facturaID int64) error {
	if c.Status != StatusAprobado {
		return c.stateError("facturar")
	}
	c.Status = StatusFacturado
	c.FacturaID = &facturaID
	c.Touch()
	return nil
}

// CountsTowardsProgress reports whether the percent is part of the proyecto progress
func (c *Certificado) CountsTowardsProgress() bool {
	return c.Status == StatusAprobado || c.Status == StatusFacturado
}

func (c *Certificado) stateError(action string) error {
	return shared.NewDomainError("INVALID_STATE",
		fmt.Sprintf("No se puede %s un certificado en estado %s", action, c.Status))
}
