// Package proyecto models the construction and service projects run for clientes
package proyecto

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sgi/backend/internal/domain/shared"
)

// Status is the lifecycle status of a proyecto
type Status string

const (
	StatusPlanificado Status = "PLANIFICADO"
	StatusEnCurso     Status = "EN_CURSO"
	StatusPausado     Status = "PAUSADO"
	StatusFinalizado  Status = "FINALIZADO"
	StatusCancelado   Status = "CANCELADO"
)

var transitions = map[Status][]Status{
	StatusPlanificado: {StatusEnCurso, StatusCancelado},
	StatusEnCurso:     {StatusPausado, StatusFinalizado},
	StatusPausado:     {StatusEnCurso, StatusCancelado},
}

// IsValid reports whether s is a known status
func (s Status) IsValid() bool {
	switch s {
	case StatusPlanificado, StatusEnCurso, StatusPausado, StatusFinalizado, StatusCancelado:
		return true
	}
	return false
}

// CanTransitionTo reports whether the status machine allows s → next
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsClosed reports whether the proyecto no longer accepts work
func (s Status) IsClosed() bool {
	return s == StatusFinalizado || s == StatusCancelado
}

var codePattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9\-_]{1,29}$`)

// Proyecto is a unit of work contracted by a cliente
type Proyecto struct {
	shared.BaseEntity
	Code             string
	Name             string
	ClienteID        int64
	Description      string
	Location         string
	StartDate        *time.Time
	EstimatedEndDate *time.Time
	ActualEndDate    *time.Time
	Budget           decimal.Decimal
	Status           Status
	Progress         decimal.Decimal // percent certified by approved certificados
}

// NewProyecto creates a planned proyecto
func NewProyecto(code, name string, clienteID int64) (*Proyecto, error) {
	code = NormalizeCode(code)
	if !codePattern.MatchString(code) {
		return nil, shared.NewDomainError("INVALID_CODE",
			"El código debe tener entre 2 y 30 letras, números o guiones")
	}
	if err := shared.ValidateLength("INVALID_NAME", "El nombre", name, 200); err != nil {
		return nil, err
	}
	if clienteID <= 0 {
		return nil, shared.NewDomainError("INVALID_CLIENTE", "El proyecto debe tener un cliente")
	}
	return &Proyecto{
		BaseEntity: shared.NewBaseEntity(),
		Code:       code,
		Name:       strings.TrimSpace(name),
		ClienteID:  clienteID,
		Status:     StatusPlanificado,
		Budget:     decimal.Zero,
		Progress:   decimal.Zero,
	}, nil
}

// NormalizeCode upper-cases and trims a proyecto code
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Update changes the descriptive data of an open proyecto
func (p *Proyecto) Update(name, description, location string, budget decimal.Decimal, start, estimatedEnd *time.Time) error {
	if p.Status.IsClosed() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("No se puede modificar un proyecto en estado %s", p.Status))
	}
	if err := shared.ValidateLength("INVALID_NAME", "El nombre", name, 200); err != nil {
		return err
	}
	if budget.IsNegative() {
		return shared.NewDomainError("INVALID_BUDGET", "El presupuesto no puede ser negativo")
	}
	if start != nil && estimatedEnd != nil && estimatedEnd.Before(*start) {
		return shared.NewDomainError("INVALID_DATE", "La fecha estimada de fin es anterior al inicio")
	}
	p.Name = strings.TrimSpace(name)
	p.Description = description
	p.Location = strings.TrimSpace(location)
	p.Budget = shared.RoundMoney(budget)
	p.StartDate = start
	p.EstimatedEndDate = estimatedEnd
	p.Touch()
	return nil
}

// ChangeStatus moves the proyecto through its status machine
func (p *Proyecto) ChangeStatus(next Status, now time.Time) error {
	if !next.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Estado inválido")
	}
	if !p.Status.CanTransitionTo(next) {
		return shared.NewDomainError("INVALID_TRANSITION",
			fmt.Sprintf("No se puede pasar de %s a %s", p.Status, next))
	}
	switch next {
	case StatusEnCurso:
		if p.StartDate == nil {
			start := dateOnly(now)
			p.StartDate = &start
		}
	case StatusFinalizado:
		end := dateOnly(now)
		p.ActualEndDate = &end
	}
	p.Status = next
	p.Touch()
	return nil
}

// AcceptsCertificados reports whether new certificados may be issued
func (p *Proyecto) AcceptsCertificados() bool {
	return p.Status == StatusEnCurso
}

// SetProgress stores the certified percent
func (p *Proyecto) SetProgress(pct decimal.Decimal) {
	p.Progress = pct
	p.Touch()
}

// Summary aggregates certificados and facturas of a proyecto
type Summary struct {
	ProyectoID         int64
	Budget             decimal.Decimal
	CertifiedPercent   decimal.Decimal
	CertifiedAmount    decimal.Decimal
	InvoicedAmount     decimal.Decimal
	Certificados       int64
	PendingToInvoice   decimal.Decimal
	RemainingToCertify decimal.Decimal
}

// Remaining returns the budget not yet certified
func Remaining(budget, certified decimal.Decimal) decimal.Decimal {
	r := budget.Sub(certified)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
