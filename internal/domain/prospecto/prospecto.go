// Package prospecto models sales leads and their pipeline up to conversion
// into a cliente.
package prospecto

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sgi/backend/internal/domain/shared"
)

// Source is where the lead came from
type Source string

const (
	SourceWeb      Source = "WEB"
	SourceReferido Source = "REFERIDO"
	SourceLlamada  Source = "LLAMADA"
	SourceEvento   Source = "EVENTO"
	SourceOtro     Source = "OTRO"
)

// IsValid reports whether s is a known source
func (s Source) IsValid() bool {
	switch s {
	case SourceWeb, SourceReferido, SourceLlamada, SourceEvento, SourceOtro:
		return true
	}
	return false
}

// Status is the pipeline stage of a prospecto
type Status string

const (
	StatusNuevo      Status = "NUEVO"
	StatusContactado Status = "CONTACTADO"
	StatusCalificado Status = "CALIFICADO"
	StatusPropuesta  Status = "PROPUESTA"
	StatusGanado     Status = "GANADO"
	StatusPerdido    Status = "PERDIDO"
)

// OpenStatuses are the stages still being worked
var OpenStatuses = []Status{StatusNuevo, StatusContactado, StatusCalificado, StatusPropuesta}

func (s Status) rank() int {
	for i, o := range OpenStatuses {
		if o == s {
			return i
		}
	}
	return -1
}

// IsValid reports whether s is a known status
func (s Status) IsValid() bool {
	return s.rank() >= 0 || s == StatusGanado || s == StatusPerdido
}

// IsOpen reports whether the prospecto is still in the pipeline
func (s Status) IsOpen() bool {
	return s.rank() >= 0
}

// Prospecto is a potential cliente
type Prospecto struct {
	shared.BaseEntity
	Name               string
	Company            string
	Email              string
	Phone              string
	Source             Source
	Status             Status
	EstimatedValue     decimal.Decimal
	NextContactDate    *time.Time
	Notes              string
	ConvertedClienteID *int64
	LostReason         string
}

// NewProspecto creates a new lead
func NewProspecto(name, company string, source Source) (*Prospecto, error) {
	if err := shared.ValidateLength("INVALID_NAME", "El nombre", name, 200); err != nil {
		return nil, err
	}
	if source == "" {
		source = SourceOtro
	}
	if !source.IsValid() {
		return nil, shared.NewDomainError("INVALID_SOURCE", "Origen inválido")
	}
	return &Prospecto{
		BaseEntity:     shared.NewBaseEntity(),
		Name:           strings.TrimSpace(name),
		Company:        strings.TrimSpace(company),
		Source:         source,
		Status:         StatusNuevo,
		EstimatedValue: decimal.Zero,
	}, nil
}

// Update changes the lead data
func (p *Prospecto) Update(name, company, email, phone string, source Source, value decimal.Decimal, next *time.Time, notes string) error {
	if err := shared.ValidateLength("INVALID_NAME", "El nombre", name, 200); err != nil {
		return err
	}
	if !source.IsValid() {
		return shared.NewDomainError("INVALID_SOURCE", "Origen inválido")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if err := shared.ValidateEmail(email); err != nil {
		return err
	}
	phone = strings.TrimSpace(phone)
	if err := shared.ValidatePhone(phone); err != nil {
		return err
	}
	if value.IsNegative() {
		return shared.NewDomainError("INVALID_VALUE", "El valor estimado no puede ser negativo")
	}
	p.Name = strings.TrimSpace(name)
	p.Company = strings.TrimSpace(company)
	p.Email = email
	p.Phone = phone
	p.Source = source
	p.EstimatedValue = shared.RoundMoney(value)
	p.NextContactDate = next
	p.Notes = notes
	p.Touch()
	return nil
}

// ChangeStatus moves the prospecto through the pipeline. Open stages only
// move forward, any open stage may be lost with a reason and a lost
// prospecto may be reopened as CONTACTADO. GANADO is reached only by Convert.
func (p *Prospecto) ChangeStatus(next Status, reason string) error {
	if !next.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Estado inválido")
	}
	switch {
	case next == StatusGanado:
		return shared.NewDomainError("USE_CONVERSION", "Para ganar un prospecto debe convertirlo en cliente")
	case next == StatusPerdido:
		if !p.Status.IsOpen() {
			return p.transitionError(next)
		}
		reason = strings.TrimSpace(reason)
		if reason == "" {
			return shared.NewDomainError("INVALID_REASON", "Debe indicar el motivo de pérdida")
		}
		p.LostReason = reason
	case p.Status == StatusPerdido:
		if next != StatusContactado {
			return p.transitionError(next)
		}
		p.LostReason = ""
	case p.Status.IsOpen():
		if next.rank() <= p.Status.rank() {
			return p.transitionError(next)
		}
	default:
		return p.transitionError(next)
	}
	p.Status = next
	p.Touch()
	return nil
}

// CanConvert reports whether the prospecto may become a cliente
func (p *Prospecto) CanConvert() bool {
	return p.Status.IsOpen()
}

// MarkConverted closes the prospecto as won by the given cliente
func (p *Prospecto) MarkConverted(clienteID int64) error {
	if !p.CanConvert() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("No se puede convertir un prospecto en estado %s", p.Status))
	}
	p.Status = StatusGanado
	p.ConvertedClienteID = &clienteID
	p.NextContactDate = nil
	p.Touch()
	return nil
}

// FollowUpOverdue reports whether the next contact date has passed
func (p *Prospecto) FollowUpOverdue(now time.Time) bool {
	return p.Status.IsOpen() && p.NextContactDate != nil && p.NextContactDate.Before(now)
}

func (p *Prospecto) transitionError(next Status) error {
	return shared.NewDomainError("INVALID_TRANSITION",
		fmt.Sprintf("No se puede pasar de %s a %s", p.Status, next))
}
