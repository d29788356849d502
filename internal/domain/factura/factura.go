// Package factura models electronic invoices authorized by AFIP.
//
// A factura starts as BORRADOR, is sent to AFIP for a CAE and ends AUTORIZADA.
// When AFIP cannot be reached it waits in PENDIENTE_CAE until a retry
// succeeds. Authorized invoices are never deleted; only drafts and rejected
// invoices may be annulled.
package factura

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sgi/backend/internal/domain/cliente"
	"github.com/sgi/backend/internal/domain/shared"
)

// Type is the AFIP comprobante type code
type Type int

const (
	TypeA Type = 1
	TypeB Type = 6
	TypeC Type = 11
)

// Letter returns the printed letter of the comprobante type
func (t Type) Letter() string {
	switch t {
	case TypeA:
		return "A"
	case TypeB:
		return "B"
	case TypeC:
		return "C"
	default:
		return "?"
	}
}

// IsValid reports whether t is a supported type
func (t Type) IsValid() bool {
	return t == TypeA || t == TypeB || t == TypeC
}

// DiscriminatesIVA reports whether VAT is reported separately to AFIP
func (t Type) DiscriminatesIVA() bool {
	return t == TypeA || t == TypeB
}

// Concept is the AFIP concept code
type Concept int

const (
	ConceptProductos          Concept = 1
	ConceptServicios          Concept = 2
	ConceptProductosServicios Concept = 3
)

// IsValid reports whether c is a known concept
func (c Concept) IsValid() bool {
	return c >= ConceptProductos && c <= ConceptProductosServicios
}

// RequiresServicePeriod reports whether AFIP requires service dates
func (c Concept) RequiresServicePeriod() bool {
	return c == ConceptServicios || c == ConceptProductosServicios
}

// Status is the lifecycle status of a factura
type Status string

const (
	StatusBorrador     Status = "BORRADOR"
	StatusPendienteCAE Status = "PENDIENTE_CAE"
	StatusAutorizada   Status = "AUTORIZADA"
	StatusRechazada    Status = "RECHAZADA"
	StatusPagada       Status = "PAGADA"
	StatusAnulada      Status = "ANULADA"
)

// IsValid reports whether s is a known status
func (s Status) IsValid() bool {
	switch s {
	case StatusBorrador, StatusPendienteCAE, StatusAutorizada, StatusRechazada, StatusPagada, StatusAnulada:
		return true
	}
	return false
}

// CurrencyPesos is the AFIP code for Argentine pesos
const CurrencyPesos = "PES"

// ResolveType picks the comprobante type from the emitter and receiver IVA
// conditions. A Responsable Inscripto emits A to other RI and B to everyone
// else; Monotributo and Exento emitters always emit C.
func ResolveType(emitter, receiver cliente.IVACondition) Type {
	if emitter != cliente.IVAResponsableInscripto {
		return TypeC
	}
	if receiver == cliente.IVAResponsableInscripto {
		return TypeA
	}
	return TypeB
}

// Factura is an electronic invoice
type Factura struct {
	shared.BaseEntity
	ClienteID     int64
	PresupuestoID *int64
	ProyectoID    *int64
	CertificadoID *int64

	Type        Type
	PointOfSale int
	Number      int64
	Concept     Concept
	IssueDate   time.Time
	DueDate     *time.Time
	ServiceFrom *time.Time
	ServiceTo   *time.Time

	Items     []shared.Line
	IVARate   decimal.Decimal
	Net       decimal.Decimal
	IVAAmount decimal.Decimal
	Exempt    decimal.Decimal
	Total     decimal.Decimal
	Currency  string

	Status           Status
	CAE              string
	CAEDueDate       *time.Time
	AFIPResult       string
	AFIPObservations string
	Attempts         int
	LastAttemptAt    *time.Time

	PaidAt      *time.Time
	AnnulReason string
	Notes       string
	PDFKey      string
}

// NewFactura creates a draft invoice
func NewFactura(clienteID int64, typ Type, pointOfSale int, concept Concept, issueDate time.Time, ivaRate decimal.Decimal) (*Factura, error) {
	if clienteID <= 0 {
		return nil, shared.NewDomainError("INVALID_CLIENTE", "La factura debe tener un cliente")
	}
	if !typ.IsValid() {
		return nil, shared.NewDomainError("INVALID_TYPE", "Tipo de comprobante inválido")
	}
	if pointOfSale < 1 || pointOfSale > 99999 {
		return nil, shared.NewDomainError("INVALID_POINT_OF_SALE", "Punto de venta inválido")
	}
	if !concept.IsValid() {
		return nil, shared.NewDomainError("INVALID_CONCEPT", "Concepto inválido")
	}
	if !shared.ValidIVARate(ivaRate) {
		return nil, shared.NewDomainError("INVALID_IVA_RATE", "Alícuota de IVA inválida")
	}
	if issueDate.IsZero() {
		issueDate = time.Now()
	}
	f := &Factura{
		BaseEntity:  shared.NewBaseEntity(),
		ClienteID:   clienteID,
		Type:        typ,
		PointOfSale: pointOfSale,
		Concept:     concept,
		IssueDate:   dateOnly(issueDate),
		IVARate:     ivaRate,
		Currency:    CurrencyPesos,
		Status:      StatusBorrador,
	}
	f.recalculate()
	return f, nil
}

// Editable reports whether the invoice content may change
func (f *Factura) Editable() bool {
	return f.Status == StatusBorrador || f.Status == StatusRechazada
}

// ReplaceItems replaces the invoice lines. Editing a rejected invoice
// brings it back to BORRADOR.
func (f *Factura) ReplaceItems(items []shared.Line) error {
	if !f.Editable() {
		return f.stateError("modificar")
	}
	f.Items = make([]shared.Line, len(items))
	for i, it := range items {
		it.Position = i + 1
		f.Items[i] = it
	}
	f.recalculate()
	f.reopen()
	return nil
}

// UpdateHeader changes the dates, concept and notes of an editable invoice
func (f *Factura) UpdateHeader(concept Concept, issueDate time.Time, dueDate, serviceFrom, serviceTo *time.Time, notes string) error {
	if !f.Editable() {
		return f.stateError("modificar")
	}
	if !concept.IsValid() {
		return shared.NewDomainError("INVALID_CONCEPT", "Concepto inválido")
	}
	if serviceFrom != nil && serviceTo != nil && serviceTo.Before(*serviceFrom) {
		return shared.NewDomainError("INVALID_PERIOD", "El período de servicio es inválido")
	}
	if !issueDate.IsZero() {
		f.IssueDate = dateOnly(issueDate)
	}
	f.Concept = concept
	f.DueDate = dueDate
	f.ServiceFrom = serviceFrom
	f.ServiceTo = serviceTo
	f.Notes = notes
	f.reopen()
	return nil
}

// SetIVARate changes the VAT rate of an editable invoice
func (f *Factura) SetIVARate(rate decimal.Decimal) error {
	if !f.Editable() {
		return f.stateError("modificar")
	}
	if !shared.ValidIVARate(rate) {
		return shared.NewDomainError("INVALID_IVA_RATE", "Alícuota de IVA inválida")
	}
	f.IVARate = rate
	f.recalculate()
	f.reopen()
	return nil
}

// CanRequestAuthorization reports whether the invoice may be sent to AFIP
func (f *Factura) CanRequestAuthorization() bool {
	return f.Status == StatusBorrador || f.Status == StatusPendienteCAE
}

// ValidateForAuthorization checks what AFIP requires before a CAE request
func (f *Factura) ValidateForAuthorization() error {
	if !f.CanRequestAuthorization() {
		return f.stateError("autorizar")
	}
	if len(f.Items) == 0 {
		return shared.NewDomainError("NO_ITEMS", "La factura debe tener al menos un ítem")
	}
	if !f.Total.IsPositive() {
		return shared.NewDomainError("INVALID_TOTAL", "El total de la factura debe ser mayor a cero")
	}
	if f.Concept.RequiresServicePeriod() {
		if f.ServiceFrom == nil || f.ServiceTo == nil || f.DueDate == nil {
			return shared.NewDomainError("MISSING_SERVICE_PERIOD",
				"Las facturas de servicios requieren período y fecha de vencimiento de pago")
		}
	}
	return nil
}

// MarkPending records a failed attempt to reach AFIP
func (f *Factura) MarkPending(now time.Time, reason string) error {
	if !f.CanRequestAuthorization() {
		return f.stateError("dejar pendiente")
	}
	f.Status = StatusPendienteCAE
	f.Attempts++
	f.LastAttemptAt = &now
	f.AFIPObservations = reason
	f.Touch()
	return nil
}

// ApplyAuthorization stores the outcome of a CAE request
func (f *Factura) ApplyAuthorization(now time.Time, res *AuthorizationResult) error {
	if !f.CanRequestAuthorization() {
		return f.stateError("autorizar")
	}
	f.Attempts++
	f.LastAttemptAt = &now
	f.AFIPResult = res.Result
	f.AFIPObservations = strings.Join(res.Messages(), "; ")

	if !res.Approved() {
		f.Status = StatusRechazada
		f.Touch()
		return nil
	}
	if res.CAE == "" || res.Number <= 0 {
		return shared.NewDomainError("INVALID_CAE", "Respuesta de autorización incompleta")
	}
	due := res.CAEDueDate
	f.Number = res.Number
	f.CAE = res.CAE
	f.CAEDueDate = &due
	f.Status = StatusAutorizada
	f.Touch()
	return nil
}

// MarkPaid records the collection of an authorized invoice
func (f *Factura) MarkPaid(paidAt time.Time) error {
	if f.Status != StatusAutorizada {
		return f.stateError("marcar como pagada")
	}
	f.Status = StatusPagada
	f.PaidAt = &paidAt
	f.Touch()
	return nil
}

// Annul cancels an invoice that never got a CAE
func (f *Factura) Annul(reason string) error {
	if f.Status != StatusBorrador && f.Status != StatusRechazada {
		if f.Status == StatusAutorizada || f.Status == StatusPagada {
			return shared.NewDomainError("REQUIRES_CREDIT_NOTE",
				"Una factura autorizada sólo puede anularse con una nota de crédito")
		}
		return f.stateError("anular")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Debe indicar el motivo de anulación")
	}
	f.Status = StatusAnulada
	f.AnnulReason = reason
	f.Touch()
	return nil
}

// IsAuthorized reports whether the invoice holds a valid CAE
func (f *Factura) IsAuthorized() bool {
	return f.Status == StatusAutorizada || f.Status == StatusPagada
}

// FullNumber renders the comprobante number as PPPPP-NNNNNNNN
func (f *Factura) FullNumber() string {
	if f.Number == 0 {
		return fmt.Sprintf("%05d-BORRADOR", f.PointOfSale)
	}
	return FormatNumber(f.PointOfSale, f.Number)
}

// FormatNumber renders a point of sale and number as AFIP prints them
func FormatNumber(pointOfSale int, number int64) string {
	return fmt.Sprintf("%05d-%08d", pointOfSale, number)
}

// Title returns "Factura A", "Factura B" or "Factura C"
func (f *Factura) Title() string {
	return "Factura " + f.Type.Letter()
}

func (f *Factura) recalculate() {
	if !f.Type.DiscriminatesIVA() {
		t := shared.ComputeTotals(f.Items, decimal.Zero)
		f.Net = t.Subtotal
		f.IVAAmount = decimal.Zero
		f.Exempt = decimal.Zero
		f.Total = t.Total
		return
	}
	t := shared.ComputeTotals(f.Items, f.IVARate)
	f.IVAAmount = t.IVAAmount
	f.Total = t.Total
	if f.IVARate.IsZero() {
		f.Net = decimal.Zero
		f.Exempt = t.Subtotal
	} else {
		f.Net = t.Subtotal
		f.Exempt = decimal.Zero
	}
}

func (f *Factura) reopen() {
	if f.Status == StatusRechazada {
		f.Status = StatusBorrador
		f.AFIPResult = ""
		f.AFIPObservations = ""
	}
	f.Touch()
}

func (f *Factura) stateError(action string) error {
	return shared.NewDomainError("INVALID_STATE",
		fmt.Sprintf("No se puede %s una factura en estado %s", action, f.Status))
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
