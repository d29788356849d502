// Package cliente models the counterparties of the company. Clients are
// stored in the generic personas_terceros table and distinguished by role.
package cliente

import (
	"strings"
	"time"

	"github.com/sgi/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Kind distinguishes natural persons from legal entities
type Kind string

const (
	KindFisica   Kind = "FISICA"
	KindJuridica Kind = "JURIDICA"
)

// Role tells which side of a commercial relationship the persona occupies
type Role string

const (
	RoleCliente   Role = "CLIENTE"
	RoleProveedor Role = "PROVEEDOR"
	RoleAmbos     Role = "AMBOS"
)

// IVACondition is the VAT registration of the persona before AFIP
type IVACondition string

const (
	IVAResponsableInscripto IVACondition = "RESPONSABLE_INSCRIPTO"
	IVAMonotributo          IVACondition = "MONOTRIBUTO"
	IVAExento               IVACondition = "EXENTO"
	IVAConsumidorFinal      IVACondition = "CONSUMIDOR_FINAL"
)

// Status is the lifecycle status of a cliente
type Status string

const (
	StatusActivo   Status = "ACTIVO"
	StatusInactivo Status = "INACTIVO"
)

// Cliente is a Persona Tercero acting as a client
type Cliente struct {
	shared.BaseEntity
	Kind          Kind
	Role          Role
	Name          string // razón social or full name
	TradeName     string // nombre de fantasía
	CUIT          string // 11 digits, no separators
	DNI           string
	IVACondition  IVACondition
	Email         string
	Phone         string
	Address       string
	City          string
	Province      string
	PostalCode    string
	ContactPerson string
	Notes         string
	Status        Status
}

// NewCliente creates a new active cliente
func NewCliente(kind Kind, name string, iva IVACondition, cuit string) (*Cliente, error) {
	if err := validateKind(kind); err != nil {
		return nil, err
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	c := &Cliente{
		BaseEntity:   shared.NewBaseEntity(),
		Kind:         kind,
		Role:         RoleCliente,
		Name:         strings.TrimSpace(name),
		IVACondition: iva,
		Status:       StatusActivo,
	}
	if err := c.SetTaxData(iva, cuit, ""); err != nil {
		return nil, err
	}
	return c, nil
}

// Update changes the descriptive fields of the cliente
func (c *Cliente) Update(kind Kind, name, tradeName string) error {
	if err := validateKind(kind); err != nil {
		return err
	}
	if err := validateName(name); err != nil {
		return err
	}
	c.Kind = kind
	c.Name = strings.TrimSpace(name)
	c.TradeName = strings.TrimSpace(tradeName)
	c.Touch()
	return nil
}

// SetTaxData sets the IVA condition and tax identifiers. Only a consumidor
// final may be registered without CUIT.
func (c *Cliente) SetTaxData(iva IVACondition, cuit, dni string) error {
	if err := validateIVACondition(iva); err != nil {
		return err
	}
	cuit = shared.NormalizeCUIT(cuit)
	dni = strings.ReplaceAll(strings.TrimSpace(dni), ".", "")

	if cuit == "" && iva != IVAConsumidorFinal {
		return shared.NewDomainError("INVALID_CUIT", "El CUIT es obligatorio salvo para consumidor final")
	}
	if cuit != "" && !shared.ValidCUIT(cuit) {
		return shared.NewDomainError("INVALID_CUIT", "El CUIT ingresado no es válido")
	}
	if dni != "" && !shared.ValidDNI(dni) {
		return shared.NewDomainError("INVALID_DNI", "El DNI debe tener 7 u 8 dígitos")
	}

	c.IVACondition = iva
	c.CUIT = cuit
	c.DNI = dni
	c.Touch()
	return nil
}

// SetContact sets the contact data
func (c *Cliente) SetContact(contactPerson, email, phone string) error {
	email = strings.TrimSpace(email)
	phone = strings.TrimSpace(phone)
	if err := shared.ValidateEmail(email); err != nil {
		return err
	}
	if err := shared.ValidatePhone(phone); err != nil {
		return err
	}
	c.ContactPerson = strings.TrimSpace(contactPerson)
	c.Email = strings.ToLower(email)
	c.Phone = phone
	c.Touch()
	return nil
}

// SetAddress sets the postal address
func (c *Cliente) SetAddress(address, city, province, postalCode string) {
	c.Address = strings.TrimSpace(address)
	c.City = strings.TrimSpace(city)
	c.Province = strings.TrimSpace(province)
	c.PostalCode = strings.TrimSpace(postalCode)
	c.Touch()
}

// SetRole changes the role of the persona
func (c *Cliente) SetRole(role Role) error {
	switch role {
	case RoleCliente, RoleProveedor, RoleAmbos:
	default:
		return shared.NewDomainError("INVALID_ROLE", "Rol inválido")
	}
	c.Role = role
	c.Touch()
	return nil
}

// SetNotes replaces the free text notes
func (c *Cliente) SetNotes(notes string) {
	c.Notes = notes
	c.Touch()
}

// Activate activates the cliente
func (c *Cliente) Activate() error {
	if c.Status == StatusActivo {
		return shared.NewDomainError("ALREADY_ACTIVE", "El cliente ya está activo")
	}
	c.Status = StatusActivo
	c.Touch()
	return nil
}

// Deactivate deactivates the cliente
func (c *Cliente) Deactivate() error {
	if c.Status == StatusInactivo {
		return shared.NewDomainError("ALREADY_INACTIVE", "El cliente ya está inactivo")
	}
	c.Status = StatusInactivo
	c.Touch()
	return nil
}

// IsActive reports whether the cliente is active
func (c *Cliente) IsActive() bool {
	return c.Status == StatusActivo
}

// DisplayName returns the trade name when present, otherwise the legal name
func (c *Cliente) DisplayName() string {
	if c.TradeName != "" {
		return c.TradeName
	}
	return c.Name
}

// FullAddress joins the address parts that are set
func (c *Cliente) FullAddress() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{c.Address, c.City, c.Province, c.PostalCode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// DocumentType returns the AFIP document type code and number used to
// identify the cliente on an invoice: 80 CUIT, 96 DNI, 99 sin identificar.
func (c *Cliente) DocumentType() (int, string) {
	switch {
	case c.CUIT != "":
		return 80, c.CUIT
	case c.DNI != "":
		return 96, c.DNI
	default:
		return 99, "0"
	}
}

// Summary aggregates the commercial activity of a cliente
type Summary struct {
	ClienteID          int64
	Presupuestos       int64
	PresupuestosOpen   int64
	Facturas           int64
	FacturadoTotal     decimal.Decimal
	PendienteCobro     decimal.Decimal
	ProyectosActivos   int64
	UltimaFacturaFecha *time.Time
}

func validateKind(k Kind) error {
	switch k {
	case KindFisica, KindJuridica:
		return nil
	default:
		return shared.NewDomainError("INVALID_KIND", "El tipo de persona debe ser FISICA o JURIDICA")
	}
}

func validateName(name string) error {
	return shared.ValidateLength("INVALID_NAME", "La razón social", name, 200)
}

func validateIVACondition(iva IVACondition) error {
	switch iva {
	case IVAResponsableInscripto, IVAMonotributo, IVAExento, IVAConsumidorFinal:
		return nil
	default:
		return shared.NewDomainError("INVALID_IVA_CONDITION", "Condición de IVA inválida")
	}
}
