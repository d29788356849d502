package cliente

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sgi/backend/internal/domain/cliente"
	"github.com/sgi/backend/internal/domain/shared"
)

// CreateClienteRequest represents a request to create a new cliente
type CreateClienteRequest struct {
	Kind          string `json:"kind" binding:"required,oneof=FISICA JURIDICA"`
	Role          string `json:"role" binding:"omitempty,oneof=CLIENTE PROVEEDOR AMBOS"`
	Name          string `json:"name" binding:"required,min=1,max=200"`
	TradeName     string `json:"trade_name" binding:"max=200"`
	CUIT          string `json:"cuit" binding:"omitempty,max=13"`
	DNI           string `json:"dni" binding:"omitempty,max=10"`
	IVACondition  string `json:"iva_condition" binding:"required,oneof=RESPONSABLE_INSCRIPTO MONOTRIBUTO EXENTO CONSUMIDOR_FINAL"`
	Email         string `json:"email" binding:"omitempty,email,max=200"`
	Phone         string `json:"phone" binding:"max=50"`
	Address       string `json:"address" binding:"max=300"`
	City          string `json:"city" binding:"max=100"`
	Province      string `json:"province" binding:"max=100"`
	PostalCode    string `json:"postal_code" binding:"max=20"`
	ContactPerson string `json:"contact_person" binding:"max=200"`
	Notes         string `json:"notes"`
}

// UpdateClienteRequest represents a partial update of a cliente
type UpdateClienteRequest struct {
	Kind          *string `json:"kind" binding:"omitempty,oneof=FISICA JURIDICA"`
	Role          *string `json:"role" binding:"omitempty,oneof=CLIENTE PROVEEDOR AMBOS"`
	Name          *string `json:"name" binding:"omitempty,min=1,max=200"`
	TradeName     *string `json:"trade_name" binding:"omitempty,max=200"`
	CUIT          *string `json:"cuit" binding:"omitempty,max=13"`
	DNI           *string `json:"dni" binding:"omitempty,max=10"`
	IVACondition  *string `json:"iva_condition" binding:"omitempty,oneof=RESPONSABLE_INSCRIPTO MONOTRIBUTO EXENTO CONSUMIDOR_FINAL"`
	Email         *string `json:"email" binding:"omitempty,email,max=200"`
	Phone         *string `json:"phone" binding:"omitempty,max=50"`
	Address       *string `json:"address" binding:"omitempty,max=300"`
	City          *string `json:"city" binding:"omitempty,max=100"`
	Province      *string `json:"province" binding:"omitempty,max=100"`
	PostalCode    *string `json:"postal_code" binding:"omitempty,max=20"`
	ContactPerson *string `json:"contact_person" binding:"omitempty,max=200"`
	Notes         *string `json:"notes"`
}

// ListFilter holds the list query parameters
type ListFilter struct {
	Search       string `form:"search"`
	Status       string `form:"status" binding:"omitempty,oneof=ACTIVO INACTIVO"`
	IVACondition string `form:"iva_condition"`
	Province     string `form:"province"`
	Role         string `form:"role" binding:"omitempty,oneof=CLIENTE PROVEEDOR AMBOS"`
	Page         int    `form:"page" binding:"omitempty,min=1"`
	PageSize     int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy      string `form:"order_by"`
	OrderDir     string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ToDomain converts the query parameters into a repository filter
func (f ListFilter) ToDomain() shared.Filter {
	filter := shared.Filter{
		Page:     f.Page,
		PageSize: f.PageSize,
		OrderBy:  f.OrderBy,
		OrderDir: f.OrderDir,
		Search:   f.Search,
		Filters:  make(map[string]any),
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "name"
		filter.OrderDir = "asc"
	}
	if f.Status != "" {
		filter.Filters["status"] = f.Status
	}
	if f.IVACondition != "" {
		filter.Filters["iva_condition"] = f.IVACondition
	}
	if f.Province != "" {
		filter.Filters["province"] = f.Province
	}
	if f.Role != "" {
		filter.Filters["role"] = f.Role
	}
	filter.Normalize()
	return filter
}

// ClienteResponse represents a cliente in API responses
type ClienteResponse struct {
	ID            int64     `json:"id"`
	Kind          string    `json:"kind"`
	Role          string    `json:"role"`
	Name          string    `json:"name"`
	TradeName     string    `json:"trade_name,omitempty"`
	DisplayName   string    `json:"display_name"`
	CUIT          string    `json:"cuit,omitempty"`
	CUITFormatted string    `json:"cuit_formatted,omitempty"`
	DNI           string    `json:"dni,omitempty"`
	IVACondition  string    `json:"iva_condition"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Address       string    `json:"address,omitempty"`
	City          string    `json:"city,omitempty"`
	Province      string    `json:"province,omitempty"`
	PostalCode    string    `json:"postal_code,omitempty"`
	FullAddress   string    `json:"full_address,omitempty"`
	ContactPerson string    `json:"contact_person,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ToClienteResponse converts a domain cliente to a response
func ToClienteResponse(c *cliente.Cliente) ClienteResponse {
	resp := ClienteResponse{
		ID:            c.ID,
		Kind:          string(c.Kind),
		Role:          string(c.Role),
		Name:          c.Name,
		TradeName:     c.TradeName,
		DisplayName:   c.DisplayName(),
		CUIT:          c.CUIT,
		DNI:           c.DNI,
		IVACondition:  string(c.IVACondition),
		Email:         c.Email,
		Phone:         c.Phone,
		Address:       c.Address,
		City:          c.City,
		Province:      c.Province,
		PostalCode:    c.PostalCode,
		FullAddress:   c.FullAddress(),
		ContactPerson: c.ContactPerson,
		Notes:         c.Notes,
		Status:        string(c.Status),
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	if c.CUIT != "" {
		resp.CUITFormatted = shared.FormatCUIT(c.CUIT)
	}
	return resp
}

// ToClienteResponses converts a slice of clientes
func ToClienteResponses(list []cliente.Cliente) []ClienteResponse {
	out := make([]ClienteResponse, len(list))
	for i := range list {
		out[i] = ToClienteResponse(&list[i])
	}
	return out
}

// SummaryResponse aggregates the commercial activity of a cliente
type SummaryResponse struct {
	Cliente            ClienteResponse `json:"cliente"`
	Presupuestos       int64           `json:"presupuestos"`
	PresupuestosOpen   int64           `json:"presupuestos_abiertos"`
	Facturas           int64           `json:"facturas"`
	FacturadoTotal     decimal.Decimal `json:"facturado_total"`
	PendienteCobro     decimal.Decimal `json:"pendiente_cobro"`
	ProyectosActivos   int64           `json:"proyectos_activos"`
	UltimaFacturaFecha *time.Time      `json:"ultima_factura_fecha,omitempty"`
}

// StatsResponse counts clientes by status
type StatsResponse struct {
	Activos   int64 `json:"activos"`
	Inactivos int64 `json:"inactivos"`
	Total     int64 `json:"total"`
}
