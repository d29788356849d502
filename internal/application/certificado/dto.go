package certificado

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sgi/backend/internal/application/common"
	"github.com/sgi/backend/internal/domain/certificado"
	"github.com/sgi/backend/internal/domain/shared"
)

// CreateCertificadoRequest represents a request to certify progress of a proyecto.
// Amount is computed from the proyecto budget when omitted.
type CreateCertificadoRequest struct {
	ProyectoID int64            `json:"proyecto_id" binding:"required,min=1"`
	Date       *common.Date     `json:"date"`
	Period     string           `json:"period" binding:"max=100"`
	Percent    decimal.Decimal  `json:"percent"`
	Amount     *decimal.Decimal `json:"amount"`
	Notes      string           `json:"notes"`
}

// UpdateCertificadoRequest replaces the data of a draft certificado
type UpdateCertificadoRequest struct {
	Date    *common.Date     `json:"date"`
	Period  string           `json:"period" binding:"max=100"`
	Percent decimal.Decimal  `json:"percent"`
	Amount  *decimal.Decimal `json:"amount"`
	Notes   string           `json:"notes"`
}

// AnnulRequest carries the optional annulment reason
type AnnulRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// ListFilter holds the list query parameters
type ListFilter struct {
	ProyectoID int64  `form:"proyecto_id"`
	ClienteID  int64  `form:"cliente_id"`
	Status     string `form:"status" binding:"omitempty,oneof=BORRADOR APROBADO FACTURADO ANULADO"`
	From       string `form:"from"`
	To         string `form:"to"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string `form:"order_by"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ToDomain converts the query parameters into a repository filter
func (f ListFilter) ToDomain() (shared.Filter, error) {
	filter := shared.Filter{
		Page:     f.Page,
		PageSize: f.PageSize,
		OrderBy:  f.OrderBy,
		OrderDir: f.OrderDir,
		Filters:  make(map[string]any),
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "date"
		filter.OrderDir = "desc"
	}
	if f.ProyectoID > 0 {
		filter.Filters["proyecto_id"] = f.ProyectoID
	}
	if f.ClienteID > 0 {
		filter.Filters["cliente_id"] = f.ClienteID
	}
	if f.Status != "" {
		filter.Filters["status"] = f.Status
	}
	from, to, err := common.ParseRange(f.From, f.To)
	if err != nil {
		return filter, err
	}
	filter.From, filter.To = from, to
	filter.Normalize()
	return filter, nil
}

// CertificadoResponse represents a certificado in API responses
type CertificadoResponse struct {
	ID           int64           `json:"id"`
	ProyectoID   int64           `json:"proyecto_id"`
	ProyectoCode string          `json:"proyecto_code,omitempty"`
	ClienteID    int64           `json:"cliente_id"`
	Number       int             `json:"number"`
	Date         common.Date     `json:"date"`
	Period       string          `json:"period,omitempty"`
	Percent      decimal.Decimal `json:"percent"`
	Amount       decimal.Decimal `json:"amount"`
	Status       string          `json:"status"`
	FacturaID    *int64          `json:"factura_id,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ToCertificadoResponse converts a domain certificado to a response
func ToCertificadoResponse(c *certificado.Certificado) CertificadoResponse {
	return CertificadoResponse{
		ID:         c.ID,
		ProyectoID: c.ProyectoID,
		ClienteID:  c.ClienteID,
		Number:     c.Number,
		Date:       common.NewDate(c.Date),
		Period:     c.Period,
		Percent:    c.Percent,
		Amount:     c.Amount,
		Status:     string(c.Status),
		FacturaID:  c.FacturaID,
		Notes:      c.Notes,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

// ToCertificadoResponses converts a slice of certificados
func ToCertificadoResponses(list []certificado.Certificado) []CertificadoResponse {
	out := make([]CertificadoResponse, len(list))
	for i := range list {
		out[i] = ToCertificadoResponse(&list[i])
	}
	return out
}

// FixResult reports a cliente realignment run
type FixResult struct {
	DryRun  bool                `json:"dry_run"`
	Fixable int                 `json:"fixable"`
	Fixed   int64               `json:"fixed"`
	Report  *certificado.Report `json:"report"`
}
