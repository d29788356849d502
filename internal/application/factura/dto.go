package factura

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sgi/backend/internal/application/common"
	"github.com/sgi/backend/internal/domain/factura"
	"github.com/sgi/backend/internal/domain/shared"
)

// CreateFacturaRequest represents a request to create a draft factura.
// Type is resolved from the IVA conditions when omitted.
type CreateFacturaRequest struct {
	ClienteID   int64                `json:"cliente_id" binding:"required,min=1"`
	ProyectoID  *int64               `json:"proyecto_id" binding:"omitempty,min=1"`
	Type        int                  `json:"type" binding:"omitempty,oneof=1 6 11"`
	Concept     int                  `json:"concept" binding:"omitempty,oneof=1 2 3"`
	IssueDate   *common.Date         `json:"issue_date"`
	DueDate     *common.Date         `json:"due_date"`
	ServiceFrom *common.Date         `json:"service_from"`
	ServiceTo   *common.Date         `json:"service_to"`
	IVARate     *decimal.Decimal     `json:"iva_rate"`
	Items       []common.LineRequest `json:"items" binding:"dive"`
	Notes       string               `json:"notes"`
}

// FromSourceRequest carries the optional header of a factura generated from
// a presupuesto or a certificado
type FromSourceRequest struct {
	Concept     int          `json:"concept" binding:"omitempty,oneof=1 2 3"`
	IssueDate   *common.Date `json:"issue_date"`
	DueDate     *common.Date `json:"due_date"`
	ServiceFrom *common.Date `json:"service_from"`
	ServiceTo   *common.Date `json:"service_to"`
	Notes       string       `json:"notes"`
}

// UpdateFacturaRequest replaces the editable fields of a draft or rejected
// factura. Items is replaced only when present.
type UpdateFacturaRequest struct {
	Concept     int                  `json:"concept" binding:"required,oneof=1 2 3"`
	IssueDate   *common.Date         `json:"issue_date"`
	DueDate     *common.Date         `json:"due_date"`
	ServiceFrom *common.Date         `json:"service_from"`
	ServiceTo   *common.Date         `json:"service_to"`
	IVARate     *decimal.Decimal     `json:"iva_rate"`
	Items       []common.LineRequest `json:"items" binding:"omitempty,dive"`
	Notes       string               `json:"notes"`
}

// MarkPaidRequest records the collection date, today when omitted
type MarkPaidRequest struct {
	PaidAt *common.Date `json:"paid_at"`
}

// AnnulRequest carries the annulment reason
type AnnulRequest struct {
	Reason string `json:"reason" binding:"required,min=3,max=500"`
}

// ListFilter holds the list query parameters
type ListFilter struct {
	ClienteID  int64  `form:"cliente_id"`
	ProyectoID int64  `form:"proyecto_id"`
	Status     string `form:"status"`
	Type       int    `form:"type" binding:"omitempty,oneof=1 6 11"`
	Search     string `form:"search"`
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
		Search:   f.Search,
		Filters:  make(map[string]any),
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "issue_date"
		filter.OrderDir = "desc"
	}
	if f.ClienteID > 0 {
		filter.Filters["cliente_id"] = f.ClienteID
	}
	if f.ProyectoID > 0 {
		filter.Filters["proyecto_id"] = f.ProyectoID
	}
	if f.Status != "" {
		if !factura.Status(f.Status).IsValid() {
			return filter, shared.NewDomainError("INVALID_INPUT", "Estado de factura inválido")
		}
		filter.Filters["status"] = f.Status
	}
	if f.Type != 0 {
		filter.Filters["type"] = f.Type
	}
	from, to, err := common.ParseRange(f.From, f.To)
	if err != nil {
		return filter, err
	}
	filter.From, filter.To = from, to
	filter.Normalize()
	return filter, nil
}

// FacturaResponse represents a factura in API responses
type FacturaResponse struct {
	ID               int64                 `json:"id"`
	ClienteID        int64                 `json:"cliente_id"`
	ClienteName      string                `json:"cliente_name,omitempty"`
	PresupuestoID    *int64                `json:"presupuesto_id,omitempty"`
	ProyectoID       *int64                `json:"proyecto_id,omitempty"`
	CertificadoID    *int64                `json:"certificado_id,omitempty"`
	Type             int                   `json:"type"`
	Letter           string                `json:"letter"`
	PointOfSale      int                   `json:"point_of_sale"`
	Number           int64                 `json:"number"`
	FullNumber       string                `json:"full_number"`
	Concept          int                   `json:"concept"`
	IssueDate        common.Date           `json:"issue_date"`
	DueDate          *common.Date          `json:"due_date,omitempty"`
	ServiceFrom      *common.Date          `json:"service_from,omitempty"`
	ServiceTo        *common.Date          `json:"service_to,omitempty"`
	Items            []common.LineResponse `json:"items"`
	IVARate          decimal.Decimal       `json:"iva_rate"`
	Net              decimal.Decimal       `json:"net"`
	IVAAmount        decimal.Decimal       `json:"iva_amount"`
	Exempt           decimal.Decimal       `json:"exempt"`
	Total            decimal.Decimal       `json:"total"`
	Currency         string                `json:"currency"`
	Status           string                `json:"status"`
	CAE              string                `json:"cae,omitempty"`
	CAEDueDate       *common.Date          `json:"cae_due_date,omitempty"`
	AFIPResult       string                `json:"afip_result,omitempty"`
	AFIPObservations string                `json:"afip_observations,omitempty"`
	Attempts         int                   `json:"attempts"`
	PaidAt           *common.Date          `json:"paid_at,omitempty"`
	AnnulReason      string                `json:"annul_reason,omitempty"`
	Notes            string                `json:"notes,omitempty"`
	HasPDF           bool                  `json:"has_pdf"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// ToFacturaResponse converts a domain factura to a response
func ToFacturaResponse(f *factura.Factura) FacturaResponse {
	return FacturaResponse{
		ID:               f.ID,
		ClienteID:        f.ClienteID,
		PresupuestoID:    f.PresupuestoID,
		ProyectoID:       f.ProyectoID,
		CertificadoID:    f.CertificadoID,
		Type:             int(f.Type),
		Letter:           f.Type.Letter(),
		PointOfSale:      f.PointOfSale,
		Number:           f.Number,
		FullNumber:       f.FullNumber(),
		Concept:          int(f.Concept),
		IssueDate:        common.NewDate(f.IssueDate),
		DueDate:          common.DatePtr(f.DueDate),
		ServiceFrom:      common.DatePtr(f.ServiceFrom),
		ServiceTo:        common.DatePtr(f.ServiceTo),
		Items:            common.ToLineResponses(f.Items),
		IVARate:          f.IVARate,
		Net:              f.Net,
		IVAAmount:        f.IVAAmount,
		Exempt:           f.Exempt,
		Total:            f.Total,
		Currency:         f.Currency,
		Status:           string(f.Status),
		CAE:              f.CAE,
		CAEDueDate:       common.DatePtr(f.CAEDueDate),
		AFIPResult:       f.AFIPResult,
		AFIPObservations: f.AFIPObservations,
		Attempts:         f.Attempts,
		PaidAt:           common.DatePtr(f.PaidAt),
		AnnulReason:      f.AnnulReason,
		Notes:            f.Notes,
		HasPDF:           f.PDFKey != "",
		CreatedAt:        f.CreatedAt,
		UpdatedAt:        f.UpdatedAt,
	}
}

// ToFacturaResponses converts a slice of facturas
func ToFacturaResponses(list []factura.Factura) []FacturaResponse {
	out := make([]FacturaResponse, len(list))
	for i := range list {
		out[i] = ToFacturaResponse(&list[i])
	}
	return out
}

// StatsResponse summarizes billing of the current month
type StatsResponse struct {
	From            common.Date      `json:"from"`
	To              common.Date      `json:"to"`
	AuthorizedCount int64            `json:"authorized_count"`
	BilledAmount    decimal.Decimal  `json:"billed_amount"`
	PendingCount    int64            `json:"pending_count"`
	PendingAmount   decimal.Decimal  `json:"pending_amount"`
	ByStatus        map[string]int64 `json:"by_status"`
}

// AFIPStatusResponse reports the authorizer mode and remote health
type AFIPStatusResponse struct {
	Mode       string `json:"mode"`
	OK         bool   `json:"ok"`
	AppServer  string `json:"app_server,omitempty"`
	DBServer   string `json:"db_server,omitempty"`
	AuthServer string `json:"auth_server,omitempty"`
	Error      string `json:"error,omitempty"`
}
