package presupuesto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sgi/backend/internal/application/common"
	"github.com/sgi/backend/internal/domain/presupuesto"
	"github.com/sgi/backend/internal/domain/shared"
)

// CreatePresupuestoRequest represents a request to create a presupuesto
type CreatePresupuestoRequest struct {
	ClienteID   int64                `json:"cliente_id" binding:"required,min=1"`
	ProyectoID  *int64               `json:"proyecto_id" binding:"omitempty,min=1"`
	Title       string               `json:"title" binding:"required,min=1,max=200"`
	Description string               `json:"description"`
	IssueDate   *common.Date         `json:"issue_date"`
	ValidUntil  *common.Date         `json:"valid_until"`
	IVARate     *decimal.Decimal     `json:"iva_rate"`
	Items       []common.LineRequest `json:"items" binding:"dive"`
	Notes       string               `json:"notes"`
}

// UpdatePresupuestoRequest replaces the editable fields of a presupuesto.
// Items is replaced only when present.
type UpdatePresupuestoRequest struct {
	ProyectoID  *int64               `json:"proyecto_id" binding:"omitempty,min=1"`
	Title       string               `json:"title" binding:"required,min=1,max=200"`
	Description string               `json:"description"`
	ValidUntil  *common.Date         `json:"valid_until"`
	IVARate     *decimal.Decimal     `json:"iva_rate"`
	Items       []common.LineRequest `json:"items" binding:"omitempty,dive"`
	Notes       string               `json:"notes"`
}

// RejectRequest carries the optional rejection note
type RejectRequest struct {
	Note string `json:"note" binding:"max=500"`
}

// ListFilter holds the list query parameters
type ListFilter struct {
	ClienteID  int64  `form:"cliente_id"`
	ProyectoID int64  `form:"proyecto_id"`
	Status     string `form:"status"`
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
		if !presupuesto.Status(f.Status).IsValid() {
			return filter, shared.NewDomainError("INVALID_INPUT", "Estado de presupuesto inválido")
		}
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

// PresupuestoResponse represents a presupuesto in API responses
type PresupuestoResponse struct {
	ID          int64                 `json:"id"`
	Number      string                `json:"number"`
	ClienteID   int64                 `json:"cliente_id"`
	ClienteName string                `json:"cliente_name,omitempty"`
	ProyectoID  *int64                `json:"proyecto_id,omitempty"`
	Title       string                `json:"title"`
	Description string                `json:"description,omitempty"`
	IssueDate   common.Date           `json:"issue_date"`
	ValidUntil  common.Date           `json:"valid_until"`
	Status      string                `json:"status"`
	Items       []common.LineResponse `json:"items"`
	Subtotal    decimal.Decimal       `json:"subtotal"`
	IVARate     decimal.Decimal       `json:"iva_rate"`
	IVAAmount   decimal.Decimal       `json:"iva_amount"`
	Total       decimal.Decimal       `json:"total"`
	Notes       string                `json:"notes,omitempty"`
	RejectNote  string                `json:"reject_note,omitempty"`
	SentAt      *time.Time            `json:"sent_at,omitempty"`
	DecidedAt   *time.Time            `json:"decided_at,omitempty"`
	Editable    bool                  `json:"editable"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// ToPresupuestoResponse converts a domain presupuesto to a response
func ToPresupuestoResponse(p *presupuesto.Presupuesto) PresupuestoResponse {
	return PresupuestoResponse{
		ID:          p.ID,
		Number:      p.Number,
		ClienteID:   p.ClienteID,
		ProyectoID:  p.ProyectoID,
		Title:       p.Title,
		Description: p.Description,
		IssueDate:   common.NewDate(p.IssueDate),
		ValidUntil:  common.NewDate(p.ValidUntil),
		Status:      string(p.Status),
		Items:       common.ToLineResponses(p.Items),
		Subtotal:    p.Subtotal,
		IVARate:     p.IVARate,
		IVAAmount:   p.IVAAmount,
		Total:       p.Total,
		Notes:       p.Notes,
		RejectNote:  p.RejectNote,
		SentAt:      p.SentAt,
		DecidedAt:   p.DecidedAt,
		Editable:    p.Editable(),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ToPresupuestoResponses converts a slice of presupuestos
func ToPresupuestoResponses(list []presupuesto.Presupuesto) []PresupuestoResponse {
	out := make([]PresupuestoResponse, len(list))
	for i := range list {
		out[i] = ToPresupuestoResponse(&list[i])
	}
	return out
}

// StatsResponse counts presupuestos by status
type StatsResponse struct {
	ByStatus map[string]int64 `json:"by_status"`
	Total    int64            `json:"total"`
}
