package proyecto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sgi/backend/internal/application/common"
	"github.com/sgi/backend/internal/domain/proyecto"
	"github.com/sgi/backend/internal/domain/shared"
)

// CreateProyectoRequest represents a request to create a proyecto
type CreateProyectoRequest struct {
	Code             string          `json:"code" binding:"required,min=2,max=30"`
	Name             string          `json:"name" binding:"required,min=1,max=200"`
	ClienteID        int64           `json:"cliente_id" binding:"required,min=1"`
	Description      string          `json:"description"`
	Location         string          `json:"location" binding:"max=300"`
	StartDate        *common.Date    `json:"start_date"`
	EstimatedEndDate *common.Date    `json:"estimated_end_date"`
	Budget           decimal.Decimal `json:"budget"`
}

// UpdateProyectoRequest replaces the descriptive data of an open proyecto
type UpdateProyectoRequest struct {
	Name             string          `json:"name" binding:"required,min=1,max=200"`
	Description      string          `json:"description"`
	Location         string          `json:"location" binding:"max=300"`
	StartDate        *common.Date    `json:"start_date"`
	EstimatedEndDate *common.Date    `json:"estimated_end_date"`
	Budget           decimal.Decimal `json:"budget"`
}

// ChangeStatusRequest moves a proyecto through its status machine
type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=PLANIFICADO EN_CURSO PAUSADO FINALIZADO CANCELADO"`
}

// ListFilter holds the list query parameters
type ListFilter struct {
	ClienteID int64  `form:"cliente_id"`
	Status    string `form:"status" binding:"omitempty,oneof=PLANIFICADO EN_CURSO PAUSADO FINALIZADO CANCELADO"`
	Search    string `form:"search"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy   string `form:"order_by"`
	OrderDir  string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
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
		filter.OrderBy = "created_at"
		filter.OrderDir = "desc"
	}
	if f.ClienteID > 0 {
		filter.Filters["cliente_id"] = f.ClienteID
	}
	if f.Status != "" {
		filter.Filters["status"] = f.Status
	}
	filter.Normalize()
	return filter
}

// ProyectoResponse represents a proyecto in API responses
type ProyectoResponse struct {
	ID               int64           `json:"id"`
	Code             string          `json:"code"`
	Name             string          `json:"name"`
	ClienteID        int64           `json:"cliente_id"`
	ClienteName      string          `json:"cliente_name,omitempty"`
	Description      string          `json:"description,omitempty"`
	Location         string          `json:"location,omitempty"`
	StartDate        *common.Date    `json:"start_date,omitempty"`
	EstimatedEndDate *common.Date    `json:"estimated_end_date,omitempty"`
	ActualEndDate    *common.Date    `json:"actual_end_date,omitempty"`
	Budget           decimal.Decimal `json:"budget"`
	Status           string          `json:"status"`
	Progress         decimal.Decimal `json:"progress"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ToProyectoResponse converts a domain proyecto to a response
func ToProyectoResponse(p *proyecto.Proyecto) ProyectoResponse {
	return ProyectoResponse{
		ID:               p.ID,
		Code:             p.Code,
		Name:             p.Name,
		ClienteID:        p.ClienteID,
		Description:      p.Description,
		Location:         p.Location,
		StartDate:        common.DatePtr(p.StartDate),
		EstimatedEndDate: common.DatePtr(p.EstimatedEndDate),
		ActualEndDate:    common.DatePtr(p.ActualEndDate),
		Budget:           p.Budget,
		Status:           string(p.Status),
		Progress:         p.Progress,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

// ToProyectoResponses converts a slice of proyectos
func ToProyectoResponses(list []proyecto.Proyecto) []ProyectoResponse {
	out := make([]ProyectoResponse, len(list))
	for i := range list {
		out[i] = ToProyectoResponse(&list[i])
	}
	return out
}

// SummaryResponse aggregates certificados and facturas of a proyecto
type SummaryResponse struct {
	Proyecto           ProyectoResponse `json:"proyecto"`
	CertifiedPercent   decimal.Decimal  `json:"certified_percent"`
	CertifiedAmount    decimal.Decimal  `json:"certified_amount"`
	InvoicedAmount     decimal.Decimal  `json:"invoiced_amount"`
	PendingToInvoice   decimal.Decimal  `json:"pending_to_invoice"`
	RemainingToCertify decimal.Decimal  `json:"remaining_to_certify"`
	Certificados       int64            `json:"certificados"`
}

// StatsResponse counts proyectos by status
type StatsResponse struct {
	ByStatus map[string]int64 `json:"by_status"`
	Total    int64            `json:"total"`
	Open     int64            `json:"open"`
}
