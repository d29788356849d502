package prospecto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sgi/backend/internal/application/common"
	"github.com/sgi/backend/internal/domain/prospecto"
	"github.com/sgi/backend/internal/domain/shared"
)

// CreateProspectoRequest represents a request to register a lead
type CreateProspectoRequest struct {
	Name            string          `json:"name" binding:"required,min=1,max=200"`
	Company         string          `json:"company" binding:"max=200"`
	Email           string          `json:"email" binding:"omitempty,email,max=200"`
	Phone           string          `json:"phone" binding:"max=50"`
	Source          string          `json:"source" binding:"omitempty,oneof=WEB REFERIDO LLAMADA EVENTO OTRO"`
	EstimatedValue  decimal.Decimal `json:"estimated_value"`
	NextContactDate *common.Date    `json:"next_contact_date"`
	Notes           string          `json:"notes"`
}

// UpdateProspectoRequest replaces the data of a lead
type UpdateProspectoRequest CreateProspectoRequest

// ChangeStatusRequest moves a lead along the pipeline
type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=NUEVO CONTACTADO CALIFICADO PROPUESTA PERDIDO"`
	Reason string `json:"reason" binding:"max=500"`
}

// ConvertRequest carries the tax data of the cliente created from a lead.
// Name defaults to the company, or to the lead name when there is none.
type ConvertRequest struct {
	Kind         string `json:"kind" binding:"required,oneof=FISICA JURIDICA"`
	Name         string `json:"name" binding:"max=200"`
	IVACondition string `json:"iva_condition" binding:"required,oneof=RESPONSABLE_INSCRIPTO MONOTRIBUTO EXENTO CONSUMIDOR_FINAL"`
	CUIT         string `json:"cuit" binding:"omitempty,max=13"`
	DNI          string `json:"dni" binding:"omitempty,max=10"`
	Address      string `json:"address" binding:"max=300"`
	City         string `json:"city" binding:"max=100"`
	Province     string `json:"province" binding:"max=100"`
	PostalCode   string `json:"postal_code" binding:"max=20"`
}

// ListFilter holds the list query parameters
type ListFilter struct {
	Search   string `form:"search"`
	Status   string `form:"status" binding:"omitempty,oneof=NUEVO CONTACTADO CALIFICADO PROPUESTA GANADO PERDIDO"`
	Source   string `form:"source" binding:"omitempty,oneof=WEB REFERIDO LLAMADA EVENTO OTRO"`
	Overdue  bool   `form:"overdue"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
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
	if f.Status != "" {
		filter.Filters["status"] = f.Status
	}
	if f.Source != "" {
		filter.Filters["source"] = f.Source
	}
	if f.Overdue {
		filter.Filters["overdue"] = true
	}
	filter.Normalize()
	return filter
}

// ProspectoResponse represents a prospecto in API responses
type ProspectoResponse struct {
	ID                 int64           `json:"id"`
	Name               string          `json:"name"`
	Company            string          `json:"company,omitempty"`
	Email              string          `json:"email,omitempty"`
	Phone              string          `json:"phone,omitempty"`
	Source             string          `json:"source"`
	Status             string          `json:"status"`
	EstimatedValue     decimal.Decimal `json:"estimated_value"`
	NextContactDate    *common.Date    `json:"next_contact_date,omitempty"`
	FollowUpOverdue    bool            `json:"follow_up_overdue"`
	Notes              string          `json:"notes,omitempty"`
	ConvertedClienteID *int64          `json:"converted_cliente_id,omitempty"`
	LostReason         string          `json:"lost_reason,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// ToProspectoResponse converts a domain prospecto as seen at now
func ToProspectoResponse(p *prospecto.Prospecto, now time.Time) ProspectoResponse {
	return ProspectoResponse{
		ID:                 p.ID,
		Name:               p.Name,
		Company:            p.Company,
		Email:              p.Email,
		Phone:              p.Phone,
		Source:             string(p.Source),
		Status:             string(p.Status),
		EstimatedValue:     p.EstimatedValue,
		NextContactDate:    common.DatePtr(p.NextContactDate),
		FollowUpOverdue:    p.FollowUpOverdue(now),
		Notes:              p.Notes,
		ConvertedClienteID: p.ConvertedClienteID,
		LostReason:         p.LostReason,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

// ToProspectoResponses converts a slice of prospectos
func ToProspectoResponses(list []prospecto.Prospecto, now time.Time) []ProspectoResponse {
	out := make([]ProspectoResponse, len(list))
	for i := range list {
		out[i] = ToProspectoResponse(&list[i], now)
	}
	return out
}

// ConvertResponse is the result of converting a lead
type ConvertResponse struct {
	Prospecto ProspectoResponse `json:"prospecto"`
	ClienteID int64             `json:"cliente_id"`
}

// PipelineResponse summarizes the pipeline
type PipelineResponse struct {
	ByStatus       map[string]int64 `json:"by_status"`
	OpenCount      int64            `json:"open_count"`
	OpenValue      decimal.Decimal  `json:"open_value"`
	WonCount       int64            `json:"won_count"`
	LostCount      int64            `json:"lost_count"`
	ConversionRate decimal.Decimal  `json:"conversion_rate"`
}
