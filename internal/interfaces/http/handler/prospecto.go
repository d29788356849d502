package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	prospectoapp "github.com/sgi/backend/internal/application/prospecto"
)

// ProspectoService is the part of the prospecto application service the handler uses
type ProspectoService interface {
	Create(ctx context.Context, req prospectoapp.CreateProspectoRequest) (*prospectoapp.ProspectoResponse, error)
	GetByID(ctx context.Context, id int64) (*prospectoapp.ProspectoResponse, error)
	List(ctx context.Context, filter prospectoapp.ListFilter) ([]prospectoapp.ProspectoResponse, int64, error)
	Update(ctx context.Context, id int64, req prospectoapp.UpdateProspectoRequest) (*prospectoapp.ProspectoResponse, error)
	ChangeStatus(ctx context.Context, id int64, req prospectoapp.ChangeStatusRequest) (*prospectoapp.ProspectoResponse, error)
	Convert(ctx context.Context, id int64, req prospectoapp.ConvertRequest) (*prospectoapp.ConvertResponse, error)
	Delete(ctx context.Context, id int64) error
	Pipeline(ctx context.Context) (*prospectoapp.PipelineResponse, error)
}

// ProspectoHandler handles /api/v1/prospectos
type ProspectoHandler struct {
	BaseHandler
	service ProspectoService
}

// NewProspectoHandler creates a new ProspectoHandler
func NewProspectoHandler(service ProspectoService) *ProspectoHandler {
	return &ProspectoHandler{service: service}
}

// List handles GET /prospectos
func (h *ProspectoHandler) List(c *gin.Context) {
	var filter prospectoapp.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	list, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, pageSize := pagination(filter.Page, filter.PageSize)
	h.SuccessWithMeta(c, list, total, page, pageSize)
}

// Get handles GET /prospectos/:id
func (h *ProspectoHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.InvalidID(c)
		return
	}
	resp, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Create handles POST /prospectos
func (h *ProspectoHandler) Create(c *gin.Context) {
	var req prospectoapp.CreateProspectoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	resp, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Update handles PUT /prospectos/:id
func (h *ProspectoHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.InvalidID(c)
		return
	}
	var req prospectoapp.UpdateProspectoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	resp, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ChangeStatus handles PATCH /prospectos/:id/status
func (h *ProspectoHandler) ChangeStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.InvalidID(c)
		return
	}
	var req prospectoapp.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	resp, err := h.service.ChangeStatus(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Convert handles POST /prospectos/:id/convert, creating the cliente and
// closing the lead as GANADO
func (h *ProspectoHandler) Convert(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.InvalidID(c)
		return
	}
	var req prospectoapp.ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	resp, err := h.service.Convert(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Delete handles DELETE /prospectos/:id
func (h *ProspectoHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.InvalidID(c)
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Pipeline handles GET /prospectos/pipeline
func (h *ProspectoHandler) Pipeline(c *gin.Context) {
	resp, err := h.service.Pipeline(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
