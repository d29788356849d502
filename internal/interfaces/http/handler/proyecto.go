package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	proyectoapp "github.com/sgi/backend/internal/application/proyecto"
)

// ProyectoService is the part of the proyecto application service the handler uses
type ProyectoService interface {
	Create(ctx context.Context, req proyectoapp.CreateProyectoRequest) (*proyectoapp.ProyectoResponse, error)
	GetByID(ctx context.Context, id int64) (*proyectoapp.ProyectoResponse, error)
	GetByCode(ctx context.Context, code string) (*proyectoapp.ProyectoResponse, error)
	List(ctx context.Context, filter proyectoapp.ListFilter) ([]proyectoapp.ProyectoResponse, int64, error)
	Update(ctx context.Context, id int64, req proyectoapp.UpdateProyectoRequest) (*proyectoapp.ProyectoResponse, error)
	ChangeStatus(ctx context.Context, id int64, req proyectoapp.ChangeStatusRequest) (*proyectoapp.ProyectoResponse, error)
	Delete(ctx context.Context, id int64) error
	Summary(ctx context.Context, id int64) (*proyectoapp.SummaryResponse, error)
	Stats(ctx context.Context) (*proyectoapp.StatsResponse, error)
}

// ProyectoHandler handles /api/v1/proyectos
type ProyectoHandler struct {
	BaseHandler
	service ProyectoService
}

// NewProyectoHandler creates a new ProyectoHandler
func NewProyectoHandler(service ProyectoService) *ProyectoHandler {
	return &ProyectoHandler{service: service}
}

// List handles GET /proyectos
func (h *ProyectoHandler) List(c *gin.Context) {
	var filter proyectoapp.ListFilter
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

// Get handles GET /proyectos/:id
func (h *ProyectoHandler) Get(c *gin.Context) {
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

// GetByCode handles GET /proyectos/code/:code
func (h *ProyectoHandler) GetByCode(c *gin.Context) {
	resp, err := h.service.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Create handles POST /proyectos
func (h *ProyectoHandler) Create(c *gin.Context) {
	var req proyectoapp.CreateProyectoRequest
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

// Update handles PUT /proyectos/:id
func (h *ProyectoHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.InvalidID(c)
		return
	}
	var req proyectoapp.UpdateProyectoRequest
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

// ChangeStatus handles PATCH /proyectos/:id/status
func (h *ProyectoHandler) ChangeStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.InvalidID(c)
		return
	}
	var req proyectoapp.ChangeStatusRequest
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

// Delete handles DELETE /proyectos/:id
func (h *ProyectoHandler) Delete(c *gin.Context) {
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

// Summary handles GET /proyectos/:id/summary
func (h *ProyectoHandler) Summary(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.InvalidID(c)
		return
	}
	resp, err := h.service.Summary(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Stats handles GET /proyectos/stats
func (h *ProyectoHandler) Stats(c *gin.Context) {
	resp, err := h.service.Stats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
