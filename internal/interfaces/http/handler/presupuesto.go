package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	presupuestoapp "github.com/sgi/backend/internal/application/presupuesto"
)

// PresupuestoService is the part of the presupuesto application service the handler uses
type PresupuestoService interface {
	Create(ctx context.Context, req presupuestoapp.CreatePresupuestoRequest) (*presupuestoapp.PresupuestoResponse, error)
	GetByID(ctx context.Context, id int64) (*presupuestoapp.PresupuestoResponse, error)
	List(ctx context.Context, filter presupuestoapp.ListFilter) ([]presupuestoapp.PresupuestoResponse, int64, error)
	Update(ctx context.Context, id int64, req presupuestoapp.UpdatePresupuestoRequest) (*presupuestoapp.PresupuestoResponse, error)
	Send(ctx context.Context, id int64) (*presupuestoapp.PresupuestoResponse, error)
	Approve(ctx context.Context, id int64) (*presupuestoapp.PresupuestoResponse, error)
	Reject(ctx context.Context, id int64, req presupuestoapp.RejectRequest) (*presupuestoapp.PresupuestoResponse, error)
	Delete(ctx context.Context, id int64) error
	Duplicate(ctx context.Context, id int64) (*presupuestoapp.PresupuestoResponse, error)
	Stats(ctx context.Context) (*presupuestoapp.StatsResponse, error)
}

// PresupuestoHandler handles /api/v1/presupuestos
type PresupuestoHandler struct {
	BaseHandler
	service   PresupuestoService
	documents DocumentRenderer
}

// NewPresupuestoHandler creates a new PresupuestoHandler
func NewPresupuestoHandler(service PresupuestoService, documents DocumentRenderer) *PresupuestoHandler {
	return &PresupuestoHandler{service: service, documents: documents}
}

// List handles GET /presupuestos
func (h *PresupuestoHandler) List(c *gin.Context) {
	var filter presupuestoapp.ListFilter
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

// Get handles GET /presupuestos/:id
func (h *PresupuestoHandler) Get(c *gin.Context) {
	h.byID(c, h.service.GetByID)
}

// Create handles POST /presupuestos
func (h *PresupuestoHandler) Create(c *gin.Context) {
	var req presupuestoapp.CreatePresupuestoRequest
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

// Update handles PUT /presupuestos/:id
func (h *PresupuestoHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.InvalidID(c)
		return
	}
	var req presupuestoapp.UpdatePresupuestoRequest
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

// Send handles POST /presupuestos/:id/send
func (h *PresupuestoHandler) Send(c *gin.Context) {
	h.byID(c, h.service.Send)
}

// Approve handles POST /presupuestos/:id/approve
func (h *PresupuestoHandler) Approve(c *gin.Context) {
	h.byID(c, h.service.Approve)
}

// Reject handles POST /presupuestos/:id/reject. The body is optional.
func (h *PresupuestoHandler) Reject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.InvalidID(c)
		return
	}
	var req presupuestoapp.RejectRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}
	resp, err := h.service.Reject(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Duplicate handles POST /presupuestos/:id/duplicate
func (h *PresupuestoHandler) Duplicate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.InvalidID(c)
		return
	}
	resp, err := h.service.Duplicate(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Delete handles DELETE /presupuestos/:id
func (h *PresupuestoHandler) Delete(c *gin.Context) {
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

// Stats handles GET /presupuestos/stats
func (h *PresupuestoHandler) Stats(c *gin.Context) {
	resp, err := h.service.Stats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// HTML handles GET /presupuestos/:id/html
func (h *PresupuestoHandler) HTML(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.InvalidID(c)
		return
	}
	html, err := h.documents.PresupuestoHTML(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	writeHTML(c, html)
}

// PDF handles GET /presupuestos/:id/pdf; ?download=true sends it as an attachment
func (h *PresupuestoHandler) PDF(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.InvalidID(c)
		return
	}
	doc, err := h.documents.PresupuestoPDF(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	writeDocument(c, doc, c.Query("download") == "true")
}

func (h *PresupuestoHandler) byID(c *gin.Context, fn func(context.Context, int64) (*presupuestoapp.PresupuestoResponse, error)) {
	id, ok := parseID(c, "id")
	if !ok {
		h.InvalidID(c)
		return
	}
	resp, err := fn(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
