package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	clienteapp "github.com/sgi/backend/internal/application/cliente"
	"github.com/sgi/backend/internal/interfaces/http/dto"
)

const maxImportFileSize = 10 << 20

// ClienteService is the part of the cliente application service the handler uses
type ClienteService interface {
	Create(ctx context.Context, req clienteapp.CreateClienteRequest) (*clienteapp.ClienteResponse, error)
	GetByID(ctx context.Context, id int64) (*clienteapp.ClienteResponse, error)
	List(ctx context.Context, filter clienteapp.ListFilter) ([]clienteapp.ClienteResponse, int64, error)
	Update(ctx context.Context, id int64, req clienteapp.UpdateClienteRequest) (*clienteapp.ClienteResponse, error)
	Activate(ctx context.Context, id int64) (*clienteapp.ClienteResponse, error)
	Deactivate(ctx context.Context, id int64) (*clienteapp.ClienteResponse, error)
	Delete(ctx context.Context, id int64) error
	Summary(ctx context.Context, id int64) (*clienteapp.SummaryResponse, error)
	Stats(ctx context.Context) (*clienteapp.StatsResponse, error)
	FindByCUIT(ctx context.Context, cuit string) (*clienteapp.ClienteResponse, error)
}

// ClienteImporter loads clientes from a CSV upload
type ClienteImporter interface {
	Import(ctx context.Context, r io.Reader, size int64, req clienteapp.ImportRequest) (*clienteapp.ImportResult, error)
}

// ClienteHandler handles /api/v1/clientes
type ClienteHandler struct {
	BaseHandler
	service  ClienteService
	importer ClienteImporter
}

// NewClienteHandler creates a new ClienteHandler
func NewClienteHandler(service ClienteService, importer ClienteImporter) *ClienteHandler {
	return &ClienteHandler{service: service, importer: importer}
}

// List handles GET /clientes
func (h *ClienteHandler) List(c *gin.Context) {
	var filter clienteapp.ListFilter
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

// Get handles GET /clientes/:id
func (h *ClienteHandler) Get(c *gin.Context) {
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

// GetByCUIT handles GET /clientes/cuit/:cuit
func (h *ClienteHandler) GetByCUIT(c *gin.Context) {
	resp, err := h.service.FindByCUIT(c.Request.Context(), c.Param("cuit"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Create handles POST /clientes
func (h *ClienteHandler) Create(c *gin.Context) {
	var req clienteapp.CreateClienteRequest
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

// Update handles PUT /clientes/:id
func (h *ClienteHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.InvalidID(c)
		return
	}
	var req clienteapp.UpdateClienteRequest
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

// Activate handles POST /clientes/:id/activate
func (h *ClienteHandler) Activate(c *gin.Context) {
	h.changeStatus(c, h.service.Activate)
}

// Deactivate handles POST /clientes/:id/deactivate
func (h *ClienteHandler) Deactivate(c *gin.Context) {
	h.changeStatus(c, h.service.Deactivate)
}

func (h *ClienteHandler) changeStatus(c *gin.Context, fn func(context.Context, int64) (*clienteapp.ClienteResponse, error)) {
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

// Delete handles DELETE /clientes/:id
func (h *ClienteHandler) Delete(c *gin.Context) {
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

// Summary handles GET /clientes/:id/summary
func (h *ClienteHandler) Summary(c *gin.Context) {
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

// Stats handles GET /clientes/stats
func (h *ClienteHandler) Stats(c *gin.Context) {
	resp, err := h.service.Stats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Import handles POST /clientes/import, a multipart upload with a "file"
// field and the dry_run and update_existing flags
func (h *ClienteHandler) Import(c *gin.Context) {
	var req clienteapp.ImportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.BadRequest(c, "El archivo es obligatorio")
		return
	}
	defer file.Close()

	if header.Size > maxImportFileSize {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodePayloadTooLarge, "El archivo supera el máximo de 10MB")
		return
	}
	switch header.Header.Get("Content-Type") {
	case "", "text/csv", "text/plain", "application/octet-stream", "application/vnd.ms-excel":
	default:
		h.Error(c, http.StatusUnsupportedMediaType, dto.ErrCodeValidation, "El archivo debe ser CSV")
		return
	}

	result, err := h.importer.Import(c.Request.Context(), file, header.Size, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
