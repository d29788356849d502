package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	certificadoapp "github.com/sgi/backend/internal/application/certificado"
	"github.com/sgi/backend/internal/domain/certificado"
)

// CertificadoService is the part of the certificado application service the handler uses
type CertificadoService interface {
	Create(ctx context.Context, req certificadoapp.CreateCertificadoRequest) (*certificadoapp.CertificadoResponse, error)
	GetByID(ctx context.Context, id int64) (*certificadoapp.CertificadoResponse, error)
	List(ctx context.Context, filter certificadoapp.ListFilter) ([]certificadoapp.CertificadoResponse, int64, error)
	Update(ctx context.Context, id int64, req certificadoapp.UpdateCertificadoRequest) (*certificadoapp.CertificadoResponse, error)
	Approve(ctx context.Context, id int64) (*certificadoapp.CertificadoResponse, error)
	Annul(ctx context.Context, id int64, req certificadoapp.AnnulRequest) (*certificadoapp.CertificadoResponse, error)
	Diagnose(ctx context.Context) (*certificado.Report, error)
	Fix(ctx context.Context, dryRun bool) (*certificadoapp.FixResult, error)
}

// CertificadoHandler handles /api/v1/certificados
type CertificadoHandler struct {
	BaseHandler
	service CertificadoService
}

// NewCertificadoHandler creates a new CertificadoHandler
func NewCertificadoHandler(service CertificadoService) *CertificadoHandler {
	return &CertificadoHandler{service: service}
}

// List handles GET /certificados
func (h *CertificadoHandler) List(c *gin.Context) {
	var filter certificadoapp.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	h.list(c, filter)
}

// ListByProyecto handles GET /proyectos/:id/certificados
func (h *CertificadoHandler) ListByProyecto(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.InvalidID(c)
		return
	}
	var filter certificadoapp.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	filter.ProyectoID = id
	h.list(c, filter)
}

func (h *CertificadoHandler) list(c *gin.Context, filter certificadoapp.ListFilter) {
	list, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, pageSize := pagination(filter.Page, filter.PageSize)
	h.SuccessWithMeta(c, list, total, page, pageSize)
}

// Get handles GET /certificados/:id
func (h *CertificadoHandler) Get(c *gin.Context) {
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

// Create handles POST /certificados
func (h *CertificadoHandler) Create(c *gin.Context) {
	var req certificadoapp.CreateCertificadoRequest
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

// Update handles PUT /certificados/:id
func (h *CertificadoHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.InvalidID(c)
		return
	}
	var req certificadoapp.UpdateCertificadoRequest
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

// Approve handles POST /certificados/:id/approve
func (h *CertificadoHandler) Approve(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.InvalidID(c)
		return
	}
	resp, err := h.service.Approve(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Annul handles POST /certificados/:id/annul. The body is optional.
func (h *CertificadoHandler) Annul(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.InvalidID(c)
		return
	}
	var req certificadoapp.AnnulRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}
	resp, err := h.service.Annul(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Diagnose handles GET /certificados/maintenance/diagnose
func (h *CertificadoHandler) Diagnose(c *gin.Context) {
	report, err := h.service.Diagnose(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// Fix handles POST /certificados/maintenance/fix; ?dry_run=true reports
// without writing
func (h *CertificadoHandler) Fix(c *gin.Context) {
	result, err := h.service.Fix(c.Request.Context(), c.Query("dry_run") == "true")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
