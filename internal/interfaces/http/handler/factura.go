package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	facturaapp "github.com/sgi/backend/internal/application/factura"
)

// FacturaService is the part of the factura application service the handler uses
type FacturaService interface {
	Create(ctx context.Context, req facturaapp.CreateFacturaRequest) (*facturaapp.FacturaResponse, error)
	CreateFromPresupuesto(ctx context.Context, presupuestoID int64, req facturaapp.FromSourceRequest) (*facturaapp.FacturaResponse, error)
	CreateFromCertificado(ctx context.Context, certificadoID int64, req facturaapp.FromSourceRequest) (*facturaapp.FacturaResponse, error)
	GetByID(ctx context.Context, id int64) (*facturaapp.FacturaResponse, error)
	List(ctx context.Context, filter facturaapp.ListFilter) ([]facturaapp.FacturaResponse, int64, error)
	Update(ctx context.Context, id int64, req facturaapp.UpdateFacturaRequest) (*facturaapp.FacturaResponse, error)
	Authorize(ctx context.Context, id int64) (*facturaapp.FacturaResponse, error)
	MarkPaid(ctx context.Context, id int64, req facturaapp.MarkPaidRequest) (*facturaapp.FacturaResponse, error)
	Annul(ctx context.Context, id int64, req facturaapp.AnnulRequest) (*facturaapp.FacturaResponse, error)
	Stats(ctx context.Context) (*facturaapp.StatsResponse, error)
	AFIPStatus(ctx context.Context) *facturaapp.AFIPStatusResponse
	LastNumber(ctx context.Context, typ int) (int64, error)
}

// FacturaHandler handles /api/v1/facturas
type FacturaHandler struct {
	BaseHandler
	service   FacturaService
	documents DocumentRenderer
}

// NewFacturaHandler creates a new FacturaHandler
func NewFacturaHandler(service FacturaService, documents DocumentRenderer) *FacturaHandler {
	return &FacturaHandler{service: service, documents: documents}
}

// List handles GET /facturas
func (h *FacturaHandler) List(c *gin.Context) {
	var filter facturaapp.ListFilter
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

// Get handles GET /facturas/:id
func (h *FacturaHandler) Get(c *gin.Context) {
	h.byID(c, h.service.GetByID)
}

// Create handles POST /facturas
func (h *FacturaHandler) Create(c *gin.Context) {
	var req facturaapp.CreateFacturaRequest
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

// FromPresupuesto handles POST /facturas/from-presupuesto/:id
func (h *FacturaHandler) FromPresupuesto(c *gin.Context) {
	h.fromSource(c, h.service.CreateFromPresupuesto)
}

// FromCertificado handles POST /facturas/from-certificado/:id
func (h *FacturaHandler) FromCertificado(c *gin.Context) {
	h.fromSource(c, h.service.CreateFromCertificado)
}

func (h *FacturaHandler) fromSource(c *gin.Context, fn func(context.Context, int64, facturaapp.FromSourceRequest) (*facturaapp.FacturaResponse, error)) {
	id, ok := parseID(c, "id")
	if !ok {
		h.InvalidID(c)
		return
	}
	var req facturaapp.FromSourceRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}
	resp, err := fn(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Update handles PUT /facturas/:id
func (h *FacturaHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.InvalidID(c)
		return
	}
	var req facturaapp.UpdateFacturaRequest
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

// Authorize handles POST /facturas/:id/authorize, requesting the CAE from AFIP
func (h *FacturaHandler) Authorize(c *gin.Context) {
	h.byID(c, h.service.Authorize)
}

// MarkPaid handles POST /facturas/:id/mark-paid
func (h *FacturaHandler) MarkPaid(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.InvalidID(c)
		return
	}
	var req facturaapp.MarkPaidRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}
	resp, err := h.service.MarkPaid(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Annul handles POST /facturas/:id/annul
func (h *FacturaHandler) Annul(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.InvalidID(c)
		return
	}
	var req facturaapp.AnnulRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	resp, err := h.service.Annul(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Stats handles GET /facturas/stats
func (h *FacturaHandler) Stats(c *gin.Context) {
	resp, err := h.service.Stats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// AFIPStatus handles GET /afip/status
func (h *FacturaHandler) AFIPStatus(c *gin.Context) {
	h.Success(c, h.service.AFIPStatus(c.Request.Context()))
}

// LastNumber handles GET /afip/last-number?type=1
func (h *FacturaHandler) LastNumber(c *gin.Context) {
	typ, err := strconv.Atoi(c.Query("type"))
	if err != nil {
		h.BadRequest(c, "El tipo de comprobante es obligatorio")
		return
	}
	n, err := h.service.LastNumber(c.Request.Context(), typ)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"type": typ, "last_number": n})
}

// HTML handles GET /facturas/:id/html
func (h *FacturaHandler) HTML(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.InvalidID(c)
		return
	}
	html, err := h.documents.FacturaHTML(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	writeHTML(c, html)
}

// PDF handles GET /facturas/:id/pdf; ?download=true sends it as an attachment
func (h *FacturaHandler) PDF(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.InvalidID(c)
		return
	}
	doc, err := h.documents.FacturaPDF(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	writeDocument(c, doc, c.Query("download") == "true")
}

// Download handles GET /facturas/:id/download, returning a presigned link to
// the archived PDF
func (h *FacturaHandler) Download(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.InvalidID(c)
		return
	}
	resp, err := h.documents.FacturaDownload(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

func (h *FacturaHandler) byID(c *gin.Context, fn func(context.Context, int64) (*facturaapp.FacturaResponse, error)) {
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
