package views

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	certificadoapp "github.com/sgi/backend/internal/application/certificado"
	clienteapp "github.com/sgi/backend/internal/application/cliente"
	facturaapp "github.com/sgi/backend/internal/application/factura"
	presupuestoapp "github.com/sgi/backend/internal/application/presupuesto"
	prospectoapp "github.com/sgi/backend/internal/application/prospecto"
	proyectoapp "github.com/sgi/backend/internal/application/proyecto"
	"github.com/sgi/backend/internal/domain/shared"
	"github.com/sgi/backend/internal/infrastructure/logger"
	"github.com/sgi/backend/internal/interfaces/http/dto"
	"github.com/sgi/backend/internal/interfaces/http/handler"
	"github.com/sgi/backend/internal/interfaces/http/middleware"
)

// Services are the application services the pages read from
type Services struct {
	Clientes     handler.ClienteService
	Presupuestos handler.PresupuestoService
	Facturas     handler.FacturaService
	Proyectos    handler.ProyectoService
	Certificados handler.CertificadoService
	Prospectos   handler.ProspectoService
	Dashboard    handler.DashboardService
}

// Handler serves the HTML pages
type Handler struct {
	renderer *Renderer
	services Services
}

// NewHandler creates a view handler
func NewHandler(renderer *Renderer, services Services) *Handler {
	return &Handler{renderer: renderer, services: services}
}

// RegisterRoutes mounts the pages on g, normally the /app group
func (h *Handler) RegisterRoutes(g *gin.RouterGroup) {
	g.GET("", h.Dashboard)
	g.GET("/", h.Dashboard)
	g.GET("/clientes", h.Clientes)
	g.GET("/clientes/:id", h.Cliente)
	g.GET("/presupuestos", h.Presupuestos)
	g.GET("/presupuestos/:id", h.Presupuesto)
	g.GET("/facturas", h.Facturas)
	g.GET("/facturas/:id", h.Factura)
	g.GET("/proyectos", h.Proyectos)
	g.GET("/proyectos/:id", h.Proyecto)
	g.GET("/certificados", h.Certificados)
	g.GET("/prospectos", h.Prospectos)
	g.GET("/prospectos/:id", h.Prospecto)
}

// Dashboard renders the home page
func (h *Handler) Dashboard(c *gin.Context) {
	stats, err := h.services.Dashboard.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, "dashboard", &Page{Title: "Tablero", Section: "dashboard", Data: stats})
}

// Clientes renders the cliente list
func (h *Handler) Clientes(c *gin.Context) {
	var filter clienteapp.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	list, total, err := h.services.Clientes.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.renderList(c, "clientes", "Clientes", list, filter.Page, filter.PageSize, total)
}

// Cliente renders a cliente with its totals
func (h *Handler) Cliente(c *gin.Context) {
	id, ok := h.id(c)
	if !ok {
		return
	}
	summary, err := h.services.Clientes.Summary(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	facturas, _, err := h.services.Facturas.List(c.Request.Context(), facturaapp.ListFilter{ClienteID: id, PageSize: 10})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, "cliente", &Page{
		Title:   summary.Cliente.DisplayName,
		Section: "clientes",
		Data:    gin.H{"Summary": summary, "Facturas": facturas},
	})
}

// Presupuestos renders the presupuesto list
func (h *Handler) Presupuestos(c *gin.Context) {
	var filter presupuestoapp.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	list, total, err := h.services.Presupuestos.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.renderList(c, "presupuestos", "Presupuestos", list, filter.Page, filter.PageSize, total)
}

// Presupuesto renders a presupuesto with its items
func (h *Handler) Presupuesto(c *gin.Context) {
	id, ok := h.id(c)
	if !ok {
		return
	}
	p, err := h.services.Presupuestos.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, "presupuesto", &Page{Title: "Presupuesto " + p.Number, Section: "presupuestos", Data: p})
}

// Facturas renders the factura list
func (h *Handler) Facturas(c *gin.Context) {
	var filter facturaapp.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	list, total, err := h.services.Facturas.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.renderList(c, "facturas", "Facturas", list, filter.Page, filter.PageSize, total)
}

// Factura renders a factura with its AFIP data
func (h *Handler) Factura(c *gin.Context) {
	id, ok := h.id(c)
	if !ok {
		return
	}
	f, err := h.services.Facturas.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, "factura", &Page{Title: "Factura " + f.Letter + " " + f.FullNumber, Section: "facturas", Data: f})
}

// Proyectos renders the proyecto list
func (h *Handler) Proyectos(c *gin.Context) {
	var filter proyectoapp.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	list, total, err := h.services.Proyectos.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.renderList(c, "proyectos", "Proyectos", list, filter.Page, filter.PageSize, total)
}

// Proyecto renders a proyecto with its certificados
func (h *Handler) Proyecto(c *gin.Context) {
	id, ok := h.id(c)
	if !ok {
		return
	}
	summary, err := h.services.Proyectos.Summary(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	certs, _, err := h.services.Certificados.List(c.Request.Context(), certificadoapp.ListFilter{ProyectoID: id, PageSize: shared.MaxPageSize})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, "proyecto", &Page{
		Title:   summary.Proyecto.Code + " " + summary.Proyecto.Name,
		Section: "proyectos",
		Data:    gin.H{"Summary": summary, "Certificados": certs},
	})
}

// Certificados renders the certificado list
func (h *Handler) Certificados(c *gin.Context) {
	var filter certificadoapp.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	list, total, err := h.services.Certificados.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.renderList(c, "certificados", "Certificados", list, filter.Page, filter.PageSize, total)
}

// Prospectos renders the prospecto list with the pipeline summary
func (h *Handler) Prospectos(c *gin.Context) {
	var filter prospectoapp.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	ctx := c.Request.Context()
	list, total, err := h.services.Prospectos.List(ctx, filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	pipeline, err := h.services.Prospectos.Pipeline(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	page := h.listPage(c, "Prospectos", "prospectos", filter.Page, filter.PageSize, total)
	page.Data = gin.H{"Items": list, "Pipeline": pipeline}
	h.render(c, "prospectos", page)
}

// Prospecto renders a prospecto
func (h *Handler) Prospecto(c *gin.Context) {
	id, ok := h.id(c)
	if !ok {
		return
	}
	p, err := h.services.Prospectos.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, "prospecto", &Page{Title: p.Name, Section: "prospectos", Data: p})
}

func (h *Handler) renderList(c *gin.Context, name, title string, items any, page, pageSize int, total int64) {
	p := h.listPage(c, title, name, page, pageSize, total)
	p.Data = items
	h.render(c, name, p)
}

func (h *Handler) listPage(c *gin.Context, title, section string, page, pageSize int, total int64) *Page {
	f := shared.Filter{Page: page, PageSize: pageSize}
	f.Normalize()
	return &Page{
		Title:   title,
		Section: section,
		Query:   c.Request.URL.Query(),
		Pager:   NewPager(f.Page, f.PageSize, total),
	}
}

func (h *Handler) bindQuery(c *gin.Context, filter any) bool {
	if err := c.ShouldBindQuery(filter); err != nil {
		h.renderError(c, http.StatusBadRequest, "Los filtros indicados no son válidos")
		return false
	}
	return true
}

func (h *Handler) id(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.renderError(c, http.StatusBadRequest, "ID inválido")
		return 0, false
	}
	return id, true
}

func (h *Handler) render(c *gin.Context, name string, page *Page) {
	page.User = c.GetString(middleware.BasicAuthUserKey)
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Header("Cache-Control", "no-store")
	c.Status(http.StatusOK)
	if err := h.renderer.Render(c.Writer, name, page); err != nil {
		logger.FromContext(c.Request.Context()).Error("Failed to render page",
			zap.String("page", name), zap.Error(err))
		c.Status(http.StatusInternalServerError)
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.renderError(c, dto.DomainHTTPStatus(dto.NormalizeErrorCode(domainErr.Code)), domainErr.Message)
		return
	}
	_ = c.Error(err)
	logger.FromContext(c.Request.Context()).Error("Page data failed",
		zap.String("path", c.Request.URL.Path), zap.Error(err))
	h.renderError(c, http.StatusInternalServerError, "Ocurrió un error inesperado")
}

func (h *Handler) renderError(c *gin.Context, status int, message string) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(status)
	page := &Page{Title: http.StatusText(status), Error: message, User: c.GetString(middleware.BasicAuthUserKey)}
	if err := h.renderer.Render(c.Writer, "error", page); err != nil {
		logger.FromContext(c.Request.Context()).Error("Failed to render error page", zap.Error(err))
	}
}
