package router

import (
	"github.com/gin-gonic/gin"

	"github.com/sgi/backend/internal/interfaces/http/handler"
)

// Handlers are the JSON API handlers mounted under /api/v1
type Handlers struct {
	Auth         *handler.AuthHandler
	Clientes     *handler.ClienteHandler
	Presupuestos *handler.PresupuestoHandler
	Facturas     *handler.FacturaHandler
	Proyectos    *handler.ProyectoHandler
	Certificados *handler.CertificadoHandler
	Prospectos   *handler.ProspectoHandler
	Dashboard    *handler.DashboardHandler
	System       *handler.SystemHandler
}

// Groups returns one DomainGroup per resource. loginLimit guards the
// credential endpoints and admin the maintenance ones; either may be nil.
func (h Handlers) Groups(loginLimit, admin gin.HandlerFunc) []*DomainGroup {
	return []*DomainGroup{
		AuthRoutes(h.Auth, loginLimit),
		ClienteRoutes(h.Clientes),
		PresupuestoRoutes(h.Presupuestos),
		FacturaRoutes(h.Facturas),
		AFIPRoutes(h.Facturas),
		ProyectoRoutes(h.Proyectos, h.Certificados),
		CertificadoRoutes(h.Certificados, admin),
		ProspectoRoutes(h.Prospectos),
		DashboardRoutes(h.Dashboard),
		SystemRoutes(h.System),
	}
}

// AuthRoutes mounts /auth
func AuthRoutes(h *handler.AuthHandler, loginLimit gin.HandlerFunc) *DomainGroup {
	g := NewDomainGroup("auth", "/auth")
	g.POST("/login", chain(loginLimit, h.Login)...)
	g.POST("/refresh", chain(loginLimit, h.RefreshToken)...)
	g.POST("/logout", h.Logout)
	g.GET("/me", h.GetCurrentUser)
	g.PUT("/password", h.ChangePassword)
	return g
}

// ClienteRoutes mounts /clientes
func ClienteRoutes(h *handler.ClienteHandler) *DomainGroup {
	g := NewDomainGroup("clientes", "/clientes")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/stats", h.Stats)
	g.POST("/import", h.Import)
	g.GET("/cuit/:cuit", h.GetByCUIT)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.GET("/:id/summary", h.Summary)
	g.POST("/:id/activate", h.Activate)
	g.POST("/:id/deactivate", h.Deactivate)
	return g
}

// PresupuestoRoutes mounts /presupuestos
func PresupuestoRoutes(h *handler.PresupuestoHandler) *DomainGroup {
	g := NewDomainGroup("presupuestos", "/presupuestos")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/stats", h.Stats)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/send", h.Send)
	g.POST("/:id/approve", h.Approve)
	g.POST("/:id/reject", h.Reject)
	g.POST("/:id/duplicate", h.Duplicate)
	g.GET("/:id/html", h.HTML)
	g.GET("/:id/pdf", h.PDF)
	return g
}

// FacturaRoutes mounts /facturas
func FacturaRoutes(h *handler.FacturaHandler) *DomainGroup {
	g := NewDomainGroup("facturas", "/facturas")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/stats", h.Stats)
	g.POST("/from-presupuesto/:id", h.FromPresupuesto)
	g.POST("/from-certificado/:id", h.FromCertificado)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.POST("/:id/authorize", h.Authorize)
	g.POST("/:id/mark-paid", h.MarkPaid)
	g.POST("/:id/annul", h.Annul)
	g.GET("/:id/html", h.HTML)
	g.GET("/:id/pdf", h.PDF)
	g.GET("/:id/download", h.Download)
	return g
}

// AFIPRoutes mounts /afip
func AFIPRoutes(h *handler.FacturaHandler) *DomainGroup {
	g := NewDomainGroup("afip", "/afip")
	g.GET("/status", h.AFIPStatus)
	g.GET("/last-number", h.LastNumber)
	return g
}

// ProyectoRoutes mounts /proyectos, including the certificados of a proyecto
func ProyectoRoutes(h *handler.ProyectoHandler, certs *handler.CertificadoHandler) *DomainGroup {
	g := NewDomainGroup("proyectos", "/proyectos")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/stats", h.Stats)
	g.GET("/code/:code", h.GetByCode)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.PATCH("/:id/status", h.ChangeStatus)
	g.GET("/:id/summary", h.Summary)
	g.GET("/:id/certificados", certs.ListByProyecto)
	return g
}

// CertificadoRoutes mounts /certificados. The maintenance subgroup runs
// behind admin.
func CertificadoRoutes(h *handler.CertificadoHandler, admin gin.HandlerFunc) *DomainGroup {
	g := NewDomainGroup("certificados", "/certificados")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.POST("/:id/approve", h.Approve)
	g.POST("/:id/annul", h.Annul)

	maintenance := g.Group("certificados-maintenance", "/maintenance")
	if admin != nil {
		maintenance.Use(admin)
	}
	maintenance.GET("/diagnose", h.Diagnose)
	maintenance.POST("/fix", h.Fix)
	return g
}

// ProspectoRoutes mounts /prospectos
func ProspectoRoutes(h *handler.ProspectoHandler) *DomainGroup {
	g := NewDomainGroup("prospectos", "/prospectos")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/pipeline", h.Pipeline)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.PATCH("/:id/status", h.ChangeStatus)
	g.POST("/:id/convert", h.Convert)
	return g
}

// DashboardRoutes mounts /dashboard
func DashboardRoutes(h *handler.DashboardHandler) *DomainGroup {
	g := NewDomainGroup("dashboard", "/dashboard")
	g.GET("/stats", h.Stats)
	return g
}

// SystemRoutes mounts /system
func SystemRoutes(h *handler.SystemHandler) *DomainGroup {
	g := NewDomainGroup("system", "/system")
	g.GET("/info", h.GetSystemInfo)
	return g
}

func chain(mw gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	if mw == nil {
		return []gin.HandlerFunc{h}
	}
	return []gin.HandlerFunc{mw, h}
}
