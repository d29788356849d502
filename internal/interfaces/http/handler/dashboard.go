package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/sgi/backend/internal/domain/dashboard"
)

// DashboardService computes the home page statistics
type DashboardService interface {
	Stats(ctx context.Context) (*dashboard.Stats, error)
	Refresh(ctx context.Context) (*dashboard.Stats, error)
}

// DashboardHandler handles /api/v1/dashboard
type DashboardHandler struct {
	BaseHandler
	service DashboardService
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(service DashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Stats handles GET /dashboard/stats; ?refresh=true bypasses the cache
func (h *DashboardHandler) Stats(c *gin.Context) {
	fn := h.service.Stats
	if c.Query("refresh") == "true" {
		fn = h.service.Refresh
	}
	stats, err := fn(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}
