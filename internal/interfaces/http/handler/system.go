package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sgi/backend/internal/interfaces/http/dto"
)

const healthCheckTimeout = 3 * time.Second

// Pinger reports whether a backing service answers
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemInfo describes the running process for health reports
type SystemInfo struct {
	Name         string
	Version      string
	Environment  string
	AFIPMode     string
	CacheBackend string
}

// SystemHandler handles /health and /api/v1/system
type SystemHandler struct {
	BaseHandler
	info      SystemInfo
	db        Pinger
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler. db may be nil.
func NewSystemHandler(info SystemInfo, db Pinger) *SystemHandler {
	return &SystemHandler{info: info, db: db, startTime: time.Now()}
}

// ComponentStatus is the state of one dependency
type ComponentStatus struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// MemoryStats is a subset of runtime.MemStats in megabytes
type MemoryStats struct {
	AllocMB      float64 `json:"alloc_mb"`
	SysMB        float64 `json:"sys_mb"`
	HeapInuseMB  float64 `json:"heap_inuse_mb"`
	NumGC        uint32  `json:"num_gc"`
	NumGoroutine int     `json:"num_goroutine"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status        string          `json:"status"`
	Version       string          `json:"version"`
	Environment   string          `json:"environment"`
	Database      ComponentStatus `json:"database"`
	AFIPMode      string          `json:"afip_mode"`
	CacheBackend  string          `json:"cache_backend"`
	Uptime        string          `json:"uptime"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Memory        MemoryStats     `json:"memory"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Health handles GET /health. It answers 503 when the database is down.
func (h *SystemHandler) Health(c *gin.Context) {
	uptime := time.Since(h.startTime)
	resp := HealthResponse{
		Status:        "ok",
		Version:       h.info.Version,
		Environment:   h.info.Environment,
		Database:      h.checkDatabase(c.Request.Context()),
		AFIPMode:      h.info.AFIPMode,
		CacheBackend:  h.info.CacheBackend,
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: int64(uptime.Seconds()),
		Memory:        readMemoryStats(),
		Timestamp:     time.Now().UTC(),
	}

	status := http.StatusOK
	if resp.Database.Status == "down" {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, dto.NewSuccessResponse(resp))
}

// Live handles GET /health/live, answering as long as the process serves
func (h *SystemHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"status": "ok"}))
}

func (h *SystemHandler) checkDatabase(ctx context.Context) ComponentStatus {
	if h.db == nil {
		return ComponentStatus{Status: "unknown"}
	}
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	start := time.Now()
	if err := h.db.Ping(ctx); err != nil {
		return ComponentStatus{Status: "down", Error: err.Error()}
	}
	return ComponentStatus{Status: "up", Latency: time.Since(start).Round(time.Microsecond).String()}
}

func readMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	const mb = 1024 * 1024
	return MemoryStats{
		AllocMB:      float64(m.Alloc) / mb,
		SysMB:        float64(m.Sys) / mb,
		HeapInuseMB:  float64(m.HeapInuse) / mb,
		NumGC:        m.NumGC,
		NumGoroutine: runtime.NumGoroutine(),
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// GetSystemInfo handles GET /system/info
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      h.info.Name,
		Version:   h.info.Version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}
