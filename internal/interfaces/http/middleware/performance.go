package middleware

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sgi/backend/internal/interfaces/http/dto"
)

const defaultSlowRequestThreshold = time.Second

// PerformanceMonitor keeps in-process request counters, globally and per
// route. Unlike the OTel and Prometheus metrics it needs no collector and is
// read back through /metrics/performance.
type PerformanceMonitor struct {
	mu        sync.Mutex
	startedAt time.Time
	threshold time.Duration
	logger    *zap.Logger
	now       func() time.Time
	total     requestStats
	routes    map[string]*requestStats
}

type requestStats struct {
	requests     int64
	clientErrors int64
	serverErrors int64
	slow         int64
	totalTime    time.Duration
	maxTime      time.Duration
}

func (s *requestStats) add(status int, elapsed, threshold time.Duration) {
	s.requests++
	switch {
	case status >= http.StatusInternalServerError:
		s.serverErrors++
	case status >= http.StatusBadRequest:
		s.clientErrors++
	}
	if elapsed >= threshold {
		s.slow++
	}
	s.totalTime += elapsed
	if elapsed > s.maxTime {
		s.maxTime = elapsed
	}
}

func (s *requestStats) snapshot() RequestStats {
	out := RequestStats{
		Requests:     s.requests,
		ClientErrors: s.clientErrors,
		ServerErrors: s.serverErrors,
		SlowRequests: s.slow,
		MaxMs:        durationMs(s.maxTime),
	}
	if s.requests > 0 {
		out.AvgMs = durationMs(s.totalTime / time.Duration(s.requests))
		out.ErrorRate = float64(s.serverErrors) / float64(s.requests)
	}
	return out
}

// RequestStats is the JSON form of one counter set
type RequestStats struct {
	Requests     int64   `json:"requests"`
	ClientErrors int64   `json:"client_errors"`
	ServerErrors int64   `json:"server_errors"`
	SlowRequests int64   `json:"slow_requests"`
	AvgMs        float64 `json:"avg_ms"`
	MaxMs        float64 `json:"max_ms"`
	ErrorRate    float64 `json:"error_rate"`
}

// RouteStats is a RequestStats labelled with its route
type RouteStats struct {
	Route string `json:"route"`
	RequestStats
}

// PerformanceSnapshot is the body served by /metrics/performance
type PerformanceSnapshot struct {
	UptimeSeconds   int64        `json:"uptime_seconds"`
	SlowThresholdMs float64      `json:"slow_threshold_ms"`
	Totals          RequestStats `json:"totals"`
	Routes          []RouteStats `json:"routes"`
}

// NewPerformanceMonitor creates a monitor. Requests taking at least
// threshold are counted, and logged, as slow.
func NewPerformanceMonitor(threshold time.Duration, logger *zap.Logger) *PerformanceMonitor {
	if threshold <= 0 {
		threshold = defaultSlowRequestThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PerformanceMonitor{
		startedAt: time.Now(),
		threshold: threshold,
		logger:    logger,
		now:       time.Now,
		routes:    make(map[string]*requestStats),
	}
}

// Middleware times every request and updates the counters
func (m *PerformanceMonitor) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := m.now()
		c.Next()
		elapsed := m.now().Sub(start)

		route := c.Request.Method + " " + getRoutePattern(c)
		status := c.Writer.Status()
		m.Record(route, status, elapsed)

		if elapsed >= m.threshold {
			m.logger.Warn("Slow request",
				zap.String("route", route),
				zap.String("path", c.Request.URL.Path),
				zap.Int("status", status),
				zap.Duration("elapsed", elapsed),
				zap.String("request_id", c.GetString(RequestIDKey)),
			)
		}
	}
}

// Record adds one finished request
func (m *PerformanceMonitor) Record(route string, status int, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total.add(status, elapsed, m.threshold)
	rs, ok := m.routes[route]
	if !ok {
		rs = &requestStats{}
		m.routes[route] = rs
	}
	rs.add(status, elapsed, m.threshold)
}

// Snapshot copies the counters. Routes are ordered by request count, busiest
// first.
func (m *PerformanceMonitor) Snapshot() PerformanceSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := PerformanceSnapshot{
		UptimeSeconds:   int64(m.now().Sub(m.startedAt).Seconds()),
		SlowThresholdMs: durationMs(m.threshold),
		Totals:          m.total.snapshot(),
		Routes:          make([]RouteStats, 0, len(m.routes)),
	}
	for route, rs := range m.routes {
		snap.Routes = append(snap.Routes, RouteStats{Route: route, RequestStats: rs.snapshot()})
	}
	sort.Slice(snap.Routes, func(i, j int) bool {
		if snap.Routes[i].Requests != snap.Routes[j].Requests {
			return snap.Routes[i].Requests > snap.Routes[j].Requests
		}
		return snap.Routes[i].Route < snap.Routes[j].Route
	})
	return snap
}

// Reset clears every counter
func (m *PerformanceMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total = requestStats{}
	m.routes = make(map[string]*requestStats)
}

// Handler serves the snapshot in the standard response envelope
func (m *PerformanceMonitor) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.NewSuccessResponse(m.Snapshot()))
	}
}

func durationMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
