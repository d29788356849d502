package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestPerformanceMonitor_Record(t *testing.T) {
	m := NewPerformanceMonitor(500*time.Millisecond, nil)

	m.Record("GET /api/v1/clientes", http.StatusOK, 100*time.Millisecond)
	m.Record("GET /api/v1/clientes", http.StatusOK, 300*time.Millisecond)
	m.Record("GET /api/v1/clientes", http.StatusInternalServerError, 800*time.Millisecond)
	m.Record("POST /api/v1/facturas", http.StatusUnprocessableEntity, 50*time.Millisecond)

	snap := m.Snapshot()

	assert.Equal(t, int64(4), snap.Totals.Requests)
	assert.Equal(t, int64(1), snap.Totals.ServerErrors)
	assert.Equal(t, int64(1), snap.Totals.ClientErrors)
	assert.Equal(t, int64(1), snap.Totals.SlowRequests)
	assert.Equal(t, 800.0, snap.Totals.MaxMs)
	assert.Equal(t, 312.5, snap.Totals.AvgMs)
	assert.Equal(t, 500.0, snap.SlowThresholdMs)

	require.Len(t, snap.Routes, 2)
	clientes := snap.Routes[0]
	assert.Equal(t, "GET /api/v1/clientes", clientes.Route)
	assert.Equal(t, int64(3), clientes.Requests)
	assert.Equal(t, 400.0, clientes.AvgMs)
	assert.InDelta(t, 1.0/3, clientes.ErrorRate, 1e-9)
	assert.Equal(t, "POST /api/v1/facturas", snap.Routes[1].Route)
}

func TestPerformanceMonitor_EmptySnapshot(t *testing.T) {
	snap := NewPerformanceMonitor(0, nil).Snapshot()

	assert.Zero(t, snap.Totals.Requests)
	assert.Zero(t, snap.Totals.AvgMs)
	assert.Empty(t, snap.Routes)
	assert.Equal(t, 1000.0, snap.SlowThresholdMs)
}

func TestPerformanceMonitor_Reset(t *testing.T) {
	m := NewPerformanceMonitor(time.Second, nil)
	m.Record("GET /x", http.StatusOK, time.Millisecond)
	m.Reset()

	snap := m.Snapshot()
	assert.Zero(t, snap.Totals.Requests)
	assert.Empty(t, snap.Routes)
}

func TestPerformanceMonitor_Middleware(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	m := NewPerformanceMonitor(time.Second, zap.New(core))

	// every call advances the clock by 600ms, so each request takes 600ms
	// unless the handler advances it further
	var mu sync.Mutex
	now := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(600 * time.Millisecond)
		return now
	}

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/api/v1/proyectos/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/v1/facturas/:id/pdf", func(c *gin.Context) {
		m.now()
		c.Status(http.StatusOK)
	})
	router.GET("/metrics/performance", m.Handler())

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/proyectos/1", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/facturas/1/pdf", nil))

	require.Equal(t, 1, logs.FilterMessage("Slow request").Len())
	assert.Equal(t, "GET /api/v1/facturas/:id/pdf", logs.All()[0].ContextMap()["route"])

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics/performance", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool                `json:"success"`
		Data    PerformanceSnapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, int64(2), body.Data.Totals.Requests)
	assert.Equal(t, int64(1), body.Data.Totals.SlowRequests)
	assert.Len(t, body.Data.Routes, 2)
}
