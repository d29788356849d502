package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetrics(t *testing.T) {
	m := NewPrometheusMetrics("sgi_test")

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/api/v1/clientes/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/v1/facturas/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	router.GET("/metrics/prometheus", m.Handler())

	for i := 0; i < 2; i++ {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/clientes/1", nil))
	}
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/facturas/5", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/api/v1/clientes/:id", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/api/v1/facturas/:id", "4xx")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics/prometheus", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "sgi_test_http_requests_total")
	assert.Contains(t, body, `route="/api/v1/clientes/:id"`)
	assert.Contains(t, body, "sgi_test_http_request_duration_seconds_bucket")
	assert.Contains(t, body, "go_goroutines")
}

func TestNewPrometheusMetrics_DefaultNamespace(t *testing.T) {
	m := NewPrometheusMetrics("")
	m.requestsTotal.WithLabelValues("GET", "/x", "2xx").Inc()

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "sgi_http_requests_total")
}
