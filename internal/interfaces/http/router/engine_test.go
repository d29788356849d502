package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgi/backend/internal/infrastructure/auth"
	"github.com/sgi/backend/internal/infrastructure/config"
	"github.com/sgi/backend/internal/interfaces/http/handler"
	"github.com/sgi/backend/internal/interfaces/http/middleware"
	"github.com/sgi/backend/internal/interfaces/http/views"
)

type engineFixture struct {
	engine *Engine
	jwt    *auth.JWTService
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "SGI", Env: "test"},
		HTTP: config.HTTPConfig{
			MaxBodySize:           1 << 20,
			AuthRateLimitEnabled:  true,
			AuthRateLimitRequests: 2,
			AuthRateLimitWindow:   time.Minute,
		},
		BasicAuth: config.BasicAuthConfig{Enabled: true, Username: "admin", Password: "clave"},
	}
}

// newEngineFixture wires real handlers over nil services; only requests
// rejected before reaching a service are sent through it.
func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-32-characters-long",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: time.Hour,
		Issuer:                 "sgi-test",
	})
	renderer, err := views.NewRenderer(nil)
	require.NoError(t, err)

	e := NewEngine(Options{
		Config:     testConfig(),
		JWTService: jwtService,
		Handlers: Handlers{
			Auth:         handler.NewAuthHandler(nil),
			Clientes:     handler.NewClienteHandler(nil, nil),
			Presupuestos: handler.NewPresupuestoHandler(nil, nil),
			Facturas:     handler.NewFacturaHandler(nil, nil),
			Proyectos:    handler.NewProyectoHandler(nil),
			Certificados: handler.NewCertificadoHandler(nil),
			Prospectos:   handler.NewProspectoHandler(nil),
			Dashboard:    handler.NewDashboardHandler(nil),
			System:       handler.NewSystemHandler(handler.SystemInfo{Name: "SGI", Version: "test"}, nil),
		},
		Views:       views.NewHandler(renderer, views.Services{}),
		Prometheus:  middleware.NewPrometheusMetrics("sgi_test"),
		Performance: middleware.NewPerformanceMonitor(time.Second, nil),
	})
	t.Cleanup(e.Close)
	return &engineFixture{engine: e, jwt: jwtService}
}

func (f *engineFixture) do(t *testing.T, method, target, body string, setup func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if setup != nil {
		setup(req)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func (f *engineFixture) bearer(t *testing.T, role string) func(*http.Request) {
	pair, err := f.jwt.GenerateTokenPair(auth.GenerateTokenInput{UserID: 1, Username: "u", Role: role})
	require.NoError(t, err)
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+pair.AccessToken) }
}

func basic(r *http.Request) { r.SetBasicAuth("admin", "clave") }

func TestEngine_PublicEndpoints(t *testing.T) {
	f := newEngineFixture(t)

	w := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	assert.NotEmpty(t, w.Header().Get("X-Content-Type-Options"))

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health/live", "", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/system/info", "", nil).Code)

	w = f.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/app/", w.Header().Get("Location"))
}

func TestEngine_APIRequiresToken(t *testing.T) {
	f := newEngineFixture(t)

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/v1/clientes", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/v1/facturas/1", "", nil).Code)

	// a valid token reaches the handler, which rejects the malformed ID
	assert.Equal(t, http.StatusBadRequest,
		f.do(t, http.MethodGet, "/api/v1/clientes/abc", "", f.bearer(t, "OPERADOR")).Code)
}

func TestEngine_MaintenanceRequiresAdmin(t *testing.T) {
	f := newEngineFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/certificados/maintenance/diagnose", "", f.bearer(t, "OPERADOR"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/certificados/maintenance/fix", "", f.bearer(t, "OPERADOR"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestEngine_LoginRateLimit(t *testing.T) {
	f := newEngineFixture(t)

	// the credentials fail validation, so the auth service is never reached
	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/v1/auth/login", `{}`, nil).Code)
	}
	w := f.do(t, http.MethodPost, "/api/v1/auth/login", `{}`, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestEngine_BasicAuthGates(t *testing.T) {
	f := newEngineFixture(t)

	w := f.do(t, http.MethodGet, "/app/clientes", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Basic")

	w = f.do(t, http.MethodGet, "/app/clientes?status=BORRADO", "", basic)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/metrics/performance", "", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/metrics/performance", "", basic).Code)

	w = f.do(t, http.MethodGet, "/metrics/prometheus", "", basic)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sgi_test_http_requests_total")
}

func TestHandlers_Groups(t *testing.T) {
	h := Handlers{
		Auth:         handler.NewAuthHandler(nil),
		Clientes:     handler.NewClienteHandler(nil, nil),
		Presupuestos: handler.NewPresupuestoHandler(nil, nil),
		Facturas:     handler.NewFacturaHandler(nil, nil),
		Proyectos:    handler.NewProyectoHandler(nil),
		Certificados: handler.NewCertificadoHandler(nil),
		Prospectos:   handler.NewProspectoHandler(nil),
		Dashboard:    handler.NewDashboardHandler(nil),
		System:       handler.NewSystemHandler(handler.SystemInfo{}, nil),
	}

	routes := map[string]bool{}
	for _, g := range h.Groups(nil, nil) {
		for _, r := range g.Routes() {
			routes[r.Method+" "+r.Path] = true
		}
	}
	for _, want := range []string{
		"POST /auth/login",
		"POST /clientes/import",
		"POST /presupuestos/:id/approve",
		"POST /facturas/from-certificado/:id",
		"POST /facturas/:id/authorize",
		"GET /afip/last-number",
		"GET /proyectos/:id/certificados",
		"POST /certificados/maintenance/fix",
		"POST /prospectos/:id/convert",
		"GET /dashboard/stats",
		"GET /system/info",
	} {
		assert.True(t, routes[want], want)
	}
}
