package views

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	certificadoapp "github.com/sgi/backend/internal/application/certificado"
	clienteapp "github.com/sgi/backend/internal/application/cliente"
	"github.com/sgi/backend/internal/application/common"
	facturaapp "github.com/sgi/backend/internal/application/factura"
	prospectoapp "github.com/sgi/backend/internal/application/prospecto"
	proyectoapp "github.com/sgi/backend/internal/application/proyecto"
	"github.com/sgi/backend/internal/domain/dashboard"
	"github.com/sgi/backend/internal/domain/shared"
	"github.com/sgi/backend/internal/interfaces/http/handler"
	"github.com/sgi/backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Each fake embeds the service interface and overrides the methods the
// pages call; anything else panics on the nil embedded value.

type fakeClientes struct {
	handler.ClienteService
	mock.Mock
}

func (m *fakeClientes) List(ctx context.Context, filter clienteapp.ListFilter) ([]clienteapp.ClienteResponse, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]clienteapp.ClienteResponse), args.Get(1).(int64), args.Error(2)
}

func (m *fakeClientes) Summary(ctx context.Context, id int64) (*clienteapp.SummaryResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*clienteapp.SummaryResponse), args.Error(1)
}

type fakeFacturas struct {
	handler.FacturaService
	mock.Mock
}

func (m *fakeFacturas) List(ctx context.Context, filter facturaapp.ListFilter) ([]facturaapp.FacturaResponse, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]facturaapp.FacturaResponse), args.Get(1).(int64), args.Error(2)
}

func (m *fakeFacturas) GetByID(ctx context.Context, id int64) (*facturaapp.FacturaResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*facturaapp.FacturaResponse), args.Error(1)
}

type fakeProyectos struct {
	handler.ProyectoService
	mock.Mock
}

func (m *fakeProyectos) Summary(ctx context.Context, id int64) (*proyectoapp.SummaryResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*proyectoapp.SummaryResponse), args.Error(1)
}

type fakeCertificados struct {
	handler.CertificadoService
	mock.Mock
}

func (m *fakeCertificados) List(ctx context.Context, filter certificadoapp.ListFilter) ([]certificadoapp.CertificadoResponse, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]certificadoapp.CertificadoResponse), args.Get(1).(int64), args.Error(2)
}

type fakeProspectos struct {
	handler.ProspectoService
	mock.Mock
}

func (m *fakeProspectos) List(ctx context.Context, filter prospectoapp.ListFilter) ([]prospectoapp.ProspectoResponse, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]prospectoapp.ProspectoResponse), args.Get(1).(int64), args.Error(2)
}

func (m *fakeProspectos) Pipeline(ctx context.Context) (*prospectoapp.PipelineResponse, error) {
	args := m.Called(ctx)
	return args.Get(0).(*prospectoapp.PipelineResponse), args.Error(1)
}

type fakeDashboard struct {
	handler.DashboardService
	mock.Mock
}

func (m *fakeDashboard) Stats(ctx context.Context) (*dashboard.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dashboard.Stats), args.Error(1)
}

type viewFixture struct {
	router       *gin.Engine
	clientes     *fakeClientes
	facturas     *fakeFacturas
	proyectos    *fakeProyectos
	certificados *fakeCertificados
	prospectos   *fakeProspectos
	dashboard    *fakeDashboard
}

func newViewFixture(t *testing.T) *viewFixture {
	f := &viewFixture{
		clientes:     new(fakeClientes),
		facturas:     new(fakeFacturas),
		proyectos:    new(fakeProyectos),
		certificados: new(fakeCertificados),
		prospectos:   new(fakeProspectos),
		dashboard:    new(fakeDashboard),
	}
	h := NewHandler(testRenderer(t), Services{
		Clientes:     f.clientes,
		Facturas:     f.facturas,
		Proyectos:    f.proyectos,
		Certificados: f.certificados,
		Prospectos:   f.prospectos,
		Dashboard:    f.dashboard,
	})

	f.router = gin.New()
	app := f.router.Group("/app")
	app.Use(func(c *gin.Context) {
		c.Set(middleware.BasicAuthUserKey, "operador")
		c.Next()
	})
	h.RegisterRoutes(app)
	return f
}

func (f *viewFixture) get(target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	f.router.ServeHTTP(w, req)
	return w
}

func TestHandler_Dashboard(t *testing.T) {
	f := newViewFixture(t)
	f.dashboard.On("Stats", mock.Anything).Return(&dashboard.Stats{
		ClientesActivos: 7,
		PendienteCobro:  decimal.NewFromInt(2500000),
	}, nil)

	w := f.get("/app/")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "$ 2.500.000,00")
	assert.Contains(t, w.Body.String(), "operador")
}

func TestHandler_DashboardFailure(t *testing.T) {
	f := newViewFixture(t)
	f.dashboard.On("Stats", mock.Anything).Return(nil, errors.New("connection refused"))

	w := f.get("/app/")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Ocurrió un error inesperado")
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestHandler_Clientes(t *testing.T) {
	f := newViewFixture(t)
	f.clientes.On("List", mock.Anything, clienteapp.ListFilter{Status: "ACTIVO", Page: 2}).
		Return([]clienteapp.ClienteResponse{
			{ID: 4, DisplayName: "Metalúrgica Norte SA", CUIT: "30712345671", IVACondition: "RESPONSABLE_INSCRIPTO", Status: "ACTIVO"},
		}, int64(45), nil)

	w := f.get("/app/clientes?status=ACTIVO&page=2")

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `href="/app/clientes/4"`)
	assert.Contains(t, body, "30-71234567-1")
	assert.Contains(t, body, "Responsable Inscripto")
	assert.Contains(t, body, "Página 2 de 3")
	assert.Contains(t, body, "page=3")
	f.clientes.AssertExpectations(t)
}

func TestHandler_ClientesInvalidFilter(t *testing.T) {
	f := newViewFixture(t)

	w := f.get("/app/clientes?status=BORRADO")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Los filtros indicados no son válidos")
	f.clientes.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestHandler_Cliente(t *testing.T) {
	f := newViewFixture(t)
	f.clientes.On("Summary", mock.Anything, int64(4)).Return(&clienteapp.SummaryResponse{
		Cliente:        clienteapp.ClienteResponse{ID: 4, Name: "Metalúrgica Norte SA", DisplayName: "Metalúrgica Norte SA", Status: "ACTIVO"},
		Facturas:       2,
		FacturadoTotal: decimal.NewFromInt(121000),
	}, nil)
	f.clientes.On("Summary", mock.Anything, int64(99)).Return(nil, shared.ErrNotFound)
	f.facturas.On("List", mock.Anything, facturaapp.ListFilter{ClienteID: 4, PageSize: 10}).
		Return([]facturaapp.FacturaResponse{{ID: 8, Letter: "A", FullNumber: "0001-00000008", Status: "AUTORIZADA"}}, int64(1), nil)

	w := f.get("/app/clientes/4")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "$ 121.000,00")
	assert.Contains(t, w.Body.String(), "A 0001-00000008")

	assert.Equal(t, http.StatusNotFound, f.get("/app/clientes/99").Code)
	assert.Equal(t, http.StatusBadRequest, f.get("/app/clientes/abc").Code)
}

func TestHandler_Factura(t *testing.T) {
	f := newViewFixture(t)
	due := common.Date{}
	f.facturas.On("GetByID", mock.Anything, int64(8)).Return(&facturaapp.FacturaResponse{
		ID:         8,
		Letter:     "B",
		FullNumber: "0001-00000008",
		Status:     "AUTORIZADA",
		CAE:        "71234567890123",
		CAEDueDate: &due,
		Items: []common.LineResponse{
			{Position: 1, Description: "Mano de obra", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(500), Amount: decimal.NewFromInt(1000)},
		},
		Net:       decimal.NewFromInt(1000),
		IVAAmount: decimal.NewFromInt(210),
		IVARate:   decimal.NewFromInt(21),
		Total:     decimal.NewFromInt(1210),
	}, nil)

	w := f.get("/app/facturas/8")

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "<title>Factura B 0001-00000008 · SGI</title>")
	assert.Contains(t, body, "71234567890123")
	assert.Contains(t, body, "Mano de obra")
	assert.Contains(t, body, "IVA 21 %")
	assert.Contains(t, body, "$ 1.210,00")
}

func TestHandler_Proyecto(t *testing.T) {
	f := newViewFixture(t)
	facturaID := int64(30)
	f.proyectos.On("Summary", mock.Anything, int64(5)).Return(&proyectoapp.SummaryResponse{
		Proyecto:         proyectoapp.ProyectoResponse{ID: 5, Code: "OB-2026-001", Name: "Nave industrial", Budget: decimal.NewFromInt(1000000), Status: "EN_CURSO"},
		CertifiedPercent: decimal.NewFromInt(40),
	}, nil)
	f.certificados.On("List", mock.Anything, certificadoapp.ListFilter{ProyectoID: 5, PageSize: shared.MaxPageSize}).
		Return([]certificadoapp.CertificadoResponse{
			{ID: 1, Number: 1, Percent: decimal.NewFromInt(40), Amount: decimal.NewFromInt(400000), Status: "FACTURADO", FacturaID: &facturaID},
		}, int64(1), nil)

	w := f.get("/app/proyectos/5")

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "OB-2026-001 Nave industrial")
	assert.Contains(t, body, "En Curso")
	assert.Contains(t, body, "40 %")
	assert.Contains(t, body, `href="/app/facturas/30"`)
}

func TestHandler_Prospectos(t *testing.T) {
	f := newViewFixture(t)
	f.prospectos.On("List", mock.Anything, prospectoapp.ListFilter{Overdue: true}).
		Return([]prospectoapp.ProspectoResponse{{ID: 2, Name: "Laura Gómez", Source: "REFERIDO", Status: "CONTACTADO", FollowUpOverdue: true}}, int64(1), nil)
	f.prospectos.On("Pipeline", mock.Anything).
		Return(&prospectoapp.PipelineResponse{OpenCount: 3, OpenValue: decimal.NewFromInt(90000)}, nil)

	w := f.get("/app/prospectos?overdue=true")

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Laura Gómez")
	assert.Contains(t, body, "Vencido")
	assert.Contains(t, body, "$ 90.000,00")
}
