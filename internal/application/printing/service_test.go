package printing_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sgi/backend/internal/application/common"
	"github.com/sgi/backend/internal/application/printing"
	"github.com/sgi/backend/internal/domain/cliente"
	"github.com/sgi/backend/internal/domain/factura"
	"github.com/sgi/backend/internal/domain/presupuesto"
	"github.com/sgi/backend/internal/domain/shared"
	"github.com/sgi/backend/internal/infrastructure/config"
	infra "github.com/sgi/backend/internal/infrastructure/printing"
	"github.com/sgi/backend/internal/infrastructure/storage"
)

type MockFacturaStore struct {
	mock.Mock
}

func (m *MockFacturaStore) FindByID(ctx context.Context, id int64) (*factura.Factura, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*factura.Factura), args.Error(1)
}

func (m *MockFacturaStore) Save(ctx context.Context, f *factura.Factura) error {
	return m.Called(ctx, f).Error(0)
}

type MockPresupuestoFinder struct {
	mock.Mock
}

func (m *MockPresupuestoFinder) FindByID(ctx context.Context, id int64) (*presupuesto.Presupuesto, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*presupuesto.Presupuesto), args.Error(1)
}

type MockClienteFinder struct {
	mock.Mock
}

func (m *MockClienteFinder) FindByID(ctx context.Context, id int64) (*cliente.Cliente, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cliente.Cliente), args.Error(1)
}

type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(ctx context.Context, req *infra.RenderRequest) (*infra.RenderResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*infra.RenderResult), args.Error(1)
}

func (m *MockRenderer) Close() error {
	return nil
}

type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	return m.Called(ctx, key, data, contentType).Error(0)
}

func (m *MockObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockObjectStore) DownloadURL(ctx context.Context, key string) (string, time.Time, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

var (
	issueDate = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	pdfBytes  = []byte("%PDF-1.7 test")
	company   = config.CompanyConfig{
		Name:         "Servicios Integrales SRL",
		CUIT:         "30712345671",
		IVACondition: "RESPONSABLE_INSCRIPTO",
	}
)

type fixture struct {
	facturas     *MockFacturaStore
	presupuestos *MockPresupuestoFinder
	clientes     *MockClienteFinder
	renderer     *MockRenderer
	archive      *MockObjectStore
	svc          *printing.DocumentService
}

func newFixture(t *testing.T, withRenderer, withArchive bool) *fixture {
	t.Helper()
	engine, err := infra.NewTemplateEngine(infra.WithFormatter(infra.NewFormatter(infra.Locale, time.UTC)))
	require.NoError(t, err)

	fx := &fixture{
		facturas:     new(MockFacturaStore),
		presupuestos: new(MockPresupuestoFinder),
		clientes:     new(MockClienteFinder),
		renderer:     new(MockRenderer),
		archive:      new(MockObjectStore),
	}
	var renderer infra.PDFRenderer
	if withRenderer {
		renderer = fx.renderer
	}
	fx.svc = printing.NewDocumentService(fx.facturas, fx.presupuestos, fx.clientes, engine, renderer, company, nil)
	if withArchive {
		fx.svc.SetArchive(fx.archive)
	}

	c, err := cliente.NewCliente(cliente.KindJuridica, "Constructora del Sur SA", cliente.IVAResponsableInscripto, "20-11111111-2")
	require.NoError(t, err)
	c.ID = 5
	fx.clientes.On("FindByID", mock.Anything, int64(5)).Return(c, nil)
	return fx
}

func newFactura(t *testing.T, authorized bool) *factura.Factura {
	t.Helper()
	f, err := factura.NewFactura(5, factura.TypeA, 1, factura.ConceptProductos, issueDate, decimal.NewFromInt(21))
	require.NoError(t, err)
	f.ID = 9
	line, err := shared.NewLine("Tablero seccional", decimal.NewFromInt(1), decimal.NewFromInt(1000))
	require.NoError(t, err)
	require.NoError(t, f.ReplaceItems([]shared.Line{line}))
	if authorized {
		require.NoError(t, f.ApplyAuthorization(issueDate, &factura.AuthorizationResult{
			Number:     42,
			CAE:        "74123456789012",
			CAEDueDate: issueDate.AddDate(0, 0, 10),
			Result:     "A",
		}))
	}
	return f
}

func TestDocumentService_FacturaHTML(t *testing.T) {
	fx := newFixture(t, false, false)
	fx.facturas.On("FindByID", mock.Anything, int64(9)).Return(newFactura(t, true), nil)

	html, err := fx.svc.FacturaHTML(context.Background(), 9)

	require.NoError(t, err)
	assert.Contains(t, html, "<title>Factura A 00001-00000042</title>")
	assert.Contains(t, html, "Constructora del Sur SA")
	assert.Contains(t, html, "74123456789012")
}

func TestDocumentService_FacturaPDF_Disabled(t *testing.T) {
	fx := newFixture(t, false, false)

	_, err := fx.svc.FacturaPDF(context.Background(), 9)

	assert.Equal(t, "NOT_CONFIGURED", common.DomainCode(err))
	assert.False(t, fx.svc.PDFEnabled())
}

func TestDocumentService_FacturaPDF_ArchivesAuthorized(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, true, true)
	f := newFactura(t, true)
	fx.facturas.On("FindByID", ctx, int64(9)).Return(f, nil)
	fx.facturas.On("Save", ctx, f).Return(nil)
	fx.renderer.On("Render", ctx, mock.MatchedBy(func(req *infra.RenderRequest) bool {
		return req.Title == "Factura A 00001-00000042" && req.PaperSize == infra.PaperSizeA4
	})).Return(&infra.RenderResult{PDFData: pdfBytes, PageCount: 1}, nil)
	fx.archive.On("Put", ctx, "facturas/2026/A/00001_00000042.pdf", pdfBytes, printing.PDFContentType).Return(nil)

	doc, err := fx.svc.FacturaPDF(ctx, 9)

	require.NoError(t, err)
	assert.Equal(t, "Factura_A_00001-00000042.pdf", doc.Filename)
	assert.Equal(t, pdfBytes, doc.Data)
	assert.True(t, doc.Archived)
	assert.Equal(t, "facturas/2026/A/00001_00000042.pdf", f.PDFKey)
	fx.archive.AssertExpectations(t)
}

func TestDocumentService_FacturaPDF_ServesArchivedCopy(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, true, true)
	f := newFactura(t, true)
	f.PDFKey = "facturas/2026/A/00001_00000042.pdf"
	fx.facturas.On("FindByID", ctx, int64(9)).Return(f, nil)
	fx.archive.On("Get", ctx, f.PDFKey).Return(pdfBytes, nil)

	doc, err := fx.svc.FacturaPDF(ctx, 9)

	require.NoError(t, err)
	assert.True(t, doc.Archived)
	fx.renderer.AssertNotCalled(t, "Render", mock.Anything, mock.Anything)
}

func TestDocumentService_FacturaPDF_RerendersMissingArchive(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, true, true)
	f := newFactura(t, true)
	f.PDFKey = "facturas/2026/A/00001_00000042.pdf"
	fx.facturas.On("FindByID", ctx, int64(9)).Return(f, nil)
	fx.facturas.On("Save", ctx, f).Return(nil)
	fx.archive.On("Get", ctx, f.PDFKey).Return(nil, storage.ErrObjectNotFound)
	fx.archive.On("Put", ctx, f.PDFKey, pdfBytes, printing.PDFContentType).Return(nil)
	fx.renderer.On("Render", ctx, mock.Anything).Return(&infra.RenderResult{PDFData: pdfBytes}, nil)

	doc, err := fx.svc.FacturaPDF(ctx, 9)

	require.NoError(t, err)
	assert.Equal(t, pdfBytes, doc.Data)
	fx.renderer.AssertNumberOfCalls(t, "Render", 1)
}

func TestDocumentService_FacturaPDF_DraftNotArchived(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, true, true)
	fx.facturas.On("FindByID", ctx, int64(9)).Return(newFactura(t, false), nil)
	fx.renderer.On("Render", ctx, mock.MatchedBy(func(req *infra.RenderRequest) bool {
		return strings.Contains(req.HTML, "COMPROBANTE NO VÁLIDO COMO FACTURA")
	})).Return(&infra.RenderResult{PDFData: pdfBytes}, nil)

	doc, err := fx.svc.FacturaPDF(ctx, 9)

	require.NoError(t, err)
	assert.False(t, doc.Archived)
	assert.Equal(t, "Factura_A_00001-BORRADOR.pdf", doc.Filename)
	fx.archive.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDocumentService_FacturaPDF_ArchiveFailureStillServes(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, true, true)
	f := newFactura(t, true)
	fx.facturas.On("FindByID", ctx, int64(9)).Return(f, nil)
	fx.renderer.On("Render", ctx, mock.Anything).Return(&infra.RenderResult{PDFData: pdfBytes}, nil)
	fx.archive.On("Put", ctx, mock.Anything, pdfBytes, printing.PDFContentType).Return(errors.New("bucket unavailable"))

	doc, err := fx.svc.FacturaPDF(ctx, 9)

	require.NoError(t, err)
	assert.False(t, doc.Archived)
	assert.Empty(t, f.PDFKey)
	fx.facturas.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestDocumentService_FacturaPDF_RenderTimeout(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, true, false)
	fx.facturas.On("FindByID", ctx, int64(9)).Return(newFactura(t, true), nil)
	fx.renderer.On("Render", ctx, mock.Anything).
		Return(nil, infra.NewRenderError(infra.ErrCodeRenderTimeout, "PDF rendering timed out after 30s", context.DeadlineExceeded))

	_, err := fx.svc.FacturaPDF(ctx, 9)

	assert.Equal(t, infra.ErrCodeRenderTimeout, common.DomainCode(err))
}

func TestDocumentService_FacturaDownload(t *testing.T) {
	ctx := context.Background()
	expires := time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC)

	t.Run("presigns the archived pdf", func(t *testing.T) {
		fx := newFixture(t, true, true)
		f := newFactura(t, true)
		f.PDFKey = "facturas/2026/A/00001_00000042.pdf"
		fx.facturas.On("FindByID", ctx, int64(9)).Return(f, nil)
		fx.archive.On("DownloadURL", ctx, f.PDFKey).Return("https://s3.local/facturas/x?sig=1", expires, nil)

		resp, err := fx.svc.FacturaDownload(ctx, 9)

		require.NoError(t, err)
		assert.Equal(t, "https://s3.local/facturas/x?sig=1", resp.URL)
		assert.Equal(t, expires, resp.ExpiresAt)
	})

	t.Run("requires an archived pdf", func(t *testing.T) {
		fx := newFixture(t, true, true)
		fx.facturas.On("FindByID", ctx, int64(9)).Return(newFactura(t, true), nil)

		_, err := fx.svc.FacturaDownload(ctx, 9)

		assert.Equal(t, "NOT_FOUND", common.DomainCode(err))
	})

	t.Run("requires the archive", func(t *testing.T) {
		fx := newFixture(t, true, false)

		_, err := fx.svc.FacturaDownload(ctx, 9)

		assert.Equal(t, "NOT_CONFIGURED", common.DomainCode(err))
	})
}

func TestDocumentService_PresupuestoPDF(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, true, false)
	p, err := presupuesto.NewPresupuesto(5, "Instalación eléctrica", issueDate, decimal.NewFromInt(21))
	require.NoError(t, err)
	p.ID = 3
	p.Number = "P-2026-0003"
	fx.presupuestos.On("FindByID", ctx, int64(3)).Return(p, nil)
	fx.renderer.On("Render", ctx, mock.MatchedBy(func(req *infra.RenderRequest) bool {
		return req.Title == "Presupuesto P-2026-0003" && strings.Contains(req.HTML, "<title>Presupuesto P-2026-0003</title>")
	})).Return(&infra.RenderResult{PDFData: pdfBytes}, nil)

	doc, err := fx.svc.PresupuestoPDF(ctx, 3)

	require.NoError(t, err)
	assert.Equal(t, "Presupuesto_P-2026-0003.pdf", doc.Filename)
	assert.Equal(t, printing.PDFContentType, doc.ContentType)
}

func TestDocumentService_PresupuestoHTML_NotFound(t *testing.T) {
	fx := newFixture(t, false, false)
	fx.presupuestos.On("FindByID", mock.Anything, int64(4)).Return(nil, shared.ErrNotFound)

	_, err := fx.svc.PresupuestoHTML(context.Background(), 4)

	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestArchiveKey(t *testing.T) {
	f := newFactura(t, true)
	assert.Equal(t, "facturas/2026/A/00001_00000042.pdf", printing.ArchiveKey(f))
}
