// Package printing renders facturas and presupuestos as HTML and PDF and
// archives authorized invoices in object storage.
package printing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sgi/backend/internal/domain/cliente"
	"github.com/sgi/backend/internal/domain/factura"
	"github.com/sgi/backend/internal/domain/presupuesto"
	"github.com/sgi/backend/internal/domain/shared"
	"github.com/sgi/backend/internal/infrastructure/config"
	infra "github.com/sgi/backend/internal/infrastructure/printing"
	"github.com/sgi/backend/internal/infrastructure/storage"
)

// FacturaStore loads facturas and records where their PDF was archived
type FacturaStore interface {
	FindByID(ctx context.Context, id int64) (*factura.Factura, error)
	Save(ctx context.Context, f *factura.Factura) error
}

// PresupuestoFinder loads presupuestos
type PresupuestoFinder interface {
	FindByID(ctx context.Context, id int64) (*presupuesto.Presupuesto, error)
}

// ClienteFinder loads the receiver printed on a document
type ClienteFinder interface {
	FindByID(ctx context.Context, id int64) (*cliente.Cliente, error)
}

// ObjectStore archives rendered PDFs
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	DownloadURL(ctx context.Context, key string) (string, time.Time, error)
}

var (
	errPDFDisabled = shared.NewDomainError("NOT_CONFIGURED", "La generación de PDF está deshabilitada")
	errNotArchived = shared.NewDomainError("NOT_FOUND", "La factura no tiene un PDF archivado")
)

// DocumentService renders printable documents
type DocumentService struct {
	facturas     FacturaStore
	presupuestos PresupuestoFinder
	clientes     ClienteFinder
	engine       *infra.TemplateEngine
	renderer     infra.PDFRenderer
	archive      ObjectStore
	company      config.CompanyConfig
	paperSize    infra.PaperSize
	logger       *zap.Logger
}

// NewDocumentService creates a DocumentService. renderer may be nil, in
// which case only HTML previews are available.
func NewDocumentService(
	facturas FacturaStore,
	presupuestos PresupuestoFinder,
	clientes ClienteFinder,
	engine *infra.TemplateEngine,
	renderer infra.PDFRenderer,
	company config.CompanyConfig,
	logger *zap.Logger,
) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{
		facturas:     facturas,
		presupuestos: presupuestos,
		clientes:     clientes,
		engine:       engine,
		renderer:     renderer,
		company:      company,
		paperSize:    infra.PaperSizeA4,
		logger:       logger.Named("documents"),
	}
}

// SetArchive enables archiving of authorized factura PDFs
func (s *DocumentService) SetArchive(store ObjectStore) {
	s.archive = store
}

// SetPaperSize overrides the A4 default
func (s *DocumentService) SetPaperSize(p infra.PaperSize) {
	if p.IsValid() {
		s.paperSize = p
	}
}

// PDFEnabled reports whether a renderer is configured
func (s *DocumentService) PDFEnabled() bool {
	return s.renderer != nil
}

// FacturaHTML renders the printable HTML of a factura
func (s *DocumentService) FacturaHTML(ctx context.Context, id int64) (string, error) {
	f, c, err := s.loadFactura(ctx, id)
	if err != nil {
		return "", err
	}
	return s.renderFacturaHTML(f, c)
}

// FacturaPDF returns the PDF of a factura. An authorized factura is served
// from the archive when it was stored before, and archived after its first
// rendering otherwise. Drafts are always rendered on the fly.
func (s *DocumentService) FacturaPDF(ctx context.Context, id int64) (*Document, error) {
	if s.renderer == nil {
		return nil, errPDFDisabled
	}
	f, c, err := s.loadFactura(ctx, id)
	if err != nil {
		return nil, err
	}
	filename := FacturaFilename(f)

	if s.archive != nil && f.PDFKey != "" {
		data, err := s.archive.Get(ctx, f.PDFKey)
		switch {
		case err == nil:
			return &Document{Filename: filename, ContentType: PDFContentType, Data: data, Archived: true}, nil
		case errors.Is(err, storage.ErrObjectNotFound):
			s.logger.Warn("Archived PDF missing, rendering again",
				zap.Int64("factura_id", f.ID), zap.String("key", f.PDFKey))
		default:
			s.logger.Warn("Archived PDF unavailable, rendering again",
				zap.Int64("factura_id", f.ID), zap.Error(err))
		}
	}

	html, err := s.renderFacturaHTML(f, c)
	if err != nil {
		return nil, err
	}
	data, err := s.renderPDF(ctx, f.Title()+" "+f.FullNumber(), html)
	if err != nil {
		return nil, err
	}
	doc := &Document{Filename: filename, ContentType: PDFContentType, Data: data}
	if s.archive != nil && f.IsAuthorized() {
		doc.Archived = s.archiveFactura(ctx, f, data)
	}
	return doc, nil
}

// FacturaDownload returns a presigned URL for the archived PDF of a factura
func (s *DocumentService) FacturaDownload(ctx context.Context, id int64) (*DownloadResponse, error) {
	if s.archive == nil {
		return nil, shared.NewDomainError("NOT_CONFIGURED", "El archivo de PDFs está deshabilitado")
	}
	f, err := s.facturas.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.PDFKey == "" {
		return nil, errNotArchived
	}
	url, expires, err := s.archive.DownloadURL(ctx, f.PDFKey)
	if err != nil {
		return nil, fmt.Errorf("presign factura %d: %w", f.ID, err)
	}
	return &DownloadResponse{URL: url, ExpiresAt: expires, Filename: FacturaFilename(f)}, nil
}

// PresupuestoHTML renders the printable HTML of a presupuesto
func (s *DocumentService) PresupuestoHTML(ctx context.Context, id int64) (string, error) {
	p, c, err := s.loadPresupuesto(ctx, id)
	if err != nil {
		return "", err
	}
	return s.renderPresupuestoHTML(p, c)
}

// PresupuestoPDF renders the PDF of a presupuesto
func (s *DocumentService) PresupuestoPDF(ctx context.Context, id int64) (*Document, error) {
	if s.renderer == nil {
		return nil, errPDFDisabled
	}
	p, c, err := s.loadPresupuesto(ctx, id)
	if err != nil {
		return nil, err
	}
	html, err := s.renderPresupuestoHTML(p, c)
	if err != nil {
		return nil, err
	}
	data, err := s.renderPDF(ctx, "Presupuesto "+p.Number, html)
	if err != nil {
		return nil, err
	}
	return &Document{Filename: PresupuestoFilename(p), ContentType: PDFContentType, Data: data}, nil
}

// FacturaFilename names the downloaded PDF of a factura
func FacturaFilename(f *factura.Factura) string {
	return fmt.Sprintf("Factura_%s_%s.pdf", f.Type.Letter(), f.FullNumber())
}

// PresupuestoFilename names the downloaded PDF of a presupuesto
func PresupuestoFilename(p *presupuesto.Presupuesto) string {
	number := p.Number
	if number == "" {
		number = fmt.Sprintf("%d", p.ID)
	}
	return "Presupuesto_" + number + ".pdf"
}

// ArchiveKey is the object key of an authorized factura PDF
func ArchiveKey(f *factura.Factura) string {
	return fmt.Sprintf("facturas/%04d/%s/%s.pdf",
		f.IssueDate.Year(), f.Type.Letter(), strings.ReplaceAll(f.FullNumber(), "-", "_"))
}

func (s *DocumentService) loadFactura(ctx context.Context, id int64) (*factura.Factura, *cliente.Cliente, error) {
	f, err := s.facturas.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	c, err := s.clientes.FindByID(ctx, f.ClienteID)
	if err != nil {
		return nil, nil, err
	}
	return f, c, nil
}

func (s *DocumentService) loadPresupuesto(ctx context.Context, id int64) (*presupuesto.Presupuesto, *cliente.Cliente, error) {
	p, err := s.presupuestos.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	c, err := s.clientes.FindByID(ctx, p.ClienteID)
	if err != nil {
		return nil, nil, err
	}
	return p, c, nil
}

func (s *DocumentService) renderFacturaHTML(f *factura.Factura, c *cliente.Cliente) (string, error) {
	html, err := s.engine.RenderFactura(infra.NewFacturaDocument(f, c, s.company))
	if err != nil {
		return "", renderFailure(err)
	}
	return html, nil
}

func (s *DocumentService) renderPresupuestoHTML(p *presupuesto.Presupuesto, c *cliente.Cliente) (string, error) {
	html, err := s.engine.RenderPresupuesto(infra.NewPresupuestoDocument(p, c, s.company))
	if err != nil {
		return "", renderFailure(err)
	}
	return html, nil
}

func (s *DocumentService) renderPDF(ctx context.Context, title, html string) ([]byte, error) {
	result, err := s.renderer.Render(ctx, &infra.RenderRequest{
		HTML:      html,
		Title:     title,
		PaperSize: s.paperSize,
		Margins:   infra.DefaultMargins(),
	})
	if err != nil {
		s.logger.Error("PDF rendering failed", zap.String("title", title), zap.Error(err))
		return nil, renderFailure(err)
	}
	return result.PDFData, nil
}

// archiveFactura stores the PDF and records its key. Failures are logged
// and the rendered document is still served.
func (s *DocumentService) archiveFactura(ctx context.Context, f *factura.Factura, data []byte) bool {
	key := ArchiveKey(f)
	log := s.logger.With(zap.Int64("factura_id", f.ID), zap.String("key", key))
	if err := s.archive.Put(ctx, key, data, PDFContentType); err != nil {
		log.Warn("Failed to archive factura PDF", zap.Error(err))
		return false
	}
	f.PDFKey = key
	if err := s.facturas.Save(ctx, f); err != nil {
		log.Warn("Failed to record archived PDF", zap.Error(err))
		return false
	}
	log.Info("Factura PDF archived", zap.Int("bytes", len(data)))
	return true
}

func renderFailure(err error) error {
	var renderErr *infra.RenderError
	if errors.As(err, &renderErr) {
		return shared.NewDomainError(renderErr.Code, "No se pudo generar el documento: "+renderErr.Message)
	}
	return fmt.Errorf("render document: %w", err)
}
