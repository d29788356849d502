// Package factura implements the invoicing use cases: drafts, invoices
// generated from presupuestos and certificados, AFIP authorization with
// deferred retries, collection and annulment.
package factura

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sgi/backend/internal/application/common"
	"github.com/sgi/backend/internal/domain/certificado"
	"github.com/sgi/backend/internal/domain/cliente"
	"github.com/sgi/backend/internal/domain/dashboard"
	"github.com/sgi/backend/internal/domain/factura"
	"github.com/sgi/backend/internal/domain/presupuesto"
	"github.com/sgi/backend/internal/domain/shared"
)

// Authorization outcomes reported to Metrics
const (
	OutcomeApproved = "approved"
	OutcomeRejected = "rejected"
	OutcomePending  = "pending"
)

// Emitter holds the company data that determines how facturas are issued
type Emitter struct {
	IVACondition   cliente.IVACondition
	PointOfSale    int
	DefaultIVARate decimal.Decimal
}

// ClienteFinder loads the receiver of a factura
type ClienteFinder interface {
	FindByID(ctx context.Context, id int64) (*cliente.Cliente, error)
}

// PresupuestoStore loads and updates the presupuesto a factura is generated from
type PresupuestoStore interface {
	FindByID(ctx context.Context, id int64) (*presupuesto.Presupuesto, error)
	Save(ctx context.Context, p *presupuesto.Presupuesto) error
}

// CertificadoStore loads and updates the certificado a factura is generated from
type CertificadoStore interface {
	FindByID(ctx context.Context, id int64) (*certificado.Certificado, error)
	Save(ctx context.Context, c *certificado.Certificado) error
}

// Metrics records invoicing events
type Metrics interface {
	RecordFacturaCreated(ctx context.Context, letter string)
	RecordAuthorization(ctx context.Context, outcome, mode string, total decimal.Decimal, elapsed time.Duration)
}

// CacheInvalidator drops memoized entries
type CacheInvalidator interface {
	Invalidate(ctx context.Context, keys ...string) error
}

var errAuthorizationInProgress = shared.NewDomainError("CONCURRENCY_CONFLICT",
	"La factura ya se está autorizando")

// Service handles factura business operations
type Service struct {
	repo         factura.Repository
	clientes     ClienteFinder
	authorizer   factura.Authorizer
	emitter      Emitter
	presupuestos PresupuestoStore
	certificados CertificadoStore
	metrics      Metrics
	cache        CacheInvalidator
	logger       *zap.Logger
	now          func() time.Time

	mu       sync.Mutex
	inFlight map[int64]struct{}
}

// NewService creates a new factura service
func NewService(repo factura.Repository, clientes ClienteFinder, authorizer factura.Authorizer, emitter Emitter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if emitter.PointOfSale == 0 {
		emitter.PointOfSale = 1
	}
	if emitter.DefaultIVARate.IsZero() {
		emitter.DefaultIVARate = decimal.NewFromInt(21)
	}
	return &Service{
		repo:       repo,
		clientes:   clientes,
		authorizer: authorizer,
		emitter:    emitter,
		logger:     logger.Named("facturas"),
		now:        time.Now,
		inFlight:   make(map[int64]struct{}),
	}
}

// SetSources enables invoicing from presupuestos and certificados
func (s *Service) SetSources(presupuestos PresupuestoStore, certificados CertificadoStore) {
	s.presupuestos = presupuestos
	s.certificados = certificados
}

// SetMetrics sets the invoicing metrics recorder
func (s *Service) SetMetrics(m Metrics) {
	s.metrics = m
}

// SetCache sets the cache whose dashboard entry is dropped when billing changes
func (s *Service) SetCache(c CacheInvalidator) {
	s.cache = c
}

// Create creates a draft factura
func (s *Service) Create(ctx context.Context, req CreateFacturaRequest) (*FacturaResponse, error) {
	c, err := s.activeCliente(ctx, req.ClienteID)
	if err != nil {
		return nil, err
	}
	typ, err := s.resolveType(c, factura.Type(req.Type))
	if err != nil {
		return nil, err
	}
	rate := s.emitter.DefaultIVARate
	if req.IVARate != nil {
		rate = *req.IVARate
	}

	f, err := factura.NewFactura(c.ID, typ, s.emitter.PointOfSale, conceptOr(req.Concept), s.issueDate(req.IssueDate), rate)
	if err != nil {
		return nil, err
	}
	f.ProyectoID = req.ProyectoID
	if err := f.UpdateHeader(f.Concept, time.Time{}, req.DueDate.Ptr(), req.ServiceFrom.Ptr(), req.ServiceTo.Ptr(), req.Notes); err != nil {
		return nil, err
	}
	lines, err := common.ToLines(req.Items)
	if err != nil {
		return nil, err
	}
	if err := f.ReplaceItems(lines); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, f); err != nil {
		return nil, err
	}
	s.created(ctx, f)
	return s.response(f, c), nil
}

// CreateFromPresupuesto invoices an approved presupuesto and marks it FACTURADO
func (s *Service) CreateFromPresupuesto(ctx context.Context, presupuestoID int64, req FromSourceRequest) (*FacturaResponse, error) {
	if s.presupuestos == nil {
		return nil, shared.NewDomainError("NOT_CONFIGURED", "Facturación desde presupuestos no disponible")
	}
	p, err := s.presupuestos.FindByID(ctx, presupuestoID)
	if err != nil {
		return nil, err
	}
	if err := p.MarkInvoiced(); err != nil {
		return nil, err
	}
	c, err := s.activeCliente(ctx, p.ClienteID)
	if err != nil {
		return nil, err
	}
	typ, err := s.resolveType(c, 0)
	if err != nil {
		return nil, err
	}

	f, err := factura.NewFactura(c.ID, typ, s.emitter.PointOfSale, conceptOr(req.Concept), s.issueDate(req.IssueDate), p.IVARate)
	if err != nil {
		return nil, err
	}
	f.PresupuestoID = &p.ID
	f.ProyectoID = p.ProyectoID
	notes := req.Notes
	if notes == "" {
		notes = "Según presupuesto " + p.Number
	}
	if err := f.UpdateHeader(f.Concept, time.Time{}, req.DueDate.Ptr(), req.ServiceFrom.Ptr(), req.ServiceTo.Ptr(), notes); err != nil {
		return nil, err
	}
	if err := f.ReplaceItems(copyLines(p.Items)); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, f); err != nil {
		return nil, err
	}
	if err := s.presupuestos.Save(ctx, p); err != nil {
		s.logger.Error("Factura created but presupuesto not marked as invoiced",
			zap.Int64("factura_id", f.ID),
			zap.Int64("presupuesto_id", p.ID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("mark presupuesto %s as invoiced: %w", p.Number, err)
	}
	s.created(ctx, f)
	return s.response(f, c), nil
}

// CreateFromCertificado invoices an approved certificado and marks it FACTURADO
func (s *Service) CreateFromCertificado(ctx context.Context, certificadoID int64, req FromSourceRequest) (*FacturaResponse, error) {
	if s.certificados == nil {
		return nil, shared.NewDomainError("NOT_CONFIGURED", "Facturación desde certificados no disponible")
	}
	cert, err := s.certificados.FindByID(ctx, certificadoID)
	if err != nil {
		return nil, err
	}
	if cert.Status != certificado.StatusAprobado {
		return nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("No se puede facturar un certificado en estado %s", cert.Status))
	}
	c, err := s.activeCliente(ctx, cert.ClienteID)
	if err != nil {
		return nil, err
	}
	typ, err := s.resolveType(c, 0)
	if err != nil {
		return nil, err
	}

	f, err := factura.NewFactura(c.ID, typ, s.emitter.PointOfSale, conceptOr(req.Concept), s.issueDate(req.IssueDate), s.emitter.DefaultIVARate)
	if err != nil {
		return nil, err
	}
	f.CertificadoID = &cert.ID
	f.ProyectoID = &cert.ProyectoID
	if err := f.UpdateHeader(f.Concept, time.Time{}, req.DueDate.Ptr(), req.ServiceFrom.Ptr(), req.ServiceTo.Ptr(), req.Notes); err != nil {
		return nil, err
	}
	description := fmt.Sprintf("Certificado de avance N° %d", cert.Number)
	if cert.Period != "" {
		description += " - " + cert.Period
	}
	line, err := shared.NewLine(description, decimal.NewFromInt(1), cert.Amount)
	if err != nil {
		return nil, err
	}
	if err := f.ReplaceItems([]shared.Line{line}); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, f); err != nil {
		return nil, err
	}
	if err := cert.MarkInvoiced(f.ID); err != nil {
		return nil, err
	}
	if err := s.certificados.Save(ctx, cert); err != nil {
		s.logger.Error("Factura created but certificado not marked as invoiced",
			zap.Int64("factura_id", f.ID),
			zap.Int64("certificado_id", cert.ID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("mark certificado %d as invoiced: %w", cert.ID, err)
	}
	s.created(ctx, f)
	return s.response(f, c), nil
}

// GetByID retrieves a factura with its items
func (s *Service) GetByID(ctx context.Context, id int64) (*FacturaResponse, error) {
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.response(f, s.lookupCliente(ctx, f.ClienteID)), nil
}

// List retrieves a page of facturas and the total count
func (s *Service) List(ctx context.Context, filter ListFilter) ([]FacturaResponse, int64, error) {
	domainFilter, err := filter.ToDomain()
	if err != nil {
		return nil, 0, err
	}
	list, err := s.repo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToFacturaResponses(list), total, nil
}

// Update replaces the header of a draft or rejected factura, and its items
// when the request carries them
func (s *Service) Update(ctx context.Context, id int64, req UpdateFacturaRequest) (*FacturaResponse, error) {
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := f.UpdateHeader(factura.Concept(req.Concept), req.IssueDate.Value(), req.DueDate.Ptr(), req.ServiceFrom.Ptr(), req.ServiceTo.Ptr(), req.Notes); err != nil {
		return nil, err
	}
	if req.IVARate != nil && !req.IVARate.Equal(f.IVARate) {
		if err := f.SetIVARate(*req.IVARate); err != nil {
			return nil, err
		}
	}
	if req.Items != nil {
		lines, err := common.ToLines(req.Items)
		if err != nil {
			return nil, err
		}
		if err := f.ReplaceItems(lines); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Save(ctx, f); err != nil {
		return nil, err
	}
	return s.response(f, s.lookupCliente(ctx, f.ClienteID)), nil
}

// Authorize requests a CAE for a draft or pending factura. When AFIP cannot
// be reached the factura is left in PENDIENTE_CAE for the scheduler and
// returned without error.
func (s *Service) Authorize(ctx context.Context, id int64) (*FacturaResponse, error) {
	f, c, err := s.authorize(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.response(f, c), nil
}

// RetryAuthorization retries a factura waiting in PENDIENTE_CAE. It returns
// an error wrapping factura.ErrAuthorizerUnavailable while AFIP stays down.
func (s *Service) RetryAuthorization(ctx context.Context, id int64) error {
	f, _, err := s.authorize(ctx, id)
	if err != nil {
		return err
	}
	if f.Status == factura.StatusPendienteCAE {
		return fmt.Errorf("factura %d: %w", id, factura.ErrAuthorizerUnavailable)
	}
	return nil
}

func (s *Service) authorize(ctx context.Context, id int64) (*factura.Factura, *cliente.Cliente, error) {
	if !s.acquire(id) {
		return nil, nil, errAuthorizationInProgress
	}
	defer s.release(id)

	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := f.ValidateForAuthorization(); err != nil {
		return nil, nil, err
	}
	c, err := s.clientes.FindByID(ctx, f.ClienteID)
	if err != nil {
		return nil, nil, err
	}
	docType, docNumber := c.DocumentType()
	log := s.logger.With(
		zap.Int64("factura_id", f.ID),
		zap.String("type", f.Type.Letter()),
		zap.String("mode", s.authorizer.Mode()),
	)

	start := time.Now()
	res, err := s.authorizer.Authorize(ctx, factura.NewAuthorizationRequest(f, docType, docNumber))
	elapsed := time.Since(start)
	now := s.now()

	switch {
	case errors.Is(err, factura.ErrAuthorizerUnavailable):
		if perr := f.MarkPending(now, err.Error()); perr != nil {
			return nil, nil, perr
		}
		if serr := s.repo.Save(ctx, f); serr != nil {
			return nil, nil, serr
		}
		log.Warn("AFIP unavailable, factura left pending", zap.Int("attempts", f.Attempts), zap.Error(err))
		s.recordAuthorization(ctx, OutcomePending, f, elapsed)
		s.invalidate(ctx)
		return f, c, nil
	case err != nil:
		log.Error("AFIP authorization failed", zap.Error(err))
		return nil, nil, &shared.DomainError{
			Code:    shared.ErrExternalService.Code,
			Message: "AFIP: " + err.Error(),
		}
	}

	if err := f.ApplyAuthorization(now, res); err != nil {
		return nil, nil, err
	}
	if err := s.repo.Save(ctx, f); err != nil {
		return nil, nil, err
	}
	if f.IsAuthorized() {
		log.Info("Factura authorized",
			zap.String("number", f.FullNumber()),
			zap.String("cae", f.CAE),
			zap.Duration("elapsed", elapsed),
		)
		s.recordAuthorization(ctx, OutcomeApproved, f, elapsed)
	} else {
		log.Warn("Factura rejected by AFIP", zap.String("observations", f.AFIPObservations))
		s.recordAuthorization(ctx, OutcomeRejected, f, elapsed)
	}
	s.invalidate(ctx)
	return f, c, nil
}

// PendingIDs lists facturas waiting for a CAE retry, oldest first
func (s *Service) PendingIDs(ctx context.Context, maxAttempts, limit int) ([]int64, error) {
	list, err := s.repo.FindPending(ctx, maxAttempts, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(list))
	for i := range list {
		ids[i] = list[i].ID
	}
	return ids, nil
}

// CountPendingCAE counts facturas waiting in PENDIENTE_CAE
func (s *Service) CountPendingCAE(ctx context.Context) (int64, error) {
	filter := shared.Filter{}.With("status", string(factura.StatusPendienteCAE))
	return s.repo.Count(ctx, filter)
}

// MarkPaid records the collection of an authorized factura
func (s *Service) MarkPaid(ctx context.Context, id int64, req MarkPaidRequest) (*FacturaResponse, error) {
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	paidAt := s.now()
	if req.PaidAt != nil && !req.PaidAt.IsZero() {
		paidAt = req.PaidAt.Time
	}
	if paidAt.Before(f.IssueDate) {
		return nil, shared.NewDomainError("INVALID_DATE", "La fecha de cobro es anterior a la emisión")
	}
	if err := f.MarkPaid(paidAt); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, f); err != nil {
		return nil, err
	}
	s.logger.Info("Factura paid", zap.Int64("factura_id", f.ID), zap.String("number", f.FullNumber()))
	s.invalidate(ctx)
	return s.response(f, s.lookupCliente(ctx, f.ClienteID)), nil
}

// Annul cancels a factura that never got a CAE
func (s *Service) Annul(ctx context.Context, id int64, req AnnulRequest) (*FacturaResponse, error) {
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := f.Annul(req.Reason); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, f); err != nil {
		return nil, err
	}
	s.logger.Info("Factura annulled", zap.Int64("factura_id", f.ID), zap.String("reason", f.AnnulReason))
	return s.response(f, s.lookupCliente(ctx, f.ClienteID)), nil
}

// Stats summarizes billing of the current month
func (s *Service) Stats(ctx context.Context) (*StatsResponse, error) {
	from, to := dashboard.MonthRange(s.now())
	stats, err := s.repo.Stats(ctx, from, to)
	if err != nil {
		return nil, err
	}
	resp := &StatsResponse{
		From:            common.NewDate(from),
		To:              common.NewDate(to.AddDate(0, 0, -1)),
		AuthorizedCount: stats.AuthorizedCount,
		BilledAmount:    stats.BilledAmount,
		PendingCount:    stats.PendingCount,
		PendingAmount:   stats.PendingAmount,
		ByStatus:        make(map[string]int64, len(stats.ByStatus)),
	}
	for st, n := range stats.ByStatus {
		resp.ByStatus[string(st)] = n
	}
	return resp, nil
}

// AFIPStatus reports the authorizer mode and the health of the AFIP servers
func (s *Service) AFIPStatus(ctx context.Context) *AFIPStatusResponse {
	resp := &AFIPStatusResponse{Mode: s.authorizer.Mode()}
	status, err := s.authorizer.Status(ctx)
	if err != nil {
		resp.Error = err.Error()
		return resp
	}
	resp.OK = status.OK()
	resp.AppServer = status.AppServer
	resp.DBServer = status.DBServer
	resp.AuthServer = status.AuthServer
	return resp
}

// LastNumber returns the last number AFIP authorized for the emitter point
// of sale and the given type
func (s *Service) LastNumber(ctx context.Context, typ int) (int64, error) {
	t := factura.Type(typ)
	if !t.IsValid() {
		return 0, shared.NewDomainError("INVALID_TYPE", "Tipo de comprobante inválido")
	}
	n, err := s.authorizer.LastNumber(ctx, s.emitter.PointOfSale, t)
	if err != nil {
		return 0, &shared.DomainError{Code: shared.ErrExternalService.Code, Message: "AFIP: " + err.Error()}
	}
	return n, nil
}

// resolveType returns the comprobante type for a cliente. A requested type
// must be one the emitter is allowed to issue.
func (s *Service) resolveType(c *cliente.Cliente, requested factura.Type) (factura.Type, error) {
	resolved := factura.ResolveType(s.emitter.IVACondition, c.IVACondition)
	if requested == 0 || requested == resolved {
		return resolved, nil
	}
	// an inscripto may be billed a B on request; A is only for inscriptos
	if resolved == factura.TypeA && requested == factura.TypeB {
		return requested, nil
	}
	return 0, shared.NewDomainError("INVALID_TYPE",
		fmt.Sprintf("El emisor no puede emitir Factura %s a este cliente", requested.Letter()))
}

func (s *Service) activeCliente(ctx context.Context, id int64) (*cliente.Cliente, error) {
	c, err := s.clientes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsActive() {
		return nil, shared.NewDomainError("INVALID_CLIENTE", "El cliente está inactivo")
	}
	return c, nil
}

func (s *Service) lookupCliente(ctx context.Context, id int64) *cliente.Cliente {
	c, err := s.clientes.FindByID(ctx, id)
	if err != nil {
		s.logger.Debug("Cliente lookup failed", zap.Int64("cliente_id", id), zap.Error(err))
		return nil
	}
	return c
}

func (s *Service) issueDate(d *common.Date) time.Time {
	if d != nil && !d.IsZero() {
		return d.Time
	}
	return s.now()
}

func (s *Service) created(ctx context.Context, f *factura.Factura) {
	s.logger.Info("Factura created",
		zap.Int64("factura_id", f.ID),
		zap.String("type", f.Type.Letter()),
		zap.Int64("cliente_id", f.ClienteID),
		zap.String("total", f.Total.StringFixed(2)),
	)
	if s.metrics != nil {
		s.metrics.RecordFacturaCreated(ctx, f.Type.Letter())
	}
}

func (s *Service) recordAuthorization(ctx context.Context, outcome string, f *factura.Factura, elapsed time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordAuthorization(ctx, outcome, s.authorizer.Mode(), f.Total, elapsed)
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, dashboard.CacheKey); err != nil {
		s.logger.Warn("Failed to invalidate dashboard cache", zap.Error(err))
	}
}

func (s *Service) acquire(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[id]; busy {
		return false
	}
	s.inFlight[id] = struct{}{}
	return true
}

func (s *Service) release(id int64) {
	s.mu.Lock()
	delete(s.inFlight, id)
	s.mu.Unlock()
}

func (s *Service) response(f *factura.Factura, c *cliente.Cliente) *FacturaResponse {
	resp := ToFacturaResponse(f)
	if c != nil {
		resp.ClienteName = c.Name
	}
	return &resp
}

func conceptOr(code int) factura.Concept {
	if code == 0 {
		return factura.ConceptServicios
	}
	return factura.Concept(code)
}

func copyLines(lines []shared.Line) []shared.Line {
	out := make([]shared.Line, len(lines))
	for i, l := range lines {
		l.ID = 0
		out[i] = l
	}
	return out
}
