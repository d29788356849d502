// Package certificado implements the use cases of work-completion
// certificates, including the consistency diagnosis and repair run by
// cmd/certificados.
package certificado

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sgi/backend/internal/domain/certificado"
	"github.com/sgi/backend/internal/domain/proyecto"
	"github.com/sgi/backend/internal/domain/shared"
)

// numberAttempts bounds how often a create retries after losing its number
const numberAttempts = 3

// ProyectoStore loads proyectos and stores their progress
type ProyectoStore interface {
	FindByID(ctx context.Context, id int64) (*proyecto.Proyecto, error)
	Save(ctx context.Context, p *proyecto.Proyecto) error
}

// Service handles certificado business operations
type Service struct {
	repo        certificado.Repository
	proyectos   ProyectoStore
	maintenance certificado.MaintenanceRepository
	logger      *zap.Logger
}

// NewService creates a new certificado service. maintenance may be nil when
// diagnosis is not needed.
func NewService(repo certificado.Repository, proyectos ProyectoStore, maintenance certificado.MaintenanceRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:        repo,
		proyectos:   proyectos,
		maintenance: maintenance,
		logger:      logger.Named("certificados"),
	}
}

// Create certifies progress of an in-progress proyecto
func (s *Service) Create(ctx context.Context, req CreateCertificadoRequest) (*CertificadoResponse, error) {
	p, err := s.proyectos.FindByID(ctx, req.ProyectoID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("INVALID_PROYECTO", "El proyecto no existe")
		}
		return nil, err
	}
	certified, err := s.repo.CertifiedPercent(ctx, p.ID, 0)
	if err != nil {
		return nil, err
	}
	number, err := s.repo.NextNumber(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	c, err := certificado.NewCertificado(p, number, req.Date.Value(), req.Period, req.Percent, amountOr(req.Amount, p, req.Percent), certified)
	if err != nil {
		return nil, err
	}
	c.Notes = req.Notes

	if err := s.saveNumbered(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info("Certificado created",
		zap.Int64("certificado_id", c.ID),
		zap.String("proyecto", p.Code),
		zap.Int("number", c.Number),
		zap.String("percent", c.Percent.String()),
	)
	return response(c, p), nil
}

// saveNumbered saves c, taking the next number again each time another
// create stored the same one first
func (s *Service) saveNumbered(ctx context.Context, c *certificado.Certificado) error {
	for attempt := 1; ; attempt++ {
		err := s.repo.Save(ctx, c)
		if !errors.Is(err, shared.ErrAlreadyExists) || attempt == numberAttempts {
			return err
		}
		s.logger.Warn("Certificado number taken, retrying",
			zap.Int64("proyecto_id", c.ProyectoID),
			zap.Int("number", c.Number),
		)
		number, err := s.repo.NextNumber(ctx, c.ProyectoID)
		if err != nil {
			return err
		}
		c.Number = number
	}
}

// GetByID retrieves a certificado by ID
func (s *Service) GetByID(ctx context.Context, id int64) (*CertificadoResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return response(c, s.lookupProyecto(ctx, c.ProyectoID)), nil
}

// List retrieves a page of certificados and the total count
func (s *Service) List(ctx context.Context, filter ListFilter) ([]CertificadoResponse, int64, error) {
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
	return ToCertificadoResponses(list), total, nil
}

// Update replaces the data of a draft certificado
func (s *Service) Update(ctx context.Context, id int64, req UpdateCertificadoRequest) (*CertificadoResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := s.proyectos.FindByID(ctx, c.ProyectoID)
	if err != nil {
		return nil, err
	}
	certified, err := s.repo.CertifiedPercent(ctx, c.ProyectoID, c.ID)
	if err != nil {
		return nil, err
	}
	if err := c.Update(req.Date.Value(), req.Period, req.Percent, amountOr(req.Amount, p, req.Percent), certified, req.Notes); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	return response(c, p), nil
}

// Approve approves a draft certificado and refreshes the proyecto progress
func (s *Service) Approve(ctx context.Context, id int64) (*CertificadoResponse, error) {
	return s.transition(ctx, id, (*certificado.Certificado).Approve)
}

// Annul annuls a certificado that was not invoiced and refreshes the
// proyecto progress
func (s *Service) Annul(ctx context.Context, id int64, req AnnulRequest) (*CertificadoResponse, error) {
	return s.transition(ctx, id, func(c *certificado.Certificado) error {
		return c.Annul(req.Reason)
	})
}

// MarkInvoiced links an approved certificado to the factura that billed it
func (s *Service) MarkInvoiced(ctx context.Context, id, facturaID int64) (*CertificadoResponse, error) {
	if facturaID <= 0 {
		return nil, shared.NewDomainError("INVALID_FACTURA", "Factura inválida")
	}
	return s.transition(ctx, id, func(c *certificado.Certificado) error {
		return c.MarkInvoiced(facturaID)
	})
}

func (s *Service) transition(ctx context.Context, id int64, apply func(*certificado.Certificado) error) (*CertificadoResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(c); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	p, err := s.refreshProgress(ctx, c.ProyectoID)
	if err != nil {
		return nil, err
	}
	return response(c, p), nil
}

// refreshProgress stores the approved percent on the proyecto
func (s *Service) refreshProgress(ctx context.Context, proyectoID int64) (*proyecto.Proyecto, error) {
	p, err := s.proyectos.FindByID(ctx, proyectoID)
	if err != nil {
		return nil, err
	}
	pct, err := s.repo.ApprovedPercent(ctx, proyectoID)
	if err != nil {
		return nil, err
	}
	if pct.Equal(p.Progress) {
		return p, nil
	}
	p.SetProgress(pct)
	if err := s.proyectos.Save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Diagnose inspects every certificado against its proyecto
func (s *Service) Diagnose(ctx context.Context) (*certificado.Report, error) {
	if s.maintenance == nil {
		return nil, shared.NewDomainError("NOT_CONFIGURED", "Mantenimiento no disponible")
	}
	report, err := s.maintenance.Diagnose(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Certificados diagnosed",
		zap.Int64("total", report.Total),
		zap.Int("sin_cliente", report.Count(certificado.IssueMissingCliente)),
		zap.Int("cliente_distinto", report.Count(certificado.IssueClienteMismatch)),
		zap.Int("proyecto_inexistente", report.Count(certificado.IssueOrphanProyecto)),
		zap.Int("sobre_certificados", len(report.OverCertified)),
	)
	return report, nil
}

// Fix realigns cliente_id to the proyecto's cliente. With dryRun only the
// diagnosis runs.
func (s *Service) Fix(ctx context.Context, dryRun bool) (*FixResult, error) {
	report, err := s.Diagnose(ctx)
	if err != nil {
		return nil, err
	}
	result := &FixResult{DryRun: dryRun, Fixable: len(report.Fixable()), Report: report}
	if dryRun || result.Fixable == 0 {
		return result, nil
	}
	fixed, err := s.maintenance.RealignClientes(ctx)
	if err != nil {
		return nil, err
	}
	result.Fixed = fixed
	s.logger.Info("Certificados realigned", zap.Int64("rows", fixed))
	return result, nil
}

func (s *Service) lookupProyecto(ctx context.Context, id int64) *proyecto.Proyecto {
	p, err := s.proyectos.FindByID(ctx, id)
	if err != nil {
		return nil
	}
	return p
}

// amountOr returns the requested amount, or pct percent of the proyecto budget
func amountOr(amount *decimal.Decimal, p *proyecto.Proyecto, pct decimal.Decimal) decimal.Decimal {
	if amount != nil {
		return *amount
	}
	return shared.Percent(p.Budget, pct)
}

func response(c *certificado.Certificado, p *proyecto.Proyecto) *CertificadoResponse {
	resp := ToCertificadoResponse(c)
	if p != nil {
		resp.ProyectoCode = p.Code
	}
	return &resp
}
