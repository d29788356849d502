// Package prospecto implements the sales pipeline use cases, including the
// conversion of a lead into a cliente.
package prospecto

import (
	"context"
	"time"

	"go.uber.org/zap"

	clienteapp "github.com/sgi/backend/internal/application/cliente"
	"github.com/sgi/backend/internal/domain/prospecto"
	"github.com/sgi/backend/internal/domain/shared"
)

// ClienteCreator registers the cliente a lead converts into
type ClienteCreator interface {
	Create(ctx context.Context, req clienteapp.CreateClienteRequest) (*clienteapp.ClienteResponse, error)
}

// Metrics records pipeline events
type Metrics interface {
	RecordProspectoConverted(ctx context.Context)
}

// Service handles prospecto business operations
type Service struct {
	repo     prospecto.Repository
	clientes ClienteCreator
	metrics  Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new prospecto service
func NewService(repo prospecto.Repository, clientes ClienteCreator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, clientes: clientes, logger: logger.Named("prospectos"), now: time.Now}
}

// SetMetrics enables conversion metrics
func (s *Service) SetMetrics(m Metrics) {
	s.metrics = m
}

// Create registers a new lead
func (s *Service) Create(ctx context.Context, req CreateProspectoRequest) (*ProspectoResponse, error) {
	p, err := prospecto.NewProspecto(req.Name, req.Company, prospecto.Source(req.Source))
	if err != nil {
		return nil, err
	}
	if err := p.Update(req.Name, req.Company, req.Email, req.Phone, p.Source, req.EstimatedValue, req.NextContactDate.Ptr(), req.Notes); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, err
	}
	return s.response(p), nil
}

// GetByID retrieves a prospecto by ID
func (s *Service) GetByID(ctx context.Context, id int64) (*ProspectoResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.response(p), nil
}

// List retrieves a page of prospectos and the total count
func (s *Service) List(ctx context.Context, filter ListFilter) ([]ProspectoResponse, int64, error) {
	domainFilter := filter.ToDomain()
	list, err := s.repo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToProspectoResponses(list, s.now()), total, nil
}

// Update replaces the data of a lead
func (s *Service) Update(ctx context.Context, id int64, req UpdateProspectoRequest) (*ProspectoResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	source := prospecto.Source(req.Source)
	if source == "" {
		source = p.Source
	}
	if err := p.Update(req.Name, req.Company, req.Email, req.Phone, source, req.EstimatedValue, req.NextContactDate.Ptr(), req.Notes); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, err
	}
	return s.response(p), nil
}

// ChangeStatus moves a lead along the pipeline
func (s *Service) ChangeStatus(ctx context.Context, id int64, req ChangeStatusRequest) (*ProspectoResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.ChangeStatus(prospecto.Status(req.Status), req.Reason); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, err
	}
	return s.response(p), nil
}

// Convert creates a cliente from an open lead and closes it as GANADO
func (s *Service) Convert(ctx context.Context, id int64, req ConvertRequest) (*ConvertResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanConvert() {
		return nil, shared.NewDomainError("INVALID_STATE", "El prospecto ya está cerrado")
	}

	name := req.Name
	if name == "" {
		name = p.Company
	}
	if name == "" {
		name = p.Name
	}
	contact := ""
	if name != p.Name {
		contact = p.Name
	}
	c, err := s.clientes.Create(ctx, clienteapp.CreateClienteRequest{
		Kind:          req.Kind,
		Name:          name,
		CUIT:          req.CUIT,
		DNI:           req.DNI,
		IVACondition:  req.IVACondition,
		Email:         p.Email,
		Phone:         p.Phone,
		Address:       req.Address,
		City:          req.City,
		Province:      req.Province,
		PostalCode:    req.PostalCode,
		ContactPerson: contact,
		Notes:         p.Notes,
	})
	if err != nil {
		return nil, err
	}

	if err := p.MarkConverted(c.ID); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, p); err != nil {
		s.logger.Error("Cliente created but prospecto not closed",
			zap.Int64("prospecto_id", p.ID), zap.Int64("cliente_id", c.ID), zap.Error(err))
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordProspectoConverted(ctx)
	}
	s.logger.Info("Prospecto converted", zap.Int64("prospecto_id", p.ID), zap.Int64("cliente_id", c.ID))
	return &ConvertResponse{Prospecto: *s.response(p), ClienteID: c.ID}, nil
}

// Delete soft deletes a lead
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// Pipeline summarizes the prospectos by stage
func (s *Service) Pipeline(ctx context.Context) (*PipelineResponse, error) {
	stats, err := s.repo.Pipeline(ctx)
	if err != nil {
		return nil, err
	}
	resp := &PipelineResponse{
		ByStatus:       make(map[string]int64, len(stats.ByStatus)),
		OpenCount:      stats.OpenCount,
		OpenValue:      stats.OpenValue,
		WonCount:       stats.WonCount,
		LostCount:      stats.LostCount,
		ConversionRate: stats.ConversionRate(),
	}
	for st, n := range stats.ByStatus {
		resp.ByStatus[string(st)] = n
	}
	return resp, nil
}

func (s *Service) response(p *prospecto.Prospecto) *ProspectoResponse {
	resp := ToProspectoResponse(p, s.now())
	return &resp
}
