// Package proyecto implements the use cases of the proyectos module
package proyecto

import (
	"context"
	"errors"
	"time"

	"github.com/sgi/backend/internal/domain/cliente"
	"github.com/sgi/backend/internal/domain/proyecto"
	"github.com/sgi/backend/internal/domain/shared"
)

// ClienteFinder loads the cliente a proyecto belongs to
type ClienteFinder interface {
	FindByID(ctx context.Context, id int64) (*cliente.Cliente, error)
}

// CertificadoChecker tells whether a proyecto has certificados
type CertificadoChecker interface {
	ExistsByProyecto(ctx context.Context, proyectoID int64) (bool, error)
}

var errDuplicateCode = shared.NewDomainError("ALREADY_EXISTS", "Ya existe un proyecto con ese código")

// Service handles proyecto business operations
type Service struct {
	repo         proyecto.Repository
	clientes     ClienteFinder
	certificados CertificadoChecker
	now          func() time.Time
}

// NewService creates a new proyecto service
func NewService(repo proyecto.Repository, clientes ClienteFinder, certificados CertificadoChecker) *Service {
	return &Service{repo: repo, clientes: clientes, certificados: certificados, now: time.Now}
}

// Create creates a planned proyecto for an active cliente
func (s *Service) Create(ctx context.Context, req CreateProyectoRequest) (*ProyectoResponse, error) {
	c, err := s.clientes.FindByID(ctx, req.ClienteID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("INVALID_CLIENTE", "El cliente no existe")
		}
		return nil, err
	}
	if !c.IsActive() {
		return nil, shared.NewDomainError("INVALID_CLIENTE", "El cliente está inactivo")
	}

	p, err := proyecto.NewProyecto(req.Code, req.Name, c.ID)
	if err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsByCode(ctx, p.Code, 0)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errDuplicateCode
	}
	if err := p.Update(req.Name, req.Description, req.Location, req.Budget, req.StartDate.Ptr(), req.EstimatedEndDate.Ptr()); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, p); err != nil {
		return nil, err
	}
	return response(p, c), nil
}

// GetByID retrieves a proyecto by ID
func (s *Service) GetByID(ctx context.Context, id int64) (*ProyectoResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return response(p, s.lookupCliente(ctx, p.ClienteID)), nil
}

// GetByCode retrieves a proyecto by its code, normalized first
func (s *Service) GetByCode(ctx context.Context, code string) (*ProyectoResponse, error) {
	p, err := s.repo.FindByCode(ctx, proyecto.NormalizeCode(code))
	if err != nil {
		return nil, err
	}
	return response(p, s.lookupCliente(ctx, p.ClienteID)), nil
}

// List retrieves a page of proyectos and the total count
func (s *Service) List(ctx context.Context, filter ListFilter) ([]ProyectoResponse, int64, error) {
	domainFilter := filter.ToDomain()
	list, err := s.repo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToProyectoResponses(list), total, nil
}

// Update replaces the descriptive data of an open proyecto
func (s *Service) Update(ctx context.Context, id int64, req UpdateProyectoRequest) (*ProyectoResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.Update(req.Name, req.Description, req.Location, req.Budget, req.StartDate.Ptr(), req.EstimatedEndDate.Ptr()); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, err
	}
	return response(p, s.lookupCliente(ctx, p.ClienteID)), nil
}

// ChangeStatus moves a proyecto through its status machine
func (s *Service) ChangeStatus(ctx context.Context, id int64, req ChangeStatusRequest) (*ProyectoResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.ChangeStatus(proyecto.Status(req.Status), s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, err
	}
	return response(p, s.lookupCliente(ctx, p.ClienteID)), nil
}

// Delete soft deletes a proyecto without certificados
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	has, err := s.certificados.ExistsByProyecto(ctx, id)
	if err != nil {
		return err
	}
	if has {
		return shared.NewDomainError("HAS_DEPENDENTS", "El proyecto tiene certificados")
	}
	return s.repo.Delete(ctx, id)
}

// Summary returns the certified and invoiced figures of a proyecto
func (s *Service) Summary(ctx context.Context, id int64) (*SummaryResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	sum, err := s.repo.Summary(ctx, id)
	if err != nil {
		return nil, err
	}
	return &SummaryResponse{
		Proyecto:           *response(p, s.lookupCliente(ctx, p.ClienteID)),
		CertifiedPercent:   sum.CertifiedPercent,
		CertifiedAmount:    sum.CertifiedAmount,
		InvoicedAmount:     sum.InvoicedAmount,
		PendingToInvoice:   sum.PendingToInvoice,
		RemainingToCertify: sum.RemainingToCertify,
		Certificados:       sum.Certificados,
	}, nil
}

// Stats counts proyectos by status
func (s *Service) Stats(ctx context.Context) (*StatsResponse, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	resp := &StatsResponse{ByStatus: make(map[string]int64, len(counts))}
	for st, n := range counts {
		resp.ByStatus[string(st)] = n
		resp.Total += n
		if !st.IsClosed() {
			resp.Open += n
		}
	}
	return resp, nil
}

func (s *Service) lookupCliente(ctx context.Context, id int64) *cliente.Cliente {
	c, err := s.clientes.FindByID(ctx, id)
	if err != nil {
		return nil
	}
	return c
}

func response(p *proyecto.Proyecto, c *cliente.Cliente) *ProyectoResponse {
	resp := ToProyectoResponse(p)
	if c != nil {
		resp.ClienteName = c.DisplayName()
	}
	return &resp
}
