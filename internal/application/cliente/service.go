// Package cliente implements the use cases of the clientes module
package cliente

import (
	"context"
	"errors"
	"strings"

	"github.com/sgi/backend/internal/domain/cliente"
	"github.com/sgi/backend/internal/domain/shared"
)

// FacturaChecker tells whether a cliente has invoices
type FacturaChecker interface {
	ExistsByCliente(ctx context.Context, clienteID int64) (bool, error)
}

// ProyectoChecker tells whether a cliente has projects in progress
type ProyectoChecker interface {
	HasOpenByCliente(ctx context.Context, clienteID int64) (bool, error)
}

// Service handles cliente business operations
type Service struct {
	repo      cliente.Repository
	facturas  FacturaChecker
	proyectos ProyectoChecker
}

// NewService creates a new cliente service
func NewService(repo cliente.Repository, facturas FacturaChecker, proyectos ProyectoChecker) *Service {
	return &Service{repo: repo, facturas: facturas, proyectos: proyectos}
}

var errDuplicateCUIT = shared.NewDomainError("ALREADY_EXISTS", "Ya existe un cliente con ese CUIT")

// Create creates a new cliente
func (s *Service) Create(ctx context.Context, req CreateClienteRequest) (*ClienteResponse, error) {
	c, err := cliente.NewCliente(cliente.Kind(req.Kind), req.Name, cliente.IVACondition(req.IVACondition), req.CUIT)
	if err != nil {
		return nil, err
	}
	if err := c.SetTaxData(c.IVACondition, c.CUIT, req.DNI); err != nil {
		return nil, err
	}
	if c.CUIT != "" {
		exists, err := s.repo.ExistsByCUIT(ctx, c.CUIT, 0)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, errDuplicateCUIT
		}
	}

	if req.TradeName != "" {
		if err := c.Update(c.Kind, c.Name, req.TradeName); err != nil {
			return nil, err
		}
	}
	if req.Role != "" {
		if err := c.SetRole(cliente.Role(req.Role)); err != nil {
			return nil, err
		}
	}
	if err := c.SetContact(req.ContactPerson, req.Email, req.Phone); err != nil {
		return nil, err
	}
	c.SetAddress(req.Address, req.City, req.Province, req.PostalCode)
	c.SetNotes(req.Notes)

	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	resp := ToClienteResponse(c)
	return &resp, nil
}

// GetByID retrieves a cliente by ID
func (s *Service) GetByID(ctx context.Context, id int64) (*ClienteResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToClienteResponse(c)
	return &resp, nil
}

// List retrieves a page of clientes and the total count
func (s *Service) List(ctx context.Context, filter ListFilter) ([]ClienteResponse, int64, error) {
	domainFilter := filter.ToDomain()
	list, err := s.repo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToClienteResponses(list), total, nil
}

// Update applies a partial update to a cliente
func (s *Service) Update(ctx context.Context, id int64, req UpdateClienteRequest) (*ClienteResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Kind != nil || req.Name != nil || req.TradeName != nil {
		if err := c.Update(
			cliente.Kind(valueOr(req.Kind, string(c.Kind))),
			valueOr(req.Name, c.Name),
			valueOr(req.TradeName, c.TradeName),
		); err != nil {
			return nil, err
		}
	}

	if req.CUIT != nil || req.DNI != nil || req.IVACondition != nil {
		cuit := shared.NormalizeCUIT(valueOr(req.CUIT, c.CUIT))
		if cuit != "" && cuit != c.CUIT {
			exists, err := s.repo.ExistsByCUIT(ctx, cuit, c.ID)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, errDuplicateCUIT
			}
		}
		if err := c.SetTaxData(
			cliente.IVACondition(valueOr(req.IVACondition, string(c.IVACondition))),
			cuit,
			valueOr(req.DNI, c.DNI),
		); err != nil {
			return nil, err
		}
	}

	if req.Role != nil {
		if err := c.SetRole(cliente.Role(*req.Role)); err != nil {
			return nil, err
		}
	}
	if req.ContactPerson != nil || req.Email != nil || req.Phone != nil {
		if err := c.SetContact(
			valueOr(req.ContactPerson, c.ContactPerson),
			valueOr(req.Email, c.Email),
			valueOr(req.Phone, c.Phone),
		); err != nil {
			return nil, err
		}
	}
	if req.Address != nil || req.City != nil || req.Province != nil || req.PostalCode != nil {
		c.SetAddress(
			valueOr(req.Address, c.Address),
			valueOr(req.City, c.City),
			valueOr(req.Province, c.Province),
			valueOr(req.PostalCode, c.PostalCode),
		)
	}
	if req.Notes != nil {
		c.SetNotes(*req.Notes)
	}

	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	resp := ToClienteResponse(c)
	return &resp, nil
}

// Activate activates a cliente
func (s *Service) Activate(ctx context.Context, id int64) (*ClienteResponse, error) {
	return s.changeStatus(ctx, id, (*cliente.Cliente).Activate)
}

// Deactivate deactivates a cliente
func (s *Service) Deactivate(ctx context.Context, id int64) (*ClienteResponse, error) {
	return s.changeStatus(ctx, id, (*cliente.Cliente).Deactivate)
}

func (s *Service) changeStatus(ctx context.Context, id int64, apply func(*cliente.Cliente) error) (*ClienteResponse, error) {
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
	resp := ToClienteResponse(c)
	return &resp, nil
}

// Delete soft deletes a cliente without invoices or projects in progress
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	hasFacturas, err := s.facturas.ExistsByCliente(ctx, id)
	if err != nil {
		return err
	}
	if hasFacturas {
		return shared.NewDomainError("HAS_DEPENDENTS", "El cliente tiene facturas emitidas")
	}
	hasProyectos, err := s.proyectos.HasOpenByCliente(ctx, id)
	if err != nil {
		return err
	}
	if hasProyectos {
		return shared.NewDomainError("HAS_DEPENDENTS", "El cliente tiene proyectos en curso")
	}
	return s.repo.Delete(ctx, id)
}

// Summary returns the related presupuestos, facturas and proyectos figures
func (s *Service) Summary(ctx context.Context, id int64) (*SummaryResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	sum, err := s.repo.Summary(ctx, id)
	if err != nil {
		return nil, err
	}
	return &SummaryResponse{
		Cliente:            ToClienteResponse(c),
		Presupuestos:       sum.Presupuestos,
		PresupuestosOpen:   sum.PresupuestosOpen,
		Facturas:           sum.Facturas,
		FacturadoTotal:     sum.FacturadoTotal,
		PendienteCobro:     sum.PendienteCobro,
		ProyectosActivos:   sum.ProyectosActivos,
		UltimaFacturaFecha: sum.UltimaFacturaFecha,
	}, nil
}

// Stats counts clientes by status
func (s *Service) Stats(ctx context.Context) (*StatsResponse, error) {
	activos, err := s.repo.CountByStatus(ctx, cliente.StatusActivo)
	if err != nil {
		return nil, err
	}
	inactivos, err := s.repo.CountByStatus(ctx, cliente.StatusInactivo)
	if err != nil {
		return nil, err
	}
	return &StatsResponse{Activos: activos, Inactivos: inactivos, Total: activos + inactivos}, nil
}

// FindByCUIT looks a cliente up by CUIT, normalized first. It returns nil
// without error when none exists.
func (s *Service) FindByCUIT(ctx context.Context, cuit string) (*ClienteResponse, error) {
	c, err := s.repo.FindByCUIT(ctx, shared.NormalizeCUIT(strings.TrimSpace(cuit)))
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	resp := ToClienteResponse(c)
	return &resp, nil
}

func valueOr(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}
