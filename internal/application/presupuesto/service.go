// Package presupuesto implements the use cases of the presupuestos module
package presupuesto

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sgi/backend/internal/application/common"
	"github.com/sgi/backend/internal/domain/cliente"
	"github.com/sgi/backend/internal/domain/presupuesto"
	"github.com/sgi/backend/internal/domain/proyecto"
	"github.com/sgi/backend/internal/domain/shared"
)

// ClienteFinder loads the cliente a presupuesto is addressed to
type ClienteFinder interface {
	FindByID(ctx context.Context, id int64) (*cliente.Cliente, error)
}

// ProyectoFinder loads the proyecto a presupuesto belongs to
type ProyectoFinder interface {
	FindByID(ctx context.Context, id int64) (*proyecto.Proyecto, error)
}

// ExpiryRecorder records how many presupuestos a batch expired
type ExpiryRecorder interface {
	RecordPresupuestosExpired(ctx context.Context, n int64)
}

const (
	// expireBatchSize bounds each FindExpirable call of ExpireOverdue
	expireBatchSize = 100
	// numberAttempts bounds how often a create retries after losing its number
	numberAttempts = 3
)

// Service handles presupuesto business operations
type Service struct {
	repo       presupuesto.Repository
	clientes   ClienteFinder
	proyectos  ProyectoFinder
	defaultIVA decimal.Decimal
	metrics    ExpiryRecorder
	logger     *zap.Logger
	now        func() time.Time
}

// NewService creates a new presupuesto service. defaultIVA applies when a
// request omits the aliquot.
func NewService(repo presupuesto.Repository, clientes ClienteFinder, proyectos ProyectoFinder, defaultIVA decimal.Decimal, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:       repo,
		clientes:   clientes,
		proyectos:  proyectos,
		defaultIVA: defaultIVA,
		logger:     logger.Named("presupuestos"),
		now:        time.Now,
	}
}

// SetMetrics sets the recorder notified by ExpireOverdue
func (s *Service) SetMetrics(m ExpiryRecorder) {
	s.metrics = m
}

// Create creates a draft presupuesto numbered for the issue year
func (s *Service) Create(ctx context.Context, req CreatePresupuestoRequest) (*PresupuestoResponse, error) {
	c, err := s.activeCliente(ctx, req.ClienteID)
	if err != nil {
		return nil, err
	}
	if err := s.checkProyecto(ctx, req.ProyectoID, c.ID); err != nil {
		return nil, err
	}

	issueDate := s.now()
	if req.IssueDate != nil && !req.IssueDate.IsZero() {
		issueDate = req.IssueDate.Time
	}
	rate := s.defaultIVA
	if req.IVARate != nil {
		rate = *req.IVARate
	}

	p, err := presupuesto.NewPresupuesto(c.ID, req.Title, issueDate, rate)
	if err != nil {
		return nil, err
	}
	var validUntil time.Time
	if req.ValidUntil != nil {
		validUntil = req.ValidUntil.Time
	}
	if err := p.Update(req.Title, req.Description, req.Notes, validUntil, req.ProyectoID); err != nil {
		return nil, err
	}
	lines, err := common.ToLines(req.Items)
	if err != nil {
		return nil, err
	}
	if err := p.ReplaceItems(lines); err != nil {
		return nil, err
	}

	if err := s.saveNumbered(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("Presupuesto created",
		zap.Int64("presupuesto_id", p.ID),
		zap.String("number", p.Number),
		zap.Int64("cliente_id", p.ClienteID),
	)
	return s.response(p, c), nil
}

// saveNumbered gives p the next number of its issue year and saves it,
// taking a fresh number when another create stored the same one first
func (s *Service) saveNumbered(ctx context.Context, p *presupuesto.Presupuesto) error {
	year := p.IssueDate.Year()
	for attempt := 1; ; attempt++ {
		seq, err := s.repo.NextNumber(ctx, year)
		if err != nil {
			return err
		}
		p.Number = presupuesto.FormatNumber(year, seq)
		err = s.repo.Save(ctx, p)
		if !errors.Is(err, shared.ErrAlreadyExists) || attempt == numberAttempts {
			return err
		}
		s.logger.Warn("Presupuesto number taken, retrying", zap.String("number", p.Number))
	}
}

// GetByID retrieves a presupuesto with its items
func (s *Service) GetByID(ctx context.Context, id int64) (*PresupuestoResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.response(p, s.lookupCliente(ctx, p.ClienteID)), nil
}

// List retrieves a page of presupuestos and the total count
func (s *Service) List(ctx context.Context, filter ListFilter) ([]PresupuestoResponse, int64, error) {
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
	return ToPresupuestoResponses(list), total, nil
}

// Update replaces the header of an editable presupuesto, and its items when
// the request carries them
func (s *Service) Update(ctx context.Context, id int64, req UpdatePresupuestoRequest) (*PresupuestoResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkProyecto(ctx, req.ProyectoID, p.ClienteID); err != nil {
		return nil, err
	}

	var validUntil time.Time
	if req.ValidUntil != nil {
		validUntil = req.ValidUntil.Time
	}
	if err := p.Update(req.Title, req.Description, req.Notes, validUntil, req.ProyectoID); err != nil {
		return nil, err
	}
	if req.IVARate != nil && !req.IVARate.Equal(p.IVARate) {
		if err := p.SetIVARate(*req.IVARate); err != nil {
			return nil, err
		}
	}
	if req.Items != nil {
		lines, err := common.ToLines(req.Items)
		if err != nil {
			return nil, err
		}
		if err := p.ReplaceItems(lines); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Save(ctx, p); err != nil {
		return nil, err
	}
	return s.response(p, s.lookupCliente(ctx, p.ClienteID)), nil
}

// Send marks a draft as sent to the cliente
func (s *Service) Send(ctx context.Context, id int64) (*PresupuestoResponse, error) {
	return s.transition(ctx, id, "sent", func(p *presupuesto.Presupuesto, now time.Time) error {
		return p.Send(now)
	})
}

// Approve records the cliente's acceptance
func (s *Service) Approve(ctx context.Context, id int64) (*PresupuestoResponse, error) {
	return s.transition(ctx, id, "approved", func(p *presupuesto.Presupuesto, now time.Time) error {
		return p.Approve(now)
	})
}

// Reject records the cliente's refusal with an optional note
func (s *Service) Reject(ctx context.Context, id int64, req RejectRequest) (*PresupuestoResponse, error) {
	return s.transition(ctx, id, "rejected", func(p *presupuesto.Presupuesto, now time.Time) error {
		return p.Reject(now, req.Note)
	})
}

// Delete soft deletes a draft presupuesto
func (s *Service) Delete(ctx context.Context, id int64) error {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !p.CanDelete() {
		return shared.NewDomainError("INVALID_STATE", "Solo se pueden eliminar presupuestos en borrador")
	}
	return s.repo.Delete(ctx, id)
}

// Duplicate copies a presupuesto into a new draft with the next number
func (s *Service) Duplicate(ctx context.Context, id int64) (*PresupuestoResponse, error) {
	src, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dup := src.Duplicate(s.now())
	if err := s.saveNumbered(ctx, dup); err != nil {
		return nil, err
	}
	s.logger.Info("Presupuesto duplicated",
		zap.Int64("source_id", src.ID),
		zap.Int64("presupuesto_id", dup.ID),
		zap.String("number", dup.Number),
	)
	return s.response(dup, s.lookupCliente(ctx, dup.ClienteID)), nil
}

// ExpireOverdue moves every sent presupuesto whose validity ended before now
// to VENCIDO and returns how many changed
func (s *Service) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	expired := 0
	for {
		batch, err := s.repo.FindExpirable(ctx, now, expireBatchSize)
		if err != nil {
			return expired, err
		}
		changed := 0
		for i := range batch {
			p := &batch[i]
			if err := p.Expire(now); err != nil {
				continue
			}
			if err := s.repo.Save(ctx, p); err != nil {
				return expired, err
			}
			changed++
		}
		expired += changed
		if len(batch) < expireBatchSize || changed == 0 {
			break
		}
	}

	if expired > 0 {
		s.logger.Info("Presupuestos expired", zap.Int("count", expired))
		if s.metrics != nil {
			s.metrics.RecordPresupuestosExpired(ctx, int64(expired))
		}
	}
	return expired, nil
}

// Stats counts presupuestos by status
func (s *Service) Stats(ctx context.Context) (*StatsResponse, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	resp := &StatsResponse{ByStatus: make(map[string]int64, len(counts))}
	for _, st := range presupuesto.AllStatuses() {
		resp.ByStatus[string(st)] = counts[st]
		resp.Total += counts[st]
	}
	return resp, nil
}

func (s *Service) transition(ctx context.Context, id int64, event string, apply func(*presupuesto.Presupuesto, time.Time) error) (*PresupuestoResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(p, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("Presupuesto "+event,
		zap.Int64("presupuesto_id", p.ID),
		zap.String("number", p.Number),
	)
	return s.response(p, s.lookupCliente(ctx, p.ClienteID)), nil
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

// checkProyecto verifies that an optional proyecto belongs to the cliente
func (s *Service) checkProyecto(ctx context.Context, proyectoID *int64, clienteID int64) error {
	if proyectoID == nil {
		return nil
	}
	p, err := s.proyectos.FindByID(ctx, *proyectoID)
	if err != nil {
		return err
	}
	if p.ClienteID != clienteID {
		return shared.NewDomainError("INVALID_PROYECTO", "El proyecto pertenece a otro cliente")
	}
	return nil
}

// lookupCliente returns nil when the cliente cannot be loaded; the response
// then omits the cliente name
func (s *Service) lookupCliente(ctx context.Context, id int64) *cliente.Cliente {
	c, err := s.clientes.FindByID(ctx, id)
	if err != nil {
		s.logger.Debug("Cliente lookup failed", zap.Int64("cliente_id", id), zap.Error(err))
		return nil
	}
	return c
}

func (s *Service) response(p *presupuesto.Presupuesto, c *cliente.Cliente) *PresupuestoResponse {
	resp := ToPresupuestoResponse(p)
	if c != nil {
		resp.ClienteName = c.Name
	}
	return &resp
}
