package scheduler

import (
	"context"
	"fmt"
	"time"
)

// FacturaRetrier retries the AFIP authorization of a pending factura
type FacturaRetrier interface {
	RetryAuthorization(ctx context.Context, facturaID int64) error
}

// PresupuestoExpirer moves overdue presupuestos to VENCIDO
type PresupuestoExpirer interface {
	ExpireOverdue(ctx context.Context, now time.Time) (int, error)
}

// Executor dispatches jobs to the application services
type Executor struct {
	facturas     FacturaRetrier
	presupuestos PresupuestoExpirer
	now          func() time.Time
}

// NewExecutor creates an executor; either dependency may be nil to disable
// its job kind
func NewExecutor(facturas FacturaRetrier, presupuestos PresupuestoExpirer) *Executor {
	return &Executor{facturas: facturas, presupuestos: presupuestos, now: time.Now}
}

// Execute runs a job
func (e *Executor) Execute(ctx context.Context, job *Job) error {
	switch {
	case job.Kind == JobKindAuthorizeFactura && e.facturas != nil:
		if err := e.facturas.RetryAuthorization(ctx, job.FacturaID); err != nil {
			return fmt.Errorf("retry authorization of factura %d: %w", job.FacturaID, err)
		}
		return nil
	case job.Kind == JobKindExpirePresupuestos && e.presupuestos != nil:
		if _, err := e.presupuestos.ExpireOverdue(ctx, e.now()); err != nil {
			return fmt.Errorf("expire presupuestos: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownJobKind, job.Kind)
	}
}

var _ JobExecutor = (*Executor)(nil)
