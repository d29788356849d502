package cliente

import (
	"context"

	"github.com/sgi/backend/internal/domain/shared"
)

// Repository defines persistence operations for clientes
type Repository interface {
	// FindByID finds a cliente by ID
	FindByID(ctx context.Context, id int64) (*Cliente, error)

	// FindByCUIT finds a cliente by its normalized CUIT
	FindByCUIT(ctx context.Context, cuit string) (*Cliente, error)

	// FindAll lists clientes. Supported filters: status, iva_condition,
	// province, role. Search matches name, trade name, CUIT and email.
	FindAll(ctx context.Context, filter shared.Filter) ([]Cliente, error)

	// Count counts clientes matching the filter, ignoring pagination
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// CountByStatus counts clientes by lifecycle status
	CountByStatus(ctx context.Context, status Status) (int64, error)

	// Save creates or updates a cliente
	Save(ctx context.Context, c *Cliente) error

	// Delete soft deletes a cliente
	Delete(ctx context.Context, id int64) error

	// ExistsByCUIT checks whether another cliente already uses the CUIT
	ExistsByCUIT(ctx context.Context, cuit string, excludeID int64) (bool, error)

	// Summary aggregates presupuestos, facturas and proyectos of a cliente
	Summary(ctx context.Context, id int64) (*Summary, error)
}
