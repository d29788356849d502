package presupuesto

import (
	"context"
	"time"

	"github.com/sgi/backend/internal/domain/shared"
)

// Repository defines persistence operations for presupuestos
type Repository interface {
	// FindByID loads a presupuesto with its items
	FindByID(ctx context.Context, id int64) (*Presupuesto, error)

	// FindAll lists presupuestos without items. Supported filters:
	// cliente_id, proyecto_id, status. From/To bound the issue date.
	FindAll(ctx context.Context, filter shared.Filter) ([]Presupuesto, error)

	// Count counts presupuestos matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// Save creates or updates a presupuesto and replaces its items
	Save(ctx context.Context, p *Presupuesto) error

	// Delete soft deletes a presupuesto
	Delete(ctx context.Context, id int64) error

	// NextNumber returns the next sequence number for the year
	NextNumber(ctx context.Context, year int) (int, error)

	// FindExpirable returns sent presupuestos whose validity ended before now
	FindExpirable(ctx context.Context, now time.Time, limit int) ([]Presupuesto, error)

	// CountByStatus counts presupuestos grouped by status
	CountByStatus(ctx context.Context) (map[Status]int64, error)
}
