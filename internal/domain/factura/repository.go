package factura

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sgi/backend/internal/domain/shared"
)

// Repository defines persistence operations for facturas
type Repository interface {
	// FindByID loads a factura with its items
	FindByID(ctx context.Context, id int64) (*Factura, error)

	// FindAll lists facturas without items. Supported filters: cliente_id,
	// proyecto_id, status, type. From/To bound the issue date.
	FindAll(ctx context.Context, filter shared.Filter) ([]Factura, error)

	// Count counts facturas matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// Save creates or updates a factura and replaces its items
	Save(ctx context.Context, f *Factura) error

	// FindPending returns facturas waiting for a CAE retry, oldest first
	FindPending(ctx context.Context, maxAttempts, limit int) ([]Factura, error)

	// ExistsByCliente reports whether the cliente has any non-annulled factura
	ExistsByCliente(ctx context.Context, clienteID int64) (bool, error)

	// Stats aggregates billing between from (inclusive) and to (exclusive)
	Stats(ctx context.Context, from, to time.Time) (*Stats, error)
}

// Stats summarizes billing for a period
type Stats struct {
	AuthorizedCount int64
	BilledAmount    decimal.Decimal
	PendingCount    int64
	PendingAmount   decimal.Decimal // authorized and not yet paid, any period
	ByStatus        map[Status]int64
}
