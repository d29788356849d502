package certificado

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/sgi/backend/internal/domain/shared"
)

// Repository defines persistence operations for certificados
type Repository interface {
	FindByID(ctx context.Context, id int64) (*Certificado, error)

	// FindAll supports filters proyecto_id, cliente_id and status
	FindAll(ctx context.Context, filter shared.Filter) ([]Certificado, error)

	Count(ctx context.Context, filter shared.Filter) (int64, error)

	Save(ctx context.Context, c *Certificado) error

	// NextNumber returns the next sequential number within the proyecto
	NextNumber(ctx context.Context, proyectoID int64) (int, error)

	// CertifiedPercent sums the percent of non-annulled certificados of the
	// proyecto, leaving out excludeID
	CertifiedPercent(ctx context.Context, proyectoID, excludeID int64) (decimal.Decimal, error)

	// ApprovedPercent sums the percent of approved and invoiced certificados
	ApprovedPercent(ctx context.Context, proyectoID int64) (decimal.Decimal, error)

	// ExistsByProyecto reports whether the proyecto has any certificado
	ExistsByProyecto(ctx context.Context, proyectoID int64) (bool, error)
}
