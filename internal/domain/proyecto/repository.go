package proyecto

import (
	"context"

	"github.com/sgi/backend/internal/domain/shared"
)

// Repository defines persistence operations for proyectos
type Repository interface {
	FindByID(ctx context.Context, id int64) (*Proyecto, error)
	FindByCode(ctx context.Context, code string) (*Proyecto, error)
	// FindAll supports filters cliente_id and status plus free text search
	FindAll(ctx context.Context, filter shared.Filter) ([]Proyecto, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	CountByStatus(ctx context.Context) (map[Status]int64, error)
	Save(ctx context.Context, p *Proyecto) error
	Delete(ctx context.Context, id int64) error
	ExistsByCode(ctx context.Context, code string, excludeID int64) (bool, error)
	// HasOpenByCliente reports whether the cliente has proyectos EN_CURSO or PAUSADO
	HasOpenByCliente(ctx context.Context, clienteID int64) (bool, error)
	Summary(ctx context.Context, id int64) (*Summary, error)
}
