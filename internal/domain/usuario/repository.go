package usuario

import "context"

// Repository defines persistence operations for usuarios
type Repository interface {
	FindByID(ctx context.Context, id int64) (*Usuario, error)
	FindByUsername(ctx context.Context, username string) (*Usuario, error)
	Count(ctx context.Context) (int64, error)
	Save(ctx context.Context, u *Usuario) error
}
