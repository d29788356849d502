package persistence

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/sgi/backend/internal/domain/shared"
	"github.com/sgi/backend/internal/domain/usuario"
	"github.com/sgi/backend/internal/infrastructure/persistence/models"
)

// GormUsuarioRepository implements usuario.Repository using GORM
type GormUsuarioRepository struct {
	db *gorm.DB
}

// NewGormUsuarioRepository creates a new GormUsuarioRepository
func NewGormUsuarioRepository(db *gorm.DB) *GormUsuarioRepository {
	return &GormUsuarioRepository{db: db}
}

var _ usuario.Repository = (*GormUsuarioRepository)(nil)

// FindByID finds a usuario by ID
func (r *GormUsuarioRepository) FindByID(ctx context.Context, id int64) (*usuario.Usuario, error) {
	var model models.UsuarioModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByUsername finds a usuario by username, case insensitive
func (r *GormUsuarioRepository) FindByUsername(ctx context.Context, username string) (*usuario.Usuario, error) {
	var model models.UsuarioModel
	if err := r.db.WithContext(ctx).
		Where("username = ?", strings.ToLower(strings.TrimSpace(username))).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Count counts every usuario
func (r *GormUsuarioRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.UsuarioModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a usuario
func (r *GormUsuarioRepository) Save(ctx context.Context, u *usuario.Usuario) error {
	model := models.UsuarioModelFromDomain(u)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	u.ID = model.ID
	return nil
}
