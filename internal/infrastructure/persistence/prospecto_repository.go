package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sgi/backend/internal/domain/prospecto"
	"github.com/sgi/backend/internal/domain/shared"
	"github.com/sgi/backend/internal/infrastructure/persistence/models"
)

// GormProspectoRepository implements prospecto.Repository using GORM
type GormProspectoRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormProspectoRepository creates a new GormProspectoRepository
func NewGormProspectoRepository(db *gorm.DB) *GormProspectoRepository {
	return &GormProspectoRepository{db: db, now: time.Now}
}

var _ prospecto.Repository = (*GormProspectoRepository)(nil)

// FindByID finds a prospecto by its ID
func (r *GormProspectoRepository) FindByID(ctx context.Context, id int64) (*prospecto.Prospecto, error) {
	var model models.ProspectoModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds all prospectos matching the filter
func (r *GormProspectoRepository) FindAll(ctx context.Context, filter shared.Filter) ([]prospecto.Prospecto, error) {
	var prospectoModels []models.ProspectoModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.ProspectoModel{}), filter).
		Order(orderClause(filter, ProspectoSortFields, "created_at")).
		Scopes(paginate(filter))

	if err := query.Find(&prospectoModels).Error; err != nil {
		return nil, err
	}

	prospectos := make([]prospecto.Prospecto, len(prospectoModels))
	for i, model := range prospectoModels {
		prospectos[i] = *model.ToDomain()
	}
	return prospectos, nil
}

// Count counts prospectos matching the filter
func (r *GormProspectoRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.ProspectoModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a prospecto
func (r *GormProspectoRepository) Save(ctx context.Context, p *prospecto.Prospecto) error {
	model := models.ProspectoModelFromDomain(p)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return err
	}
	p.ID = model.ID
	return nil
}

// Delete soft deletes a prospecto
func (r *GormProspectoRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&models.ProspectoModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Pipeline summarizes prospectos by stage
func (r *GormProspectoRepository) Pipeline(ctx context.Context) (*prospecto.PipelineStats, error) {
	byStatus, err := countByStatus[prospecto.Status](ctx, r.db, &models.ProspectoModel{})
	if err != nil {
		return nil, err
	}

	var open struct {
		Value decimal.NullDecimal
	}
	if err := r.db.WithContext(ctx).
		Model(&models.ProspectoModel{}).
		Select("SUM(estimated_value) AS value").
		Where("status IN ?", prospecto.OpenStatuses).
		Scan(&open).Error; err != nil {
		return nil, err
	}

	stats := &prospecto.PipelineStats{
		ByStatus:  byStatus,
		OpenValue: nullDecimal(open.Value),
		WonCount:  byStatus[prospecto.StatusGanado],
		LostCount: byStatus[prospecto.StatusPerdido],
	}
	for _, s := range prospecto.OpenStatuses {
		stats.OpenCount += byStatus[s]
	}
	return stats, nil
}

func (r *GormProspectoRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = query.Scopes(
		equalsScope(filter,
			column{"status", "status"},
			column{"source", "source"},
		),
		searchScope(filter.Search, "name", "company", "email"),
	)
	if overdue, ok := filter.Filters["overdue"].(bool); ok && overdue {
		query = query.Where("status IN ? AND next_contact_date < ?", prospecto.OpenStatuses, r.now())
	}
	return query
}
