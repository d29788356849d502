package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sgi/backend/internal/domain/presupuesto"
	"github.com/sgi/backend/internal/domain/shared"
	"github.com/sgi/backend/internal/infrastructure/persistence/models"
)

// GormPresupuestoRepository implements presupuesto.Repository using GORM
type GormPresupuestoRepository struct {
	db *gorm.DB
}

// NewGormPresupuestoRepository creates a new GormPresupuestoRepository
func NewGormPresupuestoRepository(db *gorm.DB) *GormPresupuestoRepository {
	return &GormPresupuestoRepository{db: db}
}

var _ presupuesto.Repository = (*GormPresupuestoRepository)(nil)

// FindByID loads a presupuesto and its items
func (r *GormPresupuestoRepository) FindByID(ctx context.Context, id int64) (*presupuesto.Presupuesto, error) {
	var model models.PresupuestoModel
	if err := r.db.WithContext(ctx).
		Preload("Items", orderedItems).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists presupuestos matching the filter, without items
func (r *GormPresupuestoRepository) FindAll(ctx context.Context, filter shared.Filter) ([]presupuesto.Presupuesto, error) {
	var presupuestoModels []models.PresupuestoModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.PresupuestoModel{}), filter).
		Order(orderClause(filter, PresupuestoSortFields, "issue_date")).
		Scopes(paginate(filter))

	if err := query.Find(&presupuestoModels).Error; err != nil {
		return nil, err
	}

	presupuestos := make([]presupuesto.Presupuesto, len(presupuestoModels))
	for i, model := range presupuestoModels {
		presupuestos[i] = *model.ToDomain()
	}
	return presupuestos, nil
}

// Count counts presupuestos matching the filter
func (r *GormPresupuestoRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.PresupuestoModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save writes the header and replaces the items in one transaction
func (r *GormPresupuestoRepository) Save(ctx context.Context, p *presupuesto.Presupuesto) error {
	model := models.PresupuestoModelFromDomain(p)
	items := model.Items

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}
		if err := tx.Where("presupuesto_id = ?", model.ID).
			Delete(&models.PresupuestoItemModel{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		for i := range items {
			items[i].ID = 0
			items[i].PresupuestoID = model.ID
		}
		return tx.Create(&items).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}

	p.ID = model.ID
	for i := range items {
		p.Items[i].ID = items[i].ID
	}
	return nil
}

// Delete soft deletes a presupuesto. Its items stay for auditing.
func (r *GormPresupuestoRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&models.PresupuestoModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// NextNumber returns the next sequence for the year. Soft deleted
// presupuestos keep their numbers so they are counted too.
func (r *GormPresupuestoRepository) NextNumber(ctx context.Context, year int) (int, error) {
	var last int
	if err := r.db.WithContext(ctx).
		Unscoped().
		Model(&models.PresupuestoModel{}).
		Select("COALESCE(MAX(CAST(SUBSTRING_INDEX(number, '-', -1) AS UNSIGNED)), 0)").
		Where("year = ?", year).
		Scan(&last).Error; err != nil {
		return 0, err
	}
	return last + 1, nil
}

// FindExpirable returns sent presupuestos whose validity ended before today
func (r *GormPresupuestoRepository) FindExpirable(ctx context.Context, now time.Time, limit int) ([]presupuesto.Presupuesto, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var presupuestoModels []models.PresupuestoModel
	query := r.db.WithContext(ctx).
		Where("status = ? AND valid_until < ?", presupuesto.StatusEnviado, today).
		Order("valid_until ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&presupuestoModels).Error; err != nil {
		return nil, err
	}

	presupuestos := make([]presupuesto.Presupuesto, len(presupuestoModels))
	for i, model := range presupuestoModels {
		presupuestos[i] = *model.ToDomain()
	}
	return presupuestos, nil
}

// CountByStatus counts presupuestos grouped by status
func (r *GormPresupuestoRepository) CountByStatus(ctx context.Context) (map[presupuesto.Status]int64, error) {
	return countByStatus[presupuesto.Status](ctx, r.db, &models.PresupuestoModel{})
}

func (r *GormPresupuestoRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	return query.Scopes(
		equalsScope(filter,
			column{"cliente_id", "cliente_id"},
			column{"proyecto_id", "proyecto_id"},
			column{"status", "status"},
		),
		dateRangeScope(filter, "issue_date"),
		searchScope(filter.Search, "number", "title"),
	)
}
