package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sgi/backend/internal/domain/factura"
	"github.com/sgi/backend/internal/domain/shared"
	"github.com/sgi/backend/internal/infrastructure/persistence/models"
)

// GormFacturaRepository implements factura.Repository using GORM
type GormFacturaRepository struct {
	db *gorm.DB
}

// NewGormFacturaRepository creates a new GormFacturaRepository
func NewGormFacturaRepository(db *gorm.DB) *GormFacturaRepository {
	return &GormFacturaRepository{db: db}
}

var _ factura.Repository = (*GormFacturaRepository)(nil)

// FindByID loads a factura and its items
func (r *GormFacturaRepository) FindByID(ctx context.Context, id int64) (*factura.Factura, error) {
	var model models.FacturaModel
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

// FindAll lists facturas matching the filter, without items
func (r *GormFacturaRepository) FindAll(ctx context.Context, filter shared.Filter) ([]factura.Factura, error) {
	var facturaModels []models.FacturaModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.FacturaModel{}), filter).
		Order(orderClause(filter, FacturaSortFields, "issue_date")).
		Scopes(paginate(filter))

	if err := query.Find(&facturaModels).Error; err != nil {
		return nil, err
	}
	return facturasToDomain(facturaModels), nil
}

// Count counts facturas matching the filter
func (r *GormFacturaRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.FacturaModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save writes the header and replaces the items in one transaction
func (r *GormFacturaRepository) Save(ctx context.Context, f *factura.Factura) error {
	model := models.FacturaModelFromDomain(f)
	items := model.Items

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}
		if err := tx.Where("factura_id = ?", model.ID).
			Delete(&models.FacturaItemModel{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		for i := range items {
			items[i].ID = 0
			items[i].FacturaID = model.ID
		}
		return tx.Create(&items).Error
	})
	if err != nil {
		return err
	}

	f.ID = model.ID
	for i := range items {
		f.Items[i].ID = items[i].ID
	}
	return nil
}

// FindPending returns facturas waiting for a CAE whose retries are not
// exhausted, least recently attempted first
func (r *GormFacturaRepository) FindPending(ctx context.Context, maxAttempts, limit int) ([]factura.Factura, error) {
	var facturaModels []models.FacturaModel
	query := r.db.WithContext(ctx).
		Preload("Items", orderedItems).
		Where("status = ?", factura.StatusPendienteCAE)
	if maxAttempts > 0 {
		query = query.Where("attempts < ?", maxAttempts)
	}
	query = query.Order("last_attempt_at ASC").Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&facturaModels).Error; err != nil {
		return nil, err
	}
	return facturasToDomain(facturaModels), nil
}

// ExistsByCliente reports whether the cliente has any non-annulled factura
func (r *GormFacturaRepository) ExistsByCliente(ctx context.Context, clienteID int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.FacturaModel{}).
		Where("cliente_id = ? AND status <> ?", clienteID, factura.StatusAnulada).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Stats aggregates billing of the period [from, to)
func (r *GormFacturaRepository) Stats(ctx context.Context, from, to time.Time) (*factura.Stats, error) {
	db := r.db.WithContext(ctx)
	stats := &factura.Stats{}

	var billed struct {
		Count  int64
		Amount decimal.NullDecimal
	}
	if err := db.Model(&models.FacturaModel{}).
		Select("COUNT(*) AS count, SUM(total) AS amount").
		Where("status IN ? AND issue_date >= ? AND issue_date < ?", authorizedStatuses, from, to).
		Scan(&billed).Error; err != nil {
		return nil, err
	}
	stats.AuthorizedCount = billed.Count
	stats.BilledAmount = nullDecimal(billed.Amount)

	var pending struct {
		Count  int64
		Amount decimal.NullDecimal
	}
	if err := db.Model(&models.FacturaModel{}).
		Select("COUNT(*) AS count, SUM(total) AS amount").
		Where("status = ?", factura.StatusAutorizada).
		Scan(&pending).Error; err != nil {
		return nil, err
	}
	stats.PendingCount = pending.Count
	stats.PendingAmount = nullDecimal(pending.Amount)

	byStatus, err := countByStatus[factura.Status](ctx,
		r.db.Where("issue_date >= ? AND issue_date < ?", from, to), &models.FacturaModel{})
	if err != nil {
		return nil, err
	}
	stats.ByStatus = byStatus
	return stats, nil
}

func (r *GormFacturaRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	return query.Scopes(
		equalsScope(filter,
			column{"cliente_id", "cliente_id"},
			column{"proyecto_id", "proyecto_id"},
			column{"status", "status"},
			column{"type", "type"},
		),
		dateRangeScope(filter, "issue_date"),
		searchScope(filter.Search, "cae", "notes"),
	)
}

func facturasToDomain(facturaModels []models.FacturaModel) []factura.Factura {
	facturas := make([]factura.Factura, len(facturaModels))
	for i, model := range facturaModels {
		facturas[i] = *model.ToDomain()
	}
	return facturas
}
