package persistence

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sgi/backend/internal/domain/certificado"
	"github.com/sgi/backend/internal/domain/proyecto"
	"github.com/sgi/backend/internal/domain/shared"
	"github.com/sgi/backend/internal/infrastructure/persistence/models"
)

// GormProyectoRepository implements proyecto.Repository using GORM
type GormProyectoRepository struct {
	db *gorm.DB
}

// NewGormProyectoRepository creates a new GormProyectoRepository
func NewGormProyectoRepository(db *gorm.DB) *GormProyectoRepository {
	return &GormProyectoRepository{db: db}
}

var _ proyecto.Repository = (*GormProyectoRepository)(nil)

var openProyectoStatuses = []proyecto.Status{proyecto.StatusEnCurso, proyecto.StatusPausado}

// FindByID finds a proyecto by its ID
func (r *GormProyectoRepository) FindByID(ctx context.Context, id int64) (*proyecto.Proyecto, error) {
	var model models.ProyectoModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCode finds a proyecto by its code
func (r *GormProyectoRepository) FindByCode(ctx context.Context, code string) (*proyecto.Proyecto, error) {
	var model models.ProyectoModel
	if err := r.db.WithContext(ctx).Where("code = ?", proyecto.NormalizeCode(code)).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds all proyectos matching the filter
func (r *GormProyectoRepository) FindAll(ctx context.Context, filter shared.Filter) ([]proyecto.Proyecto, error) {
	var proyectoModels []models.ProyectoModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.ProyectoModel{}), filter).
		Order(orderClause(filter, ProyectoSortFields, "created_at")).
		Scopes(paginate(filter))

	if err := query.Find(&proyectoModels).Error; err != nil {
		return nil, err
	}

	proyectos := make([]proyecto.Proyecto, len(proyectoModels))
	for i, model := range proyectoModels {
		proyectos[i] = *model.ToDomain()
	}
	return proyectos, nil
}

// Count counts proyectos matching the filter
func (r *GormProyectoRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.ProyectoModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByStatus counts proyectos grouped by status
func (r *GormProyectoRepository) CountByStatus(ctx context.Context) (map[proyecto.Status]int64, error) {
	return countByStatus[proyecto.Status](ctx, r.db, &models.ProyectoModel{})
}

// Save creates or updates a proyecto
func (r *GormProyectoRepository) Save(ctx context.Context, p *proyecto.Proyecto) error {
	model := models.ProyectoModelFromDomain(p)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return err
	}
	p.ID = model.ID
	return nil
}

// Delete soft deletes a proyecto
func (r *GormProyectoRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&models.ProyectoModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ExistsByCode checks whether a proyecto other than excludeID uses the code.
// Soft deleted proyectos still hold their code in the unique index.
func (r *GormProyectoRepository) ExistsByCode(ctx context.Context, code string, excludeID int64) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Unscoped().
		Model(&models.ProyectoModel{}).
		Where("code = ?", proyecto.NormalizeCode(code))
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// HasOpenByCliente reports whether the cliente has proyectos in progress or paused
func (r *GormProyectoRepository) HasOpenByCliente(ctx context.Context, clienteID int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ProyectoModel{}).
		Where("cliente_id = ? AND status IN ?", clienteID, openProyectoStatuses).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Summary aggregates certificados and facturas of a proyecto
func (r *GormProyectoRepository) Summary(ctx context.Context, id int64) (*proyecto.Summary, error) {
	p, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	db := r.db.WithContext(ctx)

	var certs struct {
		Total     int64
		Percent   decimal.NullDecimal
		Certified decimal.NullDecimal
		Pending   decimal.NullDecimal
	}
	if err := db.Model(&models.CertificadoModel{}).
		Select("COUNT(*) AS total, "+
			"SUM(CASE WHEN status IN ? THEN percent END) AS percent, "+
			"SUM(CASE WHEN status IN ? THEN amount END) AS certified, "+
			"SUM(CASE WHEN status = ? THEN amount END) AS pending",
			progressStatuses, progressStatuses, certificado.StatusAprobado).
		Where("proyecto_id = ? AND status <> ?", id, certificado.StatusAnulado).
		Scan(&certs).Error; err != nil {
		return nil, err
	}

	var invoiced struct {
		Amount decimal.NullDecimal
	}
	if err := db.Model(&models.FacturaModel{}).
		Select("SUM(total) AS amount").
		Where("proyecto_id = ? AND status IN ?", id, authorizedStatuses).
		Scan(&invoiced).Error; err != nil {
		return nil, err
	}

	s := &proyecto.Summary{
		ProyectoID:       id,
		Budget:           p.Budget,
		CertifiedPercent: nullDecimal(certs.Percent),
		CertifiedAmount:  nullDecimal(certs.Certified),
		InvoicedAmount:   nullDecimal(invoiced.Amount),
		Certificados:     certs.Total,
		PendingToInvoice: nullDecimal(certs.Pending),
	}
	s.RemainingToCertify = proyecto.Remaining(p.Budget, s.CertifiedAmount)
	return s, nil
}

// progressStatuses are the certificado statuses that count towards progress
var progressStatuses = []certificado.Status{certificado.StatusAprobado, certificado.StatusFacturado}

func (r *GormProyectoRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	return query.Scopes(
		equalsScope(filter,
			column{"cliente_id", "cliente_id"},
			column{"status", "status"},
		),
		searchScope(filter.Search, "code", "name", "location"),
	)
}
