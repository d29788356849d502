package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sgi/backend/internal/domain/cliente"
	"github.com/sgi/backend/internal/domain/factura"
	"github.com/sgi/backend/internal/domain/presupuesto"
	"github.com/sgi/backend/internal/domain/proyecto"
	"github.com/sgi/backend/internal/domain/shared"
	"github.com/sgi/backend/internal/infrastructure/persistence/models"
)

// GormClienteRepository implements cliente.Repository using GORM
type GormClienteRepository struct {
	db *gorm.DB
}

// NewGormClienteRepository creates a new GormClienteRepository
func NewGormClienteRepository(db *gorm.DB) *GormClienteRepository {
	return &GormClienteRepository{db: db}
}

var _ cliente.Repository = (*GormClienteRepository)(nil)

// clienteRoles are the persona roles visible as clientes
var clienteRoles = []cliente.Role{cliente.RoleCliente, cliente.RoleAmbos}

// FindByID finds a cliente by its ID
func (r *GormClienteRepository) FindByID(ctx context.Context, id int64) (*cliente.Cliente, error) {
	var model models.ClienteModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCUIT finds a cliente by its CUIT
func (r *GormClienteRepository) FindByCUIT(ctx context.Context, cuit string) (*cliente.Cliente, error) {
	cuit = shared.NormalizeCUIT(cuit)
	if cuit == "" {
		return nil, shared.NewDomainError("INVALID_CUIT", "El CUIT no puede estar vacío")
	}
	var model models.ClienteModel
	if err := r.db.WithContext(ctx).Where("cuit = ?", cuit).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds all clientes matching the filter
func (r *GormClienteRepository) FindAll(ctx context.Context, filter shared.Filter) ([]cliente.Cliente, error) {
	var clienteModels []models.ClienteModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.ClienteModel{}), filter).
		Order(orderClause(filter, ClienteSortFields, "name")).
		Scopes(paginate(filter))

	if err := query.Find(&clienteModels).Error; err != nil {
		return nil, err
	}

	clientes := make([]cliente.Cliente, len(clienteModels))
	for i, model := range clienteModels {
		clientes[i] = *model.ToDomain()
	}
	return clientes, nil
}

// Count counts clientes matching the filter
func (r *GormClienteRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.ClienteModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByStatus counts clientes by status
func (r *GormClienteRepository) CountByStatus(ctx context.Context, status cliente.Status) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ClienteModel{}).
		Where("role IN ? AND status = ?", clienteRoles, status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a cliente
func (r *GormClienteRepository) Save(ctx context.Context, c *cliente.Cliente) error {
	model := models.ClienteModelFromDomain(c)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return err
	}
	c.ID = model.ID
	return nil
}

// Delete soft deletes a cliente
func (r *GormClienteRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&models.ClienteModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ExistsByCUIT checks whether a live persona other than excludeID uses the CUIT
func (r *GormClienteRepository) ExistsByCUIT(ctx context.Context, cuit string, excludeID int64) (bool, error) {
	cuit = shared.NormalizeCUIT(cuit)
	if cuit == "" {
		return false, nil
	}
	var count int64
	query := r.db.WithContext(ctx).Model(&models.ClienteModel{}).Where("cuit = ?", cuit)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Summary aggregates the commercial activity of a cliente
func (r *GormClienteRepository) Summary(ctx context.Context, id int64) (*cliente.Summary, error) {
	db := r.db.WithContext(ctx)
	s := &cliente.Summary{ClienteID: id}

	var pres struct {
		Total int64
		Open  int64
	}
	if err := db.Model(&models.PresupuestoModel{}).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN status IN ? THEN 1 ELSE 0 END), 0) AS open",
			[]presupuesto.Status{presupuesto.StatusBorrador, presupuesto.StatusEnviado}).
		Where("cliente_id = ?", id).
		Scan(&pres).Error; err != nil {
		return nil, err
	}
	s.Presupuestos = pres.Total
	s.PresupuestosOpen = pres.Open

	var fac struct {
		Total     int64
		Facturado decimal.NullDecimal
		Pendiente decimal.NullDecimal
		Ultima    *time.Time
	}
	if err := db.Model(&models.FacturaModel{}).
		Select("COUNT(*) AS total, "+
			"SUM(CASE WHEN status IN ? THEN total END) AS facturado, "+
			"SUM(CASE WHEN status = ? THEN total END) AS pendiente, "+
			"MAX(CASE WHEN status IN ? THEN issue_date END) AS ultima",
			authorizedStatuses, factura.StatusAutorizada, authorizedStatuses).
		Where("cliente_id = ? AND status <> ?", id, factura.StatusAnulada).
		Scan(&fac).Error; err != nil {
		return nil, err
	}
	s.Facturas = fac.Total
	s.FacturadoTotal = nullDecimal(fac.Facturado)
	s.PendienteCobro = nullDecimal(fac.Pendiente)
	s.UltimaFacturaFecha = fac.Ultima

	if err := db.Model(&models.ProyectoModel{}).
		Where("cliente_id = ? AND status IN ?", id, []proyecto.Status{proyecto.StatusEnCurso, proyecto.StatusPausado}).
		Count(&s.ProyectosActivos).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// authorizedStatuses are the factura statuses that hold a CAE
var authorizedStatuses = []factura.Status{factura.StatusAutorizada, factura.StatusPagada}

// applyFilter applies the filter conditions without ordering or pagination
func (r *GormClienteRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if role, ok := filter.Filters["role"]; ok && role != "" {
		query = query.Where("role = ?", role)
	} else {
		query = query.Where("role IN ?", clienteRoles)
	}
	return query.Scopes(
		equalsScope(filter,
			column{"status", "status"},
			column{"iva_condition", "iva_condition"},
			column{"province", "province"},
		),
		searchScope(filter.Search, "name", "trade_name", "cuit", "email"),
	)
}
