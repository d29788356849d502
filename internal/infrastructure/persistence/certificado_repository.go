package persistence

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sgi/backend/internal/domain/certificado"
	"github.com/sgi/backend/internal/domain/shared"
	"github.com/sgi/backend/internal/infrastructure/persistence/models"
)

// GormCertificadoRepository implements certificado.Repository and
// certificado.MaintenanceRepository using GORM
type GormCertificadoRepository struct {
	db *gorm.DB
}

// NewGormCertificadoRepository creates a new GormCertificadoRepository
func NewGormCertificadoRepository(db *gorm.DB) *GormCertificadoRepository {
	return &GormCertificadoRepository{db: db}
}

var (
	_ certificado.Repository            = (*GormCertificadoRepository)(nil)
	_ certificado.MaintenanceRepository = (*GormCertificadoRepository)(nil)
)

// FindByID finds a certificado by its ID
func (r *GormCertificadoRepository) FindByID(ctx context.Context, id int64) (*certificado.Certificado, error) {
	var model models.CertificadoModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds all certificados matching the filter
func (r *GormCertificadoRepository) FindAll(ctx context.Context, filter shared.Filter) ([]certificado.Certificado, error) {
	var certificadoModels []models.CertificadoModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.CertificadoModel{}), filter).
		Order(orderClause(filter, CertificadoSortFields, "number")).
		Scopes(paginate(filter))

	if err := query.Find(&certificadoModels).Error; err != nil {
		return nil, err
	}

	certificados := make([]certificado.Certificado, len(certificadoModels))
	for i, model := range certificadoModels {
		certificados[i] = *model.ToDomain()
	}
	return certificados, nil
}

// Count counts certificados matching the filter
func (r *GormCertificadoRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.CertificadoModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a certificado
func (r *GormCertificadoRepository) Save(ctx context.Context, c *certificado.Certificado) error {
	model := models.CertificadoModelFromDomain(c)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	c.ID = model.ID
	return nil
}

// NextNumber returns the next number within the proyecto. Annulled
// certificados keep their number.
func (r *GormCertificadoRepository) NextNumber(ctx context.Context, proyectoID int64) (int, error) {
	var last int
	if err := r.db.WithContext(ctx).
		Model(&models.CertificadoModel{}).
		Select("COALESCE(MAX(number), 0)").
		Where("proyecto_id = ?", proyectoID).
		Scan(&last).Error; err != nil {
		return 0, err
	}
	return last + 1, nil
}

// CertifiedPercent sums the percent of the proyecto's non-annulled
// certificados other than excludeID
func (r *GormCertificadoRepository) CertifiedPercent(ctx context.Context, proyectoID, excludeID int64) (decimal.Decimal, error) {
	query := r.db.WithContext(ctx).
		Model(&models.CertificadoModel{}).
		Where("proyecto_id = ? AND status <> ?", proyectoID, certificado.StatusAnulado)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}
	return sumPercent(query)
}

// ApprovedPercent sums the percent of approved and invoiced certificados
func (r *GormCertificadoRepository) ApprovedPercent(ctx context.Context, proyectoID int64) (decimal.Decimal, error) {
	return sumPercent(r.db.WithContext(ctx).
		Model(&models.CertificadoModel{}).
		Where("proyecto_id = ? AND status IN ?", proyectoID, progressStatuses))
}

// ExistsByProyecto reports whether the proyecto has any certificado
func (r *GormCertificadoRepository) ExistsByProyecto(ctx context.Context, proyectoID int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.CertificadoModel{}).
		Where("proyecto_id = ?", proyectoID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

type certificadoLinkRow struct {
	CertificadoID     int64
	ProyectoID        int64
	ClienteID         *int64
	FoundProyectoID   *int64
	ExpectedClienteID *int64
}

type overCertifiedRow struct {
	ProyectoID int64
	Code       string
	Percent    decimal.Decimal
}

// Diagnose inspects every certificado against its proyecto. Soft deleted
// proyectos still count as existing.
func (r *GormCertificadoRepository) Diagnose(ctx context.Context) (*certificado.Report, error) {
	db := r.db.WithContext(ctx)
	report := &certificado.Report{}

	if err := db.Model(&models.CertificadoModel{}).Count(&report.Total).Error; err != nil {
		return nil, err
	}

	var links []certificadoLinkRow
	if err := db.Raw(`SELECT c.id AS certificado_id, c.proyecto_id, c.cliente_id,
		p.id AS found_proyecto_id, p.cliente_id AS expected_cliente_id
		FROM certificados c
		LEFT JOIN proyectos p ON p.id = c.proyecto_id
		WHERE p.id IS NULL OR c.cliente_id IS NULL OR c.cliente_id = 0 OR c.cliente_id <> p.cliente_id
		ORDER BY c.id`).Scan(&links).Error; err != nil {
		return nil, err
	}
	for _, row := range links {
		report.Issues = append(report.Issues, row.issue())
	}

	var over []overCertifiedRow
	if err := db.Raw(`SELECT p.id AS proyecto_id, p.code, SUM(c.percent) AS percent
		FROM certificados c
		JOIN proyectos p ON p.id = c.proyecto_id
		WHERE c.status <> ?
		GROUP BY p.id, p.code
		HAVING SUM(c.percent) > 100
		ORDER BY p.id`, certificado.StatusAnulado).Scan(&over).Error; err != nil {
		return nil, err
	}
	for _, row := range over {
		report.OverCertified = append(report.OverCertified, certificado.OverCertified{
			ProyectoID: row.ProyectoID,
			Code:       row.Code,
			Percent:    row.Percent,
		})
	}
	return report, nil
}

func (row certificadoLinkRow) issue() certificado.Issue {
	issue := certificado.Issue{
		CertificadoID:     row.CertificadoID,
		ProyectoID:        row.ProyectoID,
		ClienteID:         row.ClienteID,
		ExpectedClienteID: row.ExpectedClienteID,
	}
	switch {
	case row.FoundProyectoID == nil:
		issue.Kind = certificado.IssueOrphanProyecto
		issue.ExpectedClienteID = nil
	case row.ClienteID == nil || *row.ClienteID == 0:
		issue.Kind = certificado.IssueMissingCliente
	default:
		issue.Kind = certificado.IssueClienteMismatch
	}
	return issue
}

// RealignClientes copies the proyecto's cliente into every certificado that
// disagrees with it
func (r *GormCertificadoRepository) RealignClientes(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Exec(`UPDATE certificados c
		JOIN proyectos p ON p.id = c.proyecto_id
		SET c.cliente_id = p.cliente_id, c.updated_at = NOW()
		WHERE c.cliente_id IS NULL OR c.cliente_id <> p.cliente_id`)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *GormCertificadoRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	return query.Scopes(
		equalsScope(filter,
			column{"proyecto_id", "proyecto_id"},
			column{"cliente_id", "cliente_id"},
			column{"status", "status"},
		),
		dateRangeScope(filter, "date"),
	)
}

func sumPercent(query *gorm.DB) (decimal.Decimal, error) {
	var sum struct {
		Percent decimal.NullDecimal
	}
	if err := query.Select("SUM(percent) AS percent").Scan(&sum).Error; err != nil {
		return decimal.Zero, err
	}
	return nullDecimal(sum.Percent), nil
}
