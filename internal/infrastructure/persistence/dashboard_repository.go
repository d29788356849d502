package persistence

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sgi/backend/internal/domain/cliente"
	"github.com/sgi/backend/internal/domain/dashboard"
	"github.com/sgi/backend/internal/domain/factura"
	"github.com/sgi/backend/internal/domain/presupuesto"
	"github.com/sgi/backend/internal/domain/prospecto"
	"github.com/sgi/backend/internal/domain/proyecto"
)

// GormDashboardRepository implements dashboard.Repository with aggregate SQL
type GormDashboardRepository struct {
	db *gorm.DB
}

// NewGormDashboardRepository creates a new GormDashboardRepository
func NewGormDashboardRepository(db *gorm.DB) *GormDashboardRepository {
	return &GormDashboardRepository{db: db}
}

var _ dashboard.Repository = (*GormDashboardRepository)(nil)

const dashboardCountsSQL = `SELECT
	(SELECT COUNT(*) FROM personas_terceros WHERE deleted_at IS NULL AND role IN ? AND status = ?) AS clientes_activos,
	(SELECT COUNT(*) FROM proyectos WHERE deleted_at IS NULL AND status = ?) AS proyectos_en_curso,
	(SELECT COUNT(*) FROM presupuestos WHERE deleted_at IS NULL AND status = ?) AS presupuestos_abiertos,
	(SELECT COUNT(*) FROM presupuestos WHERE deleted_at IS NULL AND status IN ? AND decided_at >= ? AND decided_at < ?) AS presupuestos_aprob_mes,
	(SELECT COUNT(*) FROM facturas WHERE status IN ? AND issue_date >= ? AND issue_date < ?) AS facturas_mes,
	(SELECT SUM(total) FROM facturas WHERE status IN ? AND issue_date >= ? AND issue_date < ?) AS facturado_mes,
	(SELECT SUM(total) FROM facturas WHERE status = ?) AS pendiente_cobro,
	(SELECT COUNT(*) FROM facturas WHERE status = ?) AS facturas_pendientes_cae,
	(SELECT COUNT(*) FROM prospectos WHERE deleted_at IS NULL AND status IN ?) AS prospectos_abiertos,
	(SELECT SUM(estimated_value) FROM prospectos WHERE deleted_at IS NULL AND status IN ?) AS valor_pipeline`

type dashboardCountsRow struct {
	ClientesActivos       int64
	ProyectosEnCurso      int64
	PresupuestosAbiertos  int64
	PresupuestosAprobMes  int64
	FacturasMes           int64
	FacturadoMes          decimal.NullDecimal
	PendienteCobro        decimal.NullDecimal
	FacturasPendientesCAE int64
	ProspectosAbiertos    int64
	ValorPipeline         decimal.NullDecimal
}

// Counts fills the scalar figures in a single round trip
func (r *GormDashboardRepository) Counts(ctx context.Context, now time.Time) (*dashboard.Stats, error) {
	from, to := dashboard.MonthRange(now)
	approved := []presupuesto.Status{presupuesto.StatusAprobado, presupuesto.StatusFacturado}

	var row dashboardCountsRow
	if err := r.db.WithContext(ctx).Raw(dashboardCountsSQL,
		clienteRoles, cliente.StatusActivo,
		proyecto.StatusEnCurso,
		presupuesto.StatusEnviado,
		approved, from, to,
		authorizedStatuses, from, to,
		authorizedStatuses, from, to,
		factura.StatusAutorizada,
		factura.StatusPendienteCAE,
		prospecto.OpenStatuses,
		prospecto.OpenStatuses,
	).Scan(&row).Error; err != nil {
		return nil, err
	}

	return &dashboard.Stats{
		ClientesActivos:       row.ClientesActivos,
		ProyectosEnCurso:      row.ProyectosEnCurso,
		PresupuestosAbiertos:  row.PresupuestosAbiertos,
		PresupuestosAprobMes:  row.PresupuestosAprobMes,
		FacturasMes:           row.FacturasMes,
		FacturadoMes:          nullDecimal(row.FacturadoMes),
		PendienteCobro:        nullDecimal(row.PendienteCobro),
		FacturasPendientesCAE: row.FacturasPendientesCAE,
		ProspectosAbiertos:    row.ProspectosAbiertos,
		ValorPipeline:         nullDecimal(row.ValorPipeline),
		GeneratedAt:           now,
	}, nil
}

// MonthlyBilling returns authorized billing grouped by calendar month
func (r *GormDashboardRepository) MonthlyBilling(ctx context.Context, from time.Time) ([]dashboard.MonthlyAmount, error) {
	var rows []dashboard.MonthlyAmount
	if err := r.db.WithContext(ctx).Raw(`SELECT YEAR(issue_date) AS year, MONTH(issue_date) AS month, SUM(total) AS amount
		FROM facturas
		WHERE status IN ? AND issue_date >= ?
		GROUP BY YEAR(issue_date), MONTH(issue_date)
		ORDER BY year, month`, authorizedStatuses, from).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// TopClientes ranks clientes by authorized billing since from
func (r *GormDashboardRepository) TopClientes(ctx context.Context, from time.Time, limit int) ([]dashboard.ClienteAmount, error) {
	if limit <= 0 {
		limit = 5
	}
	var rows []dashboard.ClienteAmount
	if err := r.db.WithContext(ctx).Raw(`SELECT f.cliente_id, p.name, SUM(f.total) AS amount
		FROM facturas f
		JOIN personas_terceros p ON p.id = f.cliente_id
		WHERE f.status IN ? AND f.issue_date >= ?
		GROUP BY f.cliente_id, p.name
		ORDER BY amount DESC
		LIMIT ?`, authorizedStatuses, from, limit).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
