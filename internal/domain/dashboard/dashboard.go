// Package dashboard defines the aggregate statistics shown on the home page
package dashboard

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CacheKey is the cache entry holding the memoized Stats
const CacheKey = "dashboard:stats"

// Stats aggregates the key figures of the business
type Stats struct {
	ClientesActivos       int64           `json:"clientes_activos"`
	ProyectosEnCurso      int64           `json:"proyectos_en_curso"`
	PresupuestosAbiertos  int64           `json:"presupuestos_abiertos"`
	PresupuestosAprobMes  int64           `json:"presupuestos_aprobados_mes"`
	FacturasMes           int64           `json:"facturas_mes"`
	FacturadoMes          decimal.Decimal `json:"facturado_mes"`
	PendienteCobro        decimal.Decimal `json:"pendiente_cobro"`
	FacturasPendientesCAE int64           `json:"facturas_pendientes_cae"`
	ProspectosAbiertos    int64           `json:"prospectos_abiertos"`
	ValorPipeline         decimal.Decimal `json:"valor_pipeline"`
	FacturacionMensual    []MonthlyAmount `json:"facturacion_mensual"`
	TopClientes           []ClienteAmount `json:"top_clientes"`
	GeneratedAt           time.Time       `json:"generated_at"`
}

// MonthlyAmount is the billed amount of a calendar month
type MonthlyAmount struct {
	Year   int             `json:"year"`
	Month  int             `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

// Label renders the month as YYYY-MM
func (m MonthlyAmount) Label() string {
	return time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

// ClienteAmount is the billed amount of a cliente
type ClienteAmount struct {
	ClienteID int64           `json:"cliente_id"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
}

// MonthRange returns the first instant of the month of t and of the next month
func MonthRange(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0)
}

// FillMonths returns one entry per month for the n months ending with the
// month of now, taking amounts from data and zero elsewhere
func FillMonths(now time.Time, n int, data []MonthlyAmount) []MonthlyAmount {
	index := make(map[[2]int]decimal.Decimal, len(data))
	for _, d := range data {
		index[[2]int{d.Year, d.Month}] = d.Amount
	}
	start, _ := MonthRange(now)
	out := make([]MonthlyAmount, 0, n)
	for i := n - 1; i >= 0; i-- {
		m := start.AddDate(0, -i, 0)
		amount, ok := index[[2]int{m.Year(), int(m.Month())}]
		if !ok {
			amount = decimal.Zero
		}
		out = append(out, MonthlyAmount{Year: m.Year(), Month: int(m.Month()), Amount: amount})
	}
	return out
}

// Repository runs the aggregate queries behind the dashboard
type Repository interface {
	// Counts fills the scalar counters and amounts as of now
	Counts(ctx context.Context, now time.Time) (*Stats, error)

	// MonthlyBilling returns authorized billing per month since from
	MonthlyBilling(ctx context.Context, from time.Time) ([]MonthlyAmount, error)

	// TopClientes returns the clientes with the highest billing since from
	TopClientes(ctx context.Context, from time.Time, limit int) ([]ClienteAmount, error)
}
