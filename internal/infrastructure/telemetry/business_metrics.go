package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when business metrics are built without a meter
var ErrMeterNil = errors.New("telemetry: meter is nil")

// Authorization outcomes recorded by RecordAuthorization
const (
	OutcomeApproved = "approved"
	OutcomeRejected = "rejected"
	OutcomePending  = "pending"
)

// PendingCounter reports how many facturas wait for a CAE
type PendingCounter interface {
	CountPendingCAE(ctx context.Context) (int64, error)
}

// BusinessMetrics records invoicing and sales pipeline metrics
type BusinessMetrics struct {
	logger              *zap.Logger
	facturasCreated     metric.Int64Counter
	authorizations      metric.Int64Counter
	authorizedAmount    metric.Float64Counter
	afipLatency         metric.Float64Histogram
	presupuestosExpired metric.Int64Counter
	prospectosConverted metric.Int64Counter
}

// NewBusinessMetrics creates the instruments on meter. When pending is not
// nil an observable gauge reports the PENDIENTE_CAE backlog on each collection.
func NewBusinessMetrics(meter metric.Meter, pending PendingCounter, logger *zap.Logger) (*BusinessMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	bm := &BusinessMetrics{logger: logger}

	var err error
	if bm.facturasCreated, err = meter.Int64Counter("sgi_facturas_created_total",
		metric.WithDescription("Facturas created"),
		metric.WithUnit("{facturas}")); err != nil {
		return nil, err
	}
	if bm.authorizations, err = meter.Int64Counter("sgi_factura_authorizations_total",
		metric.WithDescription("AFIP authorization attempts by outcome"),
		metric.WithUnit("{requests}")); err != nil {
		return nil, err
	}
	if bm.authorizedAmount, err = meter.Float64Counter("sgi_factura_authorized_amount_total",
		metric.WithDescription("Total amount of authorized facturas"),
		metric.WithUnit("ARS")); err != nil {
		return nil, err
	}
	if bm.afipLatency, err = meter.Float64Histogram("sgi_afip_request_duration_seconds",
		metric.WithDescription("Latency of AFIP authorization requests"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1, 2, 5, 10, 30)); err != nil {
		return nil, err
	}
	if bm.presupuestosExpired, err = meter.Int64Counter("sgi_presupuestos_expired_total",
		metric.WithDescription("Presupuestos moved to VENCIDO"),
		metric.WithUnit("{presupuestos}")); err != nil {
		return nil, err
	}
	if bm.prospectosConverted, err = meter.Int64Counter("sgi_prospectos_converted_total",
		metric.WithDescription("Prospectos converted into clientes"),
		metric.WithUnit("{prospectos}")); err != nil {
		return nil, err
	}

	if pending != nil {
		if _, err := meter.Int64ObservableGauge("sgi_facturas_pending_cae",
			metric.WithDescription("Facturas waiting for a CAE"),
			metric.WithUnit("{facturas}"),
			metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
				n, err := pending.CountPendingCAE(ctx)
				if err != nil {
					bm.logger.Warn("failed to count pending facturas", zap.Error(err))
					return nil
				}
				o.Observe(n)
				return nil
			})); err != nil {
			return nil, err
		}
	}

	return bm, nil
}

// RecordFacturaCreated counts a new factura of the given letter (A, B, C)
func (bm *BusinessMetrics) RecordFacturaCreated(ctx context.Context, letter string) {
	bm.facturasCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("type", letter)))
}

// RecordAuthorization records an AFIP authorization attempt
func (bm *BusinessMetrics) RecordAuthorization(ctx context.Context, outcome, mode string, total decimal.Decimal, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("mode", mode),
	)
	bm.authorizations.Add(ctx, 1, attrs)
	bm.afipLatency.Record(ctx, elapsed.Seconds(), attrs)
	if outcome == OutcomeApproved {
		bm.authorizedAmount.Add(ctx, total.InexactFloat64(), metric.WithAttributes(attribute.String("mode", mode)))
	}
}

// RecordPresupuestosExpired counts presupuestos expired by the batch job
func (bm *BusinessMetrics) RecordPresupuestosExpired(ctx context.Context, n int64) {
	if n > 0 {
		bm.presupuestosExpired.Add(ctx, n)
	}
}

// RecordProspectoConverted counts a prospecto converted into a cliente
func (bm *BusinessMetrics) RecordProspectoConverted(ctx context.Context) {
	bm.prospectosConverted.Add(ctx, 1)
}
