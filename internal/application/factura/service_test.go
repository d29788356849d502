package factura

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sgi/backend/internal/application/common"
	"github.com/sgi/backend/internal/domain/certificado"
	"github.com/sgi/backend/internal/domain/cliente"
	"github.com/sgi/backend/internal/domain/dashboard"
	"github.com/sgi/backend/internal/domain/factura"
	"github.com/sgi/backend/internal/domain/presupuesto"
	"github.com/sgi/backend/internal/domain/shared"
)

var testNow = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

type testDeps struct {
	repo         *MockFacturaRepository
	clientes     *MockClienteFinder
	authorizer   *MockAuthorizer
	presupuestos *MockPresupuestoStore
	certificados *MockCertificadoStore
	metrics      *fakeMetrics
	cache        *fakeInvalidator
}

func newTestService(emitterIVA cliente.IVACondition) (*Service, *testDeps) {
	d := &testDeps{
		repo:         new(MockFacturaRepository),
		clientes:     new(MockClienteFinder),
		authorizer:   new(MockAuthorizer),
		presupuestos: new(MockPresupuestoStore),
		certificados: new(MockCertificadoStore),
		metrics:      &fakeMetrics{},
		cache:        &fakeInvalidator{},
	}
	svc := NewService(d.repo, d.clientes, d.authorizer, Emitter{
		IVACondition:   emitterIVA,
		PointOfSale:    1,
		DefaultIVARate: decimal.NewFromInt(21),
	}, nil)
	svc.SetSources(d.presupuestos, d.certificados)
	svc.SetMetrics(d.metrics)
	svc.SetCache(d.cache)
	svc.now = func() time.Time { return testNow }
	return svc, d
}

func riCliente(t *testing.T) *cliente.Cliente {
	t.Helper()
	c, err := cliente.NewCliente(cliente.KindJuridica, "Acme SA", cliente.IVAResponsableInscripto, "30-71234567-1")
	require.NoError(t, err)
	c.ID = 3
	return c
}

func consumidorFinal(t *testing.T) *cliente.Cliente {
	t.Helper()
	c, err := cliente.NewCliente(cliente.KindFisica, "Juan Pérez", cliente.IVAConsumidorFinal, "")
	require.NoError(t, err)
	c.ID = 4
	return c
}

func item(t *testing.T, desc string, qty, price int64) shared.Line {
	t.Helper()
	l, err := shared.NewLine(desc, decimal.NewFromInt(qty), decimal.NewFromInt(price))
	require.NoError(t, err)
	return l
}

func draftFactura(t *testing.T, id int64) *factura.Factura {
	t.Helper()
	f, err := factura.NewFactura(3, factura.TypeA, 1, factura.ConceptProductos, testNow, decimal.NewFromInt(21))
	require.NoError(t, err)
	f.ID = id
	require.NoError(t, f.ReplaceItems([]shared.Line{item(t, "Tablero", 1, 1000)}))
	return f
}

func authorizedFactura(t *testing.T, id int64) *factura.Factura {
	t.Helper()
	f := draftFactura(t, id)
	require.NoError(t, f.ApplyAuthorization(testNow, &factura.AuthorizationResult{
		Number:     15,
		CAE:        "71234567890123",
		CAEDueDate: testNow.AddDate(0, 0, 10),
		Result:     "A",
	}))
	return f
}

func saveAssigning(d *testDeps, id int64) {
	d.repo.On("Save", mock.Anything, mock.AnythingOfType("*factura.Factura")).
		Run(func(args mock.Arguments) {
			if f := args.Get(1).(*factura.Factura); f.ID == 0 {
				f.ID = id
			}
		}).
		Return(nil)
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves Factura A between inscriptos", func(t *testing.T) {
		svc, d := newTestService(cliente.IVAResponsableInscripto)
		d.clientes.On("FindByID", ctx, int64(3)).Return(riCliente(t), nil)
		saveAssigning(d, 10)

		resp, err := svc.Create(ctx, CreateFacturaRequest{
			ClienteID: 3,
			Concept:   1,
			Items: []common.LineRequest{
				{Description: "Tablero", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1000)},
			},
		})

		require.NoError(t, err)
		assert.Equal(t, int64(10), resp.ID)
		assert.Equal(t, "A", resp.Letter)
		assert.Equal(t, "00001-BORRADOR", resp.FullNumber)
		assert.True(t, resp.Net.Equal(decimal.NewFromInt(1000)))
		assert.True(t, resp.IVAAmount.Equal(decimal.NewFromInt(210)))
		assert.True(t, resp.Total.Equal(decimal.NewFromInt(1210)))
		assert.Equal(t, "PES", resp.Currency)
		assert.Equal(t, "BORRADOR", resp.Status)
		assert.Equal(t, []string{"A"}, d.metrics.created)
	})

	t.Run("resolves Factura B for consumidor final", func(t *testing.T) {
		svc, d := newTestService(cliente.IVAResponsableInscripto)
		d.clientes.On("FindByID", ctx, int64(4)).Return(consumidorFinal(t), nil)
		saveAssigning(d, 11)

		resp, err := svc.Create(ctx, CreateFacturaRequest{ClienteID: 4})

		require.NoError(t, err)
		assert.Equal(t, 6, resp.Type)
		assert.Equal(t, int(factura.ConceptServicios), resp.Concept)
	})

	t.Run("monotributo emits C without IVA", func(t *testing.T) {
		svc, d := newTestService(cliente.IVAMonotributo)
		d.clientes.On("FindByID", ctx, int64(3)).Return(riCliente(t), nil)
		saveAssigning(d, 12)

		resp, err := svc.Create(ctx, CreateFacturaRequest{
			ClienteID: 3,
			Items: []common.LineRequest{
				{Description: "Servicio", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(500)},
			},
		})

		require.NoError(t, err)
		assert.Equal(t, "C", resp.Letter)
		assert.True(t, resp.IVAAmount.IsZero())
		assert.True(t, resp.Total.Equal(decimal.NewFromInt(1000)))
	})

	t.Run("rejects a type the emitter cannot issue", func(t *testing.T) {
		svc, d := newTestService(cliente.IVAResponsableInscripto)
		d.clientes.On("FindByID", ctx, int64(3)).Return(riCliente(t), nil)

		_, err := svc.Create(ctx, CreateFacturaRequest{ClienteID: 3, Type: int(factura.TypeC)})

		assert.Equal(t, "INVALID_TYPE", common.DomainCode(err))
		d.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("never issues A to a consumidor final", func(t *testing.T) {
		svc, d := newTestService(cliente.IVAResponsableInscripto)
		d.clientes.On("FindByID", ctx, int64(4)).Return(consumidorFinal(t), nil)

		_, err := svc.Create(ctx, CreateFacturaRequest{ClienteID: 4, Type: int(factura.TypeA), Concept: 1})

		assert.Equal(t, "INVALID_TYPE", common.DomainCode(err))
		d.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("accepts B for an inscripto when requested", func(t *testing.T) {
		svc, d := newTestService(cliente.IVAResponsableInscripto)
		d.clientes.On("FindByID", ctx, int64(3)).Return(riCliente(t), nil)
		saveAssigning(d, 13)

		resp, err := svc.Create(ctx, CreateFacturaRequest{ClienteID: 3, Type: int(factura.TypeB)})

		require.NoError(t, err)
		assert.Equal(t, "B", resp.Letter)
	})
}

func TestService_CreateFromPresupuesto(t *testing.T) {
	ctx := context.Background()

	approved := func(t *testing.T) *presupuesto.Presupuesto {
		p, err := presupuesto.NewPresupuesto(3, "Obra", testNow.AddDate(0, 0, -5), decimal.NewFromInt(21))
		require.NoError(t, err)
		p.ID = 8
		p.Number = "P-2026-0003"
		require.NoError(t, p.ReplaceItems([]shared.Line{item(t, "Mano de obra", 2, 1000), item(t, "Materiales", 1, 500)}))
		require.NoError(t, p.Send(testNow.AddDate(0, 0, -4)))
		require.NoError(t, p.Approve(testNow.AddDate(0, 0, -1)))
		return p
	}

	t.Run("copies items and marks the presupuesto invoiced", func(t *testing.T) {
		svc, d := newTestService(cliente.IVAResponsableInscripto)
		p := approved(t)
		d.presupuestos.On("FindByID", ctx, int64(8)).Return(p, nil)
		d.presupuestos.On("Save", ctx, p).Return(nil)
		d.clientes.On("FindByID", ctx, int64(3)).Return(riCliente(t), nil)
		saveAssigning(d, 20)

		resp, err := svc.CreateFromPresupuesto(ctx, 8, FromSourceRequest{Concept: 1})

		require.NoError(t, err)
		require.NotNil(t, resp.PresupuestoID)
		assert.Equal(t, int64(8), *resp.PresupuestoID)
		assert.Len(t, resp.Items, 2)
		assert.True(t, resp.Total.Equal(p.Total))
		assert.Equal(t, "Según presupuesto P-2026-0003", resp.Notes)
		assert.Equal(t, presupuesto.StatusFacturado, p.Status)
		d.presupuestos.AssertExpectations(t)
	})

	t.Run("requires an approved presupuesto", func(t *testing.T) {
		svc, d := newTestService(cliente.IVAResponsableInscripto)
		p, err := presupuesto.NewPresupuesto(3, "Obra", testNow, decimal.NewFromInt(21))
		require.NoError(t, err)
		d.presupuestos.On("FindByID", ctx, int64(9)).Return(p, nil)

		_, err = svc.CreateFromPresupuesto(ctx, 9, FromSourceRequest{})

		assert.Equal(t, "INVALID_STATE", common.DomainCode(err))
		d.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestService_CreateFromCertificado(t *testing.T) {
	ctx := context.Background()

	t.Run("bills the certified amount", func(t *testing.T) {
		svc, d := newTestService(cliente.IVAResponsableInscripto)
		cert := &certificado.Certificado{
			BaseEntity: shared.BaseEntity{ID: 6},
			ProyectoID: 2,
			ClienteID:  3,
			Number:     2,
			Period:     "Marzo 2026",
			Percent:    decimal.NewFromInt(25),
			Amount:     decimal.NewFromInt(50000),
			Status:     certificado.StatusAprobado,
		}
		d.certificados.On("FindByID", ctx, int64(6)).Return(cert, nil)
		d.certificados.On("Save", ctx, cert).Return(nil)
		d.clientes.On("FindByID", ctx, int64(3)).Return(riCliente(t), nil)
		saveAssigning(d, 77)

		resp, err := svc.CreateFromCertificado(ctx, 6, FromSourceRequest{})

		require.NoError(t, err)
		require.Len(t, resp.Items, 1)
		assert.Equal(t, "Certificado de avance N° 2 - Marzo 2026", resp.Items[0].Description)
		assert.True(t, resp.Net.Equal(decimal.NewFromInt(50000)))
		assert.True(t, resp.Total.Equal(decimal.NewFromInt(60500)))
		require.NotNil(t, resp.ProyectoID)
		assert.Equal(t, int64(2), *resp.ProyectoID)
		assert.Equal(t, certificado.StatusFacturado, cert.Status)
		require.NotNil(t, cert.FacturaID)
		assert.Equal(t, int64(77), *cert.FacturaID)
	})

	t.Run("requires an approved certificado", func(t *testing.T) {
		svc, d := newTestService(cliente.IVAResponsableInscripto)
		d.certificados.On("FindByID", ctx, int64(6)).Return(&certificado.Certificado{Status: certificado.StatusBorrador}, nil)

		_, err := svc.CreateFromCertificado(ctx, 6, FromSourceRequest{})

		assert.Equal(t, "INVALID_STATE", common.DomainCode(err))
	})
}

func TestService_Authorize(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the CAE", func(t *testing.T) {
		svc, d := newTestService(cliente.IVAResponsableInscripto)
		f := draftFactura(t, 1)
		d.repo.On("FindByID", ctx, int64(1)).Return(f, nil)
		d.repo.On("Save", ctx, f).Return(nil)
		d.clientes.On("FindByID", ctx, int64(3)).Return(riCliente(t), nil)
		d.authorizer.On("Authorize", ctx, mock.MatchedBy(func(req factura.AuthorizationRequest) bool {
			return req.DocType == 80 && req.DocNumber == "30712345671" && req.Total.Equal(decimal.NewFromInt(1210))
		})).Return(&factura.AuthorizationResult{
			Number:     15,
			CAE:        "71234567890123",
			CAEDueDate: testNow.AddDate(0, 0, 10),
			Result:     "A",
		}, nil)

		resp, err := svc.Authorize(ctx, 1)

		require.NoError(t, err)
		assert.Equal(t, "AUTORIZADA", resp.Status)
		assert.Equal(t, "00001-00000015", resp.FullNumber)
		assert.Equal(t, "71234567890123", resp.CAE)
		assert.Equal(t, 1, resp.Attempts)
		assert.Equal(t, []string{OutcomeApproved}, d.metrics.outcomes)
		assert.Equal(t, []string{dashboard.CacheKey}, d.cache.keys)
	})

	t.Run("leaves the factura pending when AFIP is down", func(t *testing.T) {
		svc, d := newTestService(cliente.IVAResponsableInscripto)
		f := draftFactura(t, 1)
		d.repo.On("FindByID", ctx, int64(1)).Return(f, nil)
		d.repo.On("Save", ctx, f).Return(nil)
		d.clientes.On("FindByID", ctx, int64(3)).Return(riCliente(t), nil)
		d.authorizer.On("Authorize", ctx, mock.Anything).
			Return(nil, fmt.Errorf("%w: FECAESolicitar: timeout", factura.ErrAuthorizerUnavailable))

		resp, err := svc.Authorize(ctx, 1)

		require.NoError(t, err)
		assert.Equal(t, "PENDIENTE_CAE", resp.Status)
		assert.Equal(t, 1, resp.Attempts)
		assert.Contains(t, resp.AFIPObservations, "timeout")
		assert.Equal(t, []string{OutcomePending}, d.metrics.outcomes)

		err = svc.RetryAuthorization(ctx, 1)
		assert.True(t, errors.Is(err, factura.ErrAuthorizerUnavailable))
		assert.Equal(t, 2, f.Attempts)
	})

	t.Run("records an AFIP rejection", func(t *testing.T) {
		svc, d := newTestService(cliente.IVAResponsableInscripto)
		f := draftFactura(t, 1)
		d.repo.On("FindByID", ctx, int64(1)).Return(f, nil)
		d.repo.On("Save", ctx, f).Return(nil)
		d.clientes.On("FindByID", ctx, int64(3)).Return(riCliente(t), nil)
		d.authorizer.On("Authorize", ctx, mock.Anything).Return(&factura.AuthorizationResult{
			Result: "R",
			Errors: []factura.Message{{Code: 10016, Message: "El numero o fecha del comprobante no se corresponde"}},
		}, nil)

		resp, err := svc.Authorize(ctx, 1)

		require.NoError(t, err)
		assert.Equal(t, "RECHAZADA", resp.Status)
		assert.Equal(t, "10016: El numero o fecha del comprobante no se corresponde", resp.AFIPObservations)
		assert.Equal(t, []string{OutcomeRejected}, d.metrics.outcomes)
	})

	t.Run("surfaces other AFIP errors without changing state", func(t *testing.T) {
		svc, d := newTestService(cliente.IVAResponsableInscripto)
		f := draftFactura(t, 1)
		d.repo.On("FindByID", ctx, int64(1)).Return(f, nil)
		d.clientes.On("FindByID", ctx, int64(3)).Return(riCliente(t), nil)
		d.authorizer.On("Authorize", ctx, mock.Anything).Return(nil, errors.New("cms signature rejected"))

		_, err := svc.Authorize(ctx, 1)

		assert.Equal(t, "EXTERNAL_SERVICE", common.DomainCode(err))
		assert.Equal(t, factura.StatusBorrador, f.Status)
		d.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("validates before calling AFIP", func(t *testing.T) {
		svc, d := newTestService(cliente.IVAResponsableInscripto)
		f, err := factura.NewFactura(3, factura.TypeA, 1, factura.ConceptProductos, testNow, decimal.NewFromInt(21))
		require.NoError(t, err)
		d.repo.On("FindByID", ctx, int64(2)).Return(f, nil)

		_, err = svc.Authorize(ctx, 2)

		assert.Equal(t, "NO_ITEMS", common.DomainCode(err))
		d.authorizer.AssertNotCalled(t, "Authorize", mock.Anything, mock.Anything)
	})

	t.Run("rejects concurrent authorization of the same factura", func(t *testing.T) {
		svc, d := newTestService(cliente.IVAResponsableInscripto)
		f := draftFactura(t, 1)
		started := make(chan struct{})
		release := make(chan struct{})
		d.repo.On("FindByID", ctx, int64(1)).Return(f, nil)
		d.repo.On("Save", ctx, f).Return(nil)
		d.clientes.On("FindByID", ctx, int64(3)).Return(riCliente(t), nil)
		d.authorizer.On("Authorize", ctx, mock.Anything).
			Run(func(mock.Arguments) {
				close(started)
				<-release
			}).
			Return(&factura.AuthorizationResult{Number: 1, CAE: "71234567890123", CAEDueDate: testNow, Result: "A"}, nil)

		done := make(chan error, 1)
		go func() {
			_, err := svc.Authorize(ctx, 1)
			done <- err
		}()
		<-started

		_, err := svc.Authorize(ctx, 1)
		assert.Equal(t, "CONCURRENCY_CONFLICT", common.DomainCode(err))

		close(release)
		require.NoError(t, <-done)
	})
}

func TestService_RetryAuthorization_SkipsSettledFacturas(t *testing.T) {
	ctx := context.Background()
	svc, d := newTestService(cliente.IVAResponsableInscripto)
	d.repo.On("FindByID", ctx, int64(1)).Return(authorizedFactura(t, 1), nil)

	err := svc.RetryAuthorization(ctx, 1)

	assert.Equal(t, "INVALID_STATE", common.DomainCode(err))
	d.authorizer.AssertNotCalled(t, "Authorize", mock.Anything, mock.Anything)
}

func TestService_MarkPaid(t *testing.T) {
	ctx := context.Background()

	t.Run("marks an authorized factura paid", func(t *testing.T) {
		svc, d := newTestService(cliente.IVAResponsableInscripto)
		f := authorizedFactura(t, 1)
		d.repo.On("FindByID", ctx, int64(1)).Return(f, nil)
		d.repo.On("Save", ctx, f).Return(nil)
		d.clientes.On("FindByID", ctx, int64(3)).Return(riCliente(t), nil)

		resp, err := svc.MarkPaid(ctx, 1, MarkPaidRequest{})

		require.NoError(t, err)
		assert.Equal(t, "PAGADA", resp.Status)
		require.NotNil(t, resp.PaidAt)
		assert.Equal(t, []string{dashboard.CacheKey}, d.cache.keys)
	})

	t.Run("rejects a payment before the issue date", func(t *testing.T) {
		svc, d := newTestService(cliente.IVAResponsableInscripto)
		d.repo.On("FindByID", ctx, int64(1)).Return(authorizedFactura(t, 1), nil)
		paid := common.NewDate(testNow.AddDate(0, 0, -3))

		_, err := svc.MarkPaid(ctx, 1, MarkPaidRequest{PaidAt: &paid})

		assert.Equal(t, "INVALID_DATE", common.DomainCode(err))
	})

	t.Run("requires authorization", func(t *testing.T) {
		svc, d := newTestService(cliente.IVAResponsableInscripto)
		d.repo.On("FindByID", ctx, int64(1)).Return(draftFactura(t, 1), nil)

		_, err := svc.MarkPaid(ctx, 1, MarkPaidRequest{})

		assert.Equal(t, "INVALID_STATE", common.DomainCode(err))
	})
}

func TestService_Annul(t *testing.T) {
	ctx := context.Background()

	t.Run("annuls a draft", func(t *testing.T) {
		svc, d := newTestService(cliente.IVAResponsableInscripto)
		f := draftFactura(t, 1)
		d.repo.On("FindByID", ctx, int64(1)).Return(f, nil)
		d.repo.On("Save", ctx, f).Return(nil)
		d.clientes.On("FindByID", ctx, int64(3)).Return(riCliente(t), nil)

		resp, err := svc.Annul(ctx, 1, AnnulRequest{Reason: "Cargada por error"})

		require.NoError(t, err)
		assert.Equal(t, "ANULADA", resp.Status)
		assert.Equal(t, "Cargada por error", resp.AnnulReason)
	})

	t.Run("authorized facturas need a credit note", func(t *testing.T) {
		svc, d := newTestService(cliente.IVAResponsableInscripto)
		d.repo.On("FindByID", ctx, int64(1)).Return(authorizedFactura(t, 1), nil)

		_, err := svc.Annul(ctx, 1, AnnulRequest{Reason: "Error"})

		assert.Equal(t, "REQUIRES_CREDIT_NOTE", common.DomainCode(err))
	})
}

func TestService_Pending(t *testing.T) {
	ctx := context.Background()
	svc, d := newTestService(cliente.IVAResponsableInscripto)
	d.repo.On("FindPending", ctx, 5, 20).Return([]factura.Factura{*draftFactura(t, 4), *draftFactura(t, 9)}, nil)
	d.repo.On("Count", ctx, mock.MatchedBy(func(f shared.Filter) bool {
		return f.Filters["status"] == "PENDIENTE_CAE"
	})).Return(int64(2), nil)

	ids, err := svc.PendingIDs(ctx, 5, 20)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 9}, ids)

	n, err := svc.CountPendingCAE(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestService_Stats(t *testing.T) {
	ctx := context.Background()
	svc, d := newTestService(cliente.IVAResponsableInscripto)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	d.repo.On("Stats", ctx, from, to).Return(&factura.Stats{
		AuthorizedCount: 4,
		BilledAmount:    decimal.NewFromInt(48400),
		PendingCount:    2,
		PendingAmount:   decimal.NewFromInt(12100),
		ByStatus:        map[factura.Status]int64{factura.StatusAutorizada: 2, factura.StatusPagada: 2},
	}, nil)

	resp, err := svc.Stats(ctx)

	require.NoError(t, err)
	assert.Equal(t, "2026-03-31", resp.To.Format(common.DateLayout))
	assert.Equal(t, int64(4), resp.AuthorizedCount)
	assert.Equal(t, int64(2), resp.ByStatus["PAGADA"])
}

func TestService_AFIPStatus(t *testing.T) {
	ctx := context.Background()
	svc, d := newTestService(cliente.IVAResponsableInscripto)
	d.authorizer.On("Status", ctx).Return(factura.ServiceStatus{AppServer: "OK", DBServer: "OK", AuthServer: "OK"}, nil)

	resp := svc.AFIPStatus(ctx)

	assert.Equal(t, "mock", resp.Mode)
	assert.True(t, resp.OK)
	assert.Empty(t, resp.Error)
}
