package factura

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/sgi/backend/internal/domain/certificado"
	"github.com/sgi/backend/internal/domain/cliente"
	"github.com/sgi/backend/internal/domain/factura"
	"github.com/sgi/backend/internal/domain/presupuesto"
	"github.com/sgi/backend/internal/domain/shared"
)

// MockFacturaRepository is a mock implementation of factura.Repository
type MockFacturaRepository struct {
	mock.Mock
}

func (m *MockFacturaRepository) FindByID(ctx context.Context, id int64) (*factura.Factura, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*factura.Factura), args.Error(1)
}

func (m *MockFacturaRepository) FindAll(ctx context.Context, filter shared.Filter) ([]factura.Factura, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]factura.Factura), args.Error(1)
}

func (m *MockFacturaRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFacturaRepository) Save(ctx context.Context, f *factura.Factura) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *MockFacturaRepository) FindPending(ctx context.Context, maxAttempts, limit int) ([]factura.Factura, error) {
	args := m.Called(ctx, maxAttempts, limit)
	return args.Get(0).([]factura.Factura), args.Error(1)
}

func (m *MockFacturaRepository) ExistsByCliente(ctx context.Context, clienteID int64) (bool, error) {
	args := m.Called(ctx, clienteID)
	return args.Bool(0), args.Error(1)
}

func (m *MockFacturaRepository) Stats(ctx context.Context, from, to time.Time) (*factura.Stats, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*factura.Stats), args.Error(1)
}

// MockClienteFinder is a mock implementation of ClienteFinder
type MockClienteFinder struct {
	mock.Mock
}

func (m *MockClienteFinder) FindByID(ctx context.Context, id int64) (*cliente.Cliente, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cliente.Cliente), args.Error(1)
}

// MockAuthorizer is a mock implementation of factura.Authorizer
type MockAuthorizer struct {
	mock.Mock
}

func (m *MockAuthorizer) Authorize(ctx context.Context, req factura.AuthorizationRequest) (*factura.AuthorizationResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*factura.AuthorizationResult), args.Error(1)
}

func (m *MockAuthorizer) LastNumber(ctx context.Context, pointOfSale int, typ factura.Type) (int64, error) {
	args := m.Called(ctx, pointOfSale, typ)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAuthorizer) Status(ctx context.Context) (factura.ServiceStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(factura.ServiceStatus), args.Error(1)
}

func (m *MockAuthorizer) Mode() string {
	return "mock"
}

// MockPresupuestoStore is a mock implementation of PresupuestoStore
type MockPresupuestoStore struct {
	mock.Mock
}

func (m *MockPresupuestoStore) FindByID(ctx context.Context, id int64) (*presupuesto.Presupuesto, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*presupuesto.Presupuesto), args.Error(1)
}

func (m *MockPresupuestoStore) Save(ctx context.Context, p *presupuesto.Presupuesto) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

// MockCertificadoStore is a mock implementation of CertificadoStore
type MockCertificadoStore struct {
	mock.Mock
}

func (m *MockCertificadoStore) FindByID(ctx context.Context, id int64) (*certificado.Certificado, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*certificado.Certificado), args.Error(1)
}

func (m *MockCertificadoStore) Save(ctx context.Context, c *certificado.Certificado) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

type fakeMetrics struct {
	mu       sync.Mutex
	created  []string
	outcomes []string
}

func (f *fakeMetrics) RecordFacturaCreated(_ context.Context, letter string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, letter)
}

func (f *fakeMetrics) RecordAuthorization(_ context.Context, outcome, _ string, _ decimal.Decimal, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, outcome)
}

type fakeInvalidator struct {
	keys []string
}

func (f *fakeInvalidator) Invalidate(_ context.Context, keys ...string) error {
	f.keys = append(f.keys, keys...)
	return nil
}
