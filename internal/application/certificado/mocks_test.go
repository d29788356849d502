package certificado

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/sgi/backend/internal/domain/certificado"
	"github.com/sgi/backend/internal/domain/proyecto"
	"github.com/sgi/backend/internal/domain/shared"
)

// MockCertificadoRepository is a mock implementation of certificado.Repository
type MockCertificadoRepository struct {
	mock.Mock
}

func (m *MockCertificadoRepository) FindByID(ctx context.Context, id int64) (*certificado.Certificado, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*certificado.Certificado), args.Error(1)
}

func (m *MockCertificadoRepository) FindAll(ctx context.Context, filter shared.Filter) ([]certificado.Certificado, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]certificado.Certificado), args.Error(1)
}

func (m *MockCertificadoRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCertificadoRepository) Save(ctx context.Context, c *certificado.Certificado) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCertificadoRepository) NextNumber(ctx context.Context, proyectoID int64) (int, error) {
	args := m.Called(ctx, proyectoID)
	return args.Int(0), args.Error(1)
}

func (m *MockCertificadoRepository) CertifiedPercent(ctx context.Context, proyectoID, excludeID int64) (decimal.Decimal, error) {
	args := m.Called(ctx, proyectoID, excludeID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockCertificadoRepository) ApprovedPercent(ctx context.Context, proyectoID int64) (decimal.Decimal, error) {
	args := m.Called(ctx, proyectoID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockCertificadoRepository) ExistsByProyecto(ctx context.Context, proyectoID int64) (bool, error) {
	args := m.Called(ctx, proyectoID)
	return args.Bool(0), args.Error(1)
}

// MockProyectoStore is a mock implementation of ProyectoStore
type MockProyectoStore struct {
	mock.Mock
}

func (m *MockProyectoStore) FindByID(ctx context.Context, id int64) (*proyecto.Proyecto, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*proyecto.Proyecto), args.Error(1)
}

func (m *MockProyectoStore) Save(ctx context.Context, p *proyecto.Proyecto) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

// MockMaintenance is a mock implementation of certificado.MaintenanceRepository
type MockMaintenance struct {
	mock.Mock
}

func (m *MockMaintenance) Diagnose(ctx context.Context) (*certificado.Report, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*certificado.Report), args.Error(1)
}

func (m *MockMaintenance) RealignClientes(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
