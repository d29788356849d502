package proyecto

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sgi/backend/internal/domain/cliente"
	"github.com/sgi/backend/internal/domain/proyecto"
	"github.com/sgi/backend/internal/domain/shared"
)

// MockProyectoRepository is a mock implementation of proyecto.Repository
type MockProyectoRepository struct {
	mock.Mock
}

func (m *MockProyectoRepository) FindByID(ctx context.Context, id int64) (*proyecto.Proyecto, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*proyecto.Proyecto), args.Error(1)
}

func (m *MockProyectoRepository) FindByCode(ctx context.Context, code string) (*proyecto.Proyecto, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*proyecto.Proyecto), args.Error(1)
}

func (m *MockProyectoRepository) FindAll(ctx context.Context, filter shared.Filter) ([]proyecto.Proyecto, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]proyecto.Proyecto), args.Error(1)
}

func (m *MockProyectoRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProyectoRepository) CountByStatus(ctx context.Context) (map[proyecto.Status]int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[proyecto.Status]int64), args.Error(1)
}

func (m *MockProyectoRepository) Save(ctx context.Context, p *proyecto.Proyecto) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProyectoRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProyectoRepository) ExistsByCode(ctx context.Context, code string, excludeID int64) (bool, error) {
	args := m.Called(ctx, code, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockProyectoRepository) HasOpenByCliente(ctx context.Context, clienteID int64) (bool, error) {
	args := m.Called(ctx, clienteID)
	return args.Bool(0), args.Error(1)
}

func (m *MockProyectoRepository) Summary(ctx context.Context, id int64) (*proyecto.Summary, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*proyecto.Summary), args.Error(1)
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

// MockCertificadoChecker is a mock implementation of CertificadoChecker
type MockCertificadoChecker struct {
	mock.Mock
}

func (m *MockCertificadoChecker) ExistsByProyecto(ctx context.Context, proyectoID int64) (bool, error) {
	args := m.Called(ctx, proyectoID)
	return args.Bool(0), args.Error(1)
}
