package cliente

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sgi/backend/internal/domain/cliente"
	"github.com/sgi/backend/internal/domain/shared"
)

// MockClienteRepository is a mock implementation of cliente.Repository
type MockClienteRepository struct {
	mock.Mock
}

func (m *MockClienteRepository) FindByID(ctx context.Context, id int64) (*cliente.Cliente, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cliente.Cliente), args.Error(1)
}

func (m *MockClienteRepository) FindByCUIT(ctx context.Context, cuit string) (*cliente.Cliente, error) {
	args := m.Called(ctx, cuit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cliente.Cliente), args.Error(1)
}

func (m *MockClienteRepository) FindAll(ctx context.Context, filter shared.Filter) ([]cliente.Cliente, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]cliente.Cliente), args.Error(1)
}

func (m *MockClienteRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockClienteRepository) CountByStatus(ctx context.Context, status cliente.Status) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockClienteRepository) Save(ctx context.Context, c *cliente.Cliente) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockClienteRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockClienteRepository) ExistsByCUIT(ctx context.Context, cuit string, excludeID int64) (bool, error) {
	args := m.Called(ctx, cuit, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockClienteRepository) Summary(ctx context.Context, id int64) (*cliente.Summary, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cliente.Summary), args.Error(1)
}

type MockFacturaChecker struct {
	mock.Mock
}

func (m *MockFacturaChecker) ExistsByCliente(ctx context.Context, clienteID int64) (bool, error) {
	args := m.Called(ctx, clienteID)
	return args.Bool(0), args.Error(1)
}

type MockProyectoChecker struct {
	mock.Mock
}

func (m *MockProyectoChecker) HasOpenByCliente(ctx context.Context, clienteID int64) (bool, error) {
	args := m.Called(ctx, clienteID)
	return args.Bool(0), args.Error(1)
}
