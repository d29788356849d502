package presupuesto

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sgi/backend/internal/domain/cliente"
	"github.com/sgi/backend/internal/domain/presupuesto"
	"github.com/sgi/backend/internal/domain/proyecto"
	"github.com/sgi/backend/internal/domain/shared"
)

// MockPresupuestoRepository is a mock implementation of presupuesto.Repository
type MockPresupuestoRepository struct {
	mock.Mock
}

func (m *MockPresupuestoRepository) FindByID(ctx context.Context, id int64) (*presupuesto.Presupuesto, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*presupuesto.Presupuesto), args.Error(1)
}

func (m *MockPresupuestoRepository) FindAll(ctx context.Context, filter shared.Filter) ([]presupuesto.Presupuesto, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]presupuesto.Presupuesto), args.Error(1)
}

func (m *MockPresupuestoRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPresupuestoRepository) Save(ctx context.Context, p *presupuesto.Presupuesto) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPresupuestoRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPresupuestoRepository) NextNumber(ctx context.Context, year int) (int, error) {
	args := m.Called(ctx, year)
	return args.Int(0), args.Error(1)
}

func (m *MockPresupuestoRepository) FindExpirable(ctx context.Context, now time.Time, limit int) ([]presupuesto.Presupuesto, error) {
	args := m.Called(ctx, now, limit)
	return args.Get(0).([]presupuesto.Presupuesto), args.Error(1)
}

func (m *MockPresupuestoRepository) CountByStatus(ctx context.Context) (map[presupuesto.Status]int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[presupuesto.Status]int64), args.Error(1)
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

// MockProyectoFinder is a mock implementation of ProyectoFinder
type MockProyectoFinder struct {
	mock.Mock
}

func (m *MockProyectoFinder) FindByID(ctx context.Context, id int64) (*proyecto.Proyecto, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*proyecto.Proyecto), args.Error(1)
}

type recordedExpiry struct {
	total int64
}

func (r *recordedExpiry) RecordPresupuestosExpired(_ context.Context, n int64) {
	r.total += n
}
