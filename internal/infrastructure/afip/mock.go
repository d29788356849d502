package afip

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sgi/backend/internal/domain/factura"
)

// mockCAEValidity is how long a mock CAE stays valid after the issue date
const mockCAEValidity = 10 * 24 * time.Hour

type sequenceKey struct {
	pointOfSale int
	typ         factura.Type
}

// MockAuthorizer grants deterministic CAEs without network access. Numbers
// increase per point of sale and type starting after the seeded value.
type MockAuthorizer struct {
	mu   sync.Mutex
	last map[sequenceKey]int64
}

var _ factura.Authorizer = (*MockAuthorizer)(nil)

// NewMockAuthorizer creates an empty mock
func NewMockAuthorizer() *MockAuthorizer {
	return &MockAuthorizer{last: make(map[sequenceKey]int64)}
}

// Seed sets the last authorized number of a point of sale and type
func (m *MockAuthorizer) Seed(pointOfSale int, typ factura.Type, last int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last[sequenceKey{pointOfSale, typ}] = last
}

// Mode returns "mock"
func (m *MockAuthorizer) Mode() string {
	return ModeMock
}

// Status always reports healthy servers
func (m *MockAuthorizer) Status(context.Context) (factura.ServiceStatus, error) {
	return factura.ServiceStatus{AppServer: "OK", DBServer: "OK", AuthServer: "OK"}, nil
}

// LastNumber returns the last number handed out
func (m *MockAuthorizer) LastNumber(_ context.Context, pointOfSale int, typ factura.Type) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last[sequenceKey{pointOfSale, typ}], nil
}

// Authorize approves any request with a positive total
func (m *MockAuthorizer) Authorize(ctx context.Context, req factura.AuthorizationRequest) (*factura.AuthorizationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !req.Total.IsPositive() {
		return &factura.AuthorizationResult{
			Result: "R",
			Errors: []factura.Message{{Code: 10048, Message: "El importe total debe ser mayor a cero"}},
		}, nil
	}

	m.mu.Lock()
	key := sequenceKey{req.PointOfSale, req.Type}
	m.last[key]++
	number := m.last[key]
	m.mu.Unlock()

	return &factura.AuthorizationResult{
		Number:     number,
		CAE:        MockCAE(req.PointOfSale, req.Type, number),
		CAEDueDate: req.IssueDate.Add(mockCAEValidity),
		Result:     "A",
	}, nil
}

// MockCAE builds the 14 digit CAE the mock grants for a comprobante
func MockCAE(pointOfSale int, typ factura.Type, number int64) string {
	return fmt.Sprintf("7%02d%03d%08d", int(typ)%100, pointOfSale%1000, number%100000000)
}
