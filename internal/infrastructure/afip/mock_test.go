package afip

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sgi/backend/internal/domain/factura"
	infraconfig "github.com/sgi/backend/internal/infrastructure/config"
)

func TestMockAuthorizer_Authorize(t *testing.T) {
	m := NewMockAuthorizer()
	m.Seed(3, factura.TypeB, 41)
	issue := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	req := factura.AuthorizationRequest{PointOfSale: 3, Type: factura.TypeB, IssueDate: issue, Total: decimal.NewFromInt(100)}
	first, err := m.Authorize(context.Background(), req)
	require.NoError(t, err)
	second, err := m.Authorize(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, first.Approved())
	assert.Equal(t, int64(42), first.Number)
	assert.Equal(t, int64(43), second.Number)
	assert.Len(t, first.CAE, 14)
	assert.Equal(t, "70600300000042", first.CAE)
	assert.Equal(t, issue.AddDate(0, 0, 10), first.CAEDueDate)

	last, err := m.LastNumber(context.Background(), 3, factura.TypeB)
	require.NoError(t, err)
	assert.Equal(t, int64(43), last)

	other, err := m.LastNumber(context.Background(), 3, factura.TypeA)
	require.NoError(t, err)
	assert.Zero(t, other)
}

func TestMockAuthorizer_RejectsZeroTotal(t *testing.T) {
	m := NewMockAuthorizer()

	res, err := m.Authorize(context.Background(), factura.AuthorizationRequest{PointOfSale: 1, Type: factura.TypeC})

	require.NoError(t, err)
	assert.False(t, res.Approved())
	last, _ := m.LastNumber(context.Background(), 1, factura.TypeC)
	assert.Zero(t, last)
}

func TestMockAuthorizer_Status(t *testing.T) {
	status, err := NewMockAuthorizer().Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.OK())
}

func TestNew(t *testing.T) {
	t.Run("mock", func(t *testing.T) {
		a, err := New(&infraconfig.AFIPConfig{Mock: true}, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, ModeMock, a.Mode())
	})

	t.Run("fallback without credentials", func(t *testing.T) {
		a, err := New(&infraconfig.AFIPConfig{MockFallback: true, CUIT: testCUIT}, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, ModeMock, a.Mode())
	})

	t.Run("no fallback", func(t *testing.T) {
		_, err := New(&infraconfig.AFIPConfig{CUIT: testCUIT}, zap.NewNop())
		assert.ErrorIs(t, err, ErrNotConfigured)
	})
}
