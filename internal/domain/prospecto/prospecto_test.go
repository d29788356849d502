package prospecto

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgi/backend/internal/domain/shared"
)

func code(t *testing.T, err error) string {
	t.Helper()
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	return de.Code
}

func TestNewProspecto(t *testing.T) {
	p, err := NewProspecto(" Laura Díaz ", "Acme", "")
	require.NoError(t, err)
	assert.Equal(t, "Laura Díaz", p.Name)
	assert.Equal(t, SourceOtro, p.Source)
	assert.Equal(t, StatusNuevo, p.Status)

	_, err = NewProspecto("", "", SourceWeb)
	assert.Equal(t, "INVALID_NAME", code(t, err))
	_, err = NewProspecto("x", "", Source("TV"))
	assert.Equal(t, "INVALID_SOURCE", code(t, err))
}

func TestProspecto_ChangeStatus(t *testing.T) {
	tests := []struct {
		name     string
		from     Status
		to       Status
		reason   string
		wantCode string
	}{
		{"forward one step", StatusNuevo, StatusContactado, "", ""},
		{"forward skipping", StatusNuevo, StatusPropuesta, "", ""},
		{"backwards", StatusCalificado, StatusContactado, "", "INVALID_TRANSITION"},
		{"same", StatusContactado, StatusContactado, "", "INVALID_TRANSITION"},
		{"lose with reason", StatusPropuesta, StatusPerdido, "precio", ""},
		{"lose without reason", StatusNuevo, StatusPerdido, " ", "INVALID_REASON"},
		{"win directly", StatusPropuesta, StatusGanado, "", "USE_CONVERSION"},
		{"reopen lost", StatusPerdido, StatusContactado, "", ""},
		{"reopen lost elsewhere", StatusPerdido, StatusPropuesta, "", "INVALID_TRANSITION"},
		{"won is terminal", StatusGanado, StatusContactado, "", "INVALID_TRANSITION"},
		{"lose a lost", StatusPerdido, StatusPerdido, "x", "INVALID_TRANSITION"},
		{"unknown", StatusNuevo, Status("X"), "", "INVALID_STATUS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Prospecto{Status: tt.from}
			err := p.ChangeStatus(tt.to, tt.reason)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, code(t, err))
				assert.Equal(t, tt.from, p.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, p.Status)
		})
	}
}

func TestProspecto_ReopenClearsReason(t *testing.T) {
	p := &Prospecto{Status: StatusCalificado}
	require.NoError(t, p.ChangeStatus(StatusPerdido, "sin presupuesto"))
	assert.Equal(t, "sin presupuesto", p.LostReason)
	require.NoError(t, p.ChangeStatus(StatusContactado, ""))
	assert.Empty(t, p.LostReason)
}

func TestProspecto_MarkConverted(t *testing.T) {
	next := time.Now()
	p := &Prospecto{Status: StatusPropuesta, NextContactDate: &next}
	require.NoError(t, p.MarkConverted(12))
	assert.Equal(t, StatusGanado, p.Status)
	assert.Equal(t, int64(12), *p.ConvertedClienteID)
	assert.Nil(t, p.NextContactDate)
	assert.Equal(t, "INVALID_STATE", code(t, p.MarkConverted(13)))
}

func TestProspecto_Update(t *testing.T) {
	p, err := NewProspecto("Laura", "", SourceWeb)
	require.NoError(t, err)

	assert.Equal(t, "INVALID_EMAIL", code(t, p.Update("Laura", "", "laura@", "", SourceWeb, decimal.Zero, nil, "")))
	assert.Equal(t, "INVALID_VALUE", code(t, p.Update("Laura", "", "", "", SourceWeb, decimal.NewFromInt(-5), nil, "")))

	require.NoError(t, p.Update("Laura", "Acme", "Laura@Acme.com", "", SourceEvento, decimal.RequireFromString("120000.499"), nil, ""))
	assert.Equal(t, "laura@acme.com", p.Email)
	assert.Equal(t, "120000.5", p.EstimatedValue.String())
}

func TestProspecto_FollowUpOverdue(t *testing.T) {
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	p := &Prospecto{Status: StatusContactado, NextContactDate: &past}
	assert.True(t, p.FollowUpOverdue(now))
	p.Status = StatusPerdido
	assert.False(t, p.FollowUpOverdue(now))
}

func TestPipelineStats_ConversionRate(t *testing.T) {
	assert.True(t, (&PipelineStats{}).ConversionRate().IsZero())
	s := &PipelineStats{WonCount: 1, LostCount: 2}
	assert.Equal(t, "33.3", s.ConversionRate().String())
}
