package prospecto

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/sgi/backend/internal/domain/shared"
)

// Repository defines persistence operations for prospectos
type Repository interface {
	FindByID(ctx context.Context, id int64) (*Prospecto, error)
	// FindAll supports filters status, source and overdue (bool, next
	// contact date in the past) plus free text search
	FindAll(ctx context.Context, filter shared.Filter) ([]Prospecto, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	Save(ctx context.Context, p *Prospecto) error
	Delete(ctx context.Context, id int64) error
	Pipeline(ctx context.Context) (*PipelineStats, error)
}

// PipelineStats summarizes prospectos by stage
type PipelineStats struct {
	ByStatus  map[Status]int64
	OpenCount int64
	OpenValue decimal.Decimal
	WonCount  int64
	LostCount int64
}

// ConversionRate returns won / (won + lost) as a percent
func (s *PipelineStats) ConversionRate() decimal.Decimal {
	closed := s.WonCount + s.LostCount
	if closed == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(s.WonCount).Mul(shared.Hundred).Div(decimal.NewFromInt(closed)).Round(1)
}
