package common

import (
	"time"

	"github.com/sgi/backend/internal/domain/shared"
)

// ParseRange parses optional YYYY-MM-DD bounds of a list filter. The upper
// bound is inclusive, so it is moved to the start of the following day.
func ParseRange(from, to string) (*time.Time, *time.Time, error) {
	var start, end *time.Time
	if from != "" {
		t, err := time.Parse(DateLayout, from)
		if err != nil {
			return nil, nil, shared.NewDomainError("INVALID_INPUT", "Fecha desde inválida, use AAAA-MM-DD")
		}
		start = &t
	}
	if to != "" {
		t, err := time.Parse(DateLayout, to)
		if err != nil {
			return nil, nil, shared.NewDomainError("INVALID_INPUT", "Fecha hasta inválida, use AAAA-MM-DD")
		}
		t = t.AddDate(0, 0, 1)
		end = &t
	}
	if start != nil && end != nil && !start.Before(*end) {
		return nil, nil, shared.NewDomainError("INVALID_INPUT", "El rango de fechas es inválido")
	}
	return start, end, nil
}
