// Package common holds DTOs shared by the document services
package common

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sgi/backend/internal/domain/shared"
)

// LineRequest is an item line in create and update requests
type LineRequest struct {
	Description string          `json:"description" binding:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// LineResponse is an item line in API responses
type LineResponse struct {
	Position    int             `json:"position"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// ToLines validates and prices the requested lines. The returned error
// names the offending line.
func ToLines(reqs []LineRequest) ([]shared.Line, error) {
	lines := make([]shared.Line, 0, len(reqs))
	for i, r := range reqs {
		line, err := shared.NewLine(r.Description, r.Quantity, r.UnitPrice)
		if err != nil {
			var de *shared.DomainError
			if asDomainError(err, &de) {
				return nil, shared.NewDomainError(de.Code, fmt.Sprintf("Ítem %d: %s", i+1, de.Message))
			}
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// ToLineResponses converts domain lines to responses
func ToLineResponses(lines []shared.Line) []LineResponse {
	out := make([]LineResponse, len(lines))
	for i, l := range lines {
		out[i] = LineResponse{
			Position:    l.Position,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Amount:      l.Amount,
		}
	}
	return out
}
