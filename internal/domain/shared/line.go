package shared

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Line is a priced line of a presupuesto or factura
type Line struct {
	ID          int64
	Position    int
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
}

// NewLine validates and prices a line
func NewLine(description string, quantity, unitPrice decimal.Decimal) (Line, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return Line{}, NewDomainError("INVALID_ITEM", "La descripción del ítem es obligatoria")
	}
	if len(description) > 500 {
		return Line{}, NewDomainError("INVALID_ITEM", "La descripción del ítem es demasiado larga")
	}
	if !quantity.IsPositive() {
		return Line{}, NewDomainError("INVALID_ITEM", "La cantidad debe ser mayor a cero")
	}
	if unitPrice.IsNegative() {
		return Line{}, NewDomainError("INVALID_ITEM", "El precio unitario no puede ser negativo")
	}
	return Line{
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Amount:      RoundMoney(quantity.Mul(unitPrice)),
	}, nil
}

// Totals holds the net, VAT and gross amounts of a document
type Totals struct {
	Subtotal  decimal.Decimal
	IVARate   decimal.Decimal
	IVAAmount decimal.Decimal
	Total     decimal.Decimal
}

// ComputeTotals sums lines and applies the VAT rate (a percentage)
func ComputeTotals(lines []Line, ivaRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Amount)
	}
	subtotal = RoundMoney(subtotal)
	iva := Percent(subtotal, ivaRate)
	return Totals{
		Subtotal:  subtotal,
		IVARate:   ivaRate,
		IVAAmount: iva,
		Total:     subtotal.Add(iva),
	}
}

// ValidIVARate reports whether rate is one of the VAT aliquots accepted by AFIP
func ValidIVARate(rate decimal.Decimal) bool {
	for _, r := range []string{"0", "2.5", "5", "10.5", "21", "27"} {
		if rate.Equal(decimal.RequireFromString(r)) {
			return true
		}
	}
	return false
}
