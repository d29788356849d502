package shared

import "github.com/shopspring/decimal"

// Hundred is 100 as a decimal, used for percentages
var Hundred = decimal.NewFromInt(100)

// RoundMoney rounds an amount to cents, half away from zero
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Percent returns pct percent of amount rounded to cents
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return RoundMoney(amount.Mul(pct).Div(Hundred))
}
