package printing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/sgi/backend/internal/domain/shared"
)

// Locale is the language every document is printed in
var Locale = language.MustParse("es-AR")

// Formatter renders numbers, amounts and dates for Argentine documents
type Formatter struct {
	printer  *message.Printer
	title    cases.Caser
	currency currency.Unit
	location *time.Location
}

// ars is the peso unit; x/text exports no identifier for it
var ars = currency.MustParseISO("ARS")

// NewFormatter creates a formatter for the given locale. Timestamps are
// printed in loc, or in the Buenos Aires zone when loc is nil.
func NewFormatter(tag language.Tag, loc *time.Location) *Formatter {
	if loc == nil {
		if ba, err := time.LoadLocation("America/Argentina/Buenos_Aires"); err == nil {
			loc = ba
		} else {
			loc = time.Local
		}
	}
	return &Formatter{
		printer:  message.NewPrinter(tag),
		title:    cases.Title(tag),
		currency: ars,
		location: loc,
	}
}

// Money formats an amount with the peso sign and two decimals: "$ 1.210,50"
func (f *Formatter) Money(v any) string {
	return "$ " + f.Amount(v)
}

// Amount formats an amount with two decimals and no symbol
func (f *Formatter) Amount(v any) string {
	d := toDecimal(v).Round(2)
	return f.printer.Sprint(number.Decimal(d.InexactFloat64(), number.Scale(2)))
}

// Quantity formats a quantity with up to two decimals
func (f *Formatter) Quantity(v any) string {
	d := toDecimal(v)
	return f.printer.Sprint(number.Decimal(d.InexactFloat64(), number.MaxFractionDigits(2)))
}

// Percent formats a percentage value (21 means 21%) as "21 %"
func (f *Formatter) Percent(v any) string {
	return f.Quantity(v) + " %"
}

// CurrencyCode returns the ISO code of the document currency
func (f *Formatter) CurrencyCode() string {
	return f.currency.String()
}

// Date formats a calendar date as dd/mm/yyyy; nil and zero dates print as
// an empty string
func (f *Formatter) Date(v any) string {
	t, ok := toTime(v)
	if !ok {
		return ""
	}
	return t.Format("02/01/2006")
}

// DateTime formats an instant as dd/mm/yyyy hh:mm in the formatter zone
func (f *Formatter) DateTime(v any) string {
	t, ok := toTime(v)
	if !ok {
		return ""
	}
	return t.In(f.location).Format("02/01/2006 15:04")
}

// Title converts a status such as EN_CURSO to "En Curso"
func (f *Formatter) Title(s string) string {
	return f.title.String(strings.ReplaceAll(strings.ToLower(s), "_", " "))
}

// CUIT formats an 11 digit CUIT as XX-XXXXXXXX-X
func (f *Formatter) CUIT(s string) string {
	return shared.FormatCUIT(s)
}

func toDecimal(v any) decimal.Decimal {
	switch val := v.(type) {
	case decimal.Decimal:
		return val
	case *decimal.Decimal:
		if val == nil {
			return decimal.Zero
		}
		return *val
	case decimal.NullDecimal:
		if !val.Valid {
			return decimal.Zero
		}
		return val.Decimal
	case float64:
		return decimal.NewFromFloat(val)
	case float32:
		return decimal.NewFromFloat32(val)
	case int:
		return decimal.NewFromInt(int64(val))
	case int64:
		return decimal.NewFromInt(val)
	case int32:
		return decimal.NewFromInt32(val)
	case string:
		d, err := decimal.NewFromString(val)
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

func toTime(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, !val.IsZero()
	case *time.Time:
		if val == nil || val.IsZero() {
			return time.Time{}, false
		}
		return *val, true
	default:
		return time.Time{}, false
	}
}
