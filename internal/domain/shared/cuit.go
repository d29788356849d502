package shared

import (
	"strings"
	"unicode"
)

var cuitWeights = [10]int{5, 4, 3, 2, 7, 6, 5, 4, 3, 2}

// NormalizeCUIT strips dashes, dots and spaces from a CUIT/CUIL
func NormalizeCUIT(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// ValidCUIT reports whether s (normalized or not) is an 11 digit CUIT/CUIL
// with a correct mod 11 check digit.
func ValidCUIT(s string) bool {
	if strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '-' && r != ' ' && r != '.'
	}) >= 0 {
		return false
	}
	cuit := NormalizeCUIT(s)
	if len(cuit) != 11 {
		return false
	}

	sum := 0
	for i, w := range cuitWeights {
		sum += int(cuit[i]-'0') * w
	}
	check := 11 - sum%11
	switch check {
	case 11:
		check = 0
	case 10:
		// AFIP never issues CUITs whose verifier would be 10
		return false
	}
	return int(cuit[10]-'0') == check
}

// FormatCUIT renders an 11 digit CUIT as XX-XXXXXXXX-X
func FormatCUIT(s string) string {
	cuit := NormalizeCUIT(s)
	if len(cuit) != 11 {
		return s
	}
	return cuit[:2] + "-" + cuit[2:10] + "-" + cuit[10:]
}
