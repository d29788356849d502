package shared

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	phoneRegex = regexp.MustCompile(`^[\d\s\-\(\)\+]+$`)
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	dniRegex   = regexp.MustCompile(`^\d{7,8}$`)
)

// ValidateEmail checks an optional e-mail address
func ValidateEmail(email string) error {
	if email == "" {
		return nil
	}
	if len(email) > 200 {
		return NewDomainError("INVALID_EMAIL", "El email no puede superar los 200 caracteres")
	}
	if !emailRegex.MatchString(email) {
		return NewDomainError("INVALID_EMAIL", "Formato de email inválido")
	}
	return nil
}

// ValidatePhone checks an optional phone number
func ValidatePhone(phone string) error {
	if phone == "" {
		return nil
	}
	if len(phone) > 50 {
		return NewDomainError("INVALID_PHONE", "El teléfono no puede superar los 50 caracteres")
	}
	if !phoneRegex.MatchString(phone) {
		return NewDomainError("INVALID_PHONE", "Formato de teléfono inválido")
	}
	return nil
}

// ValidDNI reports whether s is a 7 or 8 digit DNI
func ValidDNI(s string) bool {
	return dniRegex.MatchString(strings.ReplaceAll(s, ".", ""))
}

// ValidateLength checks that a required text field is present and short enough
func ValidateLength(code, field, value string, max int) error {
	if strings.TrimSpace(value) == "" {
		return NewDomainError(code, field+" es obligatorio")
	}
	if utf8.RuneCountInString(value) > max {
		return NewDomainError(code, field+" es demasiado largo")
	}
	return nil
}
