package importer

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/sgi/backend/internal/domain/shared"
)

// FieldType represents the expected type of a field
type FieldType string

const (
	TypeString FieldType = "string"
	TypeEmail  FieldType = "email"
	TypeCUIT   FieldType = "cuit"
	TypeEnum   FieldType = "enum"
)

// FieldRule defines validation rules for a column
type FieldRule struct {
	Column     string
	Type       FieldType
	Required   bool
	MaxLength  int
	Unique     bool
	Values     []string // accepted values of an enum, compared case-insensitively
	CustomFunc func(value string) error
}

// FieldRuleBuilder helps build field rules fluently
type FieldRuleBuilder struct {
	rule FieldRule
}

// Field starts a rule for a column
func Field(column string) *FieldRuleBuilder {
	return &FieldRuleBuilder{rule: FieldRule{Column: column, Type: TypeString}}
}

// Required marks the field as required
func (b *FieldRuleBuilder) Required() *FieldRuleBuilder {
	b.rule.Required = true
	return b
}

// Email expects an email address
func (b *FieldRuleBuilder) Email() *FieldRuleBuilder {
	b.rule.Type = TypeEmail
	return b
}

// CUIT expects an 11 digit CUIT with a valid check digit
func (b *FieldRuleBuilder) CUIT() *FieldRuleBuilder {
	b.rule.Type = TypeCUIT
	return b
}

// OneOf restricts the field to a set of values
func (b *FieldRuleBuilder) OneOf(values ...string) *FieldRuleBuilder {
	b.rule.Type = TypeEnum
	b.rule.Values = values
	return b
}

// MaxLength limits the length of the value in characters
func (b *FieldRuleBuilder) MaxLength(n int) *FieldRuleBuilder {
	b.rule.MaxLength = n
	return b
}

// Unique rejects values repeated within the file
func (b *FieldRuleBuilder) Unique() *FieldRuleBuilder {
	b.rule.Unique = true
	return b
}

// Custom sets a custom validation function
func (b *FieldRuleBuilder) Custom(fn func(value string) error) *FieldRuleBuilder {
	b.rule.CustomFunc = fn
	return b
}

// Build returns the built field rule
func (b *FieldRuleBuilder) Build() FieldRule {
	return b.rule
}

// FieldValidator validates rows according to rules
type FieldValidator struct {
	rules       []FieldRule
	uniqueCheck map[string]map[string]int // column -> value -> first row number
	errors      *ErrorCollection
}

// NewFieldValidator creates a new field validator
func NewFieldValidator(rules []FieldRule, errors *ErrorCollection) *FieldValidator {
	return &FieldValidator{
		rules:       rules,
		uniqueCheck: make(map[string]map[string]int),
		errors:      errors,
	}
}

// ValidateRow validates all fields in a row and reports whether it is valid
func (v *FieldValidator) ValidateRow(row *Row) bool {
	valid := true
	for _, rule := range v.rules {
		if !v.validateField(row, rule) {
			valid = false
		}
	}
	return valid
}

func (v *FieldValidator) validateField(row *Row, rule FieldRule) bool {
	value := row.Get(rule.Column)
	if value == "" {
		if rule.Required {
			v.errors.AddRequiredError(row.LineNumber, rule.Column)
			return false
		}
		return true
	}

	if rule.MaxLength > 0 && utf8.RuneCountInString(value) > rule.MaxLength {
		v.errors.AddLengthError(row.LineNumber, rule.Column, rule.MaxLength)
		return false
	}

	switch rule.Type {
	case TypeEmail:
		if _, err := mail.ParseAddress(value); err != nil {
			v.errors.AddFormatError(row.LineNumber, rule.Column, "un email", value)
			return false
		}
	case TypeCUIT:
		if !shared.ValidCUIT(value) {
			v.errors.AddFormatError(row.LineNumber, rule.Column, "un CUIT válido", value)
			return false
		}
		value = shared.NormalizeCUIT(value)
	case TypeEnum:
		if !containsFold(rule.Values, value) {
			v.errors.Add(NewRowErrorWithValue(row.LineNumber, rule.Column, ErrCodeImportInvalidValue,
				fmt.Sprintf("valor no admitido, use %s", strings.Join(rule.Values, ", ")), value))
			return false
		}
	}

	if rule.Unique {
		seen := v.uniqueCheck[rule.Column]
		if seen == nil {
			seen = make(map[string]int)
			v.uniqueCheck[rule.Column] = seen
		}
		key := strings.ToUpper(value)
		if _, exists := seen[key]; exists {
			v.errors.AddDuplicateError(row.LineNumber, rule.Column, value, false)
			return false
		}
		seen[key] = row.LineNumber
	}

	if rule.CustomFunc != nil {
		if err := rule.CustomFunc(value); err != nil {
			v.errors.Add(NewRowErrorWithValue(row.LineNumber, rule.Column, ErrCodeImportValidation, err.Error(), value))
			return false
		}
	}
	return true
}

func containsFold(values []string, v string) bool {
	for _, candidate := range values {
		if strings.EqualFold(candidate, v) {
			return true
		}
	}
	return false
}
