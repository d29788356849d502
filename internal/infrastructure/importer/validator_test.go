package importer

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func row(line int, data map[string]string) *Row {
	return &Row{LineNumber: line, Data: data}
}

func TestFieldValidator(t *testing.T) {
	rules := []FieldRule{
		Field("nombre").Required().MaxLength(10).Build(),
		Field("cuit").CUIT().Unique().Build(),
		Field("email").Email().Build(),
		Field("tipo").OneOf("EMPRESA", "PERSONA").Build(),
	}

	t.Run("valid row", func(t *testing.T) {
		errs := NewErrorCollection(10)
		v := NewFieldValidator(rules, errs)
		ok := v.ValidateRow(row(2, map[string]string{
			"nombre": "Acme",
			"cuit":   "30-71234567-1",
			"email":  "ventas@acme.com.ar",
			"tipo":   "empresa",
		}))
		assert.True(t, ok)
		assert.False(t, errs.HasErrors())
	})

	t.Run("every rule reports its error", func(t *testing.T) {
		errs := NewErrorCollection(10)
		v := NewFieldValidator(rules, errs)
		ok := v.ValidateRow(row(3, map[string]string{
			"nombre": "",
			"cuit":   "30-71234567-2",
			"email":  "no-es-email",
			"tipo":   "OTRO",
		}))
		assert.False(t, ok)
		assert.Equal(t, 4, errs.TotalCount())
		summary := errs.ErrorSummary()
		assert.Equal(t, 1, summary[ErrCodeImportRequiredField])
		assert.Equal(t, 2, summary[ErrCodeImportInvalidFormat])
		assert.Equal(t, 1, summary[ErrCodeImportInvalidValue])
	})

	t.Run("max length counts characters", func(t *testing.T) {
		errs := NewErrorCollection(10)
		v := NewFieldValidator(rules, errs)
		assert.True(t, v.ValidateRow(row(2, map[string]string{"nombre": "ñandúñandú"})))
		assert.False(t, v.ValidateRow(row(3, map[string]string{"nombre": "ñandúñandúx"})))
		assert.Equal(t, ErrCodeImportInvalidLength, errs.Errors()[0].Code)
	})

	t.Run("duplicates compare normalized CUITs", func(t *testing.T) {
		errs := NewErrorCollection(10)
		v := NewFieldValidator(rules, errs)
		assert.True(t, v.ValidateRow(row(2, map[string]string{"nombre": "A", "cuit": "30-71234567-1"})))
		assert.False(t, v.ValidateRow(row(3, map[string]string{"nombre": "B", "cuit": "30712345671"})))
		assert.Equal(t, ErrCodeImportDuplicateInFile, errs.Errors()[0].Code)
		assert.Equal(t, 3, errs.Errors()[0].Row)
	})

	t.Run("custom rule", func(t *testing.T) {
		errs := NewErrorCollection(10)
		v := NewFieldValidator([]FieldRule{
			Field("codigo").Custom(func(value string) error {
				if !strings.HasPrefix(value, "P-") {
					return errors.New("debe empezar con P-")
				}
				return nil
			}).Build(),
		}, errs)
		assert.True(t, v.ValidateRow(row(2, map[string]string{"codigo": "P-1"})))
		assert.False(t, v.ValidateRow(row(3, map[string]string{"codigo": "X-1"})))
		assert.Equal(t, "debe empezar con P-", errs.Errors()[0].Message)
	})
}

func TestErrorCollection(t *testing.T) {
	errs := NewErrorCollection(2)
	assert.Equal(t, "no errors", errs.String())

	errs.AddRequiredError(2, "nombre")
	errs.AddRequiredError(3, "nombre")
	errs.AddDuplicateError(4, "cuit", "30712345671", true)

	assert.Len(t, errs.Errors(), 2)
	assert.Equal(t, 3, errs.TotalCount())
	assert.True(t, errs.IsTruncated())
	assert.Contains(t, errs.String(), "3 error(s) found (showing first 2)")
	assert.Equal(t, "fila 2, columna 'nombre': el campo es obligatorio", errs.Errors()[0].Error())
	assert.Equal(t, "fila 7: x", NewRowError(7, "", ErrCodeImportValidation, "x").Error())
}
