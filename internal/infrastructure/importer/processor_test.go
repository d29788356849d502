package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var clienteRules = []FieldRule{
	Field("nombre").Required().Build(),
	Field("cuit").CUIT().Unique().Build(),
}

func validate(t *testing.T, p *Processor, content string) (*ValidationResult, error) {
	t.Helper()
	return p.Validate(strings.NewReader(content), int64(len(content)), []string{"nombre", "cuit"}, clienteRules)
}

func TestProcessorValidate(t *testing.T) {
	t.Run("splits valid and invalid rows", func(t *testing.T) {
		content := "Nombre;CUIT\nAcme;30-71234567-1\n;20111111112\n;\nBeta;30712345671\nGamma;20-12345678-6\n"
		result, err := validate(t, NewProcessor(), content)
		require.NoError(t, err)

		assert.Equal(t, ";", result.Delimiter)
		assert.Equal(t, 4, result.TotalRows)
		assert.Equal(t, 2, result.ValidRows)
		assert.Equal(t, 2, result.ErrorRows)
		assert.False(t, result.IsValid())
		require.Len(t, result.Rows, 2)
		assert.Equal(t, "Acme", result.Rows[0].Get("nombre"))
		assert.Equal(t, "Gamma", result.Rows[1].Get("nombre"))

		require.Len(t, result.Errors, 2)
		assert.Equal(t, 3, result.Errors[0].Row)
		assert.Equal(t, ErrCodeImportRequiredField, result.Errors[0].Code)
		assert.Equal(t, 5, result.Errors[1].Row)
		assert.Equal(t, ErrCodeImportDuplicateInFile, result.Errors[1].Code)
	})

	t.Run("missing columns", func(t *testing.T) {
		_, err := validate(t, NewProcessor(), "nombre,email\nAcme,a@b.com\n")
		var missing *MissingColumnsError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, []string{"cuit"}, missing.Columns)
	})

	t.Run("header only", func(t *testing.T) {
		_, err := validate(t, NewProcessor(), "nombre,cuit\n")
		assert.ErrorIs(t, err, ErrNoDataRows)
	})

	t.Run("empty upload", func(t *testing.T) {
		_, err := validate(t, NewProcessor(), "")
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("file too large", func(t *testing.T) {
		_, err := validate(t, NewProcessor(WithMaxFileSize(10)), "nombre,cuit\nAcme,30712345671\n")
		assert.ErrorIs(t, err, ErrFileTooLarge)
	})

	t.Run("too many rows", func(t *testing.T) {
		_, err := validate(t, NewProcessor(WithMaxRows(1)), "nombre,cuit\nA,30712345671\nB,20111111112\n")
		assert.ErrorIs(t, err, ErrTooManyRows)
	})

	t.Run("errors are truncated", func(t *testing.T) {
		content := "nombre,cuit\n,1\n,2\n,3\n"
		result, err := validate(t, NewProcessor(WithMaxErrors(1)), content)
		require.NoError(t, err)
		assert.Equal(t, 3, result.ErrorRows)
		assert.Len(t, result.Errors, 1)
		assert.True(t, result.Truncated)
	})
}
