package importer

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCSVParser(t *testing.T) {
	t.Run("UTF-8 comma separated", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("nombre,cuit\nAcme,30712345671"))
		require.NoError(t, err)
		assert.Equal(t, EncodingUTF8, parser.Encoding())
		assert.Equal(t, ',', parser.Delimiter())
	})

	t.Run("semicolon delimiter is detected", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("nombre;cuit;email\nAcme, S.A.;30712345671;a@b.com"))
		require.NoError(t, err)
		assert.Equal(t, ';', parser.Delimiter())

		require.NoError(t, parser.ParseHeader())
		row, err := parser.ReadRow()
		require.NoError(t, err)
		assert.Equal(t, "Acme, S.A.", row.Get("nombre"))
	})

	t.Run("explicit delimiter disables detection", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("a;b;c,d\n1;2;3,4"), WithDelimiter(','))
		require.NoError(t, err)
		assert.Equal(t, ',', parser.Delimiter())
	})

	t.Run("BOM is stripped", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("\xEF\xBB\xBFnombre,cuit\nAcme,1"))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())
		assert.Equal(t, []string{"nombre", "cuit"}, parser.Headers())
	})

	t.Run("Windows-1252 is decoded", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("Raz\xf3n Social;Direcci\xf3n\nPe\xf1a SRL;Av. Col\xf3n 100"))
		require.NoError(t, err)
		assert.Equal(t, EncodingWindows1252, parser.Encoding())

		require.NoError(t, parser.ParseHeader())
		assert.Equal(t, []string{"razon_social", "direccion"}, parser.Headers())

		row, err := parser.ReadRow()
		require.NoError(t, err)
		assert.Equal(t, "Peña SRL", row.Get("razon_social"))
		assert.Equal(t, "Av. Colón 100", row.Get("direccion"))
	})

	t.Run("empty file", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("  \n"))
		assert.ErrorIs(t, err, ErrEmptyFile)
		assert.Nil(t, parser)
	})
}

func TestNormalizeHeader(t *testing.T) {
	tests := [][2]string{
		{"Razón Social", "razon_social"},
		{"  CUIT  ", "cuit"},
		{"Condición IVA", "condicion_iva"},
		{"e-mail", "e_mail"},
		{"Teléfono (móvil)", "telefono_movil"},
		{"código_postal", "codigo_postal"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt[1], NormalizeHeader(tt[0]), tt[0])
	}
}

func TestParseHeader(t *testing.T) {
	t.Run("missing header", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader(",,\n"))
		require.NoError(t, err)
		assert.ErrorIs(t, parser.ParseHeader(), ErrMissingHeader)
	})

	t.Run("validate headers", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("nombre,email\nAcme,a@b.com"))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())

		assert.True(t, parser.HasHeader("nombre"))
		assert.False(t, parser.HasHeader("cuit"))
		assert.Equal(t, []string{"cuit"}, parser.ValidateHeaders([]string{"nombre", "cuit"}))
		assert.Empty(t, parser.ValidateHeaders([]string{"nombre", "email"}))
	})
}

func TestReadRow(t *testing.T) {
	parser, err := NewCSVParser(strings.NewReader("nombre,cuit,email\n  Acme  ,30712345671\n,,\nBeta,20111111112,b@c.com\n"))
	require.NoError(t, err)
	require.NoError(t, parser.ParseHeader())

	row, err := parser.ReadRow()
	require.NoError(t, err)
	assert.Equal(t, 2, row.LineNumber)
	assert.Equal(t, "Acme", row.Get("nombre"))
	assert.Equal(t, "", row.Get("email"), "short rows are padded")
	assert.Equal(t, "sin email", row.GetOrDefault("email", "sin email"))

	rows, err := parser.ReadAllRows()
	require.NoError(t, err)
	require.Len(t, rows, 1, "empty rows are skipped")
	assert.Equal(t, 4, rows[0].LineNumber)
	assert.Equal(t, "b@c.com", rows[0].Get("email"))
	assert.Equal(t, 3, parser.TotalRows())

	_, err = parser.ReadRow()
	assert.ErrorIs(t, err, io.EOF)
}

func TestTrimIncompleteRune(t *testing.T) {
	complete := []byte("año")
	assert.Equal(t, complete, trimIncompleteRune(complete))

	cut := []byte("a\xc3")
	assert.Equal(t, []byte("a"), trimIncompleteRune(cut))
}

func TestHeaderAliases(t *testing.T) {
	parser, err := NewCSVParser(strings.NewReader("Razón Social,CUIT\nAcme,30712345671"),
		WithHeaderAliases(map[string]string{"razon_social": "nombre"}))
	require.NoError(t, err)
	require.NoError(t, parser.ParseHeader())

	assert.Equal(t, []string{"nombre", "cuit"}, parser.Headers())
	row, err := parser.ReadRow()
	require.NoError(t, err)
	assert.Equal(t, "Acme", row.Get("nombre"))
}
