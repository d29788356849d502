package printing

import (
	"errors"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgi/backend/internal/domain/factura"
)

func newTestEngine(t *testing.T) *TemplateEngine {
	t.Helper()
	engine, err := NewTemplateEngine(WithFormatter(NewFormatter(Locale, time.UTC)))
	require.NoError(t, err)
	return engine
}

func TestNewTemplateEngine(t *testing.T) {
	engine := newTestEngine(t)

	funcMap := engine.GetFuncMap()
	for _, name := range []string{"money", "date", "cuit", "percent", "label", "nl2br"} {
		assert.NotNil(t, funcMap[name], name)
	}
	assert.NotNil(t, engine.Formatter())
}

func TestTemplateEngine_RenderFactura_Authorized(t *testing.T) {
	engine := newTestEngine(t)
	doc := NewFacturaDocument(testFactura(t, factura.TypeA, true), testCliente(t), testCompany)

	html, err := engine.RenderFactura(doc)

	require.NoError(t, err)
	assert.Contains(t, html, "<title>Factura A 00001-00000042</title>")
	assert.Contains(t, html, "COD. 001")
	assert.Contains(t, html, "30-71234567-1")
	assert.Contains(t, html, "20-11111111-2")
	assert.Contains(t, html, "Fecha de emisión: 15/07/2024")
	assert.Contains(t, html, "Período facturado: 01/07/2024 al 31/07/2024")
	assert.Contains(t, html, "Importe neto gravado")
	assert.Contains(t, html, "IVA 21 %")
	assert.Contains(t, html, "74123456789012")
	assert.Contains(t, html, "Fecha de vto. de CAE:</strong> 25/07/2024")
	assert.Contains(t, html, AFIPQRBaseURL)
	assert.NotContains(t, html, "NO VÁLIDO")
}

func TestTemplateEngine_RenderFactura_Draft(t *testing.T) {
	engine := newTestEngine(t)
	doc := NewFacturaDocument(testFactura(t, factura.TypeB, false), testCliente(t), testCompany)

	html, err := engine.RenderFactura(doc)

	require.NoError(t, err)
	assert.Contains(t, html, "COMPROBANTE NO VÁLIDO COMO FACTURA (Borrador)")
	assert.NotContains(t, html, "CAE N°")
	assert.NotContains(t, html, "Importe neto gravado")
}

func TestTemplateEngine_EscapesContent(t *testing.T) {
	engine := newTestEngine(t)
	f := testFactura(t, factura.TypeB, false)
	f.Notes = "<script>alert(1)</script>\nsegunda línea"

	html, err := engine.RenderFactura(NewFacturaDocument(f, testCliente(t), testCompany))

	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;alert(1)&lt;/script&gt;<br>segunda línea")
}

func TestTemplateEngine_UnknownTemplate(t *testing.T) {
	engine := newTestEngine(t)

	_, err := engine.Render("remito.html", nil)

	var renderErr *RenderError
	require.True(t, errors.As(err, &renderErr))
	assert.Equal(t, ErrCodeTemplateFailed, renderErr.Code)
}

func TestTemplateEngine_CustomTemplates(t *testing.T) {
	fsys := fstest.MapFS{
		"docs/hola.html": {Data: []byte(`{{money .}} {{label "EN_CURSO"}} {{default "-" ""}}`)},
	}
	engine, err := NewTemplateEngine(WithTemplates(fsys, "docs/*.html"))
	require.NoError(t, err)

	out, err := engine.Render("hola.html", 2500000)

	require.NoError(t, err)
	assert.Equal(t, "$ 2.500.000,00 En Curso -", out)
}

func TestTemplateEngine_InvalidTemplates(t *testing.T) {
	fsys := fstest.MapFS{
		"docs/roto.html": {Data: []byte(`{{if}}`)},
	}

	_, err := NewTemplateEngine(WithTemplates(fsys, "docs/*.html"))

	assert.Error(t, err)
}

func TestDict(t *testing.T) {
	m, err := dict("a", 1, "b", "dos")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1, "b": "dos"}, m)

	_, err = dict("a")
	assert.Error(t, err)
	_, err = dict(1, 2)
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Constr…", truncate("Constructora", 6))
	assert.Equal(t, "Obra", truncate("Obra", 10))
}
