package printing

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"maps"
	"strings"

	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template names
const (
	TemplateFactura     = "factura.html"
	TemplatePresupuesto = "presupuesto.html"
)

// TemplateEngine renders the embedded document layouts with es-AR
// formatting helpers
type TemplateEngine struct {
	formatter *Formatter
	funcMap   template.FuncMap
	templates *template.Template
}

// TemplateEngineOption configures the template engine
type TemplateEngineOption func(*templateEngineOptions)

type templateEngineOptions struct {
	formatter *Formatter
	fsys      fs.FS
	pattern   string
}

// WithFormatter overrides the default es-AR formatter
func WithFormatter(f *Formatter) TemplateEngineOption {
	return func(o *templateEngineOptions) {
		o.formatter = f
	}
}

// WithTemplates parses the layouts from fsys instead of the embedded ones
func WithTemplates(fsys fs.FS, pattern string) TemplateEngineOption {
	return func(o *templateEngineOptions) {
		o.fsys = fsys
		o.pattern = pattern
	}
}

// NewTemplateEngine parses the document templates
func NewTemplateEngine(opts ...TemplateEngineOption) (*TemplateEngine, error) {
	o := &templateEngineOptions{fsys: templateFS, pattern: "templates/*.html"}
	for _, opt := range opts {
		opt(o)
	}
	if o.formatter == nil {
		o.formatter = NewFormatter(Locale, nil)
	}

	e := &TemplateEngine{formatter: o.formatter}
	e.funcMap = FuncMap(o.formatter)

	tmpl, err := template.New("documents").Funcs(e.funcMap).ParseFS(o.fsys, o.pattern)
	if err != nil {
		return nil, fmt.Errorf("parse document templates: %w", err)
	}
	e.templates = tmpl
	return e, nil
}

// FuncMap returns the formatting helpers shared by documents and HTML views
func FuncMap(f *Formatter) template.FuncMap {
	return template.FuncMap{
		"money":    f.Money,
		"amount":   f.Amount,
		"quantity": f.Quantity,
		"percent":  f.Percent,
		"date":     f.Date,
		"dateTime": f.DateTime,
		"cuit":     f.CUIT,
		"label":    f.Title,
		"upper":    strings.ToUpper,
		"lower":    strings.ToLower,
		"trim":     strings.TrimSpace,
		"truncate": truncate,
		"default":  defaultString,
		"add":      func(a, b int) int { return a + b },
		"isZero":   func(v any) bool { return toDecimal(v).IsZero() },
		"nl2br":    nl2br,
		"dict":     dict,
	}
}

// GetFuncMap returns a copy of the helper functions
func (e *TemplateEngine) GetFuncMap() template.FuncMap {
	return maps.Clone(e.funcMap)
}

// Formatter returns the formatter used by the templates
func (e *TemplateEngine) Formatter() *Formatter {
	return e.formatter
}

// Render executes the named template
func (e *TemplateEngine) Render(name string, data any) (string, error) {
	if e.templates.Lookup(name) == nil {
		return "", NewRenderError(ErrCodeTemplateFailed, "unknown template "+name, nil)
	}
	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", NewRenderError(ErrCodeTemplateFailed, "execute template "+name, err)
	}
	return buf.String(), nil
}

// RenderFactura renders an invoice document to HTML
func (e *TemplateEngine) RenderFactura(doc *FacturaDocument) (string, error) {
	return e.Render(TemplateFactura, doc)
}

// RenderPresupuesto renders a budget document to HTML
func (e *TemplateEngine) RenderPresupuesto(doc *PresupuestoDocument) (string, error) {
	return e.Render(TemplatePresupuesto, doc)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func defaultString(def string, v any) string {
	switch val := v.(type) {
	case nil:
		return def
	case string:
		if strings.TrimSpace(val) == "" {
			return def
		}
		return val
	case decimal.Decimal:
		if val.IsZero() {
			return def
		}
		return val.String()
	default:
		s := fmt.Sprint(val)
		if s == "" {
			return def
		}
		return s
	}
}

// nl2br escapes s and keeps its line breaks
func nl2br(s string) template.HTML {
	escaped := template.HTMLEscapeString(s)
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
}

func dict(values ...any) (map[string]any, error) {
	if len(values)%2 != 0 {
		return nil, fmt.Errorf("dict expects key/value pairs")
	}
	m := make(map[string]any, len(values)/2)
	for i := 0; i < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict key %v is not a string", values[i])
		}
		m[key] = values[i+1]
	}
	return m, nil
}
