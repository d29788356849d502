// Package views renders the server-side HTML pages served under /app.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/sgi/backend/internal/infrastructure/printing"
)

//go:embed templates
var templateFS embed.FS

// Renderer holds one template set per page, each sharing the layout
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses the layout and every page template
func NewRenderer(formatter *printing.Formatter) (*Renderer, error) {
	return newRenderer(templateFS, formatter)
}

func newRenderer(fsys fs.FS, formatter *printing.Formatter) (*Renderer, error) {
	if formatter == nil {
		formatter = printing.NewFormatter(printing.Locale, nil)
	}
	funcs := printing.FuncMap(formatter)
	funcs["statusClass"] = statusClass
	funcs["query"] = queryWith

	base, err := template.New("views").Funcs(funcs).ParseFS(fsys, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	files, err := fs.Glob(fsys, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: make(map[string]*template.Template, len(files))}
	for _, file := range files {
		tmpl, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := tmpl.ParseFS(fsys, file); err != nil {
			return nil, fmt.Errorf("parse page %s: %w", file, err)
		}
		r.pages[strings.TrimSuffix(path.Base(file), ".html")] = tmpl
	}
	return r, nil
}

// Has reports whether a page template exists
func (r *Renderer) Has(page string) bool {
	_, ok := r.pages[page]
	return ok
}

// Render writes the named page wrapped in the layout. The page is executed
// into a buffer first so a failing template never produces a partial body.
func (r *Renderer) Render(w io.Writer, page string, data *Page) error {
	tmpl, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render page %s: %w", page, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Page is the data every template receives
type Page struct {
	Title   string
	Section string
	User    string
	Query   url.Values
	Pager   *Pager
	Error   string
	Data    any
}

// Pager describes the position of a list page
type Pager struct {
	Page     int
	PageSize int
	Total    int64
	Pages    int
}

// NewPager computes the page count for total rows
func NewPager(page, pageSize int, total int64) *Pager {
	pages := 1
	if pageSize > 0 && total > 0 {
		pages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return &Pager{Page: page, PageSize: pageSize, Total: total, Pages: pages}
}

// HasPrev reports whether there is a previous page
func (p *Pager) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether there is a next page
func (p *Pager) HasNext() bool { return p.Page < p.Pages }

// Prev returns the previous page number
func (p *Pager) Prev() int { return p.Page - 1 }

// Next returns the next page number
func (p *Pager) Next() int { return p.Page + 1 }

// queryWith returns the encoded query with page replaced
func queryWith(q url.Values, page int) string {
	out := url.Values{}
	for k, v := range q {
		out[k] = append([]string(nil), v...)
	}
	out.Set("page", strconv.Itoa(page))
	return "?" + out.Encode()
}

// statusClass maps a status to the badge color used by the stylesheet
func statusClass(status string) string {
	switch status {
	case "ACTIVO", "APROBADO", "AUTORIZADA", "PAGADA", "FINALIZADO", "GANADO", "FACTURADO":
		return "ok"
	case "ENVIADO", "EN_CURSO", "PENDIENTE_CAE", "CONTACTADO", "CALIFICADO", "PROPUESTA":
		return "info"
	case "RECHAZADO", "RECHAZADA", "ANULADA", "ANULADO", "CANCELADO", "PERDIDO", "VENCIDO", "INACTIVO":
		return "bad"
	default:
		return "muted"
	}
}
