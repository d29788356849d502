package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sgi/backend/internal/application/printing"
)

// DocumentRenderer renders printable facturas and presupuestos
type DocumentRenderer interface {
	PDFEnabled() bool
	FacturaHTML(ctx context.Context, id int64) (string, error)
	FacturaPDF(ctx context.Context, id int64) (*printing.Document, error)
	FacturaDownload(ctx context.Context, id int64) (*printing.DownloadResponse, error)
	PresupuestoHTML(ctx context.Context, id int64) (string, error)
	PresupuestoPDF(ctx context.Context, id int64) (*printing.Document, error)
}

// writeHTML serves a rendered document page
func writeHTML(c *gin.Context, html string) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// writeDocument serves a PDF. download=true forces an attachment, otherwise
// the browser is asked to show it inline.
func writeDocument(c *gin.Context, doc *printing.Document, download bool) {
	disposition := "inline"
	if download {
		disposition = "attachment"
	}
	contentType := doc.ContentType
	if contentType == "" {
		contentType = printing.PDFContentType
	}
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, strings.ReplaceAll(doc.Filename, `"`, "")))
	c.Header("Cache-Control", "private, no-store")
	if doc.Archived {
		c.Header("X-Document-Source", "archive")
	}
	c.Data(http.StatusOK, contentType, doc.Data)
}
