// Package printing turns facturas and presupuestos into printable documents.
//
// Rendering happens in two steps. The TemplateEngine executes one of the
// embedded html/template layouts against a document view model
// (FacturaDocument, PresupuestoDocument), formatting amounts, dates and CUITs
// the way they are printed in Argentina. The resulting HTML is then handed
// to a PDFRenderer; the ChromedpRenderer drives a headless Chrome (local or
// remote) through the DevTools protocol and returns the PDF bytes.
//
// Authorized invoices carry the AFIP QR code payload required by RG 4892,
// built by FacturaDocument.QRURL.
package printing
