package printing

import "time"

// PDFContentType is the MIME type of rendered documents
const PDFContentType = "application/pdf"

// Document is a rendered PDF ready to be served
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
	// Archived is true when the bytes came from or were written to object storage
	Archived bool
}

// DownloadResponse carries a presigned link to an archived factura PDF
type DownloadResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
	Filename  string    `json:"filename"`
}
