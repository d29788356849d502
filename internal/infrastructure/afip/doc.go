// Package afip talks to the AFIP electronic invoicing web services.
//
// WSAA issues access tickets in exchange for a CMS signed ticket request.
// WSFEv1 answers service status, last authorized numbers and CAE requests.
// Both are SOAP services; requests are rendered from templates and responses
// decoded with encoding/xml. A deterministic mock implements the same
// factura.Authorizer contract for development and tests.
package afip
