package factura

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ErrAuthorizerUnavailable is returned when the tax authority cannot be
// reached. Invoices hit by it stay in PENDIENTE_CAE for a later retry.
var ErrAuthorizerUnavailable = errors.New("servicio de autorización no disponible")

// AuthorizationRequest carries the data AFIP needs to issue a CAE
type AuthorizationRequest struct {
	PointOfSale int
	Type        Type
	Concept     Concept
	DocType     int
	DocNumber   string
	IssueDate   time.Time
	ServiceFrom *time.Time
	ServiceTo   *time.Time
	DueDate     *time.Time
	Net         decimal.Decimal
	Exempt      decimal.Decimal
	IVARate     decimal.Decimal
	IVAAmount   decimal.Decimal
	Total       decimal.Decimal
	Currency    string
}

// NewAuthorizationRequest builds the request for a factura and its receiver document
func NewAuthorizationRequest(f *Factura, docType int, docNumber string) AuthorizationRequest {
	return AuthorizationRequest{
		PointOfSale: f.PointOfSale,
		Type:        f.Type,
		Concept:     f.Concept,
		DocType:     docType,
		DocNumber:   docNumber,
		IssueDate:   f.IssueDate,
		ServiceFrom: f.ServiceFrom,
		ServiceTo:   f.ServiceTo,
		DueDate:     f.DueDate,
		Net:         f.Net,
		Exempt:      f.Exempt,
		IVARate:     f.IVARate,
		IVAAmount:   f.IVAAmount,
		Total:       f.Total,
		Currency:    f.Currency,
	}
}

// AuthorizationResult is the answer to a CAE request
type AuthorizationResult struct {
	Number       int64
	CAE          string
	CAEDueDate   time.Time
	Result       string // A approved, R rejected, P partial
	Observations []Message
	Errors       []Message
}

// Message is a coded observation or error returned by AFIP
type Message struct {
	Code    int
	Message string
}

// Approved reports whether AFIP granted the CAE
func (r *AuthorizationResult) Approved() bool {
	return r.Result == "A" && len(r.Errors) == 0
}

// Messages flattens errors and observations into printable strings
func (r *AuthorizationResult) Messages() []string {
	out := make([]string, 0, len(r.Errors)+len(r.Observations))
	for _, m := range r.Errors {
		out = append(out, m.String())
	}
	for _, m := range r.Observations {
		out = append(out, m.String())
	}
	return out
}

func (m Message) String() string {
	if m.Code == 0 {
		return m.Message
	}
	return strconv.Itoa(m.Code) + ": " + m.Message
}

// ServiceStatus reports the health of the AFIP servers
type ServiceStatus struct {
	AppServer  string
	DBServer   string
	AuthServer string
}

// OK reports whether all servers answered OK
func (s ServiceStatus) OK() bool {
	return s.AppServer == "OK" && s.DBServer == "OK" && s.AuthServer == "OK"
}

// Authorizer requests electronic authorization codes from the tax authority
type Authorizer interface {
	// Authorize requests a CAE. The invoice number is the last authorized
	// number for the point of sale and type plus one.
	Authorize(ctx context.Context, req AuthorizationRequest) (*AuthorizationResult, error)

	// LastNumber returns the last authorized number for a point of sale and type
	LastNumber(ctx context.Context, pointOfSale int, typ Type) (int64, error)

	// Status checks the remote service
	Status(ctx context.Context) (ServiceStatus, error)

	// Mode returns "mock", "homologacion" or "produccion"
	Mode() string
}
