package afip

import (
	"errors"
	"fmt"
)

// Configuration errors
var (
	ErrMissingCUIT        = errors.New("afip: missing emitter CUIT")
	ErrMissingCertificate = errors.New("afip: missing certificate")
	ErrMissingPrivateKey  = errors.New("afip: missing private key")
	ErrInvalidCertificate = errors.New("afip: invalid certificate format")
	ErrInvalidPrivateKey  = errors.New("afip: invalid private key format")
	ErrInvalidEnvironment = errors.New("afip: environment must be homologacion or produccion")
	ErrNotConfigured      = errors.New("afip: credentials not configured")
)

// Error is a coded failure reported by an AFIP service, either a SOAP fault
// or an entry of the Errors list of a WSFE response
type Error struct {
	Op      string
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("afip: %s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("afip: %s: %s - %s", e.Op, e.Code, e.Message)
}

// IsError reports whether err carries an AFIP service error and returns it
func IsError(err error) (*Error, bool) {
	var afipErr *Error
	if errors.As(err, &afipErr) {
		return afipErr, true
	}
	return nil, false
}
