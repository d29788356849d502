package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so wrapped copies compare equal
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Recurso no encontrado")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "El recurso ya existe")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Datos de entrada inválidos")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "El recurso fue modificado por otro proceso")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "No autorizado")
	ErrForbidden           = NewDomainError("FORBIDDEN", "Acceso denegado")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operación no permitida en el estado actual")
	ErrHasDependents       = NewDomainError("HAS_DEPENDENTS", "El recurso tiene registros asociados")
	ErrExternalService     = NewDomainError("EXTERNAL_SERVICE", "Error en servicio externo")
)
