package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/sgi/backend/internal/domain/shared"
	"github.com/sgi/backend/internal/interfaces/http/dto"
)

// SetupValidator configures the gin validator: JSON tag names in errors and
// the cuit and dni tags
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	_ = v.RegisterValidation("cuit", func(fl validator.FieldLevel) bool {
		return shared.ValidCUIT(fl.Field().String())
	})
	_ = v.RegisterValidation("dni", func(fl validator.FieldLevel) bool {
		return shared.ValidDNI(fl.Field().String())
	})
}

// FormatValidationErrors formats validation errors into a standard response
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: getValidationMessage(e),
				Code:    e.Tag(),
			})
		}
	}

	return dto.NewValidationErrorResponse("Datos de entrada inválidos", requestID, details)
}

// HandleValidationError writes a 400 response for a failed bind: field
// details for validation errors, ERR_INVALID_JSON for malformed bodies
func HandleValidationError(c *gin.Context, err error) {
	requestID := c.GetString(RequestIDKey)

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr):
		c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse("Datos de entrada inválidos", requestID, []dto.ValidationDetail{{
			Field:   typeErr.Field,
			Message: "Tipo de dato inválido",
			Code:    "type",
		}}))
	case errors.As(err, &syntaxErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		c.JSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(dto.ErrCodeInvalidJSON, "El cuerpo no es un JSON válido", requestID))
	default:
		c.JSON(http.StatusBadRequest, FormatValidationErrors(err, requestID))
	}
}

// getValidationMessage returns a human-readable validation message
func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "Campo obligatorio"
	case "email":
		return "Email inválido"
	case "min":
		if e.Kind() == reflect.String {
			return "Debe tener al menos " + e.Param() + " caracteres"
		}
		if e.Kind() == reflect.Slice {
			return "Debe tener al menos " + e.Param() + " elementos"
		}
		return "Debe ser al menos " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Debe tener como máximo " + e.Param() + " caracteres"
		}
		return "Debe ser como máximo " + e.Param()
	case "len":
		return "Debe tener exactamente " + e.Param() + " caracteres"
	case "oneof":
		return "Debe ser uno de: " + e.Param()
	case "gte":
		return "Debe ser mayor o igual a " + e.Param()
	case "lte":
		return "Debe ser menor o igual a " + e.Param()
	case "gt":
		return "Debe ser mayor a " + e.Param()
	case "lt":
		return "Debe ser menor a " + e.Param()
	case "gtfield":
		return "Debe ser posterior a " + e.Param()
	case "numeric":
		return "Debe ser numérico"
	case "cuit":
		return "CUIT inválido"
	case "dni":
		return "DNI inválido"
	case "dive":
		return "Elemento inválido"
	default:
		return "Valor inválido"
	}
}
