package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"

	"github.com/sgi/backend/internal/interfaces/http/dto"
)

var htmlTagPattern = regexp.MustCompile(`<!--[\s\S]*?-->|</?[a-zA-Z][^<>]*>`)

// secretFields reach bcrypt verbatim
var secretFields = map[string]bool{
	"password":         true,
	"old_password":     true,
	"current_password": true,
	"new_password":     true,
}

// SanitizeString trims s, drops control characters other than newline and
// tab, and removes anything that looks like an HTML tag
func SanitizeString(s string) string {
	if s == "" {
		return s
	}
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = htmlTagPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Sanitize cleans query values and the string fields of JSON bodies before
// they reach binding. Multipart uploads and other bodies pass untouched.
func Sanitize() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.RawQuery != "" {
			query := c.Request.URL.Query()
			for key, values := range query {
				for i, v := range values {
					values[i] = SanitizeString(v)
				}
				query[key] = values
			}
			c.Request.URL.RawQuery = query.Encode()
		}

		if c.Request.Body != nil && c.Request.Body != http.NoBody && isJSONRequest(c) {
			if err := sanitizeJSONBody(c.Request); err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
						dto.ErrCodePayloadTooLarge, "El cuerpo de la solicitud excede el tamaño permitido", c.GetString(RequestIDKey)))
					return
				}
				c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
					dto.ErrCodeInvalidJSON, "El cuerpo no es un JSON válido", c.GetString(RequestIDKey)))
				return
			}
		}

		c.Next()
	}
}

func isJSONRequest(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "application/json")
}

func sanitizeJSONBody(r *http.Request) error {
	raw, err := io.ReadAll(r.Body)
	_ = r.Body.Close()
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		r.Body = io.NopCloser(bytes.NewReader(raw))
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return err
	}

	cleaned, err := json.Marshal(sanitizeValue(payload))
	if err != nil {
		return err
	}
	r.Body = io.NopCloser(bytes.NewReader(cleaned))
	r.ContentLength = int64(len(cleaned))
	return nil
}

func sanitizeValue(v any) any {
	switch val := v.(type) {
	case string:
		return SanitizeString(val)
	case map[string]any:
		for k, item := range val {
			if secretFields[k] {
				continue
			}
			val[k] = sanitizeValue(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = sanitizeValue(item)
		}
		return val
	default:
		return v
	}
}
