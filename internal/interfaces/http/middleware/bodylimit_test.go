package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgi/backend/internal/interfaces/http/dto"
)

func newBodyLimitRouter(limit int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), BodyLimit(limit))
	echo := func(c *gin.Context) {
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusBadRequest, "truncated")
			return
		}
		c.String(http.StatusOK, "%d", len(raw))
	}
	r.POST("/api/v1/clientes", echo)
	r.POST("/api/v1/clientes/import", echo)
	r.GET("/api/v1/clientes", echo)
	return r
}

func TestBodyLimit(t *testing.T) {
	cliente := `{"razon_social":"Constructora Sur SA","cuit":"30-71234567-1","condicion_iva":"RI"}`

	t.Run("cliente payload within the limit", func(t *testing.T) {
		r := newBodyLimitRouter(1 << 10)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/clientes", strings.NewReader(cliente))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "82", w.Body.String())
	})

	t.Run("declared length over the limit", func(t *testing.T) {
		r := newBodyLimitRouter(1 << 10)
		csv := strings.Repeat("20123456786;Juan Perez;CF\n", 100)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/clientes/import", strings.NewReader(csv))
		req.Header.Set(RequestIDHeader, "req-import-1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodePayloadTooLarge, resp.Error.Code)
		assert.Equal(t, "req-import-1", resp.Error.RequestID)
		assert.Equal(t, "Tamaño máximo permitido: 1 KB", resp.Error.Help)
	})

	t.Run("undeclared length is capped while reading", func(t *testing.T) {
		r := newBodyLimitRouter(64)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/clientes", strings.NewReader(cliente))
		req.ContentLength = -1
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "truncated", w.Body.String())
	})

	t.Run("listing requests are not limited", func(t *testing.T) {
		r := newBodyLimitRouter(8)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/clientes", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestHumanBytes(t *testing.T) {
	assert.Equal(t, "10 MB", humanBytes(10<<20))
	assert.Equal(t, "512 KB", humanBytes(512<<10))
	assert.Equal(t, "1500 bytes", humanBytes(1500))
}
