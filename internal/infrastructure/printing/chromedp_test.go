package printing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgi/backend/internal/infrastructure/config"
)

func TestNewChromedpRenderer_Defaults(t *testing.T) {
	r, err := NewChromedpRenderer(config.PrintingConfig{}, nil)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, defaultRenderTimeout, r.timeout)
	assert.Equal(t, PaperSizeA4, r.PaperSize())
	assert.False(t, r.remote)
}

func TestNewChromedpRenderer_Config(t *testing.T) {
	r, err := NewChromedpRenderer(config.PrintingConfig{
		ChromeURL:      "ws://chrome:9222",
		RenderTimeout:  5 * time.Second,
		PaperSize:      "letter",
		MaxConcurrency: 4,
	}, nil)
	require.NoError(t, err)
	defer r.Close()

	assert.True(t, r.remote)
	assert.Equal(t, 5*time.Second, r.timeout)
	assert.Equal(t, PaperSizeLetter, r.PaperSize())
}

func TestNewChromedpRenderer_InvalidPaper(t *testing.T) {
	_, err := NewChromedpRenderer(config.PrintingConfig{PaperSize: "A3"}, nil)

	var renderErr *RenderError
	require.True(t, errors.As(err, &renderErr))
	assert.Equal(t, ErrCodeInvalidPaperSize, renderErr.Code)
}

func TestChromedpRenderer_RejectsInvalidRequests(t *testing.T) {
	r, err := NewChromedpRenderer(config.PrintingConfig{}, nil)
	require.NoError(t, err)
	defer r.Close()

	tests := []struct {
		name string
		req  *RenderRequest
		code string
	}{
		{"nil request", nil, ErrCodeInvalidHTML},
		{"empty html", &RenderRequest{HTML: "  "}, ErrCodeInvalidHTML},
		{"bad paper", &RenderRequest{HTML: "<p>x</p>", PaperSize: "A0"}, ErrCodeInvalidPaperSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Render(context.Background(), tt.req)

			var renderErr *RenderError
			require.True(t, errors.As(err, &renderErr))
			assert.Equal(t, tt.code, renderErr.Code)
		})
	}
}

func TestBuildPrintParams(t *testing.T) {
	t.Run("A4 with default margins", func(t *testing.T) {
		params := buildPrintParams(&RenderRequest{HTML: "<p>x</p>"}, PaperSizeA4)

		assert.InDelta(t, 8.27, params.paperWidth, 0.01)
		assert.InDelta(t, 11.69, params.paperHeight, 0.01)
		assert.InDelta(t, mmToInches(10), params.marginTop, 0.001)
		assert.False(t, params.landscape)
	})

	t.Run("legal landscape", func(t *testing.T) {
		params := buildPrintParams(&RenderRequest{
			HTML:      "<p>x</p>",
			Landscape: true,
			Margins:   Margins{Top: 5, Right: 5, Bottom: 5, Left: 5},
		}, PaperSizeLegal)

		assert.InDelta(t, 14.0, params.paperHeight, 0.01)
		assert.InDelta(t, mmToInches(5), params.marginLeft, 0.001)
		assert.True(t, params.landscape)
	})
}

func TestParsePaperSize(t *testing.T) {
	assert.Equal(t, PaperSizeLegal, ParsePaperSize(" legal "))
	assert.Equal(t, PaperSizeA4, ParsePaperSize(""))
	assert.Equal(t, PaperSizeA4, ParsePaperSize("tabloid"))
}

func TestEstimatePageCount(t *testing.T) {
	pdf := []byte("<< /Type /Pages /Count 2 >> << /Type /Page >> << /Type /Page >>")
	assert.Equal(t, 2, estimatePageCount(pdf))
	assert.Equal(t, 1, estimatePageCount([]byte("%PDF-1.4")))
}

func TestRenderError(t *testing.T) {
	cause := errors.New("boom")
	err := NewRenderError(ErrCodeRenderFailed, "chromedp execution failed", cause)

	assert.Equal(t, "chromedp execution failed: boom", err.Error())
	assert.ErrorIs(t, err, cause)
}
