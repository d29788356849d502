package afip

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sgi/backend/internal/domain/factura"
	infraconfig "github.com/sgi/backend/internal/infrastructure/config"
)

// New builds the authorizer selected by the settings. Mock mode is used when
// requested, or when credentials are missing and the fallback is enabled.
func New(s *infraconfig.AFIPConfig, logger *zap.Logger) (factura.Authorizer, error) {
	if s.Mock {
		logger.Info("AFIP running in mock mode")
		return NewMockAuthorizer(), nil
	}

	cfg, err := ConfigFromSettings(s)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) && s.MockFallback {
			logger.Warn("AFIP credentials not configured, falling back to mock mode")
			return NewMockAuthorizer(), nil
		}
		return nil, err
	}
	return NewClient(cfg, logger), nil
}

// NewClient wires the WSAA and WSFE clients for a validated configuration
func NewClient(cfg *Config, logger *zap.Logger) *WSFE {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	wsaa := NewWSAA(cfg, httpClient, logger.Named("wsaa"))
	logger.Info("AFIP client configured",
		zap.String("environment", cfg.Environment),
		zap.String("wsfe_url", cfg.WSFEURL),
	)
	return NewWSFE(cfg, wsaa, httpClient, logger.Named("wsfe"))
}
