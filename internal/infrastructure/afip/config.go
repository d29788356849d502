package afip

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"regexp"
	"time"

	infraconfig "github.com/sgi/backend/internal/infrastructure/config"
)

// Environments
const (
	EnvHomologacion = "homologacion"
	EnvProduccion   = "produccion"
	ModeMock        = "mock"
)

const (
	wsaaHomologacionURL = "https://wsaahomo.afip.gov.ar/ws/services/LoginCms"
	wsaaProduccionURL   = "https://wsaa.afip.gov.ar/ws/services/LoginCms"
	wsfeHomologacionURL = "https://wswhomo.afip.gov.ar/wsfev1/service.asmx"
	wsfeProduccionURL   = "https://servicios1.afip.gov.ar/wsfev1/service.asmx"

	defaultService = "wsfe"
	defaultTimeout = 30 * time.Second
)

var cuitPattern = regexp.MustCompile(`^\d{11}$`)

// Config holds everything the SOAP clients need
type Config struct {
	Environment string
	CUIT        string
	Certificate *x509.Certificate
	PrivateKey  *rsa.PrivateKey
	WSAAURL     string
	WSFEURL     string
	Service     string
	Timeout     time.Duration
}

// Validate checks the configuration and fills endpoint defaults
func (c *Config) Validate() error {
	switch c.Environment {
	case "":
		c.Environment = EnvHomologacion
	case EnvHomologacion, EnvProduccion:
	default:
		return ErrInvalidEnvironment
	}
	if !cuitPattern.MatchString(c.CUIT) {
		return ErrMissingCUIT
	}
	if c.Certificate == nil {
		return ErrMissingCertificate
	}
	if c.PrivateKey == nil {
		return ErrMissingPrivateKey
	}
	if c.WSAAURL == "" {
		c.WSAAURL = wsaaHomologacionURL
		if c.Environment == EnvProduccion {
			c.WSAAURL = wsaaProduccionURL
		}
	}
	if c.WSFEURL == "" {
		c.WSFEURL = wsfeHomologacionURL
		if c.Environment == EnvProduccion {
			c.WSFEURL = wsfeProduccionURL
		}
	}
	if c.Service == "" {
		c.Service = defaultService
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return nil
}

// ConfigFromSettings loads the certificate and key files named in the
// application settings
func ConfigFromSettings(s *infraconfig.AFIPConfig) (*Config, error) {
	if s.CertPath == "" || s.KeyPath == "" {
		return nil, ErrNotConfigured
	}
	certPEM, err := os.ReadFile(s.CertPath)
	if err != nil {
		return nil, fmt.Errorf("afip: failed to read certificate file: %w", err)
	}
	keyPEM, err := os.ReadFile(s.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("afip: failed to read private key file: %w", err)
	}

	cert, err := ParseCertificate(certPEM)
	if err != nil {
		return nil, err
	}
	key, err := ParsePrivateKey(keyPEM)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment: s.Environment,
		CUIT:        s.CUIT,
		Certificate: cert,
		PrivateKey:  key,
		WSAAURL:     s.WSAAURL,
		WSFEURL:     s.WSFEURL,
		Service:     s.TicketService,
		Timeout:     s.Timeout,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseCertificate decodes a PEM encoded X.509 certificate
func ParseCertificate(data []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidCertificate
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
	}
	return cert, nil
}

// ParsePrivateKey decodes a PEM encoded RSA key in PKCS#8 or PKCS#1 form
func ParsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidPrivateKey
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, ErrInvalidPrivateKey
		}
		return rsaKey, nil
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	return key, nil
}
