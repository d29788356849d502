package afip

import (
	"crypto/x509"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infraconfig "github.com/sgi/backend/internal/infrastructure/config"
)

func TestConfig_Validate(t *testing.T) {
	cert, key := generateTestCredentials(t)

	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{"valid", Config{CUIT: testCUIT, Certificate: cert, PrivateKey: key}, nil},
		{"invalid environment", Config{Environment: "staging", CUIT: testCUIT, Certificate: cert, PrivateKey: key}, ErrInvalidEnvironment},
		{"missing cuit", Config{Certificate: cert, PrivateKey: key}, ErrMissingCUIT},
		{"short cuit", Config{CUIT: "3071234567", Certificate: cert, PrivateKey: key}, ErrMissingCUIT},
		{"missing certificate", Config{CUIT: testCUIT, PrivateKey: key}, ErrMissingCertificate},
		{"missing key", Config{CUIT: testCUIT, Certificate: cert}, ErrMissingPrivateKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConfig_Validate_Endpoints(t *testing.T) {
	cert, key := generateTestCredentials(t)

	homo := Config{CUIT: testCUIT, Certificate: cert, PrivateKey: key}
	require.NoError(t, homo.Validate())
	assert.Equal(t, EnvHomologacion, homo.Environment)
	assert.Equal(t, wsaaHomologacionURL, homo.WSAAURL)
	assert.Equal(t, wsfeHomologacionURL, homo.WSFEURL)
	assert.Equal(t, "wsfe", homo.Service)
	assert.Equal(t, defaultTimeout, homo.Timeout)

	prod := Config{Environment: EnvProduccion, CUIT: testCUIT, Certificate: cert, PrivateKey: key}
	require.NoError(t, prod.Validate())
	assert.Equal(t, wsaaProduccionURL, prod.WSAAURL)
	assert.Equal(t, wsfeProduccionURL, prod.WSFEURL)

	custom := Config{CUIT: testCUIT, Certificate: cert, PrivateKey: key, WSFEURL: "http://localhost/wsfe"}
	require.NoError(t, custom.Validate())
	assert.Equal(t, "http://localhost/wsfe", custom.WSFEURL)
}

func TestParsePrivateKey(t *testing.T) {
	_, key := generateTestCredentials(t)

	pkcs8, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	parsed, err := ParsePrivateKey(pemEncode("PRIVATE KEY", pkcs8))
	require.NoError(t, err)
	assert.True(t, key.Equal(parsed))

	parsed, err = ParsePrivateKey(pemEncode("RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(key)))
	require.NoError(t, err)
	assert.True(t, key.Equal(parsed))

	_, err = ParsePrivateKey([]byte("not pem"))
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)

	_, err = ParsePrivateKey(pemEncode("PRIVATE KEY", []byte("garbage")))
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)
}

func TestParseCertificate(t *testing.T) {
	cert, _ := generateTestCredentials(t)

	parsed, err := ParseCertificate(pemEncode("CERTIFICATE", cert.Raw))
	require.NoError(t, err)
	assert.Equal(t, cert.SerialNumber, parsed.SerialNumber)

	_, err = ParseCertificate([]byte("-----"))
	assert.ErrorIs(t, err, ErrInvalidCertificate)
}

func TestConfigFromSettings(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		_, err := ConfigFromSettings(&infraconfig.AFIPConfig{CUIT: testCUIT})
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("loads files", func(t *testing.T) {
		cert, key := generateTestCredentials(t)
		dir := t.TempDir()
		certPath := filepath.Join(dir, "cert.crt")
		keyPath := filepath.Join(dir, "key.pem")
		require.NoError(t, os.WriteFile(certPath, pemEncode("CERTIFICATE", cert.Raw), 0o600))
		require.NoError(t, os.WriteFile(keyPath, pemEncode("RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(key)), 0o600))

		cfg, err := ConfigFromSettings(&infraconfig.AFIPConfig{
			Environment: EnvProduccion,
			CUIT:        testCUIT,
			CertPath:    certPath,
			KeyPath:     keyPath,
			PointOfSale: 3,
		})

		require.NoError(t, err)
		assert.Equal(t, wsfeProduccionURL, cfg.WSFEURL)
		assert.True(t, key.Equal(cfg.PrivateKey))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ConfigFromSettings(&infraconfig.AFIPConfig{
			CUIT:     testCUIT,
			CertPath: "/nonexistent/cert.crt",
			KeyPath:  "/nonexistent/key.pem",
		})
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotConfigured)
	})
}
