package afip

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"encoding/xml"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testCUIT = "30712345671"

func generateTestCredentials(t *testing.T) (*x509.Certificate, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "sgi-test", SerialNumber: "CUIT " + testCUIT},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert, key
}

func pemEncode(blockType string, der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
}

func newTestConfig(t *testing.T, baseURL string) *Config {
	t.Helper()
	cert, key := generateTestCredentials(t)
	cfg := &Config{
		CUIT:        testCUIT,
		Certificate: cert,
		PrivateKey:  key,
		WSAAURL:     baseURL + "/wsaa",
		WSFEURL:     baseURL + "/wsfe",
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func soapResponse(body string) string {
	return `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>` + body + `</soap:Body></soap:Envelope>`
}

func soapFaultResponse(code, msg string) string {
	return soapResponse(`<soapenv:Fault xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/"><faultcode xmlns:ns1="http://xml.apache.org/axis/">` +
		code + `</faultcode><faultstring>` + msg + `</faultstring></soapenv:Fault>`)
}

func loginResponse(token, sign string, expires time.Time) string {
	ltr := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<loginTicketResponse version="1.0"><header><source>CN=wsaahomo</source><destination>SERIALNUMBER=CUIT %s</destination>`+
		`<uniqueId>1</uniqueId><generationTime>%s</generationTime><expirationTime>%s</expirationTime></header>`+
		`<credentials><token>%s</token><sign>%s</sign></credentials></loginTicketResponse>`,
		testCUIT, time.Now().Format(time.RFC3339), expires.Format("2006-01-02T15:04:05.000-07:00"), token, sign)
	var escaped strings.Builder
	_ = xml.EscapeText(&escaped, []byte(ltr))
	return soapResponse(`<ns1:loginCmsResponse xmlns:ns1="http://wsaa.view.sua.dvadac.desein.afip.gov"><loginCmsReturn>` +
		escaped.String() + `</loginCmsReturn></ns1:loginCmsResponse>`)
}

// fakeAFIP serves WSAA on /wsaa and WSFE on /wsfe, answering WSFE by SOAPAction
type fakeAFIP struct {
	server   *httptest.Server
	logins   atomic.Int32
	mu       sync.Mutex
	requests map[string]string
	wsfe     map[string]func(body string) string
	wsaa     func() string
}

func newFakeAFIP(t *testing.T) *fakeAFIP {
	t.Helper()
	f := &fakeAFIP{
		requests: make(map[string]string),
		wsfe:     make(map[string]func(string) string),
		wsaa: func() string {
			return loginResponse("TOKEN", "SIGN+/=", time.Now().Add(12*time.Hour))
		},
	}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		switch r.URL.Path {
		case "/wsaa":
			f.logins.Add(1)
			f.record("loginCms", string(raw))
			_, _ = io.WriteString(w, f.wsaa())
		case "/wsfe":
			op := strings.TrimPrefix(r.Header.Get("SOAPAction"), wsfeNamespace)
			f.record(op, string(raw))
			handler, ok := f.wsfe[op]
			if !ok {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = io.WriteString(w, soapFaultResponse("soap:Server", "unexpected "+op))
				return
			}
			_, _ = io.WriteString(w, handler(string(raw)))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeAFIP) client(t *testing.T) *WSFE {
	return NewClient(newTestConfig(t, f.server.URL), zap.NewNop())
}

func (f *fakeAFIP) record(op, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests[op] = body
}

func (f *fakeAFIP) request(op string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[op]
}
