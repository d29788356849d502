package afip

import (
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"text/template"
	"time"

	"go.mozilla.org/pkcs7"
	"go.uber.org/zap"
)

const (
	// ticketRenewMargin renews a ticket this long before it expires
	ticketRenewMargin = 10 * time.Minute
	// traLifetime is the validity window requested in the ticket request
	traLifetime   = 10 * time.Minute
	traTimeLayout = "2006-01-02T15:04:05-07:00"
)

var loginCmsTemplate = template.Must(template.New("loginCms").Funcs(templateFuncs).Parse(
	`<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:wsaa="http://wsaa.view.sua.dvadac.desein.afip.gov">
<soapenv:Header/>
<soapenv:Body>
<wsaa:loginCms><wsaa:in0>{{.}}</wsaa:in0></wsaa:loginCms>
</soapenv:Body>
</soapenv:Envelope>`))

// Ticket is a WSAA access ticket
type Ticket struct {
	Token          string
	Sign           string
	GenerationTime time.Time
	ExpirationTime time.Time
}

// Valid reports whether the ticket can still be used at now
func (t *Ticket) Valid(now time.Time) bool {
	return t != nil && t.Token != "" && now.Add(ticketRenewMargin).Before(t.ExpirationTime)
}

type loginTicketRequest struct {
	XMLName xml.Name `xml:"loginTicketRequest"`
	Version string   `xml:"version,attr"`
	Header  struct {
		UniqueID       int64  `xml:"uniqueId"`
		GenerationTime string `xml:"generationTime"`
		ExpirationTime string `xml:"expirationTime"`
	} `xml:"header"`
	Service string `xml:"service"`
}

type loginTicketResponse struct {
	Header struct {
		GenerationTime string `xml:"generationTime"`
		ExpirationTime string `xml:"expirationTime"`
	} `xml:"header"`
	Credentials struct {
		Token string `xml:"token"`
		Sign  string `xml:"sign"`
	} `xml:"credentials"`
}

type loginCmsResponse struct {
	Return string `xml:"loginCmsReturn"`
}

// WSAA obtains and caches access tickets for one service
type WSAA struct {
	cfg    *Config
	soap   *soapClient
	logger *zap.Logger
	now    func() time.Time

	mu     sync.Mutex
	ticket *Ticket
}

// NewWSAA creates a WSAA client for a validated configuration
func NewWSAA(cfg *Config, httpClient *http.Client, logger *zap.Logger) *WSAA {
	return &WSAA{
		cfg:    cfg,
		soap:   &soapClient{url: cfg.WSAAURL, httpClient: httpClient},
		logger: logger,
		now:    time.Now,
	}
}

// Ticket returns a cached ticket or logs in again when it is about to expire
func (w *WSAA) Ticket(ctx context.Context) (*Ticket, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.ticket.Valid(w.now()) {
		return w.ticket, nil
	}

	ticket, err := w.login(ctx)
	if err != nil {
		return nil, err
	}
	w.ticket = ticket
	w.logger.Info("AFIP access ticket obtained",
		zap.String("service", w.cfg.Service),
		zap.Time("expires_at", ticket.ExpirationTime),
	)
	return ticket, nil
}

// Invalidate drops the cached ticket so the next call logs in again
func (w *WSAA) Invalidate() {
	w.mu.Lock()
	w.ticket = nil
	w.mu.Unlock()
}

func (w *WSAA) login(ctx context.Context) (*Ticket, error) {
	tra, err := w.buildTRA(w.now())
	if err != nil {
		return nil, err
	}
	cms, err := signTRA(tra, w.cfg)
	if err != nil {
		return nil, err
	}

	var resp loginCmsResponse
	if err := call(ctx, w.soap, "loginCms", "", loginCmsTemplate, base64.StdEncoding.EncodeToString(cms), &resp); err != nil {
		return nil, err
	}
	return parseLoginTicket(resp.Return)
}

func (w *WSAA) buildTRA(now time.Time) ([]byte, error) {
	var tra loginTicketRequest
	tra.Version = "1.0"
	tra.Header.UniqueID = now.Unix()
	tra.Header.GenerationTime = now.Add(-traLifetime).Format(traTimeLayout)
	tra.Header.ExpirationTime = now.Add(traLifetime).Format(traTimeLayout)
	tra.Service = w.cfg.Service

	out, err := xml.Marshal(tra)
	if err != nil {
		return nil, fmt.Errorf("afip: failed to build ticket request: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// signTRA wraps the ticket request in a CMS SignedData with the content attached
func signTRA(tra []byte, cfg *Config) ([]byte, error) {
	sd, err := pkcs7.NewSignedData(tra)
	if err != nil {
		return nil, fmt.Errorf("afip: failed to create signed data: %w", err)
	}
	if err := sd.AddSigner(cfg.Certificate, cfg.PrivateKey, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, fmt.Errorf("afip: failed to sign ticket request: %w", err)
	}
	der, err := sd.Finish()
	if err != nil {
		return nil, fmt.Errorf("afip: failed to encode signed data: %w", err)
	}
	return der, nil
}

// parseLoginTicket decodes the loginTicketResponse document that WSAA returns
// escaped inside loginCmsReturn
func parseLoginTicket(doc string) (*Ticket, error) {
	var ltr loginTicketResponse
	if err := xml.Unmarshal([]byte(strings.TrimSpace(doc)), &ltr); err != nil {
		return nil, fmt.Errorf("afip: failed to parse login ticket: %w", err)
	}
	if ltr.Credentials.Token == "" || ltr.Credentials.Sign == "" {
		return nil, &Error{Op: "loginCms", Message: "login ticket without credentials"}
	}

	expires, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(ltr.Header.ExpirationTime))
	if err != nil {
		return nil, fmt.Errorf("afip: invalid ticket expiration %q: %w", ltr.Header.ExpirationTime, err)
	}
	generated, _ := time.Parse(time.RFC3339Nano, strings.TrimSpace(ltr.Header.GenerationTime))

	return &Ticket{
		Token:          ltr.Credentials.Token,
		Sign:           ltr.Credentials.Sign,
		GenerationTime: generated,
		ExpirationTime: expires,
	}, nil
}
