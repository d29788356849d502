package afip

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sgi/backend/internal/domain/factura"
)

const (
	wsfeNamespace  = "http://ar.gov.afip.dif.FEV1/"
	afipDateLayout = "20060102"
)

// authExpiredCodes are answered by WSFE when the ticket is no longer accepted
var authExpiredCodes = map[string]bool{"600": true, "601": true, "602": true}

// ivaAlicuotas maps VAT rates to AFIP alícuota ids
var ivaAlicuotas = map[string]int{
	"0":    3,
	"10.5": 4,
	"21":   5,
	"27":   6,
	"5":    8,
	"2.5":  9,
}

const wsfeEnvelopeHead = `<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ar="http://ar.gov.afip.dif.FEV1/">
<soapenv:Header/>
<soapenv:Body>`

const wsfeEnvelopeTail = `
</soapenv:Body>
</soapenv:Envelope>`

const wsfeAuth = `<ar:Auth><ar:Token>{{xml .Auth.Token}}</ar:Token><ar:Sign>{{xml .Auth.Sign}}</ar:Sign><ar:Cuit>{{.Auth.CUIT}}</ar:Cuit></ar:Auth>`

var (
	feDummyTemplate = template.Must(template.New("FEDummy").Funcs(templateFuncs).Parse(
		wsfeEnvelopeHead + `<ar:FEDummy/>` + wsfeEnvelopeTail))

	feCompUltimoAutorizadoTemplate = template.Must(template.New("FECompUltimoAutorizado").Funcs(templateFuncs).Parse(
		wsfeEnvelopeHead + `<ar:FECompUltimoAutorizado>` + wsfeAuth +
			`<ar:PtoVta>{{.PointOfSale}}</ar:PtoVta><ar:CbteTipo>{{.Type}}</ar:CbteTipo></ar:FECompUltimoAutorizado>` +
			wsfeEnvelopeTail))

	feCAESolicitarTemplate = template.Must(template.New("FECAESolicitar").Funcs(templateFuncs).Parse(
		wsfeEnvelopeHead + `<ar:FECAESolicitar>` + wsfeAuth + `
<ar:FeCAEReq>
<ar:FeCabReq><ar:CantReg>1</ar:CantReg><ar:PtoVta>{{.PointOfSale}}</ar:PtoVta><ar:CbteTipo>{{.Type}}</ar:CbteTipo></ar:FeCabReq>
<ar:FeDetReq><ar:FECAEDetRequest>
<ar:Concepto>{{.Concept}}</ar:Concepto>
<ar:DocTipo>{{.DocType}}</ar:DocTipo>
<ar:DocNro>{{.DocNumber}}</ar:DocNro>
<ar:CbteDesde>{{.Number}}</ar:CbteDesde>
<ar:CbteHasta>{{.Number}}</ar:CbteHasta>
<ar:CbteFch>{{.IssueDate}}</ar:CbteFch>
<ar:ImpTotal>{{.Total}}</ar:ImpTotal>
<ar:ImpTotConc>0.00</ar:ImpTotConc>
<ar:ImpNeto>{{.Net}}</ar:ImpNeto>
<ar:ImpOpEx>{{.Exempt}}</ar:ImpOpEx>
<ar:ImpTrib>0.00</ar:ImpTrib>
<ar:ImpIVA>{{.IVAAmount}}</ar:ImpIVA>
{{- if .ServiceFrom}}
<ar:FchServDesde>{{.ServiceFrom}}</ar:FchServDesde>
<ar:FchServHasta>{{.ServiceTo}}</ar:FchServHasta>
<ar:FchVtoPago>{{.DueDate}}</ar:FchVtoPago>
{{- end}}
<ar:MonId>{{xml .Currency}}</ar:MonId>
<ar:MonCotiz>1</ar:MonCotiz>
{{- if .IVA}}
<ar:Iva><ar:AlicIva><ar:Id>{{.IVA.ID}}</ar:Id><ar:BaseImp>{{.IVA.Base}}</ar:BaseImp><ar:Importe>{{.IVA.Amount}}</ar:Importe></ar:AlicIva></ar:Iva>
{{- end}}
</ar:FECAEDetRequest></ar:FeDetReq>
</ar:FeCAEReq>
</ar:FECAESolicitar>` + wsfeEnvelopeTail))
)

type authData struct {
	Token string
	Sign  string
	CUIT  string
}

type lastNumberData struct {
	Auth        authData
	PointOfSale int
	Type        int
}

type alicuotaData struct {
	ID     int
	Base   string
	Amount string
}

type caeRequestData struct {
	Auth        authData
	PointOfSale int
	Type        int
	Concept     int
	DocType     int
	DocNumber   string
	Number      int64
	IssueDate   string
	Total       string
	Net         string
	Exempt      string
	IVAAmount   string
	ServiceFrom string
	ServiceTo   string
	DueDate     string
	Currency    string
	IVA         *alicuotaData
}

type wsfeErr struct {
	Code string `xml:"Code"`
	Msg  string `xml:"Msg"`
}

type feDummyResponse struct {
	Result struct {
		AppServer  string `xml:"AppServer"`
		DbServer   string `xml:"DbServer"`
		AuthServer string `xml:"AuthServer"`
	} `xml:"FEDummyResult"`
}

type feCompUltimoAutorizadoResponse struct {
	Result struct {
		PtoVta   int       `xml:"PtoVta"`
		CbteTipo int       `xml:"CbteTipo"`
		CbteNro  int64     `xml:"CbteNro"`
		Errors   []wsfeErr `xml:"Errors>Err"`
	} `xml:"FECompUltimoAutorizadoResult"`
}

type feCAESolicitarResponse struct {
	Result struct {
		FeCabResp struct {
			Resultado string `xml:"Resultado"`
		} `xml:"FeCabResp"`
		FeDetResp []struct {
			CbteDesde     int64     `xml:"CbteDesde"`
			Resultado     string    `xml:"Resultado"`
			CAE           string    `xml:"CAE"`
			CAEFchVto     string    `xml:"CAEFchVto"`
			Observaciones []wsfeErr `xml:"Observaciones>Obs"`
		} `xml:"FeDetResp>FECAEDetResponse"`
		Errors []wsfeErr `xml:"Errors>Err"`
	} `xml:"FECAESolicitarResult"`
}

// WSFE is the WSFEv1 client. It implements factura.Authorizer.
type WSFE struct {
	cfg    *Config
	wsaa   *WSAA
	soap   *soapClient
	logger *zap.Logger
}

var _ factura.Authorizer = (*WSFE)(nil)

// NewWSFE creates a WSFEv1 client for a validated configuration
func NewWSFE(cfg *Config, wsaa *WSAA, httpClient *http.Client, logger *zap.Logger) *WSFE {
	return &WSFE{
		cfg:    cfg,
		wsaa:   wsaa,
		soap:   &soapClient{url: cfg.WSFEURL, httpClient: httpClient},
		logger: logger,
	}
}

// Mode returns the configured environment
func (c *WSFE) Mode() string {
	return c.cfg.Environment
}

// Status calls FEDummy. It needs no access ticket.
func (c *WSFE) Status(ctx context.Context) (factura.ServiceStatus, error) {
	var resp feDummyResponse
	if err := call(ctx, c.soap, "FEDummy", wsfeNamespace+"FEDummy", feDummyTemplate, nil, &resp); err != nil {
		return factura.ServiceStatus{}, err
	}
	return factura.ServiceStatus{
		AppServer:  resp.Result.AppServer,
		DBServer:   resp.Result.DbServer,
		AuthServer: resp.Result.AuthServer,
	}, nil
}

// LastNumber calls FECompUltimoAutorizado
func (c *WSFE) LastNumber(ctx context.Context, pointOfSale int, typ factura.Type) (int64, error) {
	var n int64
	err := c.withAuth(ctx, func(auth authData) error {
		var resp feCompUltimoAutorizadoResponse
		data := lastNumberData{Auth: auth, PointOfSale: pointOfSale, Type: int(typ)}
		if err := call(ctx, c.soap, "FECompUltimoAutorizado", wsfeNamespace+"FECompUltimoAutorizado",
			feCompUltimoAutorizadoTemplate, data, &resp); err != nil {
			return err
		}
		if len(resp.Result.Errors) > 0 {
			return toError("FECompUltimoAutorizado", resp.Result.Errors)
		}
		n = resp.Result.CbteNro
		return nil
	})
	return n, err
}

// Authorize asks for the next number of the point of sale and type and
// requests its CAE. A rejection is a result, not an error.
func (c *WSFE) Authorize(ctx context.Context, req factura.AuthorizationRequest) (*factura.AuthorizationResult, error) {
	last, err := c.LastNumber(ctx, req.PointOfSale, req.Type)
	if err != nil {
		return nil, err
	}
	number := last + 1

	var result *factura.AuthorizationResult
	err = c.withAuth(ctx, func(auth authData) error {
		data, err := buildCAERequest(auth, req, number)
		if err != nil {
			return err
		}
		var resp feCAESolicitarResponse
		if err := call(ctx, c.soap, "FECAESolicitar", wsfeNamespace+"FECAESolicitar",
			feCAESolicitarTemplate, data, &resp); err != nil {
			return err
		}
		result, err = toResult(resp, number)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("AFIP CAE request answered",
		zap.Int("point_of_sale", req.PointOfSale),
		zap.Int("type", int(req.Type)),
		zap.Int64("number", result.Number),
		zap.String("result", result.Result),
	)
	return result, nil
}

// withAuth runs fn with the current ticket and retries once with a fresh
// ticket when WSFE rejects the credentials
func (c *WSFE) withAuth(ctx context.Context, fn func(authData) error) error {
	for attempt := 0; ; attempt++ {
		ticket, err := c.wsaa.Ticket(ctx)
		if err != nil {
			return err
		}
		err = fn(authData{Token: ticket.Token, Sign: ticket.Sign, CUIT: c.cfg.CUIT})
		if afipErr, ok := IsError(err); ok && authExpiredCodes[afipErr.Code] && attempt == 0 {
			c.logger.Warn("AFIP rejected the access ticket, logging in again", zap.String("code", afipErr.Code))
			c.wsaa.Invalidate()
			continue
		}
		return err
	}
}

func buildCAERequest(auth authData, req factura.AuthorizationRequest, number int64) (*caeRequestData, error) {
	currency := req.Currency
	if currency == "" {
		currency = "PES"
	}
	data := &caeRequestData{
		Auth:        auth,
		PointOfSale: req.PointOfSale,
		Type:        int(req.Type),
		Concept:     int(req.Concept),
		DocType:     req.DocType,
		DocNumber:   docNumber(req.DocNumber),
		Number:      number,
		IssueDate:   req.IssueDate.Format(afipDateLayout),
		Total:       amount(req.Total),
		Net:         amount(req.Net),
		Exempt:      amount(req.Exempt),
		IVAAmount:   amount(req.IVAAmount),
		Currency:    currency,
	}

	if req.Concept != factura.ConceptProductos {
		if req.ServiceFrom == nil || req.ServiceTo == nil || req.DueDate == nil {
			return nil, fmt.Errorf("afip: concept %d requires service period and due date", req.Concept)
		}
		data.ServiceFrom = req.ServiceFrom.Format(afipDateLayout)
		data.ServiceTo = req.ServiceTo.Format(afipDateLayout)
		data.DueDate = req.DueDate.Format(afipDateLayout)
	}

	if req.Type.DiscriminatesIVA() && req.Net.IsPositive() {
		id, ok := ivaAlicuotas[req.IVARate.String()]
		if !ok {
			return nil, fmt.Errorf("afip: unsupported IVA rate %s", req.IVARate)
		}
		data.IVA = &alicuotaData{ID: id, Base: amount(req.Net), Amount: amount(req.IVAAmount)}
	}

	// Factura C carries the whole amount as net and no IVA
	if !req.Type.DiscriminatesIVA() {
		data.Net = amount(req.Total)
		data.Exempt = amount(decimal.Zero)
		data.IVAAmount = amount(decimal.Zero)
	}
	return data, nil
}

func toResult(resp feCAESolicitarResponse, number int64) (*factura.AuthorizationResult, error) {
	r := resp.Result
	if len(r.FeDetResp) == 0 {
		if len(r.Errors) > 0 {
			return nil, toError("FECAESolicitar", r.Errors)
		}
		return nil, &Error{Op: "FECAESolicitar", Message: "empty response"}
	}

	det := r.FeDetResp[0]
	result := &factura.AuthorizationResult{
		Number:       number,
		CAE:          strings.TrimSpace(det.CAE),
		Result:       det.Resultado,
		Observations: toMessages(det.Observaciones),
		Errors:       toMessages(r.Errors),
	}
	if det.CbteDesde > 0 {
		result.Number = det.CbteDesde
	}
	if result.Result == "" {
		result.Result = r.FeCabResp.Resultado
	}
	if det.CAEFchVto != "" {
		due, err := time.Parse(afipDateLayout, det.CAEFchVto)
		if err != nil {
			return nil, fmt.Errorf("afip: invalid CAE due date %q: %w", det.CAEFchVto, err)
		}
		result.CAEDueDate = due
	}
	return result, nil
}

func toError(op string, errs []wsfeErr) *Error {
	e := &Error{Op: op, Code: strings.TrimSpace(errs[0].Code), Message: strings.TrimSpace(errs[0].Msg)}
	for _, extra := range errs[1:] {
		e.Message += "; " + strings.TrimSpace(extra.Code) + " - " + strings.TrimSpace(extra.Msg)
	}
	return e
}

func toMessages(errs []wsfeErr) []factura.Message {
	if len(errs) == 0 {
		return nil
	}
	out := make([]factura.Message, len(errs))
	for i, e := range errs {
		code, _ := strconv.Atoi(strings.TrimSpace(e.Code))
		out[i] = factura.Message{Code: code, Message: strings.TrimSpace(e.Msg)}
	}
	return out
}

func amount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// docNumber returns the receiver document digits or 0 for consumidor final
func docNumber(doc string) string {
	var b strings.Builder
	for _, r := range doc {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "0"
	}
	return b.String()
}
