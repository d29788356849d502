package printing

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sgi/backend/internal/domain/cliente"
	"github.com/sgi/backend/internal/domain/factura"
	"github.com/sgi/backend/internal/domain/presupuesto"
	"github.com/sgi/backend/internal/domain/shared"
	"github.com/sgi/backend/internal/infrastructure/config"
)

// AFIPQRBaseURL is the verification endpoint encoded in invoice QR codes
const AFIPQRBaseURL = "https://www.afip.gob.ar/fe/qr/?p="

var ivaLabels = map[cliente.IVACondition]string{
	cliente.IVAResponsableInscripto: "IVA Responsable Inscripto",
	cliente.IVAMonotributo:          "Responsable Monotributo",
	cliente.IVAExento:               "IVA Sujeto Exento",
	cliente.IVAConsumidorFinal:      "Consumidor Final",
}

var conceptLabels = map[factura.Concept]string{
	factura.ConceptProductos:          "Productos",
	factura.ConceptServicios:          "Servicios",
	factura.ConceptProductosServicios: "Productos y Servicios",
}

// IVALabel returns the printed name of an IVA condition
func IVALabel(c cliente.IVACondition) string {
	if l, ok := ivaLabels[c]; ok {
		return l
	}
	return string(c)
}

// Party is the emitter or receiver block of a document
type Party struct {
	Name          string
	CUIT          string
	DocumentType  int
	Document      string
	IVACondition  string
	Address       string
	IIBB          string
	ActivityStart string
	Phone         string
	Email         string
}

// LineView is a printed item row
type LineView struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
}

// FacturaDocument is the view model of a printed invoice
type FacturaDocument struct {
	Title       string
	Letter      string
	TypeCode    int
	Number      string
	IssueDate   time.Time
	DueDate     *time.Time
	ServiceFrom *time.Time
	ServiceTo   *time.Time
	Concept     string
	Status      string

	Emitter  Party
	Receiver Party
	Items    []LineView

	DiscriminatesIVA bool
	IVARate          decimal.Decimal
	Net              decimal.Decimal
	IVAAmount        decimal.Decimal
	Exempt           decimal.Decimal
	Total            decimal.Decimal
	Currency         string

	CAE        string
	CAEDueDate *time.Time
	QRURL      string
	Notes      string

	pointOfSale int
	number      int64
}

// Authorized reports whether the document carries a CAE
func (d *FacturaDocument) Authorized() bool {
	return d.CAE != ""
}

// CompanyParty builds the emitter block from the company settings
func CompanyParty(c config.CompanyConfig) Party {
	return Party{
		Name:          c.Name,
		CUIT:          c.CUIT,
		DocumentType:  80,
		Document:      c.CUIT,
		IVACondition:  IVALabel(cliente.IVACondition(c.IVACondition)),
		Address:       c.Address,
		IIBB:          c.IIBB,
		ActivityStart: c.ActivityStart,
		Phone:         c.Phone,
		Email:         c.Email,
	}
}

// ClienteParty builds the receiver block of a document
func ClienteParty(c *cliente.Cliente) Party {
	docType, doc := c.DocumentType()
	return Party{
		Name:         c.Name,
		CUIT:         c.CUIT,
		DocumentType: docType,
		Document:     doc,
		IVACondition: IVALabel(c.IVACondition),
		Address:      c.FullAddress(),
		Phone:        c.Phone,
		Email:        c.Email,
	}
}

// NewFacturaDocument assembles the printable view of an invoice
func NewFacturaDocument(f *factura.Factura, c *cliente.Cliente, company config.CompanyConfig) *FacturaDocument {
	doc := &FacturaDocument{
		Title:            f.Title(),
		Letter:           f.Type.Letter(),
		TypeCode:         int(f.Type),
		Number:           f.FullNumber(),
		IssueDate:        f.IssueDate,
		DueDate:          f.DueDate,
		ServiceFrom:      f.ServiceFrom,
		ServiceTo:        f.ServiceTo,
		Concept:          conceptLabels[f.Concept],
		Status:           string(f.Status),
		Emitter:          CompanyParty(company),
		Receiver:         ClienteParty(c),
		Items:            lineViews(f.Items),
		DiscriminatesIVA: f.Type == factura.TypeA,
		IVARate:          f.IVARate,
		Net:              f.Net,
		IVAAmount:        f.IVAAmount,
		Exempt:           f.Exempt,
		Total:            f.Total,
		Currency:         f.Currency,
		CAE:              f.CAE,
		CAEDueDate:       f.CAEDueDate,
		Notes:            f.Notes,
		pointOfSale:      f.PointOfSale,
		number:           f.Number,
	}
	if f.IsAuthorized() {
		doc.QRURL = doc.qrURL()
	}
	return doc
}

// qrPayload is the JSON document AFIP expects inside the QR code
type qrPayload struct {
	Version      int     `json:"ver"`
	Date         string  `json:"fecha"`
	CUIT         int64   `json:"cuit"`
	PointOfSale  int     `json:"ptoVta"`
	Type         int     `json:"tipoCmp"`
	Number       int64   `json:"nroCmp"`
	Amount       float64 `json:"importe"`
	Currency     string  `json:"moneda"`
	Rate         float64 `json:"ctz"`
	DocType      int     `json:"tipoDocRec,omitempty"`
	DocNumber    int64   `json:"nroDocRec,omitempty"`
	AuthCodeType string  `json:"tipoCodAut"`
	AuthCode     int64   `json:"codAut"`
}

func (d *FacturaDocument) qrURL() string {
	payload := qrPayload{
		Version:      1,
		Date:         d.IssueDate.Format("2006-01-02"),
		CUIT:         parseDigits(d.Emitter.CUIT),
		PointOfSale:  d.pointOfSale,
		Type:         d.TypeCode,
		Number:       d.number,
		Amount:       d.Total.Round(2).InexactFloat64(),
		Currency:     d.Currency,
		Rate:         1,
		AuthCodeType: "E",
		AuthCode:     parseDigits(d.CAE),
	}
	if d.Receiver.DocumentType != 99 {
		payload.DocType = d.Receiver.DocumentType
		payload.DocNumber = parseDigits(d.Receiver.Document)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return AFIPQRBaseURL + base64.StdEncoding.EncodeToString(raw)
}

// PresupuestoDocument is the view model of a printed budget
type PresupuestoDocument struct {
	Number      string
	Title       string
	Description string
	IssueDate   time.Time
	ValidUntil  time.Time
	Status      string
	Emitter     Party
	Receiver    Party
	Items       []LineView
	Subtotal    decimal.Decimal
	IVARate     decimal.Decimal
	IVAAmount   decimal.Decimal
	Total       decimal.Decimal
	Notes       string
}

// NewPresupuestoDocument assembles the printable view of a presupuesto
func NewPresupuestoDocument(p *presupuesto.Presupuesto, c *cliente.Cliente, company config.CompanyConfig) *PresupuestoDocument {
	return &PresupuestoDocument{
		Number:      p.Number,
		Title:       p.Title,
		Description: p.Description,
		IssueDate:   p.IssueDate,
		ValidUntil:  p.ValidUntil,
		Status:      string(p.Status),
		Emitter:     CompanyParty(company),
		Receiver:    ClienteParty(c),
		Items:       lineViews(p.Items),
		Subtotal:    p.Subtotal,
		IVARate:     p.IVARate,
		IVAAmount:   p.IVAAmount,
		Total:       p.Total,
		Notes:       p.Notes,
	}
}

func lineViews(lines []shared.Line) []LineView {
	views := make([]LineView, len(lines))
	for i, l := range lines {
		views[i] = LineView{
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Amount:      l.Amount,
		}
	}
	return views
}

func parseDigits(s string) int64 {
	n, err := strconv.ParseInt(shared.NormalizeCUIT(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
