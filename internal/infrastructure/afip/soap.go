package afip

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"

	"github.com/sgi/backend/internal/domain/factura"
)

const maxResponseSize = 4 << 20

var templateFuncs = template.FuncMap{
	"xml": func(s string) string {
		var b strings.Builder
		_ = xml.EscapeText(&b, []byte(s))
		return b.String()
	},
}

// envelope decodes a SOAP 1.1 response whose body holds a T or a Fault.
// Element names are matched without namespaces.
type envelope[T any] struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Fault    *soapFault `xml:"Fault"`
		Response T          `xml:",any"`
	} `xml:"Body"`
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

// soapClient posts rendered envelopes and decodes the answers
type soapClient struct {
	url        string
	httpClient *http.Client
}

// call renders tmpl with data, posts it with the given SOAPAction and
// decodes the response body into out. Transport failures and 5xx answers
// without a SOAP fault wrap factura.ErrAuthorizerUnavailable.
func call[T any](ctx context.Context, c *soapClient, op, action string, tmpl *template.Template, data any, out *T) error {
	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("afip: %s: failed to render request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return fmt.Errorf("afip: %s: failed to create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", action)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", factura.ErrAuthorizerUnavailable, op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: %s: failed to read response: %v", factura.ErrAuthorizerUnavailable, op, err)
	}

	var env envelope[T]
	if err := xml.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%w: %s: HTTP %d", factura.ErrAuthorizerUnavailable, op, resp.StatusCode)
		}
		return fmt.Errorf("afip: %s: failed to parse response (HTTP %d): %w", op, resp.StatusCode, err)
	}
	if f := env.Body.Fault; f != nil {
		return &Error{Op: op, Code: stripPrefix(f.Code), Message: strings.TrimSpace(f.String)}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: %s: HTTP %d", factura.ErrAuthorizerUnavailable, op, resp.StatusCode)
	}

	*out = env.Body.Response
	return nil
}

// stripPrefix drops the namespace prefix of a fault code like ns1:coe.notAuthorized
func stripPrefix(code string) string {
	if i := strings.LastIndex(code, ":"); i >= 0 {
		return code[i+1:]
	}
	return code
}
