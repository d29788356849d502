package certificado

import (
	"context"

	"github.com/shopspring/decimal"
)

// IssueKind classifies a consistency problem between certificados,
// proyectos and clientes
type IssueKind string

const (
	IssueMissingCliente  IssueKind = "SIN_CLIENTE"
	IssueClienteMismatch IssueKind = "CLIENTE_DISTINTO"
	IssueOrphanProyecto  IssueKind = "PROYECTO_INEXISTENTE"
)

// Issue is a certificado whose links are inconsistent
type Issue struct {
	Kind              IssueKind `json:"kind"`
	CertificadoID     int64     `json:"certificado_id"`
	ProyectoID        int64     `json:"proyecto_id"`
	ClienteID         *int64    `json:"cliente_id,omitempty"`
	ExpectedClienteID *int64    `json:"expected_cliente_id,omitempty"`
}

// Fixable reports whether realigning cliente_id solves the issue
func (i Issue) Fixable() bool {
	return i.Kind != IssueOrphanProyecto && i.ExpectedClienteID != nil
}

// OverCertified is a proyecto whose non-annulled certificados exceed 100%
type OverCertified struct {
	ProyectoID int64           `json:"proyecto_id"`
	Code       string          `json:"code"`
	Percent    decimal.Decimal `json:"percent"`
}

// Report is the result of a consistency diagnosis
type Report struct {
	Total         int64           `json:"total"`
	Issues        []Issue         `json:"issues"`
	OverCertified []OverCertified `json:"over_certified"`
}

// Count returns how many issues of a kind were found
func (r *Report) Count(kind IssueKind) int {
	n := 0
	for _, i := range r.Issues {
		if i.Kind == kind {
			n++
		}
	}
	return n
}

// Fixable returns the issues a cliente realignment can fix
func (r *Report) Fixable() []Issue {
	out := make([]Issue, 0, len(r.Issues))
	for _, i := range r.Issues {
		if i.Fixable() {
			out = append(out, i)
		}
	}
	return out
}

// Healthy reports whether no problem was found
func (r *Report) Healthy() bool {
	return len(r.Issues) == 0 && len(r.OverCertified) == 0
}

// MaintenanceRepository runs consistency checks and repairs over certificados
type MaintenanceRepository interface {
	// Diagnose inspects every certificado against its proyecto
	Diagnose(ctx context.Context) (*Report, error)

	// RealignClientes sets cliente_id to the proyecto's cliente for every
	// certificado where they differ and returns the rows changed
	RealignClientes(ctx context.Context) (int64, error)
}
