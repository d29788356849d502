package cliente

import (
	"context"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/sgi/backend/internal/domain/cliente"
	"github.com/sgi/backend/internal/domain/shared"
	"github.com/sgi/backend/internal/infrastructure/importer"
)

// Columns of the cliente import file, after header normalization
const (
	colNombre       = "nombre"
	colFantasia     = "nombre_fantasia"
	colTipo         = "tipo"
	colCUIT         = "cuit"
	colDNI          = "dni"
	colCondicionIVA = "condicion_iva"
	colEmail        = "email"
	colTelefono     = "telefono"
	colDireccion    = "direccion"
	colLocalidad    = "localidad"
	colProvincia    = "provincia"
	colCodigoPostal = "codigo_postal"
	colContacto     = "contacto"
	colNotas        = "notas"
)

// headerAliases maps usual spreadsheet headings to the import columns
var headerAliases = map[string]string{
	"razon_social":            colNombre,
	"name":                    colNombre,
	"cliente":                 colNombre,
	"fantasia":                colFantasia,
	"nombre_de_fantasia":      colFantasia,
	"tipo_persona":            colTipo,
	"cuit_cuil":               colCUIT,
	"iva":                     colCondicionIVA,
	"condicion_frente_al_iva": colCondicionIVA,
	"mail":                    colEmail,
	"e_mail":                  colEmail,
	"tel":                     colTelefono,
	"phone":                   colTelefono,
	"domicilio":               colDireccion,
	"ciudad":                  colLocalidad,
	"cp":                      colCodigoPostal,
	"persona_de_contacto":     colContacto,
	"observaciones":           colNotas,
}

// ivaAliases accepts the abbreviations used in accounting exports
var ivaAliases = map[string]cliente.IVACondition{
	"RI":                        cliente.IVAResponsableInscripto,
	"RESPONSABLE_INSCRIPTO":     cliente.IVAResponsableInscripto,
	"IVA_RESPONSABLE_INSCRIPTO": cliente.IVAResponsableInscripto,
	"MT":                        cliente.IVAMonotributo,
	"MONOTRIBUTO":               cliente.IVAMonotributo,
	"MONOTRIBUTISTA":            cliente.IVAMonotributo,
	"RESPONSABLE_MONOTRIBUTO":   cliente.IVAMonotributo,
	"EX":                        cliente.IVAExento,
	"EXENTO":                    cliente.IVAExento,
	"IVA_EXENTO":                cliente.IVAExento,
	"CF":                        cliente.IVAConsumidorFinal,
	"CONSUMIDOR_FINAL":          cliente.IVAConsumidorFinal,
}

// ImportRequest holds the options of a CSV import
type ImportRequest struct {
	DryRun         bool `form:"dry_run"`
	UpdateExisting bool `form:"update_existing"`
}

// ImportResult summarizes a CSV import
type ImportResult struct {
	DryRun       bool                `json:"dry_run"`
	Encoding     string              `json:"encoding"`
	Delimiter    string              `json:"delimiter"`
	TotalRows    int                 `json:"total_rows"`
	ImportedRows int                 `json:"imported_rows"`
	UpdatedRows  int                 `json:"updated_rows"`
	SkippedRows  int                 `json:"skipped_rows"`
	ErrorRows    int                 `json:"error_rows"`
	Errors       []importer.RowError `json:"errors,omitempty"`
	IsTruncated  bool                `json:"is_truncated,omitempty"`
}

// ImportService loads clientes from spreadsheet exports
type ImportService struct {
	repo      cliente.Repository
	processor *importer.Processor
	logger    *zap.Logger
}

// NewImportService creates a new cliente import service
func NewImportService(repo cliente.Repository, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		repo: repo,
		processor: importer.NewProcessor(
			importer.WithParserOptions(importer.WithHeaderAliases(headerAliases)),
		),
		logger: logger.Named("cliente_import"),
	}
}

// ValidationRules returns the per column rules of the import file
func ValidationRules() []importer.FieldRule {
	return []importer.FieldRule{
		importer.Field(colNombre).Required().MaxLength(200).Build(),
		importer.Field(colFantasia).MaxLength(200).Build(),
		importer.Field(colTipo).OneOf(string(cliente.KindFisica), string(cliente.KindJuridica)).Build(),
		importer.Field(colCUIT).CUIT().Unique().Build(),
		importer.Field(colDNI).Custom(validateDNI).Build(),
		importer.Field(colCondicionIVA).Required().Custom(validateIVA).Build(),
		importer.Field(colEmail).Email().MaxLength(200).Build(),
		importer.Field(colTelefono).MaxLength(50).Custom(shared.ValidatePhone).Build(),
		importer.Field(colDireccion).MaxLength(300).Build(),
		importer.Field(colLocalidad).MaxLength(100).Build(),
		importer.Field(colProvincia).MaxLength(100).Build(),
		importer.Field(colCodigoPostal).MaxLength(20).Build(),
		importer.Field(colContacto).MaxLength(200).Build(),
	}
}

func validateIVA(value string) error {
	if _, ok := parseIVA(value); !ok {
		return errors.New("condición de IVA desconocida, use RI, MONOTRIBUTO, EXENTO o CF")
	}
	return nil
}

func validateDNI(value string) error {
	if !shared.ValidDNI(value) {
		return errors.New("el DNI debe tener 7 u 8 dígitos")
	}
	return nil
}

func parseIVA(value string) (cliente.IVACondition, bool) {
	iva, ok := ivaAliases[strings.ToUpper(importer.NormalizeHeader(value))]
	return iva, ok
}

// kindFromCUIT infers the persona kind from the CUIT prefix: 30, 33 and 34
// are assigned to companies
func kindFromCUIT(cuit string) cliente.Kind {
	switch {
	case strings.HasPrefix(cuit, "30"), strings.HasPrefix(cuit, "33"), strings.HasPrefix(cuit, "34"):
		return cliente.KindJuridica
	default:
		return cliente.KindFisica
	}
}

// Import validates the whole file, then creates or updates clientes row by
// row. With DryRun nothing is saved.
func (s *ImportService) Import(ctx context.Context, r io.Reader, size int64, req ImportRequest) (*ImportResult, error) {
	validation, err := s.processor.Validate(r, size, []string{colNombre, colCondicionIVA}, ValidationRules())
	if err != nil {
		return nil, err
	}

	result := &ImportResult{
		DryRun:      req.DryRun,
		Encoding:    validation.Encoding,
		Delimiter:   validation.Delimiter,
		TotalRows:   validation.TotalRows,
		ErrorRows:   validation.ErrorRows,
		Errors:      validation.Errors,
		IsTruncated: validation.Truncated,
	}

	for _, row := range validation.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		outcome, rowErr := s.importRow(ctx, row, req)
		if rowErr != nil {
			result.ErrorRows++
			result.Errors = append(result.Errors, *rowErr)
			continue
		}
		switch outcome {
		case outcomeCreated:
			result.ImportedRows++
		case outcomeUpdated:
			result.UpdatedRows++
		case outcomeSkipped:
			result.SkippedRows++
		}
	}

	s.logger.Info("Cliente import finished",
		zap.Bool("dry_run", req.DryRun),
		zap.Int("total", result.TotalRows),
		zap.Int("imported", result.ImportedRows),
		zap.Int("updated", result.UpdatedRows),
		zap.Int("skipped", result.SkippedRows),
		zap.Int("errors", result.ErrorRows),
	)
	return result, nil
}

type rowOutcome int

const (
	outcomeCreated rowOutcome = iota
	outcomeUpdated
	outcomeSkipped
)

func (s *ImportService) importRow(ctx context.Context, row *importer.Row, req ImportRequest) (rowOutcome, *importer.RowError) {
	fail := func(column string, err error) (rowOutcome, *importer.RowError) {
		rowErr := importer.NewRowError(row.LineNumber, column, importer.ErrCodeImportValidation, err.Error())
		return 0, &rowErr
	}

	cuit := shared.NormalizeCUIT(row.Get(colCUIT))
	iva, _ := parseIVA(row.Get(colCondicionIVA))

	var existing *cliente.Cliente
	if cuit != "" {
		found, err := s.repo.FindByCUIT(ctx, cuit)
		switch {
		case err == nil:
			existing = found
		case !isNotFound(err):
			return fail("", err)
		}
	}
	if existing != nil && !req.UpdateExisting {
		return outcomeSkipped, nil
	}

	kind := cliente.Kind(strings.ToUpper(row.Get(colTipo)))
	switch {
	case kind != "":
	case existing != nil:
		kind = existing.Kind
	default:
		kind = kindFromCUIT(cuit)
	}

	c := existing
	if c == nil {
		created, err := cliente.NewCliente(kind, row.Get(colNombre), iva, cuit)
		if err != nil {
			return fail("", err)
		}
		c = created
	} else if err := c.Update(kind, row.Get(colNombre), c.TradeName); err != nil {
		return fail("", err)
	}

	if name := row.Get(colFantasia); name != "" {
		if err := c.Update(c.Kind, c.Name, name); err != nil {
			return fail(colFantasia, err)
		}
	}
	if err := c.SetTaxData(iva, cuit, row.GetOrDefault(colDNI, c.DNI)); err != nil {
		return fail(colCondicionIVA, err)
	}
	if err := c.SetContact(
		row.GetOrDefault(colContacto, c.ContactPerson),
		row.GetOrDefault(colEmail, c.Email),
		row.GetOrDefault(colTelefono, c.Phone),
	); err != nil {
		return fail(colEmail, err)
	}
	c.SetAddress(
		row.GetOrDefault(colDireccion, c.Address),
		row.GetOrDefault(colLocalidad, c.City),
		row.GetOrDefault(colProvincia, c.Province),
		row.GetOrDefault(colCodigoPostal, c.PostalCode),
	)
	if notes := row.Get(colNotas); notes != "" {
		c.SetNotes(notes)
	}

	outcome := outcomeCreated
	if existing != nil {
		outcome = outcomeUpdated
	}
	if req.DryRun {
		return outcome, nil
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return fail("", err)
	}
	return outcome, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}
