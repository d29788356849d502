package importer

import (
	"errors"
	"fmt"
	"io"
)

const (
	// DefaultMaxFileSize is the largest upload accepted, 5 MiB
	DefaultMaxFileSize int64 = 5 << 20
	DefaultMaxRows           = 5000
	DefaultMaxErrors         = 100
)

// ValidationResult is the outcome of validating a whole file
type ValidationResult struct {
	Encoding  string     `json:"encoding"`
	Delimiter string     `json:"delimiter"`
	Headers   []string   `json:"headers"`
	TotalRows int        `json:"total_rows"`
	ValidRows int        `json:"valid_rows"`
	ErrorRows int        `json:"error_rows"`
	Errors    []RowError `json:"errors,omitempty"`
	Truncated bool       `json:"truncated,omitempty"`

	// Rows holds the rows that passed every rule, in file order
	Rows []*Row `json:"-"`
}

// IsValid reports whether no row failed
func (r *ValidationResult) IsValid() bool {
	return r.ErrorRows == 0
}

// Processor reads a CSV upload and validates every row against field rules
type Processor struct {
	maxFileSize int64
	maxRows     int
	maxErrors   int
	parserOpts  []ParserOption
}

// ProcessorOption configures a Processor
type ProcessorOption func(*Processor)

// WithMaxFileSize limits the upload size in bytes
func WithMaxFileSize(n int64) ProcessorOption {
	return func(p *Processor) { p.maxFileSize = n }
}

// WithMaxRows limits the number of data rows
func WithMaxRows(n int) ProcessorOption {
	return func(p *Processor) { p.maxRows = n }
}

// WithMaxErrors limits how many row errors are reported
func WithMaxErrors(n int) ProcessorOption {
	return func(p *Processor) { p.maxErrors = n }
}

// WithParserOptions passes options through to the CSV parser
func WithParserOptions(opts ...ParserOption) ProcessorOption {
	return func(p *Processor) { p.parserOpts = append(p.parserOpts, opts...) }
}

// NewProcessor creates a processor with the default limits
func NewProcessor(opts ...ProcessorOption) *Processor {
	p := &Processor{
		maxFileSize: DefaultMaxFileSize,
		maxRows:     DefaultMaxRows,
		maxErrors:   DefaultMaxErrors,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Validate parses the file and applies rules to each non-empty row. Structural
// problems (size, header, missing columns) are returned as errors; per row
// failures are collected in the result.
func (p *Processor) Validate(r io.Reader, size int64, required []string, rules []FieldRule) (*ValidationResult, error) {
	if size == 0 {
		return nil, ErrEmptyFile
	}
	if p.maxFileSize > 0 && size > p.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, size, p.maxFileSize)
	}

	parser, err := NewCSVParser(r, p.parserOpts...)
	if err != nil {
		return nil, err
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, err
	}
	if missing := parser.ValidateHeaders(required); len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	collection := NewErrorCollection(p.maxErrors)
	validator := NewFieldValidator(rules, collection)
	result := &ValidationResult{
		Encoding:  parser.Encoding(),
		Delimiter: string(parser.Delimiter()),
		Headers:   parser.Headers(),
	}

	for {
		row, err := parser.ReadRow()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			collection.Add(NewRowError(parser.CurrentRow(), "", ErrCodeImportCSVParsing, err.Error()))
			result.TotalRows++
			result.ErrorRows++
			continue
		}
		if row.IsEmpty() {
			continue
		}
		result.TotalRows++
		if p.maxRows > 0 && result.TotalRows > p.maxRows {
			return nil, fmt.Errorf("%w: max %d", ErrTooManyRows, p.maxRows)
		}
		if validator.ValidateRow(row) {
			result.Rows = append(result.Rows, row)
			result.ValidRows++
		} else {
			result.ErrorRows++
		}
	}

	if result.TotalRows == 0 {
		return nil, ErrNoDataRows
	}
	result.Errors = collection.Errors()
	result.Truncated = collection.IsTruncated()
	return result, nil
}
