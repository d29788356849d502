package persistence

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/sgi/backend/internal/domain/shared"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// ClienteSortFields contains allowed sort fields for clientes
var ClienteSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"name":          true,
	"cuit":          true,
	"iva_condition": true,
	"province":      true,
	"status":        true,
}

// PresupuestoSortFields contains allowed sort fields for presupuestos
var PresupuestoSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"number":      true,
	"issue_date":  true,
	"valid_until": true,
	"status":      true,
	"total":       true,
}

// FacturaSortFields contains allowed sort fields for facturas
var FacturaSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"issue_date": true,
	"number":     true,
	"type":       true,
	"status":     true,
	"total":      true,
}

// ProyectoSortFields contains allowed sort fields for proyectos
var ProyectoSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"code":       true,
	"name":       true,
	"start_date": true,
	"status":     true,
	"budget":     true,
}

// CertificadoSortFields contains allowed sort fields for certificados
var CertificadoSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"number":     true,
	"date":       true,
	"percent":    true,
	"amount":     true,
	"status":     true,
}

// ProspectoSortFields contains allowed sort fields for prospectos
var ProspectoSortFields = map[string]bool{
	"id":                true,
	"created_at":        true,
	"updated_at":        true,
	"name":              true,
	"status":            true,
	"estimated_value":   true,
	"next_contact_date": true,
}

// orderClause builds a safe ORDER BY expression for the filter
func orderClause(filter shared.Filter, allowed map[string]bool, defaultField string) string {
	field := ValidateSortField(filter.OrderBy, allowed, defaultField)
	return fmt.Sprintf("%s %s", field, ValidateSortOrder(filter.OrderDir))
}

// paginate applies limit and offset from a normalized filter
func paginate(filter shared.Filter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.PageSize <= 0 {
			return db
		}
		return db.Offset(filter.Offset()).Limit(filter.PageSize)
	}
}

// likePattern escapes LIKE wildcards in user supplied search text
func likePattern(search string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(search)) + "%"
}

// searchScope matches search against any of the given columns. gorm wraps
// the OR group in parentheses when other conditions are present.
func searchScope(search string, columns ...string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if strings.TrimSpace(search) == "" || len(columns) == 0 {
			return db
		}
		conds := make([]string, len(columns))
		args := make([]any, len(columns))
		pattern := likePattern(search)
		for i, c := range columns {
			conds[i] = c + " LIKE ?"
			args[i] = pattern
		}
		return db.Where(strings.Join(conds, " OR "), args...)
	}
}

// dateRangeScope bounds column by the filter From/To dates
func dateRangeScope(filter shared.Filter, column string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.From != nil {
			db = db.Where(column+" >= ?", *filter.From)
		}
		if filter.To != nil {
			db = db.Where(column+" < ?", *filter.To)
		}
		return db
	}
}

// column maps a filter key to the column it constrains
type column struct {
	key  string
	name string
}

// equalsScope adds name = value for every column whose key is set in the filter
func equalsScope(filter shared.Filter, columns ...column) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for _, c := range columns {
			if v, ok := filter.Filters[c.key]; ok && v != nil && v != "" {
				db = db.Where(c.name+" = ?", v)
			}
		}
		return db
	}
}
