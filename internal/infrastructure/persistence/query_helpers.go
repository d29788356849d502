package persistence

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type statusCount struct {
	Status string
	Count  int64
}

// countByStatus groups the rows of model by their status column
func countByStatus[S ~string](ctx context.Context, db *gorm.DB, model any) (map[S]int64, error) {
	var rows []statusCount
	if err := db.WithContext(ctx).
		Model(model).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[S]int64, len(rows))
	for _, row := range rows {
		counts[S(row.Status)] = row.Count
	}
	return counts, nil
}

// orderedItems preloads line items in their display order
func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// nullDecimal turns a NULL aggregate into zero
func nullDecimal(d decimal.NullDecimal) decimal.Decimal {
	if d.Valid {
		return d.Decimal
	}
	return decimal.Zero
}
