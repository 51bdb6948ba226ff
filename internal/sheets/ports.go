// Package sheets mirrors imported transactions into a Google spreadsheet.
package sheets

import (
	"context"

	"bilancio/internal/core"
)

// Exporter appends transaction rows to an external spreadsheet.
type Exporter interface {
	// Append writes rows and returns how many were written.
	Append(ctx context.Context, rows []Row) (int, error)
}

// Row is one exported transaction.
type Row struct {
	Date        core.Date
	Description string
	// Amount is signed: expenses are negative.
	Amount      core.Money
	Currency    string
	Category    string
	ExternalKey string
}

// Values renders the row as spreadsheet cells: date, description, amount,
// currency, category, external key.
func (r Row) Values() []any {
	return []any{
		r.Date.String(),
		r.Description,
		r.Amount.Decimal().StringFixed(2),
		r.Currency,
		r.Category,
		r.ExternalKey,
	}
}

// RowsFrom resolves category names for txs. Uncategorized rows get an empty
// category; ids without a matching category are reported as unknown.
func RowsFrom(txs []core.Transaction, categories []core.Category) []Row {
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	rows := make([]Row, 0, len(txs))
	for _, t := range txs {
		category := ""
		if t.IsCategorized() {
			var ok bool
			if category, ok = names[*t.CategoryID]; !ok {
				category = core.UnknownCategory
			}
		}
		rows = append(rows, Row{
			Date:        t.Date,
			Description: t.Description,
			Amount:      t.Signed(),
			Currency:    t.Currency,
			Category:    category,
			ExternalKey: t.ExternalKey,
		})
	}
	return rows
}
