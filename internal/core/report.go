package core

import "sort"

const (
	UncategorizedID   = "uncategorized"
	UncategorizedName = "Senza categoria"
	UnknownCategory   = "Sconosciuto"
	fallbackIcon      = "❓"
	fallbackColor     = "#94a3b8"
)

var monthLabels = [12]string{"GEN", "FEB", "MAR", "APR", "MAG", "GIU", "LUG", "AGO", "SET", "OTT", "NOV", "DIC"}

// CategoryAmount is one slice of the monthly expense breakdown.
type CategoryAmount struct {
	CategoryID string  `json:"category_id"`
	Name       string  `json:"name"`
	Icon       string  `json:"icon"`
	Color      string  `json:"color"`
	Amount     Money   `json:"amount"`
	Percentage float64 `json:"percentage"`
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year         int              `json:"year"`
	Month        int              `json:"month"` // 1-12
	TotalIncome  Money            `json:"total_income"`
	TotalExpense Money            `json:"total_expense"`
	Net          Money            `json:"net"`
	ByCategory   []CategoryAmount `json:"by_category"`
}

// TrendPoint is one month of the yearly starting-balance series.
type TrendPoint struct {
	Month   int    `json:"month"`
	Label   string `json:"label"`
	Value   Money  `json:"value"`
	HasData bool   `json:"has_data"`
}

// BuildCategoryBreakdown groups expenses by category, largest first.
// Uncategorized expenses share one bucket; ids with no matching category are labelled unknown.
func BuildCategoryBreakdown(txs []Transaction, categories []Category) []CategoryAmount {
	byID := make(map[string]Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	sums := make(map[string]int64)
	var order []string
	var total int64
	for _, t := range txs {
		if t.Type != Expense {
			continue
		}
		id := UncategorizedID
		if t.IsCategorized() {
			id = *t.CategoryID
		}
		if _, seen := sums[id]; !seen {
			order = append(order, id)
		}
		amount := t.Amount.Abs().Cents
		sums[id] += amount
		total += amount
	}

	out := make([]CategoryAmount, 0, len(order))
	for _, id := range order {
		row := CategoryAmount{
			CategoryID: id,
			Icon:       fallbackIcon,
			Color:      fallbackColor,
			Amount:     Money{Cents: sums[id]},
		}
		if c, ok := byID[id]; ok {
			row.Name, row.Icon, row.Color = c.Name, c.Icon, c.Color
		} else if id == UncategorizedID {
			row.Name = UncategorizedName
		} else {
			row.Name = UnknownCategory
		}
		if total > 0 {
			row.Percentage = float64(sums[id]) * 100 / float64(total)
		}
		out = append(out, row)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// BuildMonthOverview totals a month of transactions and attaches the breakdown.
func BuildMonthOverview(ym YearMonth, txs []Transaction, categories []Category) MonthOverview {
	income, expense := Totals(txs)
	return MonthOverview{
		Year:         ym.Year,
		Month:        ym.Month,
		TotalIncome:  income,
		TotalExpense: expense,
		Net:          income.Sub(expense),
		ByCategory:   BuildCategoryBreakdown(txs, categories),
	}
}

// BuildYearTrend returns twelve points of starting balances for year.
func BuildYearTrend(year int, balances []MonthlyBalance) []TrendPoint {
	points := make([]TrendPoint, 12)
	for i := range points {
		points[i] = TrendPoint{Month: i + 1, Label: monthLabels[i]}
	}
	for _, b := range balances {
		if b.Year != year || b.Month < 1 || b.Month > 12 || b.StartingBalance == nil {
			continue
		}
		points[b.Month-1].Value = *b.StartingBalance
		points[b.Month-1].HasData = true
	}
	return points
}
