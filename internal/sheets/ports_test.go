package sheets

import (
	"testing"

	"bilancio/internal/core"
)

func TestRowsFrom(t *testing.T) {
	cats := []core.Category{{ID: "c1", Name: "Spesa"}}
	txs := []core.Transaction{
		{ExternalKey: "rev_1", Date: core.NewDate(2025, 3, 2), Description: "Esselunga", Amount: core.Money{Cents: 4230}, Currency: "EUR", Type: core.Expense, CategoryID: core.StringPtr("c1")},
		{ExternalKey: "rev_2", Date: core.NewDate(2025, 3, 3), Description: "Top-up", Amount: core.Money{Cents: 100000}, Currency: "EUR", Type: core.Income},
		{ExternalKey: "rev_3", Date: core.NewDate(2025, 3, 4), Description: "Vecchia", Amount: core.Money{Cents: 5}, Currency: "EUR", Type: core.Expense, CategoryID: core.StringPtr("gone")},
	}

	rows := RowsFrom(txs, cats)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}

	want := [][]any{
		{"2025-03-02", "Esselunga", "-42.30", "EUR", "Spesa", "rev_1"},
		{"2025-03-03", "Top-up", "1000.00", "EUR", "", "rev_2"},
		{"2025-03-04", "Vecchia", "-0.05", "EUR", core.UnknownCategory, "rev_3"},
	}
	for i, row := range rows {
		got := row.Values()
		for j := range want[i] {
			if got[j] != want[i][j] {
				t.Errorf("row %d cell %d = %v, want %v", i, j, got[j], want[i][j])
			}
		}
	}
}
