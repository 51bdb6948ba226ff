package postgres

import (
	"testing"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/store"
)

func TestMigrateURL(t *testing.T) {
	tests := []struct{ in, want string }{
		{"postgres://u:p@localhost:5432/bilancio?sslmode=disable", "pgx5://u:p@localhost:5432/bilancio?sslmode=disable"},
		{"postgresql://localhost/bilancio", "pgx5://localhost/bilancio"},
		{"pgx5://localhost/bilancio", "pgx5://localhost/bilancio"},
	}
	for _, tt := range tests {
		if got := migrateURL(tt.in); got != tt.want {
			t.Fatalf("migrateURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFilterArgs(t *testing.T) {
	args := filterArgs(store.TransactionFilter{})
	if args[0].(*time.Time) != nil || args[1].(*time.Time) != nil {
		t.Fatalf("zero dates must bind as NULL")
	}

	f := store.TransactionFilter{From: core.NewDate(2025, 3, 1), To: core.NewDate(2025, 3, 31), Keyword: "  coop ", UncategorizedOnly: true}
	args = filterArgs(f)
	if from := args[0].(*time.Time); from == nil || !from.Equal(f.From.Time) {
		t.Fatalf("unexpected from: %v", args[0])
	}
	if args[2].(string) != "coop" || args[4].(bool) != true {
		t.Fatalf("unexpected args: %v", args)
	}
}
