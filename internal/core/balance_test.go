package core

import "testing"

func money(c int64) *Money { return &Money{Cents: c} }

func TestYearMonthNavigation(t *testing.T) {
	cases := []struct {
		in         YearMonth
		prev, next YearMonth
	}{
		{YearMonth{2025, 3}, YearMonth{2025, 2}, YearMonth{2025, 4}},
		{YearMonth{2025, 1}, YearMonth{2024, 12}, YearMonth{2025, 2}},
		{YearMonth{2025, 12}, YearMonth{2025, 11}, YearMonth{2026, 1}},
	}
	for _, tc := range cases {
		if got := tc.in.Prev(); got != tc.prev {
			t.Fatalf("%s prev = %s, want %s", tc.in, got, tc.prev)
		}
		if got := tc.in.Next(); got != tc.next {
			t.Fatalf("%s next = %s, want %s", tc.in, got, tc.next)
		}
	}
}

func TestYearMonthBounds(t *testing.T) {
	ym := YearMonth{Year: 2024, Month: 2}
	if ym.First().String() != "2024-02-01" || ym.Last().String() != "2024-02-29" {
		t.Fatalf("got %s..%s", ym.First(), ym.Last())
	}
	if _, err := NewYearMonth(2025, 13); err == nil {
		t.Fatalf("expected error for month 13")
	}
	if _, err := NewYearMonth(2025, 0); err == nil {
		t.Fatalf("expected error for month 0")
	}
}

func TestTotals(t *testing.T) {
	txs := []Transaction{
		{Type: Income, Amount: Money{Cents: 100000}},
		{Type: Expense, Amount: Money{Cents: 30000}},
		{Type: Expense, Amount: Money{Cents: 5000}},
	}
	income, expense := Totals(txs)
	if income.Cents != 100000 || expense.Cents != 35000 {
		t.Fatalf("income=%d expense=%d", income.Cents, expense.Cents)
	}
}

func TestReconcile(t *testing.T) {
	// 500 start, +200 net, 650 actual: 50 short.
	r := Reconcile(money(50000), money(65000), Money{Cents: 30000}, Money{Cents: 10000})
	if r.ExpectedChange.Cents != 20000 {
		t.Fatalf("expected change = %d", r.ExpectedChange.Cents)
	}
	if r.AccountingBalance.Cents != 70000 {
		t.Fatalf("accounting balance = %d", r.AccountingBalance.Cents)
	}
	if r.Difference == nil || r.Difference.Cents != -5000 {
		t.Fatalf("difference = %v", r.Difference)
	}
	if r.Status != StatusShortfall {
		t.Fatalf("status = %s", r.Status)
	}

	if r := Reconcile(money(50000), money(75000), Money{Cents: 20000}, Money{}); r.Status != StatusSurplus || r.Difference.Cents != 5000 {
		t.Fatalf("expected surplus of 5000, got %s %v", r.Status, r.Difference)
	}
	if r := Reconcile(money(50000), money(70000), Money{Cents: 20000}, Money{}); r.Status != StatusBalanced {
		t.Fatalf("expected balanced, got %s", r.Status)
	}
}

func TestReconcileIncomplete(t *testing.T) {
	r := Reconcile(money(50000), nil, Money{Cents: 100}, Money{})
	if r.Status != StatusIncomplete || r.Difference != nil {
		t.Fatalf("missing end must be incomplete, got %s %v", r.Status, r.Difference)
	}
	if r.AccountingBalance.Cents != 50100 {
		t.Fatalf("accounting balance = %d", r.AccountingBalance.Cents)
	}

	r = Reconcile(nil, money(100), Money{Cents: 100}, Money{})
	if r.Status != StatusIncomplete || r.AccountingBalance.Cents != 100 {
		t.Fatalf("missing start must be incomplete, got %+v", r)
	}
}
