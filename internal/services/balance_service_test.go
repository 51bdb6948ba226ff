package services

import (
	"context"
	"testing"

	"bilancio/internal/core"
	"bilancio/internal/store/memory"
)

var (
	mar2025 = core.YearMonth{Year: 2025, Month: 3}
	apr2025 = core.YearMonth{Year: 2025, Month: 4}
)

func TestBalanceService_SaveChainsNextMonth(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	svc := NewBalanceService(s)

	// April's old start is replaced; its ending balance and notes survive.
	s.UpsertBalance(ctx, core.MonthlyBalance{Year: 2025, Month: 4, StartingBalance: money(1), EndingBalance: money(90000), Notes: "ferie"})

	if _, err := svc.Save(ctx, mar2025, money(50000), money(100000), ""); err != nil {
		t.Fatalf("Save: %v", err)
	}

	april, err := svc.Get(ctx, apr2025)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if april.StartingBalance == nil || april.StartingBalance.Cents != 100000 {
		t.Errorf("April start = %v, want 1000.00", april.StartingBalance)
	}
	if april.EndingBalance == nil || april.EndingBalance.Cents != 90000 {
		t.Errorf("April end = %v, want 900.00", april.EndingBalance)
	}
	if april.Notes != "ferie" {
		t.Errorf("April notes = %q", april.Notes)
	}
	if april.Prefilled {
		t.Error("stored month must not be reported as prefilled")
	}
}

func TestBalanceService_SaveWithoutEndDoesNotChain(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	svc := NewBalanceService(s)

	if _, err := svc.Save(ctx, mar2025, money(50000), nil, "solo inizio"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetBalance(ctx, apr2025); err == nil {
		t.Error("April should not exist when March has no ending balance")
	}
}

func TestBalanceService_DecemberChainsIntoJanuary(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	svc := NewBalanceService(s)

	if _, err := svc.Save(ctx, core.YearMonth{Year: 2024, Month: 12}, nil, money(-1500), ""); err != nil {
		t.Fatal(err)
	}
	jan, err := s.GetBalance(ctx, core.YearMonth{Year: 2025, Month: 1})
	if err != nil {
		t.Fatalf("January: %v", err)
	}
	if jan.StartingBalance == nil || jan.StartingBalance.Cents != -1500 {
		t.Errorf("January start = %v, want -15.00", jan.StartingBalance)
	}
}

func TestBalanceService_GetPrefillsFromPreviousMonth(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.UpsertBalance(ctx, core.MonthlyBalance{Year: 2025, Month: 3, EndingBalance: money(123456)})

	got, err := NewBalanceService(s).Get(ctx, apr2025)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Prefilled || got.StartingBalance == nil || got.StartingBalance.Cents != 123456 {
		t.Errorf("prefill = %v %v", got.Prefilled, got.StartingBalance)
	}
	if got.Reconciliation.Status != core.StatusIncomplete {
		t.Errorf("status = %s, want incomplete", got.Reconciliation.Status)
	}
}

func TestBalanceService_Reconciliation(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seed(t, s,
		candidate("rev_1", march(10), "Stipendio", 30000),
		candidate("rev_2", march(12), "Spesa", -10000),
		candidate("rev_3", core.NewDate(2025, 4, 1), "Fuori mese", -99999),
	)
	svc := NewBalanceService(s)

	got, err := svc.Save(ctx, mar2025, money(50000), money(65000), "")
	if err != nil {
		t.Fatal(err)
	}
	r := got.Reconciliation
	if r.Income.Cents != 30000 || r.Expense.Cents != 10000 {
		t.Errorf("totals = %s / %s", r.Income, r.Expense)
	}
	if r.ExpectedChange.Cents != 20000 || r.AccountingBalance.Cents != 70000 {
		t.Errorf("expected change %s, accounting %s", r.ExpectedChange, r.AccountingBalance)
	}
	if r.Difference == nil || r.Difference.Cents != -5000 {
		t.Errorf("difference = %v, want -50.00", r.Difference)
	}
	if r.Status != core.StatusShortfall {
		t.Errorf("status = %s, want shortfall", r.Status)
	}
}

func TestBalanceService_InvalidMonth(t *testing.T) {
	svc := NewBalanceService(memory.New())
	if _, err := svc.Get(context.Background(), core.YearMonth{Year: 2025, Month: 13}); !core.IsValidation(err) {
		t.Errorf("Get month 13: %v", err)
	}
	if _, err := svc.Save(context.Background(), core.YearMonth{Year: 2025}, nil, nil, ""); !core.IsValidation(err) {
		t.Errorf("Save month 0: %v", err)
	}
}
