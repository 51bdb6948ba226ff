package services

import (
	"context"
	"errors"
	"testing"

	"bilancio/internal/core"
	"bilancio/internal/store/memory"
)

func TestReportService_Monthly(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	casa, _ := s.CreateCategory(ctx, core.Category{Name: "Casa"})
	seed(t, s,
		candidate("rev_1", march(1), "Affitto", -80000),
		candidate("rev_2", march(2), "Bar", -20000),
		candidate("rev_3", march(3), "Stipendio", 200000),
	)
	s.SetCategoryByIDs(ctx, idsOf(t, s, "rev_1"), &casa.ID)

	got, err := NewReportService(s).Monthly(ctx, mar2025)
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalExpense.Cents != 100000 || got.TotalIncome.Cents != 200000 {
		t.Errorf("totals = %s / %s", got.TotalIncome, got.TotalExpense)
	}
	if len(got.ByCategory) != 2 {
		t.Fatalf("breakdown = %+v", got.ByCategory)
	}
	if got.ByCategory[0].Name != "Casa" || got.ByCategory[0].Percentage != 80 {
		t.Errorf("first slice = %+v", got.ByCategory[0])
	}
	if got.ByCategory[1].Name != core.UncategorizedName {
		t.Errorf("second slice = %+v", got.ByCategory[1])
	}
}

func TestReportService_Trend(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.UpsertBalance(ctx, core.MonthlyBalance{Year: 2025, Month: 2, StartingBalance: money(1000)})

	points, err := NewReportService(s).Trend(ctx, 2025)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 12 || !points[1].HasData || points[1].Value.Cents != 1000 || points[0].HasData {
		t.Errorf("points = %+v", points)
	}
}

func TestReportService_Overview(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.CreateCategory(ctx, core.Category{Name: "Spesa"})
	s.CreateRule(ctx, core.MerchantRule{Pattern: "coop", CategoryID: "x"})
	seed(t, s, candidate("rev_1", march(1), "Coop", -1000))

	got, err := NewReportService(s).Overview(ctx, mar2025)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Transactions) != 1 || len(got.Categories) != 1 || len(got.Rules) != 1 {
		t.Errorf("overview = %+v", got)
	}
	if got.Balance != nil {
		t.Errorf("balance = %+v, want nil for a month without record", got.Balance)
	}
	if got.Summary.TotalExpense.Cents != 1000 {
		t.Errorf("summary = %+v", got.Summary)
	}

	s.UpsertBalance(ctx, core.MonthlyBalance{Year: 2025, Month: 3, StartingBalance: money(5)})
	got, _ = NewReportService(s).Overview(ctx, mar2025)
	if got.Balance == nil || got.Balance.StartingBalance.Cents != 5 || got.Balance.Prefilled {
		t.Errorf("balance = %+v", got.Balance)
	}
}

func TestReportService_OverviewPrefillsFromPreviousMonth(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.UpsertBalance(ctx, core.MonthlyBalance{Year: 2025, Month: 3, StartingBalance: money(100000), EndingBalance: money(120000)})
	seed(t, s, candidate("rev_1", core.NewDate(2025, 4, 2), "Coop", -5000))

	apr := core.YearMonth{Year: 2025, Month: 4}
	got, err := NewReportService(s).Overview(ctx, apr)
	if err != nil {
		t.Fatal(err)
	}
	want, err := NewBalanceService(s).Get(ctx, apr)
	if err != nil {
		t.Fatal(err)
	}
	if got.Balance == nil || !got.Balance.Prefilled || got.Balance.StartingBalance.Cents != 120000 {
		t.Fatalf("balance = %+v, want April pre-filled from March", got.Balance)
	}
	gr, wr := got.Balance.Reconciliation, want.Reconciliation
	if gr.Expense != wr.Expense || gr.Status != wr.Status || gr.Expense.Cents != 5000 {
		t.Errorf("reconciliation = %+v, balance page shows %+v", gr, wr)
	}
}

type brokenBalances struct {
	*memory.Store
}

func (brokenBalances) GetBalance(context.Context, core.YearMonth) (core.MonthlyBalance, error) {
	return core.MonthlyBalance{}, errors.New("disk I/O error")
}

func TestReportService_OverviewFailure(t *testing.T) {
	_, err := NewReportService(brokenBalances{memory.New()}).Overview(context.Background(), mar2025)
	if err == nil {
		t.Fatal("expected the failing read to fail the overview")
	}
}
