package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/store"
)

func tx(key string, day int, desc string, cents int64) core.Transaction {
	return core.Transaction{
		ExternalKey: key,
		Date:        core.NewDate(2025, 3, day),
		Description: desc,
		Amount:      core.Money{Cents: cents},
		Currency:    "EUR",
		Type:        core.Expense,
	}
}

func TestInsertIgnoringDuplicates(t *testing.T) {
	s := New()
	ctx := context.Background()
	batch := []core.Transaction{tx("a", 1, "Coop", 100), tx("b", 2, "Bar", 200), tx("a", 1, "Coop", 100)}

	keys, err := s.InsertIgnoringDuplicates(ctx, batch)
	if err != nil || !reflect.DeepEqual(keys, []string{"a", "b"}) {
		t.Fatalf("first insert: keys=%v err=%v", keys, err)
	}
	keys, err = s.InsertIgnoringDuplicates(ctx, []core.Transaction{tx("b", 2, "Bar", 200), tx("c", 3, "Edicola", 50)})
	if err != nil || !reflect.DeepEqual(keys, []string{"c"}) {
		t.Fatalf("overlapping insert: keys=%v err=%v", keys, err)
	}
	count, _ := s.CountTransactions(ctx, store.TransactionFilter{})
	if count != 3 {
		t.Fatalf("expected 3 stored, got %d", count)
	}
}

func TestListOrderAndFilters(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	calls := 0
	s.SetClock(func() time.Time { calls++; return base.Add(time.Duration(calls) * time.Second) })

	_, _ = s.InsertIgnoringDuplicates(ctx, []core.Transaction{
		tx("a", 1, "COOP Lombardia", 100),
		tx("b", 5, "Amazon Prime", 200),
		tx("c", 5, "Bar", 300),
		{ExternalKey: "d", Date: core.NewDate(2025, 4, 1), Description: "Coop", Amount: core.Money{Cents: 1}, Type: core.Income},
	})

	got, _ := s.ListTransactions(ctx, store.ForMonth(core.YearMonth{Year: 2025, Month: 3}))
	if len(got) != 3 {
		t.Fatalf("expected 3 in March, got %d", len(got))
	}
	if got[0].ExternalKey != "c" || got[1].ExternalKey != "b" || got[2].ExternalKey != "a" {
		t.Fatalf("unexpected order: %s %s %s", got[0].ExternalKey, got[1].ExternalKey, got[2].ExternalKey)
	}

	n, _ := s.CountTransactions(ctx, store.TransactionFilter{Keyword: "coop"})
	if n != 2 {
		t.Fatalf("keyword count: got %d", n)
	}
	n, _ = s.CountTransactions(ctx, store.TransactionFilter{Description: "coop"})
	if n != 1 {
		t.Fatalf("exact description count: got %d", n)
	}
}

func TestSetCategory(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, _ = s.InsertIgnoringDuplicates(ctx, []core.Transaction{tx("a", 1, "Coop", 100), tx("b", 2, "Coop City", 100), tx("c", 3, "Bar", 100)})
	all, _ := s.ListTransactions(ctx, store.TransactionFilter{})

	cat := "groceries"
	n, err := s.SetCategoryByIDs(ctx, []string{all[0].ID, "missing"}, &cat)
	if err != nil || n != 1 {
		t.Fatalf("by ids: n=%d err=%v", n, err)
	}
	// all[0] is "Bar", the newest.
	n, _ = s.SetCategoryByFilter(ctx, store.TransactionFilter{Keyword: "coop", UncategorizedOnly: true}, &cat)
	if n != 2 {
		t.Fatalf("by filter: expected 2 uncategorized coop rows, got %d", n)
	}
	n, _ = s.CountTransactions(ctx, store.TransactionFilter{UncategorizedOnly: true})
	if n != 0 {
		t.Fatalf("expected nothing left uncategorized, got %d", n)
	}

	// Returned values are copies.
	got, _ := s.GetTransaction(ctx, all[0].ID)
	*got.CategoryID = "mutated"
	again, _ := s.GetTransaction(ctx, all[0].ID)
	if *again.CategoryID != "groceries" {
		t.Fatalf("store leaked its pointer")
	}
}

func TestCreateTransactionDuplicate(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, err := s.CreateTransaction(ctx, tx("manual_1", 1, "x", 1)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateTransaction(ctx, tx("manual_1", 1, "x", 1)); !errors.Is(err, store.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestDeleteTransactionKeepsKeyIndex(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, _ = s.InsertIgnoringDuplicates(ctx, []core.Transaction{tx("a", 1, "A", 1), tx("b", 2, "B", 1)})
	first, _ := s.TransactionsByExternalKeys(ctx, []string{"a"})
	if err := s.DeleteTransaction(ctx, first[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ := s.TransactionsByExternalKeys(ctx, []string{"a", "b"})
	if len(got) != 1 || got[0].ExternalKey != "b" {
		t.Fatalf("unexpected lookup after delete: %+v", got)
	}
	if err := s.DeleteTransaction(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertRuleByPattern(t *testing.T) {
	s := New()
	ctx := context.Background()
	r1, _ := s.UpsertRule(ctx, core.MerchantRule{Pattern: "Netflix", CategoryID: "a"})
	r2, _ := s.UpsertRule(ctx, core.MerchantRule{Pattern: "NETFLIX", CategoryID: "b"})
	rules, _ := s.ListRules(ctx)
	if len(rules) != 1 || r1.ID != r2.ID || rules[0].CategoryID != "b" {
		t.Fatalf("expected one re-pointed rule, got %+v", rules)
	}
}

func TestRulesCreatedInSameInstantGetIncreasingSeq(t *testing.T) {
	s := New()
	ctx := context.Background()
	frozen := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return frozen })

	a, _ := s.CreateRule(ctx, core.MerchantRule{Pattern: "AMA", CategoryID: "a"})
	b, _ := s.CreateRule(ctx, core.MerchantRule{Pattern: "AMAZON", CategoryID: "b"})
	if !a.CreatedAt.Equal(b.CreatedAt) || a.Seq >= b.Seq {
		t.Fatalf("expected equal timestamps and increasing seq, got %+v %+v", a, b)
	}
}

func TestBalances(t *testing.T) {
	s := New()
	ctx := context.Background()
	march := core.YearMonth{Year: 2025, Month: 3}
	if _, err := s.GetBalance(ctx, march); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	end := core.Money{Cents: 100000}
	saved, _ := s.UpsertBalance(ctx, core.MonthlyBalance{Year: 2025, Month: 3, EndingBalance: &end})
	again, _ := s.UpsertBalance(ctx, core.MonthlyBalance{Year: 2025, Month: 3, Notes: "x"})
	if saved.ID != again.ID {
		t.Fatalf("upsert changed id")
	}
	list, _ := s.ListBalances(ctx, 2025)
	if len(list) != 1 || list[0].Notes != "x" {
		t.Fatalf("unexpected balances: %+v", list)
	}
}

func TestNewFromFilesSeedsCategories(t *testing.T) {
	dir := t.TempDir()
	s := NewFromFiles(dir)
	cats, _ := s.ListCategories(context.Background())
	if len(cats) == 0 {
		t.Fatalf("expected default categories when file missing")
	}

	if err := os.WriteFile(filepath.Join(dir, "seed_categories.txt"), []byte("# header\nSpesa\nBar\nSpesa\n\n"), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s = NewFromFiles(dir)
	cats, _ = s.ListCategories(context.Background())
	if len(cats) != 2 || cats[0].Name != "Bar" || cats[1].Name != "Spesa" {
		t.Fatalf("unexpected cats: %+v", cats)
	}
	if cats[0].Icon != core.DefaultCategoryIcon {
		t.Fatalf("expected default icon, got %q", cats[0].Icon)
	}
}
