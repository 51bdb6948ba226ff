//go:build integration

package postgres

import (
	"context"
	"os"
	"testing"

	"bilancio/internal/core"
	"bilancio/internal/store"

	"github.com/google/uuid"
)

// Integration tests require a reachable Postgres database
// Run with: BILANCIO_TEST_DATABASE_URL=postgres://... go test -tags=integration ./internal/postgres

func TestIntegration_ImportIsIdempotent(t *testing.T) {
	url := os.Getenv("BILANCIO_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("BILANCIO_TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	repo, err := Open(ctx, url)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer repo.Close()

	prefix := "it_" + uuid.NewString()[:8] + "_"
	batch := []core.Transaction{
		{ExternalKey: prefix + "1", Date: core.NewDate(2025, 3, 1), Description: "Caffè", Amount: core.Money{Cents: 120}, Currency: "EUR", Type: core.Expense},
		{ExternalKey: prefix + "2", Date: core.NewDate(2025, 3, 2), Description: "Stipendio", Amount: core.Money{Cents: 100}, Currency: "EUR", Type: core.Income},
	}

	keys, err := repo.InsertIgnoringDuplicates(ctx, batch)
	if err != nil || len(keys) != 2 {
		t.Fatalf("first import: keys=%v err=%v", keys, err)
	}
	keys, err = repo.InsertIgnoringDuplicates(ctx, batch)
	if err != nil || len(keys) != 0 {
		t.Fatalf("second import: keys=%v err=%v", keys, err)
	}

	got, err := repo.TransactionsByExternalKeys(ctx, []string{prefix + "1", prefix + "2"})
	if err != nil || len(got) != 2 {
		t.Fatalf("lookup: %d rows, err=%v", len(got), err)
	}
	count, err := repo.CountTransactions(ctx, store.TransactionFilter{Keyword: "CAFFÈ", From: core.NewDate(2025, 3, 1), To: core.NewDate(2025, 3, 1)})
	if err != nil || count < 1 {
		t.Fatalf("keyword count: %d err=%v", count, err)
	}

	for _, tx := range got {
		if err := repo.DeleteTransaction(ctx, tx.ID); err != nil {
			t.Fatalf("cleanup: %v", err)
		}
	}
}
