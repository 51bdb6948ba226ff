package services

import (
	"context"
	"testing"

	"bilancio/internal/core"
	"bilancio/internal/store/memory"
)

func money(cents int64) *core.Money { return &core.Money{Cents: cents} }

func candidate(key string, date core.Date, desc string, cents int64) core.Transaction {
	return core.Transaction{
		ExternalKey: key,
		Date:        date,
		Description: desc,
		Amount:      core.Money{Cents: cents}.Abs(),
		Currency:    "EUR",
		Type:        core.TypeFromSign(cents),
	}
}

func seed(t *testing.T, s *memory.Store, txs ...core.Transaction) {
	t.Helper()
	if _, err := s.InsertIgnoringDuplicates(context.Background(), txs); err != nil {
		t.Fatalf("seed transactions: %v", err)
	}
}

func categoryOf(t *testing.T, s *memory.Store, key string) string {
	t.Helper()
	txs, err := s.TransactionsByExternalKeys(context.Background(), []string{key})
	if err != nil || len(txs) != 1 {
		t.Fatalf("lookup %s: %v (found %d)", key, err, len(txs))
	}
	if txs[0].CategoryID == nil {
		return ""
	}
	return *txs[0].CategoryID
}
