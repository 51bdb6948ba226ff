// Package store declares the persistence ports used by the services.
// Adapters live in store/memory, storage (SQLite) and postgres.
package store

import (
	"context"
	"errors"
	"strings"

	"bilancio/internal/core"
)

// ErrDuplicateKey is returned when a single insert collides with a stored external key.
var ErrDuplicateKey = errors.New("duplicate external key")

// TransactionFilter selects transactions. Zero fields do not constrain.
type TransactionFilter struct {
	// From and To bound the transaction date, both inclusive.
	From core.Date
	To   core.Date
	// Keyword is a case-insensitive substring of the description.
	Keyword string
	// Description is a case-insensitive match of the whole description.
	Description       string
	UncategorizedOnly bool
}

// ForMonth returns a filter covering one calendar month.
func ForMonth(ym core.YearMonth) TransactionFilter {
	return TransactionFilter{From: ym.First(), To: ym.Last()}
}

// Matches reports whether tx satisfies the filter. Adapters without a query
// language use it directly; SQL adapters mirror it in their WHERE clauses.
func (f TransactionFilter) Matches(tx core.Transaction) bool {
	if !f.From.IsZero() && tx.Date.Before(f.From.Time) {
		return false
	}
	if !f.To.IsZero() && tx.Date.After(f.To.Time) {
		return false
	}
	if kw := strings.TrimSpace(f.Keyword); kw != "" &&
		!strings.Contains(strings.ToUpper(tx.Description), strings.ToUpper(kw)) {
		return false
	}
	if f.Description != "" && !strings.EqualFold(strings.TrimSpace(tx.Description), strings.TrimSpace(f.Description)) {
		return false
	}
	if f.UncategorizedOnly && tx.IsCategorized() {
		return false
	}
	return true
}

// Ports for outbound adapters.
type (
	TransactionWriter interface {
		// InsertIgnoringDuplicates writes every transaction whose external key
		// is not stored yet, atomically, and returns the external keys it
		// wrote in input order.
		InsertIgnoringDuplicates(ctx context.Context, txs []core.Transaction) ([]string, error)
	}

	TransactionReader interface {
		// ListTransactions returns matches ordered by date, then creation time, newest first.
		ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
		CountTransactions(ctx context.Context, f TransactionFilter) (int, error)
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		TransactionsByExternalKeys(ctx context.Context, keys []string) ([]core.Transaction, error)
	}

	TransactionEditor interface {
		CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, tx core.Transaction) error
		DeleteTransaction(ctx context.Context, id string) error
		// SetCategoryByIDs sets (or clears with nil) the category of the listed transactions.
		SetCategoryByIDs(ctx context.Context, ids []string, categoryID *string) (int, error)
		SetCategoryByFilter(ctx context.Context, f TransactionFilter, categoryID *string) (int, error)
	}

	CategoryStore interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
		GetCategory(ctx context.Context, id string) (core.Category, error)
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
		UpdateCategory(ctx context.Context, c core.Category) error
		DeleteCategory(ctx context.Context, id string) error
	}

	RuleStore interface {
		// ListRules returns rules in creation order.
		ListRules(ctx context.Context) ([]core.MerchantRule, error)
		CreateRule(ctx context.Context, r core.MerchantRule) (core.MerchantRule, error)
		// UpsertRule re-points the rule with the same pattern (case-insensitive)
		// or creates it.
		UpsertRule(ctx context.Context, r core.MerchantRule) (core.MerchantRule, error)
		DeleteRule(ctx context.Context, id string) error
	}

	BalanceStore interface {
		// GetBalance returns core.ErrNotFound when the month has no record.
		GetBalance(ctx context.Context, ym core.YearMonth) (core.MonthlyBalance, error)
		UpsertBalance(ctx context.Context, b core.MonthlyBalance) (core.MonthlyBalance, error)
		ListBalances(ctx context.Context, year int) ([]core.MonthlyBalance, error)
	}

	Pinger interface {
		Ping(ctx context.Context) error
	}

	// Store is everything a backend provides.
	Store interface {
		TransactionWriter
		TransactionReader
		TransactionEditor
		CategoryStore
		RuleStore
		BalanceStore
		Pinger
	}
)
