package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bilancio/internal/core"
	"bilancio/internal/store"
)

// MonthBalance is a stored (or pre-filled) month with its reconciliation.
type MonthBalance struct {
	core.MonthlyBalance
	// Prefilled is set when no record exists and the starting balance was
	// taken from the previous month's ending balance.
	Prefilled      bool                `json:"prefilled"`
	Reconciliation core.Reconciliation `json:"reconciliation"`
}

type BalanceStore interface {
	store.BalanceStore
	store.TransactionReader
}

type BalanceService struct {
	store BalanceStore
}

func NewBalanceService(s BalanceStore) *BalanceService {
	return &BalanceService{store: s}
}

// Get returns the balances of ym reconciled against that month's transactions.
func (s *BalanceService) Get(ctx context.Context, ym core.YearMonth) (MonthBalance, error) {
	if err := ym.Validate(); err != nil {
		return MonthBalance{}, err
	}

	out := MonthBalance{MonthlyBalance: core.MonthlyBalance{Year: ym.Year, Month: ym.Month}}
	b, err := s.store.GetBalance(ctx, ym)
	switch {
	case err == nil:
		out.MonthlyBalance = b
	case errors.Is(err, core.ErrNotFound):
		prev, err := s.store.GetBalance(ctx, ym.Prev())
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			return MonthBalance{}, fmt.Errorf("get previous balance: %w", err)
		}
		if err == nil && prev.EndingBalance != nil {
			start := *prev.EndingBalance
			out.StartingBalance = &start
			out.Prefilled = true
		}
	default:
		return MonthBalance{}, fmt.Errorf("get balance: %w", err)
	}

	txs, err := s.store.ListTransactions(ctx, store.ForMonth(ym))
	if err != nil {
		return MonthBalance{}, fmt.Errorf("list month transactions: %w", err)
	}
	income, expense := core.Totals(txs)
	out.Reconciliation = core.Reconcile(out.StartingBalance, out.EndingBalance, income, expense)
	return out, nil
}

// Save upserts the balances of ym. A set ending balance becomes next month's
// starting balance; next month's ending balance and notes are kept.
func (s *BalanceService) Save(ctx context.Context, ym core.YearMonth, start, end *core.Money, notes string) (MonthBalance, error) {
	if err := ym.Validate(); err != nil {
		return MonthBalance{}, err
	}

	_, err := s.store.UpsertBalance(ctx, core.MonthlyBalance{
		Year:            ym.Year,
		Month:           ym.Month,
		StartingBalance: start,
		EndingBalance:   end,
		Notes:           notes,
	})
	if err != nil {
		return MonthBalance{}, fmt.Errorf("save balance: %w", err)
	}

	if end != nil {
		if err := s.carryForward(ctx, ym.Next(), *end); err != nil {
			return MonthBalance{}, err
		}
	}

	return s.Get(ctx, ym)
}

func (s *BalanceService) carryForward(ctx context.Context, next core.YearMonth, start core.Money) error {
	b, err := s.store.GetBalance(ctx, next)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("get next month balance: %w", err)
	}
	if errors.Is(err, core.ErrNotFound) {
		b = core.MonthlyBalance{Year: next.Year, Month: next.Month}
	}
	b.StartingBalance = &start
	if _, err := s.store.UpsertBalance(ctx, b); err != nil {
		return fmt.Errorf("carry balance to %s: %w", next, err)
	}
	slog.DebugContext(ctx, "Carried ending balance forward", "month", next.String(), "starting_balance", start.String())
	return nil
}
