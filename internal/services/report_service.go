package services

import (
	"context"
	"fmt"

	"bilancio/internal/core"
	"bilancio/internal/store"

	"golang.org/x/sync/errgroup"
)

// Overview bundles everything a month page needs.
type Overview struct {
	Summary      core.MonthOverview `json:"summary"`
	Transactions []core.Transaction `json:"transactions"`
	Categories   []core.Category    `json:"categories"`
	Rules        []core.MerchantRule `json:"rules"`
	// Balance is nil when the month has no record and nothing to pre-fill.
	Balance *MonthBalance `json:"balance"`
}

type ReportStore interface {
	store.TransactionReader
	store.CategoryStore
	store.RuleStore
	store.BalanceStore
}

type ReportService struct {
	store    ReportStore
	balances *BalanceService
}

func NewReportService(s ReportStore) *ReportService {
	return &ReportService{store: s, balances: NewBalanceService(s)}
}

// Monthly returns income, expense and the expense breakdown of ym.
func (s *ReportService) Monthly(ctx context.Context, ym core.YearMonth) (core.MonthOverview, error) {
	if err := ym.Validate(); err != nil {
		return core.MonthOverview{}, err
	}

	var (
		txs  []core.Transaction
		cats []core.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		txs, err = s.store.ListTransactions(gctx, store.ForMonth(ym))
		return err
	})
	g.Go(func() (err error) {
		cats, err = s.store.ListCategories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.MonthOverview{}, fmt.Errorf("monthly report: %w", err)
	}
	return core.BuildMonthOverview(ym, txs, cats), nil
}

// Trend returns the starting balance of every month of year.
func (s *ReportService) Trend(ctx context.Context, year int) ([]core.TrendPoint, error) {
	if err := (core.YearMonth{Year: year, Month: 1}).Validate(); err != nil {
		return nil, err
	}
	balances, err := s.store.ListBalances(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	return core.BuildYearTrend(year, balances), nil
}

// Overview loads transactions, categories, rules and balance concurrently.
func (s *ReportService) Overview(ctx context.Context, ym core.YearMonth) (Overview, error) {
	if err := ym.Validate(); err != nil {
		return Overview{}, err
	}

	var out Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Transactions, err = s.store.ListTransactions(gctx, store.ForMonth(ym))
		return err
	})
	g.Go(func() (err error) {
		out.Categories, err = s.store.ListCategories(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.Rules, err = s.store.ListRules(gctx)
		return err
	})
	g.Go(func() error {
		b, err := s.balances.Get(gctx, ym)
		if err != nil {
			return err
		}
		if b.ID != "" || b.Prefilled {
			out.Balance = &b
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Overview{}, fmt.Errorf("load overview: %w", err)
	}

	if out.Transactions == nil {
		out.Transactions = []core.Transaction{}
	}
	out.Summary = core.BuildMonthOverview(ym, out.Transactions, out.Categories)
	return out, nil
}
