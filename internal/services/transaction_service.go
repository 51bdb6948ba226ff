package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/store"

	"github.com/google/uuid"
)

// MonthTotals are the summed magnitudes of a month's transactions.
type MonthTotals struct {
	Income  core.Money `json:"income"`
	Expense core.Money `json:"expense"`
	Net     core.Money `json:"net"`
}

type MonthTransactions struct {
	Year         int                `json:"year"`
	Month        int                `json:"month"`
	Transactions []core.Transaction `json:"transactions"`
	Totals       MonthTotals        `json:"totals"`
}

// ManualInput describes a transaction entered by hand.
type ManualInput struct {
	Date        core.Date            `json:"date"`
	Description string               `json:"description"`
	Amount      core.Money           `json:"amount"`
	Type        core.TransactionType `json:"type"`
	CategoryID  *string              `json:"category_id"`
	IsRecurring bool                 `json:"is_recurring"`
}

// Patch changes a stored transaction. Nil fields are left untouched except
// CategoryID, where nil clears the category.
type Patch struct {
	Date        *core.Date            `json:"date"`
	Description *string               `json:"description"`
	Amount      *core.Money           `json:"amount"`
	Type        *core.TransactionType `json:"type"`
	CategoryID  *string               `json:"category_id"`
	IsRecurring *bool                 `json:"is_recurring"`
}

type TransactionStore interface {
	store.TransactionReader
	store.TransactionEditor
}

type TransactionService struct {
	store TransactionStore
	now   func() time.Time
}

func NewTransactionService(s TransactionStore) *TransactionService {
	return &TransactionService{store: s, now: time.Now}
}

// List returns the month's transactions, newest first, with totals.
func (s *TransactionService) List(ctx context.Context, ym core.YearMonth) (MonthTransactions, error) {
	if err := ym.Validate(); err != nil {
		return MonthTransactions{}, err
	}
	txs, err := s.store.ListTransactions(ctx, store.ForMonth(ym))
	if err != nil {
		return MonthTransactions{}, fmt.Errorf("list transactions: %w", err)
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	income, expense := core.Totals(txs)
	return MonthTransactions{
		Year:         ym.Year,
		Month:        ym.Month,
		Transactions: txs,
		Totals:       MonthTotals{Income: income, Expense: expense, Net: income.Sub(expense)},
	}, nil
}

func (s *TransactionService) CreateManual(ctx context.Context, in ManualInput) (core.Transaction, error) {
	if in.Amount.Cents <= 0 {
		return core.Transaction{}, core.Invalid("amount", core.ErrInvalidAmount)
	}
	if in.Type == "" {
		in.Type = core.Expense
	}
	date := in.Date
	if date.IsZero() {
		date = core.DateOf(s.now())
	}

	tx := core.Transaction{
		ExternalKey: core.ManualExternalKeyPrefix + uuid.NewString(),
		Date:        date,
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		Type:        in.Type,
		CategoryID:  in.CategoryID,
		IsManual:    true,
		IsRecurring: in.IsRecurring,
	}.WithDefaults(core.DefaultManualDescription)
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	created, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create manual transaction: %w", err)
	}
	slog.InfoContext(ctx, "Manual transaction created", "id", created.ID, "amount", created.Amount.String())
	return created, nil
}

func (s *TransactionService) Update(ctx context.Context, id string, p Patch) (core.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}

	if p.Date != nil {
		tx.Date = *p.Date
	}
	if p.Description != nil {
		tx.Description = strings.TrimSpace(*p.Description)
	}
	if p.Amount != nil {
		if p.Amount.Cents <= 0 {
			return core.Transaction{}, core.Invalid("amount", core.ErrInvalidAmount)
		}
		tx.Amount = *p.Amount
	}
	if p.Type != nil {
		tx.Type = *p.Type
	}
	if p.IsRecurring != nil {
		tx.IsRecurring = *p.IsRecurring
	}
	tx.CategoryID = p.CategoryID
	tx = tx.WithDefaults(core.DefaultManualDescription)

	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.store.UpdateTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	return tx, nil
}

func (s *TransactionService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}
