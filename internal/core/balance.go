package core

import (
	"fmt"
	"time"
)

// YearMonth selects a calendar month.
type YearMonth struct {
	Year  int `json:"year"`
	Month int `json:"month"` // 1-12
}

// MonthlyBalance holds the user-entered bank balances for one month.
type MonthlyBalance struct {
	ID              string    `json:"id,omitempty"`
	Year            int       `json:"year"`
	Month           int       `json:"month"`
	StartingBalance *Money    `json:"starting_balance"`
	EndingBalance   *Money    `json:"ending_balance"`
	Notes           string    `json:"notes"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ReconcileStatus summarizes the sign of a reconciliation difference.
type ReconcileStatus string

const (
	StatusBalanced   ReconcileStatus = "balanced"
	StatusSurplus    ReconcileStatus = "surplus"
	StatusShortfall  ReconcileStatus = "shortfall"
	StatusIncomplete ReconcileStatus = "incomplete"
)

// Reconciliation compares an actual ending balance with the balance implied by transactions.
type Reconciliation struct {
	Income            Money           `json:"income"`
	Expense           Money           `json:"expense"`
	ExpectedChange    Money           `json:"expected_change"`
	AccountingBalance Money           `json:"accounting_balance"`
	Difference        *Money          `json:"difference"`
	Status            ReconcileStatus `json:"status"`
}

func NewYearMonth(year, month int) (YearMonth, error) {
	ym := YearMonth{Year: year, Month: month}
	return ym, ym.Validate()
}

// YearMonthOf returns the month containing d.
func YearMonthOf(d Date) YearMonth {
	return YearMonth{Year: d.Year(), Month: d.Month()}
}

func (ym YearMonth) Validate() error {
	if ym.Month < 1 || ym.Month > 12 {
		return Invalid("month", ErrInvalidMonth)
	}
	if ym.Year < 1900 || ym.Year > 9999 {
		return Invalid("year", ErrInvalidDate)
	}
	return nil
}

func (ym YearMonth) Prev() YearMonth {
	if ym.Month == 1 {
		return YearMonth{Year: ym.Year - 1, Month: 12}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month - 1}
}

func (ym YearMonth) Next() YearMonth {
	if ym.Month == 12 {
		return YearMonth{Year: ym.Year + 1, Month: 1}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month + 1}
}

// First returns the first day of the month.
func (ym YearMonth) First() Date {
	return NewDate(ym.Year, ym.Month, 1)
}

// Last returns the last day of the month.
func (ym YearMonth) Last() Date {
	return Date{Time: ym.Next().First().AddDate(0, 0, -1)}
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, ym.Month)
}

// Key returns the month key of a stored balance.
func (b MonthlyBalance) Key() YearMonth {
	return YearMonth{Year: b.Year, Month: b.Month}
}

// Totals sums income and expense magnitudes.
func Totals(txs []Transaction) (income, expense Money) {
	for _, t := range txs {
		switch t.Type {
		case Income:
			income = income.Add(t.Amount.Abs())
		case Expense:
			expense = expense.Add(t.Amount.Abs())
		}
	}
	return income, expense
}

// Reconcile computes expected change, accounting balance and difference.
// A missing starting balance counts as zero; without an ending balance
// there is no difference and the status is incomplete.
func Reconcile(start, end *Money, income, expense Money) Reconciliation {
	r := Reconciliation{
		Income:         income,
		Expense:        expense,
		ExpectedChange: income.Sub(expense),
		Status:         StatusIncomplete,
	}
	var base Money
	if start != nil {
		base = *start
	}
	r.AccountingBalance = base.Add(r.ExpectedChange)
	if end == nil || start == nil {
		return r
	}

	diff := end.Sub(r.AccountingBalance)
	r.Difference = &diff
	switch {
	case diff.Cents > 0:
		r.Status = StatusSurplus
	case diff.Cents < 0:
		r.Status = StatusShortfall
	default:
		r.Status = StatusBalanced
	}
	return r
}
