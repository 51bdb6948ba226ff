package storage

import (
	"context"
	"database/sql"
)

const transactionColumns = `id, external_key, date, description, amount_cents, currency, type, category_id, is_manual, is_recurring, created_at`

// Parameters ?1..?5 of every filtered query, see TransactionFilterParams.
const transactionFilter = `
WHERE (?1 = '' OR date >= ?1)
  AND (?2 = '' OR date <= ?2)
  AND (?3 = '' OR instr(unicode_upper(description), unicode_upper(?3)) > 0)
  AND (?4 = '' OR unicode_upper(trim(description)) = unicode_upper(trim(?4)))
  AND (?5 = 0 OR category_id IS NULL OR category_id = '')`

type TransactionFilterParams struct {
	From              string
	To                string
	Keyword           string
	Description       string
	UncategorizedOnly bool
}

func (p TransactionFilterParams) args() []interface{} {
	return []interface{}{p.From, p.To, p.Keyword, p.Description, p.UncategorizedOnly}
}

func scanTransaction(row interface{ Scan(...interface{}) error }) (Transaction, error) {
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.ExternalKey,
		&i.Date,
		&i.Description,
		&i.AmountCents,
		&i.Currency,
		&i.Type,
		&i.CategoryID,
		&i.IsManual,
		&i.IsRecurring,
		&i.CreatedAt,
	)
	return i, err
}

const insertTransactionIgnore = `-- name: InsertTransactionIgnore :execresult
INSERT INTO transactions (` + transactionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (external_key) DO NOTHING`

type InsertTransactionParams struct {
	ID          string
	ExternalKey string
	Date        string
	Description string
	AmountCents int64
	Currency    string
	Type        string
	CategoryID  sql.NullString
	IsManual    bool
	IsRecurring bool
	CreatedAt   string
}

func (p InsertTransactionParams) args() []interface{} {
	return []interface{}{
		p.ID, p.ExternalKey, p.Date, p.Description, p.AmountCents, p.Currency,
		p.Type, p.CategoryID, p.IsManual, p.IsRecurring, p.CreatedAt,
	}
}

func (q *Queries) InsertTransactionIgnore(ctx context.Context, arg InsertTransactionParams) (sql.Result, error) {
	return q.db.ExecContext(ctx, insertTransactionIgnore, arg.args()...)
}

const insertTransaction = `-- name: InsertTransaction :one
INSERT INTO transactions (` + transactionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + transactionColumns

func (q *Queries) InsertTransaction(ctx context.Context, arg InsertTransactionParams) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, insertTransaction, arg.args()...))
}

const listTransactions = `-- name: ListTransactions :many
SELECT ` + transactionColumns + ` FROM transactions` + transactionFilter + `
ORDER BY date DESC, created_at DESC, rowid DESC`

func (q *Queries) ListTransactions(ctx context.Context, arg TransactionFilterParams) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions, arg.args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		i, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countTransactions = `-- name: CountTransactions :one
SELECT COUNT(*) FROM transactions` + transactionFilter

func (q *Queries) CountTransactions(ctx context.Context, arg TransactionFilterParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, countTransactions, arg.args()...)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const getTransaction = `-- name: GetTransaction :one
SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id string) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
}

const getTransactionByExternalKey = `-- name: GetTransactionByExternalKey :one
SELECT ` + transactionColumns + ` FROM transactions WHERE external_key = ?`

func (q *Queries) GetTransactionByExternalKey(ctx context.Context, externalKey string) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransactionByExternalKey, externalKey))
}

const updateTransaction = `-- name: UpdateTransaction :execrows
UPDATE transactions
SET date = ?, description = ?, amount_cents = ?, currency = ?, type = ?, category_id = ?, is_recurring = ?
WHERE id = ?`

type UpdateTransactionParams struct {
	Date        string
	Description string
	AmountCents int64
	Currency    string
	Type        string
	CategoryID  sql.NullString
	IsRecurring bool
	ID          string
}

func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateTransaction,
		arg.Date,
		arg.Description,
		arg.AmountCents,
		arg.Currency,
		arg.Type,
		arg.CategoryID,
		arg.IsRecurring,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteTransaction = `-- name: DeleteTransaction :execrows
DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const setTransactionCategory = `-- name: SetTransactionCategory :execrows
UPDATE transactions SET category_id = ? WHERE id = ?`

func (q *Queries) SetTransactionCategory(ctx context.Context, categoryID sql.NullString, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, setTransactionCategory, categoryID, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const setCategoryByFilter = `-- name: SetCategoryByFilter :execrows
UPDATE transactions SET category_id = ?6` + transactionFilter

func (q *Queries) SetCategoryByFilter(ctx context.Context, arg TransactionFilterParams, categoryID sql.NullString) (int64, error) {
	result, err := q.db.ExecContext(ctx, setCategoryByFilter, append(arg.args(), categoryID)...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listCategories = `-- name: ListCategories :many
SELECT id, name, icon, color, created_at FROM categories ORDER BY name COLLATE NOCASE, id`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var i Category
		if err := rows.Scan(&i.ID, &i.Name, &i.Icon, &i.Color, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getCategory = `-- name: GetCategory :one
SELECT id, name, icon, color, created_at FROM categories WHERE id = ?`

func (q *Queries) GetCategory(ctx context.Context, id string) (Category, error) {
	row := q.db.QueryRowContext(ctx, getCategory, id)
	var i Category
	err := row.Scan(&i.ID, &i.Name, &i.Icon, &i.Color, &i.CreatedAt)
	return i, err
}

const createCategory = `-- name: CreateCategory :exec
INSERT INTO categories (id, name, icon, color, created_at) VALUES (?, ?, ?, ?, ?)`

func (q *Queries) CreateCategory(ctx context.Context, arg Category) error {
	_, err := q.db.ExecContext(ctx, createCategory, arg.ID, arg.Name, arg.Icon, arg.Color, arg.CreatedAt)
	return err
}

const updateCategory = `-- name: UpdateCategory :execrows
UPDATE categories SET name = ?, icon = ?, color = ? WHERE id = ?`

func (q *Queries) UpdateCategory(ctx context.Context, arg Category) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateCategory, arg.Name, arg.Icon, arg.Color, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteCategory = `-- name: DeleteCategory :execrows
DELETE FROM categories WHERE id = ?`

func (q *Queries) DeleteCategory(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteCategory, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listRules = `-- name: ListRules :many
SELECT rowid, id, merchant_pattern, category_id, created_at FROM merchant_rules ORDER BY created_at, rowid, id`

func (q *Queries) ListRules(ctx context.Context) ([]MerchantRule, error) {
	rows, err := q.db.QueryContext(ctx, listRules)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MerchantRule
	for rows.Next() {
		var i MerchantRule
		if err := rows.Scan(&i.Rowid, &i.ID, &i.MerchantPattern, &i.CategoryID, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getRuleByPattern = `-- name: GetRuleByPattern :one
SELECT rowid, id, merchant_pattern, category_id, created_at FROM merchant_rules
WHERE unicode_upper(merchant_pattern) = unicode_upper(?)
ORDER BY created_at, rowid, id
LIMIT 1`

func (q *Queries) GetRuleByPattern(ctx context.Context, pattern string) (MerchantRule, error) {
	row := q.db.QueryRowContext(ctx, getRuleByPattern, pattern)
	var i MerchantRule
	err := row.Scan(&i.Rowid, &i.ID, &i.MerchantPattern, &i.CategoryID, &i.CreatedAt)
	return i, err
}

const createRule = `-- name: CreateRule :execlastid
INSERT INTO merchant_rules (id, merchant_pattern, category_id, created_at) VALUES (?, ?, ?, ?)`

func (q *Queries) CreateRule(ctx context.Context, arg MerchantRule) (int64, error) {
	result, err := q.db.ExecContext(ctx, createRule, arg.ID, arg.MerchantPattern, arg.CategoryID, arg.CreatedAt)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

const setRuleCategory = `-- name: SetRuleCategory :exec
UPDATE merchant_rules SET category_id = ? WHERE id = ?`

func (q *Queries) SetRuleCategory(ctx context.Context, categoryID, id string) error {
	_, err := q.db.ExecContext(ctx, setRuleCategory, categoryID, id)
	return err
}

const deleteRule = `-- name: DeleteRule :execrows
DELETE FROM merchant_rules WHERE id = ?`

func (q *Queries) DeleteRule(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteRule, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const balanceColumns = `id, year, month, starting_balance_cents, ending_balance_cents, notes, updated_at`

func scanBalance(row interface{ Scan(...interface{}) error }) (MonthlyBalance, error) {
	var i MonthlyBalance
	err := row.Scan(
		&i.ID,
		&i.Year,
		&i.Month,
		&i.StartingBalanceCents,
		&i.EndingBalanceCents,
		&i.Notes,
		&i.UpdatedAt,
	)
	return i, err
}

const getBalance = `-- name: GetBalance :one
SELECT ` + balanceColumns + ` FROM monthly_balances WHERE year = ? AND month = ?`

func (q *Queries) GetBalance(ctx context.Context, year, month int64) (MonthlyBalance, error) {
	return scanBalance(q.db.QueryRowContext(ctx, getBalance, year, month))
}

const upsertBalance = `-- name: UpsertBalance :one
INSERT INTO monthly_balances (` + balanceColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (year, month) DO UPDATE SET
    starting_balance_cents = excluded.starting_balance_cents,
    ending_balance_cents   = excluded.ending_balance_cents,
    notes                  = excluded.notes,
    updated_at             = excluded.updated_at
RETURNING ` + balanceColumns

func (q *Queries) UpsertBalance(ctx context.Context, arg MonthlyBalance) (MonthlyBalance, error) {
	row := q.db.QueryRowContext(ctx, upsertBalance,
		arg.ID,
		arg.Year,
		arg.Month,
		arg.StartingBalanceCents,
		arg.EndingBalanceCents,
		arg.Notes,
		arg.UpdatedAt,
	)
	return scanBalance(row)
}

const listBalancesByYear = `-- name: ListBalancesByYear :many
SELECT ` + balanceColumns + ` FROM monthly_balances WHERE year = ? ORDER BY month`

func (q *Queries) ListBalancesByYear(ctx context.Context, year int64) ([]MonthlyBalance, error) {
	rows, err := q.db.QueryContext(ctx, listBalancesByYear, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MonthlyBalance
	for rows.Next() {
		i, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
