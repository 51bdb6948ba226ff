// Package postgres is the hosted-database backend, built on a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ store.Store = (*Repository)(nil)

const transactionColumns = `id, external_key, date, description, amount_cents, currency, type, category_id, is_manual, is_recurring, created_at`

// $1..$5, see filterArgs.
const transactionFilter = `
WHERE ($1::date IS NULL OR date >= $1::date)
  AND ($2::date IS NULL OR date <= $2::date)
  AND ($3::text = '' OR strpos(upper(description), upper($3::text)) > 0)
  AND ($4::text = '' OR upper(btrim(description)) = upper(btrim($4::text)))
  AND (NOT $5::bool OR category_id IS NULL OR category_id = '')`

const balanceColumns = `id, year, month, starting_balance_cents, ending_balance_cents, notes, updated_at`

type Repository struct {
	pool *pgxpool.Pool
}

// Open connects, pings and migrates.
func Open(ctx context.Context, databaseURL string) (*Repository, error) {
	if err := RunMigrations(databaseURL); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// InsertIgnoringDuplicates implements store.TransactionWriter
func (r *Repository) InsertIgnoringDuplicates(ctx context.Context, txs []core.Transaction) ([]string, error) {
	if len(txs) == 0 {
		return nil, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin import transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (external_key) DO NOTHING`

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, t := range txs {
		batch.Queue(query, insertArgs(t, now)...)
	}

	br := tx.SendBatch(ctx, batch)
	var inserted []string
	for i := range txs {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return nil, fmt.Errorf("insert transaction %s: %w", txs[i].ExternalKey, err)
		}
		if tag.RowsAffected() > 0 {
			inserted = append(inserted, txs[i].ExternalKey)
		}
	}
	if err := br.Close(); err != nil {
		return nil, fmt.Errorf("close import batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit import transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transactions inserted into Postgres",
		"candidates", len(txs),
		"inserted", len(inserted))
	return inserted, nil
}

func insertArgs(t core.Transaction, now time.Time) []any {
	id := t.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	return []any{
		id, t.ExternalKey, t.Date.Time, t.Description, t.Amount.Cents, t.Currency,
		string(t.Type), nullID(t.CategoryID), t.IsManual, t.IsRecurring, createdAt,
	}
}

// ListTransactions implements store.TransactionReader
func (r *Repository) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]core.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions`+transactionFilter+`
		ORDER BY date DESC, created_at DESC, id DESC`, filterArgs(f)...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

func (r *Repository) CountTransactions(ctx context.Context, f store.TransactionFilter) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`+transactionFilter, filterArgs(f)...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func (r *Repository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction by id: %w", err)
	}
	return t, nil
}

func (r *Repository) TransactionsByExternalKeys(ctx context.Context, keys []string) ([]core.Transaction, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE external_key = ANY($1)
		ORDER BY date, created_at`, keys)
	if err != nil {
		return nil, fmt.Errorf("get transactions by external key: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateTransaction implements store.TransactionEditor
func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+transactionColumns, insertArgs(t, time.Now().UTC())...)
	created, err := scanTransaction(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return core.Transaction{}, store.ErrDuplicateKey
		}
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return created, nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE transactions
		SET date = $1, description = $2, amount_cents = $3, currency = $4, type = $5, category_id = $6, is_recurring = $7
		WHERE id = $8`,
		t.Date.Time, t.Description, t.Amount.Cents, t.Currency, string(t.Type), nullID(t.CategoryID), t.IsRecurring, t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "transactions", id)
}

func (r *Repository) SetCategoryByIDs(ctx context.Context, ids []string, categoryID *string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, `UPDATE transactions SET category_id = $1 WHERE id = ANY($2)`, nullID(categoryID), ids)
	if err != nil {
		return 0, fmt.Errorf("set category by ids: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *Repository) SetCategoryByFilter(ctx context.Context, f store.TransactionFilter, categoryID *string) (int, error) {
	args := append(filterArgs(f), nullID(categoryID))
	tag, err := r.pool.Exec(ctx, `UPDATE transactions SET category_id = $6`+transactionFilter, args...)
	if err != nil {
		return 0, fmt.Errorf("set category by filter: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ListCategories implements store.CategoryStore
func (r *Repository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, icon, color, created_at FROM categories ORDER BY lower(name), id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.Color, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	var c core.Category
	err := r.pool.QueryRow(ctx, `SELECT id, name, icon, color, created_at FROM categories WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Icon, &c.Color, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (r *Repository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c = c.WithDefaults()
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO categories (id, name, icon, color, created_at) VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Name, c.Icon, c.Color, c.CreatedAt)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (r *Repository) UpdateCategory(ctx context.Context, c core.Category) error {
	tag, err := r.pool.Exec(ctx, `UPDATE categories SET name = $1, icon = $2, color = $3 WHERE id = $4`,
		c.Name, c.Icon, c.Color, c.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteCategory(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "categories", id)
}

// ListRules implements store.RuleStore
func (r *Repository) ListRules(ctx context.Context) ([]core.MerchantRule, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, merchant_pattern, category_id, created_at, seq FROM merchant_rules ORDER BY created_at, seq, id`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var out []core.MerchantRule
	for rows.Next() {
		var m core.MerchantRule
		if err := rows.Scan(&m.ID, &m.Pattern, &m.CategoryID, &m.CreatedAt, &m.Seq); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repository) CreateRule(ctx context.Context, m core.MerchantRule) (core.MerchantRule, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	err := r.pool.QueryRow(ctx, `INSERT INTO merchant_rules (id, merchant_pattern, category_id, created_at) VALUES ($1, $2, $3, $4) RETURNING seq`,
		m.ID, m.Pattern, m.CategoryID, m.CreatedAt).Scan(&m.Seq)
	if err != nil {
		return core.MerchantRule{}, fmt.Errorf("create rule: %w", err)
	}
	return m, nil
}

func (r *Repository) UpsertRule(ctx context.Context, m core.MerchantRule) (core.MerchantRule, error) {
	var existing core.MerchantRule
	err := r.pool.QueryRow(ctx,
		`UPDATE merchant_rules SET category_id = $1
		WHERE id = (SELECT id FROM merchant_rules WHERE upper(merchant_pattern) = upper($2) ORDER BY created_at, seq, id LIMIT 1)
		RETURNING id, merchant_pattern, category_id, created_at, seq`, m.CategoryID, m.Pattern).
		Scan(&existing.ID, &existing.Pattern, &existing.CategoryID, &existing.CreatedAt, &existing.Seq)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.CreateRule(ctx, m)
	}
	if err != nil {
		return core.MerchantRule{}, fmt.Errorf("upsert rule: %w", err)
	}
	return existing, nil
}

func (r *Repository) DeleteRule(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "merchant_rules", id)
}

// GetBalance implements store.BalanceStore
func (r *Repository) GetBalance(ctx context.Context, ym core.YearMonth) (core.MonthlyBalance, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+balanceColumns+` FROM monthly_balances WHERE year = $1 AND month = $2`, ym.Year, ym.Month)
	b, err := scanBalance(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.MonthlyBalance{}, core.ErrNotFound
	}
	if err != nil {
		return core.MonthlyBalance{}, fmt.Errorf("get balance: %w", err)
	}
	return b, nil
}

func (r *Repository) UpsertBalance(ctx context.Context, b core.MonthlyBalance) (core.MonthlyBalance, error) {
	id := b.ID
	if id == "" {
		id = uuid.NewString()
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO monthly_balances (`+balanceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (year, month) DO UPDATE SET
			starting_balance_cents = excluded.starting_balance_cents,
			ending_balance_cents   = excluded.ending_balance_cents,
			notes                  = excluded.notes,
			updated_at             = excluded.updated_at
		RETURNING `+balanceColumns,
		id, b.Year, b.Month, cents(b.StartingBalance), cents(b.EndingBalance), b.Notes)
	saved, err := scanBalance(row)
	if err != nil {
		return core.MonthlyBalance{}, fmt.Errorf("upsert balance: %w", err)
	}
	return saved, nil
}

func (r *Repository) ListBalances(ctx context.Context, year int) ([]core.MonthlyBalance, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+balanceColumns+` FROM monthly_balances WHERE year = $1 ORDER BY month`, year)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	defer rows.Close()

	var out []core.MonthlyBalance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repository) deleteByID(ctx context.Context, table, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func filterArgs(f store.TransactionFilter) []any {
	var from, to *time.Time
	if !f.From.IsZero() {
		from = &f.From.Time
	}
	if !f.To.IsZero() {
		to = &f.To.Time
	}
	return []any{from, to, strings.TrimSpace(f.Keyword), f.Description, f.UncategorizedOnly}
}

func scanTransaction(row pgx.Row) (core.Transaction, error) {
	var (
		t          core.Transaction
		date       time.Time
		typ        string
		categoryID *string
	)
	err := row.Scan(&t.ID, &t.ExternalKey, &date, &t.Description, &t.Amount.Cents, &t.Currency,
		&typ, &categoryID, &t.IsManual, &t.IsRecurring, &t.CreatedAt)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Date = core.DateOf(date)
	t.Type = core.TransactionType(typ)
	if categoryID != nil && *categoryID != "" {
		t.CategoryID = categoryID
	}
	return t, nil
}

func scanBalance(row pgx.Row) (core.MonthlyBalance, error) {
	var (
		b          core.MonthlyBalance
		start, end *int64
	)
	if err := row.Scan(&b.ID, &b.Year, &b.Month, &start, &end, &b.Notes, &b.UpdatedAt); err != nil {
		return core.MonthlyBalance{}, err
	}
	if start != nil {
		b.StartingBalance = &core.Money{Cents: *start}
	}
	if end != nil {
		b.EndingBalance = &core.Money{Cents: *end}
	}
	return b, nil
}

func nullID(id *string) *string {
	if id == nil || *id == "" {
		return nil
	}
	return id
}

func cents(m *core.Money) *int64 {
	if m == nil {
		return nil
	}
	return &m.Cents
}
