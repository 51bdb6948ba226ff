package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/store"

	"github.com/google/uuid"
	"modernc.org/sqlite"
)

// Fixed-width UTC timestamps so that text ordering is chronological.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

const dateLayout = "2006-01-02"

func init() {
	// SQLite's upper() only folds ASCII; descriptions are mostly Italian.
	sqlite.MustRegisterDeterministicScalarFunction("unicode_upper", 1,
		func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case nil:
				return nil, nil
			case string:
				return strings.ToUpper(v), nil
			case []byte:
				return strings.ToUpper(string(v)), nil
			default:
				return v, nil
			}
		})
}

var _ store.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// One writer at a time; concurrent imports queue instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) timestamp() string {
	return r.now().UTC().Format(timestampLayout)
}

// InsertIgnoringDuplicates implements store.TransactionWriter
func (r *SQLiteRepository) InsertIgnoringDuplicates(ctx context.Context, txs []core.Transaction) ([]string, error) {
	if len(txs) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin import transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	createdAt := r.timestamp()
	var inserted []string
	for _, t := range txs {
		res, err := q.InsertTransactionIgnore(ctx, r.insertParams(t, createdAt))
		if err != nil {
			return nil, fmt.Errorf("insert transaction %s: %w", t.ExternalKey, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		if n > 0 {
			inserted = append(inserted, t.ExternalKey)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transactions inserted into SQLite",
		"candidates", len(txs),
		"inserted", len(inserted))

	return inserted, nil
}

func (r *SQLiteRepository) insertParams(t core.Transaction, createdAt string) InsertTransactionParams {
	id := t.ID
	if id == "" {
		id = uuid.NewString()
	}
	if !t.CreatedAt.IsZero() {
		createdAt = t.CreatedAt.UTC().Format(timestampLayout)
	}
	return InsertTransactionParams{
		ID:          id,
		ExternalKey: t.ExternalKey,
		Date:        t.Date.Format(dateLayout),
		Description: t.Description,
		AmountCents: t.Amount.Cents,
		Currency:    t.Currency,
		Type:        string(t.Type),
		CategoryID:  nullString(t.CategoryID),
		IsManual:    t.IsManual,
		IsRecurring: t.IsRecurring,
		CreatedAt:   createdAt,
	}
}

// ListTransactions implements store.TransactionReader
func (r *SQLiteRepository) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, filterParams(f))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := toCoreTransaction(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *SQLiteRepository) CountTransactions(ctx context.Context, f store.TransactionFilter) (int, error) {
	n, err := r.queries.CountTransactions(ctx, filterParams(f))
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return int(n), nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction by id: %w", err)
	}
	return toCoreTransaction(row)
}

func (r *SQLiteRepository) TransactionsByExternalKeys(ctx context.Context, keys []string) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(keys))
	for _, key := range keys {
		row, err := r.queries.GetTransactionByExternalKey(ctx, key)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get transaction by external key: %w", err)
		}
		t, err := toCoreTransaction(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// CreateTransaction implements store.TransactionEditor
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	row, err := r.queries.InsertTransaction(ctx, r.insertParams(t, r.timestamp()))
	if err != nil {
		if isUniqueViolation(err) {
			return core.Transaction{}, store.ErrDuplicateKey
		}
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", row.ID,
		"description", row.Description,
		"amount_cents", row.AmountCents,
		"date", row.Date)

	return toCoreTransaction(row)
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	n, err := r.queries.UpdateTransaction(ctx, UpdateTransactionParams{
		Date:        t.Date.Format(dateLayout),
		Description: t.Description,
		AmountCents: t.Amount.Cents,
		Currency:    t.Currency,
		Type:        string(t.Type),
		CategoryID:  nullString(t.CategoryID),
		IsRecurring: t.IsRecurring,
		ID:          t.ID,
	})
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	n, err := r.queries.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) SetCategoryByIDs(ctx context.Context, ids []string, categoryID *string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin category update: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	updated := 0
	for _, id := range ids {
		n, err := q.SetTransactionCategory(ctx, nullString(categoryID), id)
		if err != nil {
			return 0, fmt.Errorf("set category of %s: %w", id, err)
		}
		updated += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit category update: %w", err)
	}
	return updated, nil
}

func (r *SQLiteRepository) SetCategoryByFilter(ctx context.Context, f store.TransactionFilter, categoryID *string) (int, error) {
	n, err := r.queries.SetCategoryByFilter(ctx, filterParams(f), nullString(categoryID))
	if err != nil {
		return 0, fmt.Errorf("set category by filter: %w", err)
	}
	return int(n), nil
}

// ListCategories implements store.CategoryStore
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, toCoreCategory(row))
	}
	return out, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	row, err := r.queries.GetCategory(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return toCoreCategory(row), nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c = c.WithDefaults()
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = r.now().UTC()
	}
	err := r.queries.CreateCategory(ctx, Category{
		ID:        c.ID,
		Name:      c.Name,
		Icon:      c.Icon,
		Color:     c.Color,
		CreatedAt: c.CreatedAt.UTC().Format(timestampLayout),
	})
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	n, err := r.queries.UpdateCategory(ctx, Category{ID: c.ID, Name: c.Name, Icon: c.Icon, Color: c.Color})
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	n, err := r.queries.DeleteCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ListRules implements store.RuleStore
func (r *SQLiteRepository) ListRules(ctx context.Context) ([]core.MerchantRule, error) {
	rows, err := r.queries.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	out := make([]core.MerchantRule, 0, len(rows))
	for _, row := range rows {
		out = append(out, toCoreRule(row))
	}
	return out, nil
}

func (r *SQLiteRepository) CreateRule(ctx context.Context, rule core.MerchantRule) (core.MerchantRule, error) {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = r.now().UTC()
	}
	rowid, err := r.queries.CreateRule(ctx, MerchantRule{
		ID:              rule.ID,
		MerchantPattern: rule.Pattern,
		CategoryID:      rule.CategoryID,
		CreatedAt:       rule.CreatedAt.UTC().Format(timestampLayout),
	})
	if err != nil {
		return core.MerchantRule{}, fmt.Errorf("create rule: %w", err)
	}
	rule.Seq = rowid
	return rule, nil
}

func (r *SQLiteRepository) UpsertRule(ctx context.Context, rule core.MerchantRule) (core.MerchantRule, error) {
	existing, err := r.queries.GetRuleByPattern(ctx, rule.Pattern)
	if errors.Is(err, sql.ErrNoRows) {
		return r.CreateRule(ctx, rule)
	}
	if err != nil {
		return core.MerchantRule{}, fmt.Errorf("get rule by pattern: %w", err)
	}
	if err := r.queries.SetRuleCategory(ctx, rule.CategoryID, existing.ID); err != nil {
		return core.MerchantRule{}, fmt.Errorf("update rule category: %w", err)
	}
	existing.CategoryID = rule.CategoryID
	return toCoreRule(existing), nil
}

func (r *SQLiteRepository) DeleteRule(ctx context.Context, id string) error {
	n, err := r.queries.DeleteRule(ctx, id)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// GetBalance implements store.BalanceStore
func (r *SQLiteRepository) GetBalance(ctx context.Context, ym core.YearMonth) (core.MonthlyBalance, error) {
	row, err := r.queries.GetBalance(ctx, int64(ym.Year), int64(ym.Month))
	if errors.Is(err, sql.ErrNoRows) {
		return core.MonthlyBalance{}, core.ErrNotFound
	}
	if err != nil {
		return core.MonthlyBalance{}, fmt.Errorf("get balance: %w", err)
	}
	return toCoreBalance(row), nil
}

func (r *SQLiteRepository) UpsertBalance(ctx context.Context, b core.MonthlyBalance) (core.MonthlyBalance, error) {
	id := b.ID
	if id == "" {
		id = uuid.NewString()
	}
	row, err := r.queries.UpsertBalance(ctx, MonthlyBalance{
		ID:                   id,
		Year:                 int64(b.Year),
		Month:                int64(b.Month),
		StartingBalanceCents: nullMoney(b.StartingBalance),
		EndingBalanceCents:   nullMoney(b.EndingBalance),
		Notes:                b.Notes,
		UpdatedAt:            r.timestamp(),
	})
	if err != nil {
		return core.MonthlyBalance{}, fmt.Errorf("upsert balance: %w", err)
	}
	return toCoreBalance(row), nil
}

func (r *SQLiteRepository) ListBalances(ctx context.Context, year int) ([]core.MonthlyBalance, error) {
	rows, err := r.queries.ListBalancesByYear(ctx, int64(year))
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	out := make([]core.MonthlyBalance, 0, len(rows))
	for _, row := range rows {
		out = append(out, toCoreBalance(row))
	}
	return out, nil
}

func filterParams(f store.TransactionFilter) TransactionFilterParams {
	p := TransactionFilterParams{
		Keyword:           strings.TrimSpace(f.Keyword),
		Description:       f.Description,
		UncategorizedOnly: f.UncategorizedOnly,
	}
	if !f.From.IsZero() {
		p.From = f.From.Format(dateLayout)
	}
	if !f.To.IsZero() {
		p.To = f.To.Format(dateLayout)
	}
	return p
}

func toCoreTransaction(row Transaction) (core.Transaction, error) {
	date, err := time.Parse(dateLayout, row.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: bad date %q: %w", row.ID, row.Date, err)
	}
	t := core.Transaction{
		ID:          row.ID,
		ExternalKey: row.ExternalKey,
		Date:        core.Date{Time: date},
		Description: row.Description,
		Amount:      core.Money{Cents: row.AmountCents},
		Currency:    row.Currency,
		Type:        core.TransactionType(row.Type),
		IsManual:    row.IsManual,
		IsRecurring: row.IsRecurring,
		CreatedAt:   parseTimestamp(row.CreatedAt),
	}
	if row.CategoryID.Valid && row.CategoryID.String != "" {
		id := row.CategoryID.String
		t.CategoryID = &id
	}
	return t, nil
}

func toCoreCategory(row Category) core.Category {
	return core.Category{
		ID:        row.ID,
		Name:      row.Name,
		Icon:      row.Icon,
		Color:     row.Color,
		CreatedAt: parseTimestamp(row.CreatedAt),
	}
}

func toCoreRule(row MerchantRule) core.MerchantRule {
	return core.MerchantRule{
		ID:         row.ID,
		Pattern:    row.MerchantPattern,
		CategoryID: row.CategoryID,
		CreatedAt:  parseTimestamp(row.CreatedAt),
		Seq:        row.Rowid,
	}
}

func toCoreBalance(row MonthlyBalance) core.MonthlyBalance {
	b := core.MonthlyBalance{
		ID:        row.ID,
		Year:      int(row.Year),
		Month:     int(row.Month),
		Notes:     row.Notes,
		UpdatedAt: parseTimestamp(row.UpdatedAt),
	}
	if row.StartingBalanceCents.Valid {
		b.StartingBalance = &core.Money{Cents: row.StartingBalanceCents.Int64}
	}
	if row.EndingBalanceCents.Valid {
		b.EndingBalance = &core.Money{Cents: row.EndingBalanceCents.Int64}
	}
	return b
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullMoney(m *core.Money) sql.NullInt64 {
	if m == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: m.Cents, Valid: true}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
