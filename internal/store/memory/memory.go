package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/store"

	"github.com/google/uuid"
)

var _ store.Store = (*Store)(nil)

// Store keeps everything in process memory. Used for tests and the memory backend.
type Store struct {
	mu       sync.Mutex
	seq      int64
	txs      []record
	byKey    map[string]int
	cats     []core.Category
	rules    []core.MerchantRule
	balances map[core.YearMonth]core.MonthlyBalance

	now func() time.Time
}

// record keeps insertion order for stable listing of same-timestamp rows.
type record struct {
	tx  core.Transaction
	seq int64
}

func New() *Store {
	return &Store{
		byKey:    map[string]int{},
		balances: map[core.YearMonth]core.MonthlyBalance{},
		now:      time.Now,
	}
}

// NewFromFiles seeds categories from seed_categories.txt under base, one name per line.
func NewFromFiles(base string) *Store {
	s := New()
	names := readLines(filepath.Join(base, "seed_categories.txt"))
	if len(names) == 0 {
		names = []string{"Casa", "Spesa", "Trasporti"}
	}
	for _, name := range names {
		_, _ = s.CreateCategory(context.Background(), core.Category{Name: name})
	}
	return s
}

// SetClock replaces the time source used for created/updated timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) InsertIgnoringDuplicates(_ context.Context, txs []core.Transaction) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var inserted []string
	for _, tx := range txs {
		if _, dup := s.byKey[tx.ExternalKey]; dup {
			continue
		}
		s.insertLocked(tx)
		inserted = append(inserted, tx.ExternalKey)
	}
	return inserted, nil
}

func (s *Store) insertLocked(tx core.Transaction) core.Transaction {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now().UTC()
	}
	tx.CategoryID = cloneID(tx.CategoryID)
	s.seq++
	s.byKey[tx.ExternalKey] = len(s.txs)
	s.txs = append(s.txs, record{tx: tx, seq: s.seq})
	return tx
}

func (s *Store) ListTransactions(_ context.Context, f store.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []record
	for _, r := range s.txs {
		if f.Matches(r.tx) {
			matched = append(matched, r)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.tx.Date.Equal(b.tx.Date.Time) {
			return a.tx.Date.After(b.tx.Date.Time)
		}
		if !a.tx.CreatedAt.Equal(b.tx.CreatedAt) {
			return a.tx.CreatedAt.After(b.tx.CreatedAt)
		}
		return a.seq > b.seq
	})

	out := make([]core.Transaction, 0, len(matched))
	for _, r := range matched {
		out = append(out, copyTx(r.tx))
	}
	return out, nil
}

func (s *Store) CountTransactions(_ context.Context, f store.TransactionFilter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.txs {
		if f.Matches(r.tx) {
			n++
		}
	}
	return n, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return core.Transaction{}, core.ErrNotFound
	}
	return copyTx(s.txs[i].tx), nil
}

func (s *Store) TransactionsByExternalKeys(_ context.Context, keys []string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0, len(keys))
	for _, k := range keys {
		if i, ok := s.byKey[k]; ok {
			out = append(out, copyTx(s.txs[i].tx))
		}
	}
	return out, nil
}

func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.byKey[tx.ExternalKey]; dup {
		return core.Transaction{}, store.ErrDuplicateKey
	}
	return copyTx(s.insertLocked(tx)), nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(tx.ID)
	if i < 0 {
		return core.ErrNotFound
	}
	cur := s.txs[i].tx
	cur.Date = tx.Date
	cur.Description = tx.Description
	cur.Amount = tx.Amount
	cur.Currency = tx.Currency
	cur.Type = tx.Type
	cur.CategoryID = cloneID(tx.CategoryID)
	cur.IsRecurring = tx.IsRecurring
	s.txs[i].tx = cur
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return core.ErrNotFound
	}
	s.txs = append(s.txs[:i], s.txs[i+1:]...)
	s.byKey = make(map[string]int, len(s.txs))
	for j, r := range s.txs {
		s.byKey[r.tx.ExternalKey] = j
	}
	return nil
}

func (s *Store) SetCategoryByIDs(_ context.Context, ids []string, categoryID *string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	n := 0
	for i := range s.txs {
		if _, ok := want[s.txs[i].tx.ID]; ok {
			s.txs[i].tx.CategoryID = cloneID(categoryID)
			n++
		}
	}
	return n, nil
}

func (s *Store) SetCategoryByFilter(_ context.Context, f store.TransactionFilter, categoryID *string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.txs {
		if f.Matches(s.txs[i].tx) {
			s.txs[i].tx.CategoryID = cloneID(categoryID)
			n++
		}
	}
	return n, nil
}

func (s *Store) ListCategories(context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Category(nil), s.cats...)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (s *Store) GetCategory(_ context.Context, id string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cats {
		if c.ID == id {
			return c, nil
		}
	}
	return core.Category{}, core.ErrNotFound
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	c = c.WithDefaults()
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
	}
	s.cats = append(s.cats, c)
	return c, nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cats {
		if s.cats[i].ID == c.ID {
			c.CreatedAt = s.cats[i].CreatedAt
			s.cats[i] = c
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cats {
		if s.cats[i].ID == id {
			s.cats = append(s.cats[:i], s.cats[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) ListRules(context.Context) ([]core.MerchantRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.MerchantRule(nil), s.rules...), nil
}

func (s *Store) CreateRule(_ context.Context, r core.MerchantRule) (core.MerchantRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createRuleLocked(r), nil
}

func (s *Store) createRuleLocked(r core.MerchantRule) core.MerchantRule {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC()
	}
	s.seq++
	r.Seq = s.seq
	s.rules = append(s.rules, r)
	return r
}

func (s *Store) UpsertRule(_ context.Context, r core.MerchantRule) (core.MerchantRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rules {
		if strings.EqualFold(s.rules[i].Pattern, r.Pattern) {
			s.rules[i].CategoryID = r.CategoryID
			return s.rules[i], nil
		}
	}
	return s.createRuleLocked(r), nil
}

func (s *Store) DeleteRule(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rules {
		if s.rules[i].ID == id {
			s.rules = append(s.rules[:i], s.rules[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) GetBalance(_ context.Context, ym core.YearMonth) (core.MonthlyBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[ym]
	if !ok {
		return core.MonthlyBalance{}, core.ErrNotFound
	}
	return b, nil
}

func (s *Store) UpsertBalance(_ context.Context, b core.MonthlyBalance) (core.MonthlyBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := b.Key()
	if cur, ok := s.balances[key]; ok {
		b.ID = cur.ID
	} else if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.UpdatedAt = s.now().UTC()
	s.balances[key] = b
	return b, nil
}

func (s *Store) ListBalances(_ context.Context, year int) ([]core.MonthlyBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.MonthlyBalance
	for k, b := range s.balances {
		if k.Year == year {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

func (s *Store) indexLocked(id string) int {
	for i, r := range s.txs {
		if r.tx.ID == id {
			return i
		}
	}
	return -1
}

func copyTx(tx core.Transaction) core.Transaction {
	tx.CategoryID = cloneID(tx.CategoryID)
	return tx
}

func cloneID(id *string) *string {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	seen := map[string]struct{}{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
