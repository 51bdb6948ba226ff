package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"bilancio/internal/core"
	"bilancio/internal/rules"
	"bilancio/internal/store"
)

// Scope selects how far a manual categorization reaches.
type Scope string

const (
	// ScopeSingle updates one transaction.
	ScopeSingle Scope = "single"
	// ScopeAll remembers the description as a rule and updates every
	// transaction with the same description.
	ScopeAll Scope = "all"
)

var (
	ErrInvalidScope = errors.New("scope must be single or all")
	ErrInvalidRange = errors.New("from and to are required and from must not be after to")
)

// BulkFilter selects transactions for a bulk category change.
type BulkFilter struct {
	From    core.Date `json:"from"`
	To      core.Date `json:"to"`
	Keyword string    `json:"keyword"`
}

func (f BulkFilter) Validate() error {
	if f.From.IsZero() || f.To.IsZero() || f.From.After(f.To.Time) {
		return core.Invalid("date_range", ErrInvalidRange)
	}
	return nil
}

func (f BulkFilter) toStore() store.TransactionFilter {
	return store.TransactionFilter{From: f.From, To: f.To, Keyword: strings.TrimSpace(f.Keyword)}
}

type CategorizationStore interface {
	store.TransactionReader
	store.TransactionEditor
	store.RuleStore
}

// CategorizationService manages merchant rules and category assignment.
type CategorizationService struct {
	store CategorizationStore
}

func NewCategorizationService(s CategorizationStore) *CategorizationService {
	return &CategorizationService{store: s}
}

func (s *CategorizationService) ListRules(ctx context.Context) ([]core.MerchantRule, error) {
	rs, err := s.store.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return rs, nil
}

// CreateRule stores a rule. With applyToExisting every transaction whose
// description contains the pattern is moved to the rule's category, whether
// categorized or not. It returns the rule and the number of updated rows.
func (s *CategorizationService) CreateRule(ctx context.Context, pattern, categoryID string, applyToExisting bool) (core.MerchantRule, int, error) {
	rule := core.MerchantRule{
		Pattern:    strings.TrimSpace(pattern),
		CategoryID: strings.TrimSpace(categoryID),
	}
	if err := rule.Validate(); err != nil {
		return core.MerchantRule{}, 0, err
	}

	created, err := s.store.CreateRule(ctx, rule)
	if err != nil {
		return core.MerchantRule{}, 0, fmt.Errorf("create rule: %w", err)
	}
	if !applyToExisting {
		return created, 0, nil
	}

	matching, err := s.store.ListTransactions(ctx, store.TransactionFilter{Keyword: created.Pattern})
	if err != nil {
		return created, 0, fmt.Errorf("find transactions for rule: %w", err)
	}
	ids := make([]string, len(matching))
	for i, t := range matching {
		ids[i] = t.ID
	}
	updated, err := s.store.SetCategoryByIDs(ctx, ids, &created.CategoryID)
	if err != nil {
		return created, 0, fmt.Errorf("apply rule to existing transactions: %w", err)
	}

	slog.InfoContext(ctx, "Rule applied to existing transactions",
		"pattern", created.Pattern,
		"category_id", created.CategoryID,
		"updated", updated)

	return created, updated, nil
}

func (s *CategorizationService) DeleteRule(ctx context.Context, id string) error {
	if err := s.store.DeleteRule(ctx, id); err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	return nil
}

// CategorizeTransaction sets the category of one transaction, or with
// ScopeAll of every transaction sharing its description. It returns the
// number of updated rows.
func (s *CategorizationService) CategorizeTransaction(ctx context.Context, id string, categoryID *string, scope Scope) (int, error) {
	if scope == "" {
		scope = ScopeSingle
	}
	if scope != ScopeSingle && scope != ScopeAll {
		return 0, core.Invalid("scope", ErrInvalidScope)
	}
	if categoryID != nil && strings.TrimSpace(*categoryID) == "" {
		categoryID = nil
	}

	tx, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("get transaction: %w", err)
	}

	if scope == ScopeSingle {
		tx.CategoryID = categoryID
		if err := s.store.UpdateTransaction(ctx, tx); err != nil {
			return 0, fmt.Errorf("update transaction category: %w", err)
		}
		return 1, nil
	}

	if categoryID == nil {
		return 0, core.Invalid("category_id", core.ErrEmptyCategory)
	}
	if _, err := s.store.UpsertRule(ctx, core.MerchantRule{Pattern: tx.Description, CategoryID: *categoryID}); err != nil {
		return 0, fmt.Errorf("remember rule: %w", err)
	}
	updated, err := s.store.SetCategoryByFilter(ctx, store.TransactionFilter{Description: tx.Description}, categoryID)
	if err != nil {
		return 0, fmt.Errorf("categorize matching transactions: %w", err)
	}
	return updated, nil
}

// PreviewBulk counts the transactions ApplyBulk would update.
func (s *CategorizationService) PreviewBulk(ctx context.Context, f BulkFilter) (int, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	n, err := s.store.CountTransactions(ctx, f.toStore())
	if err != nil {
		return 0, fmt.Errorf("preview bulk category: %w", err)
	}
	return n, nil
}

// ApplyBulk sets categoryID on every transaction selected by f. A nil
// categoryID clears the category.
func (s *CategorizationService) ApplyBulk(ctx context.Context, f BulkFilter, categoryID *string) (int, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	if categoryID != nil && strings.TrimSpace(*categoryID) == "" {
		categoryID = nil
	}
	n, err := s.store.SetCategoryByFilter(ctx, f.toStore(), categoryID)
	if err != nil {
		return 0, fmt.Errorf("apply bulk category: %w", err)
	}
	return n, nil
}

// RecategorizeUncategorized runs the current rules over every uncategorized
// transaction and stores the matches.
func (s *CategorizationService) RecategorizeUncategorized(ctx context.Context) (int, error) {
	rs, err := s.store.ListRules(ctx)
	if err != nil {
		return 0, fmt.Errorf("list rules: %w", err)
	}
	if len(rs) == 0 {
		return 0, nil
	}
	engine := rules.NewEngine(rs)

	txs, err := s.store.ListTransactions(ctx, store.TransactionFilter{UncategorizedOnly: true})
	if err != nil {
		return 0, fmt.Errorf("list uncategorized transactions: %w", err)
	}

	byCategory := make(map[string][]string)
	var order []string
	for _, t := range txs {
		categoryID, ok := engine.Match(t.Description)
		if !ok {
			continue
		}
		if _, seen := byCategory[categoryID]; !seen {
			order = append(order, categoryID)
		}
		byCategory[categoryID] = append(byCategory[categoryID], t.ID)
	}

	total := 0
	for _, categoryID := range order {
		n, err := s.store.SetCategoryByIDs(ctx, byCategory[categoryID], &categoryID)
		if err != nil {
			return total, fmt.Errorf("set category %s: %w", categoryID, err)
		}
		total += n
	}
	return total, nil
}
