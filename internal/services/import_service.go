// Package services holds the application operations behind the HTTP API, the
// worker and the CLI. Services depend on the narrow store ports only.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/core"
	"bilancio/internal/rules"
	"bilancio/internal/statement"
	"bilancio/internal/store"
)

// Publisher announces imported batches to downstream consumers.
type Publisher interface {
	PublishTransactionsImported(ctx context.Context, keys []string, imported, skipped int) error
}

// ImportResult reports how many candidates were written and how many were
// already present.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Total    int `json:"total"`
}

// ImportService writes statement candidates into the store with
// conflict-ignore semantics.
type ImportService struct {
	writer     store.TransactionWriter
	rules      store.RuleStore
	publisher  Publisher
	applyRules bool
}

// NewImportService creates an import service. publisher may be nil.
func NewImportService(writer store.TransactionWriter, ruleStore store.RuleStore, publisher Publisher, applyRules bool) *ImportService {
	return &ImportService{
		writer:     writer,
		rules:      ruleStore,
		publisher:  publisher,
		applyRules: applyRules,
	}
}

// Import validates the whole batch, categorizes uncategorized candidates with
// the stored rules and inserts the rows whose external key is new.
func (s *ImportService) Import(ctx context.Context, candidates []core.Transaction) (ImportResult, error) {
	batch := make([]core.Transaction, len(candidates))
	for i, c := range candidates {
		c = c.WithDefaults(statement.DefaultDescription)
		if err := c.Validate(); err != nil {
			return ImportResult{}, fmt.Errorf("transaction %d: %w", i, err)
		}
		batch[i] = c
	}

	if len(batch) == 0 {
		return ImportResult{}, nil
	}

	if s.applyRules && s.rules != nil {
		rs, err := s.rules.ListRules(ctx)
		if err != nil {
			return ImportResult{}, fmt.Errorf("load rules: %w", err)
		}
		if n := rules.NewEngine(rs).Apply(batch); n > 0 {
			slog.DebugContext(ctx, "Rules categorized import candidates", "categorized", n)
		}
	}

	written, err := s.writer.InsertIgnoringDuplicates(ctx, batch)
	if err != nil {
		return ImportResult{}, fmt.Errorf("import transactions: %w", err)
	}

	result := ImportResult{
		Imported: len(written),
		Skipped:  len(batch) - len(written),
		Total:    len(batch),
	}

	slog.InfoContext(ctx, "Import completed",
		"total", result.Total,
		"imported", result.Imported,
		"skipped", result.Skipped)

	if len(written) > 0 {
		s.publish(ctx, written, result)
	}

	return result, nil
}

// publish announces only the rows this import wrote; skipped duplicates
// were announced by the import that stored them.
func (s *ImportService) publish(ctx context.Context, keys []string, result ImportResult) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransactionsImported(ctx, keys, result.Imported, result.Skipped); err != nil {
		// The rows are stored; consumers catch up on the next import.
		slog.ErrorContext(ctx, "Failed to publish import message",
			"keys", len(keys), "error", err)
	}
}
