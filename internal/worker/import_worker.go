// Package worker consumes import notifications and runs scheduled maintenance.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/sheets"
)

// TransactionSource resolves the rows referenced by an import message.
type TransactionSource interface {
	TransactionsByExternalKeys(ctx context.Context, keys []string) ([]core.Transaction, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
}

type Recategorizer interface {
	RecategorizeUncategorized(ctx context.Context) (int, error)
}

// ImportWorker reacts to imported batches: it applies the current rules to
// uncategorized rows and mirrors the batch to the spreadsheet.
type ImportWorker struct {
	source        TransactionSource
	recategorizer Recategorizer
	exporter      sheets.Exporter
}

// NewImportWorker creates a worker. recategorizer and exporter may be nil.
func NewImportWorker(source TransactionSource, recategorizer Recategorizer, exporter sheets.Exporter) *ImportWorker {
	return &ImportWorker{
		source:        source,
		recategorizer: recategorizer,
		exporter:      exporter,
	}
}

// HandleTransactionsImported processes one message. A returned error makes
// the broker redeliver it.
func (w *ImportWorker) HandleTransactionsImported(ctx context.Context, msg *amqp.TransactionsImportedMessage) error {
	slog.InfoContext(ctx, "Processing transactions imported message",
		"keys", len(msg.ExternalKeys),
		"imported", msg.Imported,
		"timestamp", msg.Timestamp)

	if w.recategorizer != nil {
		n, err := w.recategorizer.RecategorizeUncategorized(ctx)
		if err != nil {
			return fmt.Errorf("recategorize: %w", err)
		}
		if n > 0 {
			slog.InfoContext(ctx, "Recategorized transactions after import", "updated", n)
		}
	}

	if w.exporter == nil || len(msg.ExternalKeys) == 0 {
		return nil
	}

	txs, err := w.source.TransactionsByExternalKeys(ctx, msg.ExternalKeys)
	if err != nil {
		return fmt.Errorf("resolve imported transactions: %w", err)
	}
	if len(txs) == 0 {
		slog.WarnContext(ctx, "No stored transactions for imported keys", "keys", len(msg.ExternalKeys))
		return nil
	}
	cats, err := w.source.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}

	n, err := w.exporter.Append(ctx, sheets.RowsFrom(txs, cats))
	if err != nil {
		return fmt.Errorf("export to sheets: %w", err)
	}

	slog.InfoContext(ctx, "Imported transactions mirrored to sheets", "rows", n)
	return nil
}
