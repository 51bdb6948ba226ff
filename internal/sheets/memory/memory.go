package memory

import (
	"context"
	"sync"

	"bilancio/internal/sheets"
)

var _ sheets.Exporter = (*Exporter)(nil)

// Exporter records appended rows in memory.
type Exporter struct {
	mu   sync.Mutex
	rows []sheets.Row
	err  error
}

func New() *Exporter {
	return &Exporter{}
}

// FailWith makes every following Append return err.
func (e *Exporter) FailWith(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

func (e *Exporter) Append(_ context.Context, rows []sheets.Row) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return 0, e.err
	}
	e.rows = append(e.rows, rows...)
	return len(rows), nil
}

// Rows returns a copy of everything appended so far.
func (e *Exporter) Rows() []sheets.Row {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]sheets.Row(nil), e.rows...)
}
