package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"

	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/services"
	"bilancio/internal/statement"
)

const noValidRowsWarning = "no completed transactions found in the statement"

type importResponse struct {
	Success bool `json:"success"`
	services.ImportResult
	RawRows *int   `json:"raw_rows,omitempty"`
	Warning string `json:"warning,omitempty"`
}

type parseResponse struct {
	Transactions []core.Transaction `json:"transactions"`
	RawRows      int                `json:"raw_rows"`
	Skipped      int                `json:"skipped"`
	Warning      string             `json:"warning,omitempty"`
}

// handleImport imports a JSON array of candidate transactions.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	raw, err := readJSONArray(w, r)
	if err != nil {
		s.fail(w, r, log.OpImport, err)
		return
	}
	var candidates []core.Transaction
	if err := json.Unmarshal(raw, &candidates); err != nil {
		s.fail(w, r, log.OpImport, core.Invalid("body", err))
		return
	}

	res, err := s.runImport(r, "", candidates)
	if err != nil {
		s.fail(w, r, log.OpImport, err)
		return
	}
	writeJSON(w, http.StatusOK, importResponse{Success: true, ImportResult: res})
}

// handleParseStatement parses an uploaded statement without storing it.
func (s *Server) handleParseStatement(w http.ResponseWriter, r *http.Request) {
	res, filename, err := s.parseUpload(w, r)
	switch {
	case errors.Is(err, statement.ErrNoValidRows):
		log.FromContext(r.Context()).WarnContext(r.Context(), "Statement has no valid rows",
			log.FieldFilename, filename, log.FieldRawRows, res.RawRows)
		writeJSON(w, http.StatusOK, parseResponse{
			Transactions: []core.Transaction{},
			RawRows:      res.RawRows,
			Skipped:      res.Skipped,
			Warning:      noValidRowsWarning,
		})
		return
	case err != nil:
		s.fail(w, r, log.OpParse, err)
		return
	}
	writeJSON(w, http.StatusOK, parseResponse{
		Transactions: res.Transactions,
		RawRows:      res.RawRows,
		Skipped:      res.Skipped,
	})
}

// handleImportStatement parses an uploaded statement and imports it.
func (s *Server) handleImportStatement(w http.ResponseWriter, r *http.Request) {
	parsed, filename, err := s.parseUpload(w, r)
	switch {
	case errors.Is(err, statement.ErrNoValidRows):
		rawRows := parsed.RawRows
		writeJSON(w, http.StatusOK, importResponse{Success: true, RawRows: &rawRows, Warning: noValidRowsWarning})
		return
	case err != nil:
		s.fail(w, r, log.OpParse, err)
		return
	}

	res, err := s.runImport(r, filename, parsed.Transactions)
	if err != nil {
		s.fail(w, r, log.OpImport, err)
		return
	}
	rawRows := parsed.RawRows
	writeJSON(w, http.StatusOK, importResponse{Success: true, ImportResult: res, RawRows: &rawRows})
}

func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) (statement.Result, string, error) {
	data, filename, err := readUpload(w, r, s.opts.MaxUploadBytes)
	if err != nil {
		return statement.Result{}, "", err
	}
	atomic.AddInt64(&s.metrics.statementsParsed, 1)
	res, err := statement.ParseBytes(data, filename)
	return res, filename, err
}

func (s *Server) runImport(r *http.Request, filename string, candidates []core.Transaction) (services.ImportResult, error) {
	res, err := s.svc.Import.Import(r.Context(), candidates)
	if err != nil {
		return services.ImportResult{}, err
	}
	atomic.AddInt64(&s.metrics.importBatches, 1)
	atomic.AddInt64(&s.metrics.transactionsImported, int64(res.Imported))
	atomic.AddInt64(&s.metrics.transactionsSkipped, int64(res.Skipped))
	if res.Imported > 0 {
		s.invalidateReports()
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogImport(r.Context(), filename, res.Imported, res.Skipped, res.Total)
	return res, nil
}
