package http

import (
	"net/http"
	"time"

	"bilancio/internal/log"
	"bilancio/internal/services"

	"github.com/gorilla/mux"
)

type categorizeRequest struct {
	CategoryID *string        `json:"category_id"`
	Scope      services.Scope `json:"scope"`
}

type bulkRequest struct {
	services.BulkFilter
	CategoryID *string `json:"category_id"`
}

type countResponse struct {
	Count int `json:"count"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ym, err := parseMonthQuery(r, time.Now())
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	res, err := s.svc.Transactions.List(r.Context(), ym)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in services.ManualInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	in.Description = sanitizeInput(in.Description)

	tx, err := s.svc.Transactions.CreateManual(r.Context(), in)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	s.invalidateReports()
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var p services.Patch
	if err := decodeJSON(w, r, &p); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	if p.Description != nil {
		d := sanitizeInput(*p.Description)
		p.Description = &d
	}

	tx, err := s.svc.Transactions.Update(r.Context(), mux.Vars(r)["id"], p)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	s.invalidateReports()
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Transactions.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	s.invalidateReports()
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// handleCategorizeTransaction sets one transaction's category, or with
// scope "all" every transaction sharing its description.
func (s *Server) handleCategorizeTransaction(w http.ResponseWriter, r *http.Request) {
	var req categorizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpCategorize, err)
		return
	}
	n, err := s.svc.Categorization.CategorizeTransaction(r.Context(), mux.Vars(r)["id"], req.CategoryID, req.Scope)
	if err != nil {
		s.fail(w, r, log.OpCategorize, err)
		return
	}
	s.invalidateReports()
	writeJSON(w, http.StatusOK, updatedCount(n))
}

func (s *Server) handleBulkPreview(w http.ResponseWriter, r *http.Request) {
	var f services.BulkFilter
	if err := decodeJSON(w, r, &f); err != nil {
		s.fail(w, r, log.OpCategorize, err)
		return
	}
	n, err := s.svc.Categorization.PreviewBulk(r.Context(), f)
	if err != nil {
		s.fail(w, r, log.OpCategorize, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

func (s *Server) handleBulkApply(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpCategorize, err)
		return
	}
	n, err := s.svc.Categorization.ApplyBulk(r.Context(), req.BulkFilter, req.CategoryID)
	if err != nil {
		s.fail(w, r, log.OpCategorize, err)
		return
	}
	if n > 0 {
		s.invalidateReports()
	}
	writeJSON(w, http.StatusOK, updatedCount(n))
}
