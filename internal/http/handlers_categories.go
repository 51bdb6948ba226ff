package http

import (
	"net/http"

	"bilancio/internal/core"
	"bilancio/internal/log"

	"github.com/gorilla/mux"
)

type createRuleRequest struct {
	Pattern         string `json:"merchant_pattern"`
	CategoryID      string `json:"category_id"`
	ApplyToExisting bool   `json:"apply_to_existing"`
}

type createRuleResponse struct {
	Rule    core.MerchantRule `json:"rule"`
	Updated int               `json:"updated"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.svc.Categories.List(r.Context())
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var c core.Category
	if err := decodeJSON(w, r, &c); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	c.ID = ""
	c.Name = sanitizeInput(c.Name)

	created, err := s.svc.Categories.Create(r.Context(), c)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	s.invalidateReports()
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var c core.Category
	if err := decodeJSON(w, r, &c); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	c.ID = mux.Vars(r)["id"]
	c.Name = sanitizeInput(c.Name)

	updated, err := s.svc.Categories.Update(r.Context(), c)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	s.invalidateReports()
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Categories.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	s.invalidateReports()
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.svc.Categorization.ListRules(r.Context())
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

// handleCreateRule stores a rule and optionally applies it to existing
// transactions.
func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req createRuleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	rule, n, err := s.svc.Categorization.CreateRule(r.Context(), sanitizeInput(req.Pattern), req.CategoryID, req.ApplyToExisting)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	if n > 0 {
		s.invalidateReports()
	}
	writeJSON(w, http.StatusCreated, createRuleResponse{Rule: rule, Updated: n})
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Categorization.DeleteRule(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
