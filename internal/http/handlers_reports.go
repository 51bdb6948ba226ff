package http

import (
	"net/http"
	"strconv"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/log"
)

type saveBalanceRequest struct {
	StartingBalance *core.Money `json:"starting_balance"`
	EndingBalance   *core.Money `json:"ending_balance"`
	Notes           string      `json:"notes"`
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	ym, err := pathYearMonth(r)
	if err != nil {
		s.fail(w, r, log.OpReconcile, err)
		return
	}
	mb, err := s.svc.Balances.Get(r.Context(), ym)
	if err != nil {
		s.fail(w, r, log.OpReconcile, err)
		return
	}
	writeJSON(w, http.StatusOK, mb)
}

// handleSaveBalance upserts the month and carries the ending balance into
// the next month's start.
func (s *Server) handleSaveBalance(w http.ResponseWriter, r *http.Request) {
	ym, err := pathYearMonth(r)
	if err != nil {
		s.fail(w, r, log.OpReconcile, err)
		return
	}
	var req saveBalanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpReconcile, err)
		return
	}
	mb, err := s.svc.Balances.Save(r.Context(), ym, req.StartingBalance, req.EndingBalance, sanitizeInput(req.Notes))
	if err != nil {
		s.fail(w, r, log.OpReconcile, err)
		return
	}
	s.invalidateReports()
	writeJSON(w, http.StatusOK, mb)
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	ym, err := parseMonthQuery(r, time.Now())
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}

	ov, _, err := s.monthlyCache.GetOrLoad(ym.String(), func() (core.MonthOverview, error) {
		return s.svc.Reports.Monthly(r.Context(), ym)
	})
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

func (s *Server) handleTrendReport(w http.ResponseWriter, r *http.Request) {
	year, err := parseYearQuery(r, time.Now())
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}

	points, _, err := s.trendCache.GetOrLoad(strconv.Itoa(year), func() ([]core.TrendPoint, error) {
		return s.svc.Reports.Trend(r.Context(), year)
	})
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"year": year, "points": points})
}

// handleOverview returns a month's transactions, categories, rules, balance
// and breakdown in one response.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	ym, err := parseMonthQuery(r, time.Now())
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	ov, err := s.svc.Reports.Overview(r.Context(), ym)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}
