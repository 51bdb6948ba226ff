package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// appMetrics are process-lifetime counters exposed on /metrics.
type appMetrics struct {
	uptime               time.Time
	totalRequests        int64
	serverErrors         int64
	importBatches        int64
	transactionsImported int64
	transactionsSkipped  int64
	statementsParsed     int64
}

func newAppMetrics() *appMetrics {
	return &appMetrics{uptime: time.Now()}
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.metrics.uptime).Round(time.Second).String(),
	})
}

// handleReady pings the store.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{}

	switch {
	case s.svc.Pinger == nil:
		checks["store"] = "not_configured"
		status, code = "not_ready", http.StatusServiceUnavailable
	default:
		if err := s.svc.Pinger.Ping(ctx); err != nil {
			checks["store"] = fmt.Sprintf("failed: %v", err)
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	}
	checks["cache"] = map[string]int{
		"monthly_entries": s.monthlyCache.Size(),
		"trend_entries":   s.trendCache.Size(),
	}
	checks["rate_limiter"] = map[string]int{"active_clients": s.rateLimiter.activeClients()}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	counter := func(name, help string, v int64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n\n", name, help, name, name, v)
	}
	gauge := func(name, help string, v float64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %.0f\n\n", name, help, name, name, v)
	}

	counter("http_requests_total", "Total number of HTTP requests", atomic.LoadInt64(&s.metrics.totalRequests))
	counter("http_server_errors_total", "Responses with a 5xx status", atomic.LoadInt64(&s.metrics.serverErrors))
	counter("import_batches_total", "Successful import batches", atomic.LoadInt64(&s.metrics.importBatches))
	counter("transactions_imported_total", "Transactions written by imports", atomic.LoadInt64(&s.metrics.transactionsImported))
	counter("transactions_skipped_total", "Import candidates already present", atomic.LoadInt64(&s.metrics.transactionsSkipped))
	counter("statements_parsed_total", "Statement files parsed", atomic.LoadInt64(&s.metrics.statementsParsed))
	monthly, trend := s.monthlyCache.Stats(), s.trendCache.Stats()
	counter("cache_hits_total", "Report cache hits", monthly.Hits+trend.Hits)
	counter("cache_misses_total", "Report cache misses", monthly.Misses+trend.Misses)
	counter("rate_limit_hits_total", "Requests rejected by the rate limiter", atomic.LoadInt64(&s.security.rateLimitHits))
	counter("suspicious_requests_total", "Suspicious requests detected", atomic.LoadInt64(&s.security.suspiciousRequests))
	gauge("cache_entries", "Current report cache entries", float64(s.monthlyCache.Size()+s.trendCache.Size()))
	gauge("active_rate_limit_clients", "Currently tracked rate limit clients", float64(s.rateLimiter.activeClients()))
	gauge("uptime_seconds", "Application uptime in seconds", time.Since(s.metrics.uptime).Seconds())
}
