// Package http exposes the JSON API over a gorilla/mux router.
package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"bilancio/internal/cache"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/services"
	"bilancio/internal/store"

	"github.com/gorilla/mux"
)

const (
	defaultMaxUploadBytes = 10 << 20
	maxJSONBodyBytes      = 1 << 20
	defaultReportCacheTTL = 30 * time.Second
)

// Services are the operations the API dispatches to.
type Services struct {
	Import         *services.ImportService
	Categorization *services.CategorizationService
	Balances       *services.BalanceService
	Transactions   *services.TransactionService
	Categories     *services.CategoryService
	Reports        *services.ReportService
	// Pinger backs /readyz; nil reports not ready.
	Pinger store.Pinger
}

// NewServices wires every service to one store.
func NewServices(st store.Store, publisher services.Publisher, applyRules bool) Services {
	return Services{
		Import:         services.NewImportService(st, st, publisher, applyRules),
		Categorization: services.NewCategorizationService(st),
		Balances:       services.NewBalanceService(st),
		Transactions:   services.NewTransactionService(st),
		Categories:     services.NewCategoryService(st),
		Reports:        services.NewReportService(st),
		Pinger:         st,
	}
}

type Options struct {
	MaxUploadBytes int64
	// RateLimitPerMinute caps mutating requests per client; 0 disables.
	RateLimitPerMinute int
	// ReportCacheTTL bounds how long a report can miss writes made by other
	// processes, such as the worker's recategorization. Writes through this
	// server purge the caches immediately.
	ReportCacheTTL time.Duration
	Logger         *log.Logger
}

type Server struct {
	http.Server
	svc    Services
	opts   Options
	logger *log.Logger

	rateLimiter *rateLimiter
	security    *securityMetrics
	metrics     *appMetrics

	caches       *cache.Manager
	monthlyCache *cache.LRUCache[core.MonthOverview]
	trendCache   *cache.LRUCache[[]core.TrendPoint]

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc Services, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	if opts.ReportCacheTTL <= 0 {
		opts.ReportCacheTTL = defaultReportCacheTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		svc:          svc,
		opts:         opts,
		logger:       logger,
		rateLimiter:  newRateLimiter(opts.RateLimitPerMinute),
		security:     &securityMetrics{},
		metrics:      newAppMetrics(),
		caches:       cache.NewManager(logger),
		monthlyCache: cache.NewLRUCache[core.MonthOverview](100, opts.ReportCacheTTL),
		trendCache:   cache.NewLRUCache[[]core.TrendPoint](20, opts.ReportCacheTTL),
	}
	s.caches.Register(s.monthlyCache)
	s.caches.Register(s.trendCache)
	s.caches.StartCleanup(10 * time.Minute)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// routes builds the router. Middleware wraps the router itself so unmatched
// requests get request IDs and security headers too.
func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/import", s.handleImport).Methods(http.MethodPost)
	api.HandleFunc("/statements/parse", s.handleParseStatement).Methods(http.MethodPost)
	api.HandleFunc("/statements/import", s.handleImportStatement).Methods(http.MethodPost)

	api.HandleFunc("/transactions", s.handleListTransactions).Methods(http.MethodGet)
	api.HandleFunc("/transactions", s.handleCreateTransaction).Methods(http.MethodPost)
	api.HandleFunc("/transactions/bulk-category/preview", s.handleBulkPreview).Methods(http.MethodPost)
	api.HandleFunc("/transactions/bulk-category", s.handleBulkApply).Methods(http.MethodPost)
	api.HandleFunc("/transactions/{id}", s.handleUpdateTransaction).Methods(http.MethodPut)
	api.HandleFunc("/transactions/{id}", s.handleDeleteTransaction).Methods(http.MethodDelete)
	api.HandleFunc("/transactions/{id}/categorize", s.handleCategorizeTransaction).Methods(http.MethodPost)

	api.HandleFunc("/categories", s.handleListCategories).Methods(http.MethodGet)
	api.HandleFunc("/categories", s.handleCreateCategory).Methods(http.MethodPost)
	api.HandleFunc("/categories/{id}", s.handleUpdateCategory).Methods(http.MethodPut)
	api.HandleFunc("/categories/{id}", s.handleDeleteCategory).Methods(http.MethodDelete)

	api.HandleFunc("/rules", s.handleListRules).Methods(http.MethodGet)
	api.HandleFunc("/rules", s.handleCreateRule).Methods(http.MethodPost)
	api.HandleFunc("/rules/{id}", s.handleDeleteRule).Methods(http.MethodDelete)

	api.HandleFunc("/balances/{year:[0-9]+}/{month:[0-9]+}", s.handleGetBalance).Methods(http.MethodGet)
	api.HandleFunc("/balances/{year:[0-9]+}/{month:[0-9]+}", s.handleSaveBalance).Methods(http.MethodPut)

	api.HandleFunc("/reports/monthly", s.handleMonthlyReport).Methods(http.MethodGet)
	api.HandleFunc("/reports/trend", s.handleTrendReport).Methods(http.MethodGet)
	api.HandleFunc("/overview", s.handleOverview).Methods(http.MethodGet)

	return s.withRequestContext(s.withSecurityHeaders(s.withRateLimit(r)))
}

// invalidateReports drops cached reports after a write.
func (s *Server) invalidateReports() {
	s.caches.PurgeAll()
}

// Shutdown stops background goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// ListenAndServe runs until Shutdown; a clean shutdown returns nil.
func (s *Server) ListenAndServe() error {
	if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
