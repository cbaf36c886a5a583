// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/statement-engine/internal/config"
	"github.com/statement-engine/internal/logging"
	"github.com/statement-engine/internal/service"
	"github.com/statement-engine/internal/types"
)

// Service interfaces for dependency injection and testing

// StatementProvider defines the live statement operations
type StatementProvider interface {
	GetTransactionsAndBalance(ctx context.Context, chain types.Chain, address, startDate, endDate string) (*service.StatementData, error)
	GetStatement(ctx context.Context, chain types.Chain, address, startDate, endDate string) (*service.Statement, error)
}

// LedgerProvider defines the historical replay operations
type LedgerProvider interface {
	CalculateOpeningBalance(ctx context.Context, address, date, network string) (*types.BalanceSnapshot, error)
	GetCurrentBalance(ctx context.Context, address, endDate, network string) (*types.BalanceSnapshot, error)
	GetTransactionsInPeriod(ctx context.Context, address, startDate, endDate, network string) ([]types.LedgerRow, error)
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	statements StatementProvider
	ledger     LedgerProvider // nil when the ledger is disabled
	config     *config.ServerConfig
}

// NewServer creates a new API server instance. A nil ledger disables
// the /api/ledger routes with a 503.
func NewServer(cfg *config.ServerConfig, rateCfg config.RateLimitConfig, statements StatementProvider, ledger LedgerProvider) *Server {
	s := &Server{
		router:     mux.NewRouter(),
		statements: statements,
		ledger:     ledger,
		config:     cfg,
	}

	s.setupRouter(rateCfg)

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter(rateCfg config.RateLimitConfig) {
	rateLimiter := NewRateLimiter(rateCfg.RequestsPerSecond, rateCfg.Burst)

	// Middleware order matters: log and recover before limiting.
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(rateLimiter))
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Live statement endpoints
	api.HandleFunc("/balance/{chain}/{address}", s.handleGetBalance).Methods("GET")
	api.HandleFunc("/transactions/{chain}/{address}", s.handleGetTransactions).Methods("GET")
	api.HandleFunc("/analyze/{chain}/{address}", s.handleAnalyze).Methods("GET")
	api.HandleFunc("/statement/{chain}/{address}", s.handleGetStatement).Methods("GET")

	// Historical ledger endpoints
	api.HandleFunc("/ledger/{address}/opening-balance", s.handleOpeningBalance).Methods("GET")
	api.HandleFunc("/ledger/{address}/balance", s.handleLedgerBalance).Methods("GET")
	api.HandleFunc("/ledger/{address}/transactions", s.handleLedgerTransactions).Methods("GET")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "statement-engine",
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down API server...")
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
