package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/reimbursement-tracker/internal/api/handlers"
	"github.com/eshaffer321/reimbursement-tracker/internal/api/middleware"
	"github.com/eshaffer321/reimbursement-tracker/internal/application/service"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		AllowedOrigins: middleware.DefaultCORSConfig().AllowedOrigins,
	}
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
	svc        *service.ReimbursementService
}

// NewServer creates a new API server.
func NewServer(cfg Config, svc *service.ReimbursementService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config: cfg,
		router: chi.NewRouter(),
		logger: logger,
		svc:    svc,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = s.config.AllowedOrigins
	s.router.Use(middleware.CORS(corsConfig))

	s.router.Use(middleware.User)

	// Request logging
	s.router.Use(middleware.Logging(s.logger))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	healthHandler := handlers.NewHealthHandler()
	s.router.Get("/health", healthHandler.ServeHTTP)

	s.router.Route("/api", func(r chi.Router) {
		// Expenses
		expensesHandler := handlers.NewExpensesHandler(s.svc, s.logger)
		r.Get("/expenses", expensesHandler.List)
		r.Post("/expenses", expensesHandler.Create)
		r.Get("/expenses/{id}", expensesHandler.Get)
		r.Delete("/expenses/{id}", expensesHandler.Delete)

		// Reimbursement matching and history
		reimbursementsHandler := handlers.NewReimbursementsHandler(s.svc, s.logger)
		r.Post("/reimbursements/match", reimbursementsHandler.Match)
		r.Post("/reimbursements/apply", reimbursementsHandler.Apply)
		r.Get("/reimbursements", reimbursementsHandler.List)
		r.Get("/reimbursements/{id}", reimbursementsHandler.Get)

		// Summaries
		summaryHandler := handlers.NewSummaryHandler(s.svc, s.logger)
		r.Get("/summary/monthly", summaryHandler.Monthly)

		// Bank statement import
		depositsHandler := handlers.NewDepositsHandler(s.logger)
		r.Post("/deposits/parse", depositsHandler.Parse)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}
