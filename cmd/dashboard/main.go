package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/reimbursement-tracker/internal/api/middleware"
	"github.com/eshaffer321/reimbursement-tracker/internal/application/service"
	"github.com/eshaffer321/reimbursement-tracker/internal/domain/matcher"
	"github.com/eshaffer321/reimbursement-tracker/internal/infrastructure/config"
	"github.com/eshaffer321/reimbursement-tracker/internal/infrastructure/logging"
	"github.com/eshaffer321/reimbursement-tracker/internal/infrastructure/storage"
)

type DashboardServer struct {
	svc    *service.ReimbursementService
	logger *slog.Logger
}

func NewDashboardServer(svc *service.ReimbursementService, logger *slog.Logger) *DashboardServer {
	return &DashboardServer{
		svc:    svc,
		logger: logger,
	}
}

// Month row of the summary chart
type MonthResponse struct {
	Month           string             `json:"month"`
	Count           int                `json:"count"`
	Total           float64            `json:"total"`
	PendingTotal    float64            `json:"pending_total"`
	ReimbursedTotal float64            `json:"reimbursed_total"`
	ByCategory      map[string]float64 `json:"by_category,omitempty"`
}

// Applied match shown in the recent list
type RecentReimbursement struct {
	ID           string  `json:"id"`
	Reference    string  `json:"reference,omitempty"`
	TargetAmount float64 `json:"target_amount"`
	Total        float64 `json:"total"`
	Status       string  `json:"status"`
	ExpenseCount int     `json:"expense_count"`
	FailedCount  int     `json:"failed_count"`
	CreatedAt    string  `json:"created_at"`
}

func userID(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(middleware.UserIDHeader)); id != "" {
		return id
	}
	return middleware.DefaultUserID
}

func (s *DashboardServer) getMonthlySummary(c *gin.Context) {
	months, err := strconv.Atoi(c.DefaultQuery("months", "6"))
	if err != nil || months < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "months must be a non-negative integer"})
		return
	}

	summaries, err := s.svc.MonthlySummary(c.Request.Context(), userID(c), months)
	if err != nil {
		s.logger.Error("monthly summary failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch summary"})
		return
	}

	response := make([]MonthResponse, 0, len(summaries))
	for _, m := range summaries {
		response = append(response, MonthResponse{
			Month:           m.Month,
			Count:           m.Count,
			Total:           m.Total,
			PendingTotal:    m.PendingTotal,
			ReimbursedTotal: m.ReimbursedTotal,
			ByCategory:      m.ByCategory,
		})
	}

	c.JSON(http.StatusOK, response)
}

func (s *DashboardServer) getRecentReimbursements(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit <= 0 {
		limit = 10
	}

	list, err := s.svc.ListReimbursements(c.Request.Context(), userID(c), limit)
	if err != nil {
		s.logger.Error("recent reimbursements failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch recent reimbursements"})
		return
	}

	recent := make([]RecentReimbursement, 0, len(list))
	for _, r := range list {
		recent = append(recent, toRecent(r))
	}

	c.JSON(http.StatusOK, recent)
}

func toRecent(r storage.Reimbursement) RecentReimbursement {
	recent := RecentReimbursement{
		ID:           r.ID,
		Reference:    r.Reference,
		TargetAmount: r.TargetAmount,
		Total:        r.Total,
		Status:       r.Status,
		ExpenseCount: len(r.Items),
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
	}
	for _, item := range r.Items {
		if item.Status == storage.ItemFailed {
			recent.FailedCount++
		}
	}
	return recent
}

func setupRouter(server *DashboardServer, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/api/health"},
	}))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.UserIDHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "healthy"})
		})
		api.GET("/summary/monthly", server.getMonthlySummary)
		api.GET("/reimbursements/recent", server.getRecentReimbursements)
	}

	return router
}

func main() {
	port := flag.Int("port", 0, "Port to listen on (default from config)")
	configPath := flag.String("config", "config.yaml", "Configuration file path")
	flag.Parse()

	cfg := config.LoadOrEnv_WithPath(*configPath)
	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "dashboard")

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("failed to initialize storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer store.Close()

	svc := service.NewReimbursementService(store, matcher.NewMatcher(cfg.Matching.ToMatcherConfig()), logger)

	gin.SetMode(gin.ReleaseMode)
	router := setupRouter(NewDashboardServer(svc, logger), cfg.Dashboard.AllowedOrigins)

	listen := cfg.Dashboard.Port
	if *port > 0 {
		listen = *port
	}

	logger.Info("starting dashboard server", "port", listen)
	if err := router.Run(":" + strconv.Itoa(listen)); err != nil {
		logger.Error("failed to start server", slog.Any("error", err))
		os.Exit(1)
	}
}
