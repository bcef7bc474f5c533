package http

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/flashflowhq/ingest/internal/delivery/http/middleware"
	"github.com/flashflowhq/ingest/internal/usecase"
)

// RouterDeps carries everything the router needs to wire handlers.
type RouterDeps struct {
	SubmitUC   *usecase.SubmitJobUsecase
	ValidateUC *usecase.ValidateJobUsecase
	CommitUC   *usecase.CommitJobUsecase
	RetryUC    *usecase.RetryJobUsecase
	GetJobUC   *usecase.GetJobUsecase
	ReportUC   *usecase.ReportUsecase

	Logger          *zap.Logger
	RateLimitPerMin int
	MaxBodyBytes    int64
	DBPool          *pgxpool.Pool
	Redis           *goredis.Client
}

// NewRouter creates and configures the Gin router with all routes and middleware.
func NewRouter(deps *RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger(deps.Logger))

	// Metrics endpoint (no rate limiting)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Health check (no rate limiting)
		healthHandler := NewHealthHandler(deps.DBPool, deps.Redis, deps.Logger)
		v1.GET("/health", healthHandler.Health)

		jobHandler := NewJobHandler(
			deps.SubmitUC,
			deps.ValidateUC,
			deps.CommitUC,
			deps.RetryUC,
			deps.GetJobUC,
			deps.Logger,
		)
		reportHandler := NewReportHandler(deps.ReportUC, deps.Logger)

		// Mutating routes carry rate limiting; submit additionally caps
		// the request body since batches arrive inline.
		limited := v1.Group("")
		limited.Use(middleware.RateLimiter(deps.RateLimitPerMin))
		limited.POST("/jobs", middleware.BodySizeLimit(deps.MaxBodyBytes), jobHandler.Submit)
		limited.POST("/jobs/:id/validate", jobHandler.Validate)
		limited.POST("/jobs/:id/commit", jobHandler.Commit)
		limited.POST("/jobs/:id/retry", jobHandler.Retry)

		v1.GET("/jobs/:id", jobHandler.GetByID)
		v1.GET("/jobs/:id/report", reportHandler.Reconciliation)
		v1.GET("/jobs/:id/failed.csv", reportHandler.FailedRowsCSV)

		// WebSocket for real-time updates
		wsHandler := NewWebSocketHandler(deps.GetJobUC, deps.Logger)
		v1.GET("/jobs/:id/stream", wsHandler.Stream)
	}

	return router
}
