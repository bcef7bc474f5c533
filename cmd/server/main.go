package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/flashflowhq/ingest/internal/config"
	"github.com/flashflowhq/ingest/internal/dedup"
	handler "github.com/flashflowhq/ingest/internal/delivery/http"
	"github.com/flashflowhq/ingest/internal/events"
	"github.com/flashflowhq/ingest/internal/normalize"
	"github.com/flashflowhq/ingest/internal/pipeline"
	"github.com/flashflowhq/ingest/internal/repository/postgres"
	redisrepo "github.com/flashflowhq/ingest/internal/repository/redis"
	"github.com/flashflowhq/ingest/internal/usecase"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	logger.Info("Starting FlashFlow ingest server")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	// Connect to PostgreSQL
	ctx := context.Background()
	dbPool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		logger.Fatal("Failed to ping PostgreSQL", zap.Error(err))
	}
	logger.Info("Connected to PostgreSQL")

	// Connect to Redis
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Fatal("Failed to parse Redis URL", zap.Error(err))
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to ping Redis", zap.Error(err))
	}
	logger.Info("Connected to Redis")

	// Initialize RabbitMQ publisher for job status events
	pub, err := events.NewRabbitMQPublisher(cfg.RabbitMQ.URL, logger)
	if err != nil {
		logger.Fatal("Failed to initialize RabbitMQ publisher", zap.Error(err))
	}
	defer pub.Close()
	logger.Info("Connected to RabbitMQ")

	// Initialize repositories
	jobRepo := postgres.NewJobRepository(dbPool)
	rawRowRepo := postgres.NewRawRowRepository(dbPool)
	outcomeRepo := postgres.NewOutcomeRepository(dbPool)
	videoStore := postgres.NewVideoStore(dbPool)
	keyLock := redisrepo.NewKeyLock(rdb)

	// Initialize the ingestion pipeline. No external metadata resolver is
	// wired yet; rows are ingested with the fields the operator supplied.
	normalizer := normalize.New(nil)
	deduper := dedup.New(videoStore)
	processor := pipeline.NewProcessor(
		normalizer,
		deduper,
		videoStore,
		keyLock,
		cfg.Ingest.ChunkSize,
		cfg.Ingest.NormalizeWorkers,
		logger,
	)

	// Initialize use cases
	submitUC := usecase.NewSubmitJobUsecase(jobRepo, rawRowRepo, pub, cfg.Ingest.MaxRows, logger)
	validateUC := usecase.NewValidateJobUsecase(jobRepo, rawRowRepo, outcomeRepo, processor, pub, logger)
	commitUC := usecase.NewCommitJobUsecase(jobRepo, rawRowRepo, outcomeRepo, processor, pub, logger)
	retryUC := usecase.NewRetryJobUsecase(jobRepo, rawRowRepo, outcomeRepo, processor, pub, logger)
	getJobUC := usecase.NewGetJobUsecase(jobRepo, logger)
	reportUC := usecase.NewReportUsecase(jobRepo, outcomeRepo, logger)

	// Initialize router
	router := handler.NewRouter(&handler.RouterDeps{
		SubmitUC:        submitUC,
		ValidateUC:      validateUC,
		CommitUC:        commitUC,
		RetryUC:         retryUC,
		GetJobUC:        getJobUC,
		ReportUC:        reportUC,
		Logger:          logger,
		RateLimitPerMin: cfg.Server.RateLimit,
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
		DBPool:          dbPool,
		Redis:           rdb,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Ingest server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down ingest server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Ingest server stopped")
}
