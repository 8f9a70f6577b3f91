package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/ipv4-deal-os/internal/api"
	"github.com/timmy/ipv4-deal-os/internal/config"
	"github.com/timmy/ipv4-deal-os/internal/domain"
	"github.com/timmy/ipv4-deal-os/internal/logger"
	"github.com/timmy/ipv4-deal-os/internal/queue"
	"github.com/timmy/ipv4-deal-os/internal/repository"
	"github.com/timmy/ipv4-deal-os/internal/service"
	"gorm.io/gorm"
)

func main() {
	// Initialize logger first
	appLogger := logger.NewFromEnv(logger.LoadFromEnv("dealos-api"))
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	leadRepo := repository.NewLeadRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	jobRepo := repository.NewJobRepository(db)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Work queue. Without a Redis URL jobs run on an in-process worker.
	var (
		jobQueue queue.Queue
		broker   service.Pinger
		workers  service.LivenessChecker
	)
	if !cfg.Redis.Embedded() {
		redisQueue, err := queue.Dial(&queue.RedisConfig{URL: cfg.Redis.URL, Key: cfg.Redis.Queue})
		if err != nil {
			appLogger.WithError(err).Fatal("Invalid redis.url")
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisQueue.Ping(pingCtx); err != nil {
			// Health reports the broker as down until Redis comes back
			appLogger.WithError(err).Warn("Redis is unreachable; serving anyway")
		}
		cancel()
		jobQueue = redisQueue
		broker = redisQueue
		workers = queue.NewHeartbeat(redisQueue.Client(), cfg.Redis.HeartbeatKey)
	} else {
		appLogger.Warn("redis.url is empty; running jobs on an embedded worker")
		memQueue := queue.NewMemoryQueue(64)
		jobQueue = memQueue
		go runEmbeddedWorker(ctx, jobRepo, memQueue, cfg)
	}
	defer jobQueue.Close()

	// Initialize services
	clock := service.SystemClock
	services := &api.Services{
		Health: service.NewHealthService(dbPinger(db), broker, workers),
		Analysis: service.NewAnalysisService(&service.AnalysisConfig{
			APIKey:  cfg.AI.APIKey,
			BaseURL: cfg.AI.BaseURL,
			Model:   cfg.AI.Model,
			Referer: cfg.AI.Referer,
			Timeout: cfg.AI.Timeout,
		}),
		Metrics: service.NewMetricsService(leadRepo, inventoryRepo, &service.MetricsConfig{
			UnitPriceUSD:        cfg.Pipeline.UnitPriceUSD,
			UrgentFollowupLimit: cfg.Pipeline.UrgentFollowupLimit,
		}, clock),
		Leads: service.NewLeadService(leadRepo, &service.LeadServiceConfig{
			StrictStages: cfg.Pipeline.StrictStages,
		}, clock),
		Jobs: service.NewJobService(jobRepo, jobQueue, clock),
	}

	if !services.Analysis.IsConfigured() {
		appLogger.Warn("OPENROUTER_API_KEY is not set; /api/ai/analyze will report the engine as unconfigured")
	}

	// Setup router
	router := api.SetupRouter(services, &cfg.Server)

	// Create HTTP server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()
	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}

func dbPinger(db *gorm.DB) service.Pinger {
	return service.PingFunc(func(ctx context.Context) error {
		return repository.Ping(ctx, db)
	})
}

func runEmbeddedWorker(ctx context.Context, jobs *repository.JobRepository, q queue.Queue, cfg *config.Config) {
	w := service.NewWorker(jobs, q, nil, &service.WorkerConfig{
		Concurrency: 1,
		PollTimeout: cfg.Worker.PollTimeout,
	}, service.SystemClock)
	w.Register(domain.JobTypeRDAPIngestion, &service.RDAPIngestionTask{Duration: cfg.Worker.RDAPStubDuration})
	if err := w.Run(ctx); err != nil {
		logger.GetDefault().WithError(err).Error("Embedded worker stopped")
	}
}
