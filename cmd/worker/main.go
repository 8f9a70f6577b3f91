package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/timmy/ipv4-deal-os/internal/config"
	"github.com/timmy/ipv4-deal-os/internal/domain"
	"github.com/timmy/ipv4-deal-os/internal/logger"
	"github.com/timmy/ipv4-deal-os/internal/queue"
	"github.com/timmy/ipv4-deal-os/internal/repository"
	"github.com/timmy/ipv4-deal-os/internal/service"
)

func main() {
	appLogger := logger.NewFromEnv(logger.LoadFromEnv("dealos-worker"))
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	if cfg.Redis.Embedded() {
		appLogger.Fatal("redis.url is required for the standalone worker")
	}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	jobRepo := repository.NewJobRepository(db)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisQueue, err := queue.NewRedisQueue(ctx, &queue.RedisConfig{URL: cfg.Redis.URL, Key: cfg.Redis.Queue})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisQueue.Close()

	heartbeat := queue.NewHeartbeat(redisQueue.Client(), cfg.Redis.HeartbeatKey)
	worker := service.NewWorker(jobRepo, redisQueue, heartbeat, &service.WorkerConfig{
		Concurrency:       cfg.Worker.Concurrency,
		PollTimeout:       cfg.Worker.PollTimeout,
		HeartbeatInterval: cfg.Worker.HeartbeatInterval,
	}, service.SystemClock)
	worker.Register(domain.JobTypeRDAPIngestion, &service.RDAPIngestionTask{Duration: cfg.Worker.RDAPStubDuration})

	appLogger.WithFields(logger.Fields{
		"queue":       cfg.Redis.Queue,
		"concurrency": cfg.Worker.Concurrency,
	}).Info("Starting worker")

	if err := worker.Run(ctx); err != nil {
		appLogger.WithError(err).Error("Worker exited with error")
		return
	}
	appLogger.Info("Worker exited")
}
