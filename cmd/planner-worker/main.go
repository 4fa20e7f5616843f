package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/config"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: "planner-worker",
	})
	applog.SetDefault(logger)

	logger.Info("Starting planner-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// Initialize the storage backend
	factory := backend.NewFactory(logger.Logger)
	result, err := factory.CreateBackend(context.Background(), backend.Config{
		Type:         backend.BackendType(cfg.DataBackend),
		SQLiteDBPath: cfg.SQLiteDBPath,
		PostgresDSN:  cfg.PostgresDSN,
	})
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", "error", err)
			}
		}()
	}

	// Plan cache: Redis when configured, in-process otherwise
	var planCache cache.PlanCache
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedisPlanCache(cfg.RedisAddr, cfg.PlanCacheTTL)
		if err != nil {
			logger.Warn("Failed to initialize Redis plan cache, falling back to memory", "error", err)
		} else {
			defer redisCache.Close()
			planCache = redisCache
			logger.Info("Redis plan cache initialized", "addr", cfg.RedisAddr)
		}
	}

	// AMQP client (optional): without it the worker only sweeps
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, running sweep-only", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - running sweep-only")
	}

	planner := services.NewPlannerService(result.Store, planCache, nil, cfg.ForecastMonths)
	planWorker := worker.NewPlanWorker(planner, amqpClient, cfg.SweepInterval)

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	logger.Info("Planner-worker running", "sweep_interval", cfg.SweepInterval)
	if err := planWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Planner-worker error", "error", err)
		os.Exit(1)
	}

	logger.Info("Planner-worker shutdown complete")
}
