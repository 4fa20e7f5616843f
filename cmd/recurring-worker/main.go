package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/config"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: "recurring-worker",
	})
	applog.SetDefault(logger)

	logger.Info("Starting recurring-worker")

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

	// Initialize AMQP client for publishing refresh messages
	// The planner-worker consumes these and recomputes the forecast
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without refresh messages", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized - changes will notify the planner-worker")
		}
	} else {
		logger.Info("AMQP disabled - the planner-worker relies on its periodic sweep")
	}

	planner := services.NewPlannerService(result.Store, nil, amqpClient, cfg.ForecastMonths)
	materializer := services.NewMaterializer(result.Store, planner)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Recurring item materializer configured",
		"schedule", cfg.MaterializeCron,
		"backend", cfg.DataBackend)

	// Run initial processing on startup
	logger.Info("Running initial recurring item processing...")
	if count, err := materializer.ProcessDueItems(ctx, time.Now()); err != nil {
		logger.Error("Initial processing failed", "error", err)
	} else {
		logger.Info("Initial processing complete", "transactions_created", count)
	}

	// Schedule periodic processing
	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.MaterializeCron, func() {
		logger.Info("Processing due recurring items...")
		count, err := materializer.ProcessDueItems(ctx, time.Now())
		if err != nil {
			logger.Error("Scheduled processing failed", "error", err)
			return
		}
		logger.Info("Scheduled processing complete", "transactions_created", count)
	})
	if err != nil {
		logger.Error("Invalid cron schedule", "error", err, "schedule", cfg.MaterializeCron)
		os.Exit(1)
	}
	scheduler.Start()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down recurring-worker...")
	cancel()

	// Wait for any in-flight cron job to finish
	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
		logger.Info("Recurring-worker shutdown complete")
	case <-time.After(30 * time.Second):
		logger.Warn("Shutdown timeout reached")
	}
}
