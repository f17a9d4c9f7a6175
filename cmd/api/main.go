package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saturnino-fabrica-de-software/hookline/internal/api"
	"github.com/saturnino-fabrica-de-software/hookline/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/hookline/internal/config"
	"github.com/saturnino-fabrica-de-software/hookline/internal/database"
	"github.com/saturnino-fabrica-de-software/hookline/internal/dispatch"
	"github.com/saturnino-fabrica-de-software/hookline/internal/publisher"
	"github.com/saturnino-fabrica-de-software/hookline/internal/repository"
	"github.com/saturnino-fabrica-de-software/hookline/internal/stats"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting Hookline API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
	)

	// Database pool
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPgxPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	// Repositories
	tenantRepo := repository.NewTenantRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	webhookRepo := repository.NewWebhookRepository(pool)
	deliveryRepo := repository.NewDeliveryRepository(pool)
	eventRepo := repository.NewEventRepository(pool)

	// Background batcher for API key last_used_at updates
	lastUsedWorker := middleware.NewLastUsedWorker(apiKeyRepo, logger, middleware.DefaultLastUsedWorkerConfig())
	lastUsedWorker.Start()
	defer lastUsedWorker.Stop()

	// Publisher and stats service
	pub := publisher.New(pool, logger)
	statsService := stats.NewService(stats.NewRepository(pool))

	// Setup router
	router := api.NewRouter(logger, &api.Dependencies{
		TenantRepo:     tenantRepo,
		WebhookRepo:    webhookRepo,
		DeliveryRepo:   deliveryRepo,
		EventRepo:      eventRepo,
		Publisher:      pub,
		Stats:          statsService,
		LastUsedWorker: lastUsedWorker,
		DB:             pool,
		Dispatch: dispatch.Config{
			Workers:            cfg.DeliveryWorkers,
			PollInterval:       cfg.DeliveryPoll,
			BatchSize:          cfg.DeliveryBatchSize,
			Lease:              cfg.DeliveryLease,
			MaxBackoff:         cfg.MaxBackoff,
			CountRetryFailures: cfg.CountRetryFailures,
		},
	})
	router.Setup()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down server...")
	if err := router.Shutdown(); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}

	<-shutdownCtx.Done()
	logger.Info("server stopped")

	return nil
}
