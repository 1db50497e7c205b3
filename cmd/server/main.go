package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/V4T54L/safelog/internal/adapter/api"
	"github.com/V4T54L/safelog/internal/adapter/metrics"
	"github.com/V4T54L/safelog/internal/adapter/repository/postgres"
	"github.com/V4T54L/safelog/internal/domain"
	"github.com/V4T54L/safelog/internal/pkg/config"
	"github.com/V4T54L/safelog/internal/pkg/logger"
	"github.com/V4T54L/safelog/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logger.New(cfg.LogLevel)
	slog.SetDefault(logger)

	m := metrics.NewLoggerMetrics()

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Logging Facade ---
	appLogger, err := usecase.Build(cfg, logger, m)
	if err != nil {
		logger.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}
	usecase.SetDefault(appLogger)

	// --- API Key Repository ---
	var apiKeyRepo domain.APIKeyRepository
	switch {
	case cfg.PostgresURL != "":
		db, err := postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		apiKeyRepo = postgres.NewAPIKeyRepository(db, logger, cfg.APIKeyCacheTTL, m)
	case cfg.StaticAPIKey != "":
		apiKeyRepo = postgres.NewStaticAPIKeyRepository(cfg.StaticAPIKey)
	default:
		logger.Warn("no API key store configured, intake is unauthenticated")
	}

	// --- Start Admin and Metrics Server ---
	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())
	adminServer := &http.Server{
		Addr:    cfg.AdminServerAddr,
		Handler: adminMux,
	}

	go func() {
		logger.Info("starting admin & metrics server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin & metrics server failed", "error", err)
		}
	}()

	// --- Retention Sweeps ---
	if cfg.SweepInterval > 0 {
		go runSweeps(ctx, appLogger, logger, cfg.SweepInterval, cfg.RetentionDays)
	}

	// --- Initialize Intake Server ---
	intakeServer := &http.Server{
		Addr:         cfg.IntakeServerAddr,
		Handler:      api.NewRouter(cfg, logger, apiKeyRepo, appLogger, m),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	go func() {
		logger.Info("starting intake server", "addr", intakeServer.Addr, "environment", cfg.Environment, "log_dir", cfg.LogDir)
		if err := intakeServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("intake server failed", "error", err)
			stop() // Trigger shutdown on server error
		}
	}()

	// --- Wait for shutdown signal ---
	<-ctx.Done()
	logger.Info("shutting down servers...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := intakeServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("intake server shutdown failed", "error", err)
	}
	if err := appLogger.Flush(shutdownCtx); err != nil {
		logger.Error("failed to flush log files", "error", err)
	}
	if err := appLogger.Close(); err != nil {
		logger.Error("failed to close log files", "error", err)
	}
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin server shutdown failed", "error", err)
	}

	logger.Info("servers shut down gracefully")
}

// runSweeps deletes expired log files once at startup and then on every tick.
func runSweeps(ctx context.Context, appLogger *usecase.AppLogger, logger *slog.Logger, interval time.Duration, days int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		result, err := appLogger.Sweep(ctx, days)
		if err != nil {
			logger.Error("retention sweep failed", "error", err)
		} else {
			logger.Info("retention sweep finished", "scanned", result.Scanned, "deleted", len(result.Deleted), "skipped", len(result.Skipped), "failures", len(result.Errors))
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
