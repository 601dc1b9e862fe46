// Package main is the entry point for the horizon analytics server.
//
// The server exposes portfolio reports, Monte Carlo simulations and
// allocation analysis over HTTP, and runs the background maintenance jobs
// (cache cleanup, database checks, optional S3 backups).
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/horizon/internal/config"
	"github.com/aristath/horizon/internal/di"
	"github.com/aristath/horizon/internal/server"
	"github.com/aristath/horizon/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting horizon")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Wire all dependencies: databases, repository, caches, analytics, jobs
	container, err := di.Wire(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	srv := server.New(server.Config{
		Log:        log,
		Port:       cfg.Port,
		DevMode:    cfg.DevMode,
		DataDir:    cfg.DataDir,
		Databases:  container.Databases(),
		Modules:    []server.RouteRegistrar{container.PortfolioHandler, container.AnalyticsHandler},
		Middleware: []func(http.Handler) http.Handler{container.Metrics.Middleware},
		Gatherer:   container.Registry,
		Jobs:       container.Scheduler,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	container.Scheduler.Start()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Stop accepting new job runs and wait for running ones
	container.Scheduler.Stop()

	// Graceful shutdown: give in-flight requests (simulations included) time to finish
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
