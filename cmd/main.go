package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"checklist-tracker/internal/cache"
	"checklist-tracker/internal/config"
	"checklist-tracker/internal/database"
	"checklist-tracker/internal/queue"
	"checklist-tracker/internal/routes"
	"checklist-tracker/internal/worker"
	"checklist-tracker/pkg/logger"

	"github.com/joho/godotenv"
)

func main() {
	// Already-set variables win over .env.
	_ = godotenv.Load(".env")

	cfg := config.Get()
	logger.SetDefault(logger.New(os.Stdout, cfg.LogLevel))
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	db := database.InitDB(ctx)
	if db == nil {
		logger.Error(ctx, "Database not available; exiting")
		os.Exit(1)
	}
	if err := database.MigrateOrCreateSchema(ctx); err != nil {
		logger.Error(ctx, "Schema migration failed", "error", err)
		os.Exit(1)
	}

	// Pre-warm Redis (optional; cache works lazily and is skipped when unreachable)
	cache.Client(ctx)

	// Pre-warm Kafka producer and ensure topic exists
	queue.Producer(ctx)
	queue.EnsureTopic(ctx)

	// Worker applies queued toggles and photo references
	go worker.Run(ctx)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      routes.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: time.Duration(cfg.RequestTimeoutSec+15) * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		logger.Info(ctx, "HTTP server listening", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Server shutdown error", "error", err)
	}
	stop()
	if err := queue.Close(); err != nil {
		logger.Error(ctx, "Kafka producer close error", "error", err)
	}
	logger.Info(ctx, "Server stopped")
}
