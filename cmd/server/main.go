/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the rotation scheduling server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration from the environment
  2. Initialize SQLite store
  3. Create API handler with dependencies
  4. Start the nightly reconciliation scheduler
  5. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler and close the database
  4. Exit

CONFIGURATION (environment):
  SERVER_PORT                 HTTP port (default 8080)
  DATABASE_PATH               SQLite path, ":memory:" for ephemeral
  RECONCILE_GRACE_MARGIN      Tolerant-pass margin (default 30m)
  RECONCILE_NIGHTLY           Enable the background pass (default true)
  RECONCILE_NIGHTLY_INTERVAL  Check interval (default 1h)

SEE ALSO:
  - config/config.go: All knobs and defaults
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/rota-engine/api"
	"github.com/warp/rota-engine/config"
	"github.com/warp/rota-engine/rota"
	"github.com/warp/rota-engine/store/sqlite"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to initialize database", "path", cfg.Database.Path, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	handler := api.NewHandler(store, rota.SystemClock{}, logger)
	handler.Engine.GraceMargin = cfg.Reconciliation.GraceMargin

	scheduler := api.NewNightlyScheduler(handler.Engine, handler.Clock, logger)
	scheduler.Enabled = cfg.Reconciliation.Nightly
	scheduler.CheckInterval = cfg.Reconciliation.NightlyInterval
	scheduler.Start()
	defer scheduler.Stop()

	router := api.NewRouter(handler, cfg.Server.CORSOrigins)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
