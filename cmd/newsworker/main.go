package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tareqlive/newsworker/internal/api"
	"github.com/tareqlive/newsworker/internal/app"
	"github.com/tareqlive/newsworker/internal/config"
	"github.com/tareqlive/newsworker/internal/logger"
)

func main() {
	if err := run(); err != nil {
		logger.Error("Worker failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}
	if cfg == nil {
		return nil
	}

	level := "info"
	if cfg.Debug {
		level = "debug"
	}
	logger.Init(level)
	logger.Info("Starting news worker", "version", config.GetVersion(), "provider", cfg.LLMProvider)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize worker: %w", err)
	}
	defer func() {
		if err := worker.Close(); err != nil {
			logger.Warn("Failed to close worker resources", "error", err)
		}
	}()

	if cfg.Once {
		result, err := worker.Runs.RunNow(ctx, app.TriggerStartup)
		if err != nil {
			return err
		}
		logger.Info("Run finished",
			"run_id", result.ID,
			"processed", result.Report.Processed,
			"failed", result.Report.Failed)
		return nil
	}

	worker.Scheduler.Start(ctx)
	defer worker.Scheduler.Stop()

	handler := api.NewHandler(ctx, worker.Runs, cfg.RunSecret, config.GetVersion()).WithBudget(worker.Budget)
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewServer(handler),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "port", cfg.Port, "interval", cfg.ScheduleInterval)
		if cfg.RunSecret == "" {
			logger.Warn("RUN_SECRET not set, POST /run is disabled")
		}
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serverErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", "error", err)
	}
	worker.Runs.Wait()
	logger.Info("News worker stopped")
	return nil
}
