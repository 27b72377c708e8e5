package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tjfontaine/llm-interaction-logger/internal/config"
	"github.com/tjfontaine/llm-interaction-logger/internal/diag"
	"github.com/tjfontaine/llm-interaction-logger/internal/recorder"
	"github.com/tjfontaine/llm-interaction-logger/internal/server"
	"github.com/tjfontaine/llm-interaction-logger/internal/telemetry"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(cfg.Telemetry.ServiceName, logger)
		if err != nil {
			log.Fatalf("Failed to initialize tracer: %v", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
			}
		}()
	}

	diagLogger, diagCloser, err := diag.New(diag.Config{
		Path:  cfg.Diagnostics.Path,
		Level: cfg.Diagnostics.Level,
	})
	if err != nil {
		log.Fatalf("Failed to open diagnostic sink: %v", err)
	}
	defer diagCloser.Close()

	rec, err := recorder.New(
		recorder.WithDBPath(cfg.Storage.Path),
		recorder.WithDiagnostics(diagLogger),
		recorder.WithPollInterval(cfg.Queue.PollInterval),
		recorder.WithQueueHighWater(cfg.Queue.HighWater),
		recorder.WithTokenEstimation(cfg.Tokens.Estimate),
	)
	if err != nil {
		log.Fatalf("Failed to create recorder: %v", err)
	}

	srv := server.New(cfg.Server.Port, logger, rec)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("interaction logger started",
		slog.Int("port", cfg.Server.Port),
		slog.String("db", cfg.Storage.Path),
		slog.String("diagnostics", cfg.Diagnostics.Path),
	)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case <-sigChan:
		logger.Info("shutdown signal received, draining")
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			exitCode = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
		exitCode = 1
	}

	// Blocks until every accepted interaction is written.
	if err := rec.Close(); err != nil {
		logger.Error("recorder close error", slog.String("error", err.Error()))
		exitCode = 1
	}

	logger.Info("shutdown complete", slog.Int("pending", rec.Pending()))

	if exitCode != 0 {
		diagCloser.Close()
		os.Exit(exitCode)
	}
}
