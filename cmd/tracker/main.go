package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evgeniytob14/table/internal/adapter"
	"github.com/evgeniytob14/table/internal/config"
	"github.com/evgeniytob14/table/internal/notify"
	"github.com/evgeniytob14/table/internal/repository/sqlite"
	"github.com/evgeniytob14/table/internal/scheduler"
	"github.com/evgeniytob14/table/internal/server"
	"github.com/evgeniytob14/table/internal/services/alerter"
	"github.com/evgeniytob14/table/internal/snapshot"
	"github.com/evgeniytob14/table/internal/tracker"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

const shutdownTimeout = 10 * time.Second

// main is the entry point of the application.
func main() {
	// Create a context that will be canceled when an interrupt signal is received.
	// This allows for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()

	// Set up the logger based on the environment.
	logger := setupLogger(cfg.Env)

	repo, err := sqlite.NewRepository(ctx, logger, cfg.StoragePath)
	if err != nil {
		log.Fatalf("Failed to init repository: %v", err)
	}
	defer repo.Close()

	registry, err := buildRegistry(logger, cfg)
	if err != nil {
		log.Fatalf("Failed to build source registry: %v", err)
	}

	for _, id := range registry.IDs() {
		if err = repo.EnsureSource(ctx, id); err != nil {
			log.Fatalf("Failed to prepare storage for source %q: %v", id, err)
		}
	}

	store := snapshot.NewStore()

	sched := scheduler.New(scheduler.Config{
		DefaultInterval: cfg.Poll.DefaultInterval,
		MaxAttempts:     cfg.Poll.MaxAttempts,
		RetryDelay:      cfg.Poll.RetryDelay,
		FetchTimeout:    cfg.Poll.FetchTimeout,
	}, registry, store, repo, logger)

	sink := buildSink(logger, cfg)
	alerts := alerter.NewAlerter(logger, repo, store, registry, sink)
	svc := tracker.New(logger, repo, store, registry, sched, alerts)

	if err = svc.WarmStart(ctx); err != nil {
		logger.ErrorContext(ctx, "Warm start failed, continuing with empty snapshots", "error", err)
	}

	sched.Start(ctx)

	go runAlertTicker(ctx, logger, svc, cfg.AlertInterval)

	srv := server.NewServer(logger, cfg.HTTPAddr, svc)
	go func() {
		if serveErr := srv.Start(); serveErr != nil {
			logger.Error("HTTP server failed", "error", serveErr)
			stop()
		}
	}()

	// Log that the application has started.
	logger.InfoContext(ctx, "Application started. Press Ctrl+C to stop.")

	// Wait for the context to be canceled (e.g., by Ctrl+C).
	<-ctx.Done()

	// Log that a shutdown signal has been received.
	logger.InfoContext(ctx, "Shutdown signal received. Stopping application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	if err = sched.Stop(shutdownCtx); err != nil {
		logger.Error("Scheduler shutdown failed", "error", err)
	}

	// Log graceful shutdown completion.
	logger.Info("Application stopped gracefully.")
}

// buildRegistry loads the sources file and registers one adapter per entry.
func buildRegistry(logger *slog.Logger, cfg *config.Config) (*adapter.Registry, error) {
	specs, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		return nil, err
	}

	registry := adapter.NewRegistry()
	for _, spec := range specs {
		var fetcher adapter.Adapter
		switch spec.Kind {
		case "html":
			fetcher = adapter.NewHTMLTable(logger, spec.URL, spec.Selector)
		case "json":
			fetcher = adapter.NewJSONAPI(logger, spec.URL)
		}

		interval := spec.Interval
		if interval == 0 {
			interval = cfg.Poll.DefaultInterval
		}

		if err = registry.Register(adapter.Source{
			ID:          spec.ID,
			DisplayName: spec.DisplayName,
			Adapter:     fetcher,
			Interval:    interval,
			Commission:  spec.Commission,
		}); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

// buildSink wires the telegram sender when a token is configured; alerts
// are still evaluated and logged without one.
func buildSink(logger *slog.Logger, cfg *config.Config) *notify.Notifier {
	if cfg.Tg.Token == "" {
		logger.Warn("TRACKER_TELEGRAM_TOKEN is empty, alerts will not be delivered")
		return notify.NewNotifier(logger)
	}

	telegram, err := notify.NewTelegramSender(logger, cfg.Tg.Token, cfg.Tg.ChatID)
	if err != nil {
		log.Fatalf("Failed to init telegram sender: %v", err)
	}

	return notify.NewNotifier(logger, telegram)
}

// runAlertTicker runs periodic alert passes until ctx is cancelled.
func runAlertTicker(ctx context.Context, logger *slog.Logger, svc *tracker.Tracker, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := svc.RunAlertPass(ctx); err != nil {
				logger.ErrorContext(ctx, "Periodic alert pass failed", "error", err)
			}
		}
	}
}

// setupLogger initializes and returns a logger based on the environment provided.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					return a
				},
			}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelInfo,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					return a
				},
			}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelWarn,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					if a.Key == slog.TimeKey {
						return slog.Attr{}
					}
					return a
				},
			}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelError,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					if a.Key == slog.TimeKey {
						return slog.Attr{}
					}
					return a
				},
			}),
		)

		log.Error(
			"The env parameter was not specified or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return log
}
