// Command monitor runs one catalog sync from the terminal, persists the
// snapshot, and prints the market-position summary.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/EdreyFreitas/monitor-dental/internal/browser"
	"github.com/EdreyFreitas/monitor-dental/internal/catalog"
	"github.com/EdreyFreitas/monitor-dental/internal/config"
	"github.com/EdreyFreitas/monitor-dental/internal/engine"
	"github.com/EdreyFreitas/monitor-dental/internal/events"
	"github.com/EdreyFreitas/monitor-dental/internal/history"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fetcher, err := newFetcher(cfg)
	if err != nil {
		logger.Error("failed to initialize fetcher", "error", err)
		os.Exit(1)
	}
	defer fetcher.Close()

	store, err := newStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize history store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	eng := engine.New(fetcher, cat, engine.Options{
		MaxParallel:  cfg.Engine.MaxParallel,
		RetryCount:   cfg.Engine.RetryCount,
		RetryBackoff: cfg.Engine.RetryBackoff,
		SettleDelay:  cfg.Engine.SettleDelay,
		TieTolerance: cfg.Engine.TieTolerance,
	}, logger)

	snap, err := eng.Run(ctx)
	if err != nil {
		logger.Error("sync aborted", "error", err)
		os.Exit(1)
	}

	if err := store.Save(ctx, snap); err != nil {
		logger.Error("failed to persist snapshot", "run", snap.ID, "error", err)
		os.Exit(1)
	}

	if cfg.Redis.Addr != "" {
		publisher, err := events.NewPublisher(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Channel, logger)
		if err != nil {
			logger.Warn("redis unavailable, skipping sync event", "error", err)
		} else {
			defer publisher.Close()
			if err := publisher.PublishSyncCompleted(ctx, snap); err != nil {
				logger.Warn("failed to publish sync event", "error", err)
			}
		}
	}

	summary := snap.Summarize()
	logger.Info("snapshot saved",
		"run", snap.ID,
		"products", len(snap.Records),
		"winning", summary.Winning,
		"tied", summary.Tied,
		"losing", summary.Losing,
		"stockouts", summary.Stockouts,
		"incomparable", summary.Incomparable,
	)
}

func newFetcher(cfg *config.Config) (browser.Fetcher, error) {
	if cfg.Engine.Fetcher == "http" {
		return browser.NewHTTPFetcher(cfg.Engine.NavTimeout, cfg.Engine.UserAgent), nil
	}

	return browser.New(&browser.Options{
		Headless:       cfg.Engine.Headless,
		NavTimeout:     cfg.Engine.NavTimeout,
		UserAgent:      cfg.Engine.UserAgent,
		ViewportWidth:  1280,
		ViewportHeight: 720,
	})
}

func newStore(ctx context.Context, cfg *config.Config) (history.Store, error) {
	if cfg.History.DatabaseURL != "" {
		return history.NewPostgresStore(ctx, cfg.History.DatabaseURL)
	}
	return history.NewFileStore(cfg.History.File, cfg.History.MaxEntries)
}
