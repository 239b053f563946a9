// Command server exposes the monitor over HTTP: trigger a sync, read the
// latest snapshot, browse recent history.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/EdreyFreitas/monitor-dental/internal/browser"
	"github.com/EdreyFreitas/monitor-dental/internal/catalog"
	"github.com/EdreyFreitas/monitor-dental/internal/config"
	"github.com/EdreyFreitas/monitor-dental/internal/engine"
	"github.com/EdreyFreitas/monitor-dental/internal/events"
	"github.com/EdreyFreitas/monitor-dental/internal/history"
	"github.com/EdreyFreitas/monitor-dental/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var fetcher browser.Fetcher
	if cfg.Engine.Fetcher == "http" {
		fetcher = browser.NewHTTPFetcher(cfg.Engine.NavTimeout, cfg.Engine.UserAgent)
	} else {
		fetcher, err = browser.New(&browser.Options{
			Headless:       cfg.Engine.Headless,
			NavTimeout:     cfg.Engine.NavTimeout,
			UserAgent:      cfg.Engine.UserAgent,
			ViewportWidth:  1280,
			ViewportHeight: 720,
		})
		if err != nil {
			logger.Error("failed to initialize browser", "error", err)
			os.Exit(1)
		}
	}
	defer fetcher.Close()

	var store history.Store
	if cfg.History.DatabaseURL != "" {
		store, err = history.NewPostgresStore(ctx, cfg.History.DatabaseURL)
	} else {
		store, err = history.NewFileStore(cfg.History.File, cfg.History.MaxEntries)
	}
	if err != nil {
		logger.Error("failed to initialize history store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	var notifier server.Notifier
	if cfg.Redis.Addr != "" {
		publisher, err := events.NewPublisher(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Channel, logger)
		if err != nil {
			logger.Warn("redis unavailable, sync events disabled", "error", err)
		} else {
			defer publisher.Close()
			notifier = publisher
		}
	}

	eng := engine.New(fetcher, cat, engine.Options{
		MaxParallel:  cfg.Engine.MaxParallel,
		RetryCount:   cfg.Engine.RetryCount,
		RetryBackoff: cfg.Engine.RetryBackoff,
		SettleDelay:  cfg.Engine.SettleDelay,
		TieTolerance: cfg.Engine.TieTolerance,
	}, logger)

	handlers := server.NewHandlers(eng, store, notifier, cat, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	// A sync renders every catalog page, so the budget is generous.
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	handlers.Routes(r)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	logger.Info("server listening", "port", cfg.Server.Port, "fetcher", cfg.Engine.Fetcher)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
