// Package engine renders each catalog product's store pages, extracts a
// price and a stock signal from the noisy page content, and folds the
// per-store results into a timestamped market-position snapshot. A run
// always completes with a full snapshot; failures surface per store cell,
// never as a run failure.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/EdreyFreitas/monitor-dental/internal/browser"
	"github.com/EdreyFreitas/monitor-dental/internal/catalog"
	"github.com/EdreyFreitas/monitor-dental/internal/models"
)

type Engine struct {
	fetcher browser.Fetcher
	catalog *catalog.Catalog
	logger  *slog.Logger

	maxParallel  int
	retryCount   int
	retryBackoff time.Duration
	settleDelay  time.Duration
	tieTolerance float64
}

type Options struct {
	// MaxParallel caps simultaneous fetch sessions per product.
	MaxParallel int
	// RetryCount is the number of additional attempts after a transient
	// fetch error. UNKNOWN results are content conditions, never retried.
	RetryCount int
	// RetryBackoff is the fixed delay before a retry attempt.
	RetryBackoff time.Duration
	// SettleDelay is the pause between products of one run.
	SettleDelay time.Duration
	// TieTolerance is the absolute price difference still reported TIED.
	TieTolerance float64
}

func DefaultOptions() Options {
	return Options{
		MaxParallel:  3,
		RetryCount:   1,
		RetryBackoff: 2 * time.Second,
		SettleDelay:  500 * time.Millisecond,
		TieTolerance: 0.10,
	}
}

func New(fetcher browser.Fetcher, cat *catalog.Catalog, opts Options, logger *slog.Logger) *Engine {
	if opts.MaxParallel < 1 {
		opts.MaxParallel = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		fetcher:      fetcher,
		catalog:      cat,
		logger:       logger.With("component", "engine"),
		maxParallel:  opts.MaxParallel,
		retryCount:   opts.RetryCount,
		retryBackoff: opts.RetryBackoff,
		settleDelay:  opts.SettleDelay,
		tieTolerance: opts.TieTolerance,
	}
}

// Run executes one full sync over the catalog and returns the snapshot.
// Products run in sequence; stores within a product run concurrently. The
// only error Run returns is a canceled context.
func (e *Engine) Run(ctx context.Context) (*models.Snapshot, error) {
	snap := &models.Snapshot{
		ID:      uuid.New().String(),
		TakenAt: time.Now().UTC(),
		Records: make([]models.ProductRecord, 0, len(e.catalog.Products)),
	}

	e.logger.Info("sync started", "run", snap.ID, "products", len(e.catalog.Products))
	start := time.Now()

	for i, product := range e.catalog.Products {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if i > 0 && e.settleDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(e.settleDelay):
			}
		}

		rec := e.runProduct(ctx, product)
		snap.Records = append(snap.Records, rec)

		e.logger.Info("product synced",
			"run", snap.ID,
			"product", product.ID,
			"position", rec.Position,
			"stores", len(rec.Results),
		)
	}

	summary := snap.Summarize()
	e.logger.Info("sync completed",
		"run", snap.ID,
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
		"winning", summary.Winning,
		"tied", summary.Tied,
		"losing", summary.Losing,
		"stockouts", summary.Stockouts,
	)

	return snap, nil
}
