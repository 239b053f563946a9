package engine

import (
	"context"
	"sync"

	"github.com/EdreyFreitas/monitor-dental/internal/catalog"
	"github.com/EdreyFreitas/monitor-dental/internal/models"
)

// runProduct fetches every configured store for one product concurrently
// and assembles the product record. A semaphore caps simultaneous fetch
// sessions; the join waits for every store regardless of outcome, so one
// store's failure never blocks or cancels its siblings. The returned
// record always has one result slot per configured store.
func (e *Engine) runProduct(ctx context.Context, p catalog.Product) models.ProductRecord {
	type keyed struct {
		storeID string
		result  models.StoreResult
	}

	sem := make(chan struct{}, e.maxParallel)
	results := make(chan keyed, len(p.StoreURLs))

	var wg sync.WaitGroup
	for storeID, url := range p.StoreURLs {
		rule, ok := e.catalog.Rule(storeID)
		if !ok {
			// Validate() rejects this at load time; guard anyway.
			results <- keyed{storeID, models.StoreResult{
				StoreID:      storeID,
				Availability: models.AvailabilityUnknown,
				SourceURL:    url,
				ErrorDetail:  "no extraction rule for store",
			}}
			continue
		}

		wg.Add(1)
		go func(storeID, url string, rule catalog.StoreRule) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			results <- keyed{storeID, e.fetchStore(ctx, storeID, url, rule, e.catalog.IsHome(storeID))}
		}(storeID, url, rule)
	}

	wg.Wait()
	close(results)

	rec := models.ProductRecord{
		ProductID:   p.ID,
		DisplayName: p.DisplayName,
		Results:     make(map[string]models.StoreResult, len(p.StoreURLs)),
	}
	for kr := range results {
		if _, dup := rec.Results[kr.storeID]; dup {
			// Unreachable while StoreURLs is a map; keeps last-wins
			// deterministic and visible if the catalog source ever
			// becomes an ordered list.
			e.logger.Warn("duplicate store id in product", "product", p.ID, "store", kr.storeID)
		}
		rec.Results[kr.storeID] = kr.result
	}

	rec.Position = Classify(rec, e.catalog.HomeStore, e.tieTolerance)

	return rec
}
