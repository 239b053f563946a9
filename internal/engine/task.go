package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/EdreyFreitas/monitor-dental/internal/catalog"
	"github.com/EdreyFreitas/monitor-dental/internal/models"
)

// minURLLength guards against placeholder entries like "-" or "tbd" in the
// catalog; anything shorter cannot be a real product URL.
const minURLLength = 10

// FetchError is a transient failure of one fetch attempt: navigation,
// timeout, or the selector never appearing.
type FetchError struct {
	StoreID string
	URL     string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.StoreID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// fetchStore resolves one (store, url) pair to a final StoreResult. It
// never returns an error: configuration problems resolve to UNKNOWN, and
// transient fetch failures resolve to ERROR after the bounded retry.
func (e *Engine) fetchStore(ctx context.Context, storeID, url string, rule catalog.StoreRule, home bool) models.StoreResult {
	if len(url) < minURLLength {
		return models.StoreResult{
			StoreID:      storeID,
			Availability: models.AvailabilityUnknown,
			SourceURL:    url,
			ErrorDetail:  "no url configured",
		}
	}

	result, err := e.withRetry(ctx, storeID, func(ctx context.Context) (models.StoreResult, error) {
		return e.attemptFetch(ctx, storeID, url, rule, home)
	})
	if err != nil {
		e.logger.Warn("store fetch failed", "store", storeID, "url", url, "error", err)
		return models.StoreResult{
			StoreID:      storeID,
			Availability: models.AvailabilityError,
			SourceURL:    url,
			ErrorDetail:  err.Error(),
		}
	}

	return result
}

// attemptFetch is one fetch attempt: open an isolated session, wait for
// the price region, parse and classify. The session is released on every
// path. Errors returned here are transient and eligible for retry; a page
// that loads but yields no price is a content condition and resolves to
// UNKNOWN without error.
func (e *Engine) attemptFetch(ctx context.Context, storeID, url string, rule catalog.StoreRule, home bool) (models.StoreResult, error) {
	session, err := e.fetcher.Open(ctx, url)
	if err != nil {
		return models.StoreResult{}, &FetchError{StoreID: storeID, URL: url, Err: err}
	}
	defer session.Close()

	priceText, err := session.WaitForSelector(ctx, rule.Selector, rule.WaitTimeout())
	if err != nil {
		return models.StoreResult{}, &FetchError{StoreID: storeID, URL: url, Err: err}
	}

	pageText, err := session.FullPageText(ctx)
	if err != nil {
		return models.StoreResult{}, &FetchError{StoreID: storeID, URL: url, Err: err}
	}

	result := models.StoreResult{
		StoreID:      storeID,
		SourceURL:    url,
		Availability: ClassifyStock(pageText, home),
	}

	price, ok := PickPrice(ParsePrices(priceText), rule.Policy())
	if !ok {
		result.Price = 0
		result.Availability = models.AvailabilityUnknown
		result.ErrorDetail = "no price found in price region"
		return result, nil
	}
	result.Price = price

	return result, nil
}

// withRetry runs fn and retries it after a fixed backoff, at most
// e.retryCount times, only while it keeps failing transiently. Content
// conditions are not errors and are never retried.
func (e *Engine) withRetry(ctx context.Context, storeID string, fn func(context.Context) (models.StoreResult, error)) (models.StoreResult, error) {
	var lastErr error

	for attempt := 0; attempt <= e.retryCount; attempt++ {
		if attempt > 0 {
			e.logger.Info("retrying store fetch", "store", storeID, "attempt", attempt+1)
			select {
			case <-ctx.Done():
				return models.StoreResult{}, ctx.Err()
			case <-time.After(e.retryBackoff):
			}
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return models.StoreResult{}, lastErr
		}
	}

	return models.StoreResult{}, lastErr
}
