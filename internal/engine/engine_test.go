package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EdreyFreitas/monitor-dental/internal/browser"
	"github.com/EdreyFreitas/monitor-dental/internal/catalog"
	"github.com/EdreyFreitas/monitor-dental/internal/models"
)

func buyPage(priceText string) fakePage {
	return fakePage{priceText: priceText, pageText: "<button>Comprar</button>"}
}

func TestRunProductFailureIsolation(t *testing.T) {
	f := newFakeFetcher(map[string]fakePage{
		"https://home.example/p1":   buyPage("R$ 100,00"),
		"https://cremer.example/p1": buyPage("R$ 120,00"),
		"https://speed.example/p1":  {waitErr: browser.ErrSelectorTimeout},
		"https://surya.example/p1":  buyPage("R$ 130,00"),
	})
	cat := testCatalog(catalog.Product{
		ID:          "p1",
		DisplayName: "Produto 1",
		StoreURLs: map[string]string{
			"vidafarma": "https://home.example/p1",
			"cremer":    "https://cremer.example/p1",
			"speed":     "https://speed.example/p1",
			"surya":     "https://surya.example/p1",
		},
	})
	e := newTestEngine(f, cat)

	rec := e.runProduct(context.Background(), cat.Products[0])

	require.Len(t, rec.Results, 4, "every store slot must be populated")
	assert.Equal(t, models.AvailabilityError, rec.Results["speed"].Availability)
	assert.Equal(t, models.AvailabilityAvailable, rec.Results["cremer"].Availability)
	assert.Equal(t, models.PositionWinning, rec.Position,
		"position must be computed from the valid competitor prices only")
	assert.True(t, f.allSessionsClosed())
}

func TestRunProductMissingRuleKeepsSourceURL(t *testing.T) {
	f := newFakeFetcher(map[string]fakePage{
		"https://home.example/p1": buyPage("R$ 100,00"),
	})
	// Built directly, bypassing Validate: the fallback exists for
	// exactly this gap.
	cat := testCatalog(catalog.Product{
		ID:          "p1",
		DisplayName: "Produto 1",
		StoreURLs: map[string]string{
			"vidafarma": "https://home.example/p1",
			"ghost":     "https://ghost.example/p1",
		},
	})
	e := newTestEngine(f, cat)

	rec := e.runProduct(context.Background(), cat.Products[0])

	require.Len(t, rec.Results, 2)
	ghost := rec.Results["ghost"]
	assert.Equal(t, models.AvailabilityUnknown, ghost.Availability)
	assert.Equal(t, "https://ghost.example/p1", ghost.SourceURL)
	assert.Equal(t, "no extraction rule for store", ghost.ErrorDetail)
	assert.Zero(t, f.openCount("https://ghost.example/p1"),
		"a store without a rule must not be fetched")
}

func TestRunProductBoundedParallelism(t *testing.T) {
	f := newFakeFetcher(map[string]fakePage{
		"https://home.example/p1":   buyPage("R$ 100,00"),
		"https://cremer.example/p1": buyPage("R$ 120,00"),
		"https://speed.example/p1":  buyPage("R$ 110,00"),
		"https://surya.example/p1":  buyPage("R$ 130,00"),
	})
	// Hold every session open until released so overlap is observable.
	f.gate = make(chan struct{})

	cat := testCatalog(catalog.Product{
		ID:          "p1",
		DisplayName: "Produto 1",
		StoreURLs: map[string]string{
			"vidafarma": "https://home.example/p1",
			"cremer":    "https://cremer.example/p1",
			"speed":     "https://speed.example/p1",
			"surya":     "https://surya.example/p1",
		},
	})
	e := newTestEngine(f, cat) // MaxParallel: 2

	done := make(chan models.ProductRecord, 1)
	go func() {
		done <- e.runProduct(context.Background(), cat.Products[0])
	}()

	// Four stores are dispatched; the semaphore must admit exactly two.
	require.Eventually(t, func() bool { return f.currentOpen() == 2 },
		time.Second, time.Millisecond)

	// Give the remaining tasks every chance to break the cap.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, f.peakOpen(), "open sessions must never exceed MaxParallel")

	close(f.gate)
	rec := <-done

	require.Len(t, rec.Results, 4)
	assert.Equal(t, 2, f.peakOpen())
	assert.True(t, f.allSessionsClosed())
}

func TestRunEndToEnd(t *testing.T) {
	f := newFakeFetcher(map[string]fakePage{
		// Product 1: home wins, speed times out twice.
		"https://home.example/p1":   buyPage("R$ 100,00 ou 2x de R$ 50,00"),
		"https://cremer.example/p1": buyPage("R$ 120,00"),
		"https://speed.example/p1":  {waitErr: browser.ErrSelectorTimeout},
		"https://surya.example/p1":  buyPage("R$ 150,00"),

		// Product 2: home out of stock, cremer times out twice.
		"https://home.example/p2": {
			priceText: "R$ 50,00",
			pageText:  "<span>Produto esgotado</span>",
		},
		"https://cremer.example/p2": {waitErr: browser.ErrSelectorTimeout},
		"https://speed.example/p2":  buyPage("R$ 40,00"),
		"https://surya.example/p2":  buyPage("R$ 45,00"),
	})

	urls := func(p string) map[string]string {
		return map[string]string{
			"vidafarma": "https://home.example/" + p,
			"cremer":    "https://cremer.example/" + p,
			"speed":     "https://speed.example/" + p,
			"surya":     "https://surya.example/" + p,
		}
	}
	cat := testCatalog(
		catalog.Product{ID: "p1", DisplayName: "Produto 1", StoreURLs: urls("p1")},
		catalog.Product{ID: "p2", DisplayName: "Produto 2", StoreURLs: urls("p2")},
	)
	e := newTestEngine(f, cat)

	snap, err := e.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.NotEmpty(t, snap.ID)
	assert.False(t, snap.TakenAt.IsZero())
	require.Len(t, snap.Records, 2)

	for _, rec := range snap.Records {
		assert.Len(t, rec.Results, 4)
	}

	p1 := snap.Records[0]
	assert.Equal(t, models.AvailabilityError, p1.Results["speed"].Availability)
	// Home full price 100 (MAX policy skips the installment figure),
	// cheapest valid competitor 120.
	assert.Equal(t, 100.0, p1.Results["vidafarma"].Price)
	assert.Equal(t, models.PositionWinning, p1.Position)

	p2 := snap.Records[1]
	assert.Equal(t, models.AvailabilityError, p2.Results["cremer"].Availability)
	assert.Equal(t, models.PositionOutOfStockSelf, p2.Position,
		"a home stockout overrides the price comparison")

	// The timed-out stores were attempted exactly twice each.
	assert.Equal(t, 2, f.openCount("https://speed.example/p1"))
	assert.Equal(t, 2, f.openCount("https://cremer.example/p2"))

	summary := snap.Summarize()
	assert.Equal(t, models.Summary{Winning: 1, Stockouts: 1}, summary)
}

func TestRunCanceledContext(t *testing.T) {
	cat := testCatalog(catalog.Product{
		ID:        "p1",
		StoreURLs: map[string]string{"vidafarma": "https://home.example/p1"},
	})
	e := newTestEngine(newFakeFetcher(nil), cat)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Run(ctx)
	assert.Error(t, err)
}
