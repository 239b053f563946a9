package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EdreyFreitas/monitor-dental/internal/catalog"
	"github.com/EdreyFreitas/monitor-dental/internal/history"
	"github.com/EdreyFreitas/monitor-dental/internal/models"
)

type fakeSyncer struct {
	snap *models.Snapshot
	err  error
}

func (f *fakeSyncer) Run(ctx context.Context) (*models.Snapshot, error) {
	return f.snap, f.err
}

type recordingNotifier struct {
	published int
}

func (n *recordingNotifier) PublishSyncCompleted(ctx context.Context, snap *models.Snapshot) error {
	n.published++
	return nil
}

func testSnapshot() *models.Snapshot {
	return &models.Snapshot{
		ID:      "run-1",
		TakenAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Records: []models.ProductRecord{
			{
				ProductID:   "p1",
				DisplayName: "Produto 1",
				Position:    models.PositionWinning,
				Results: map[string]models.StoreResult{
					"vidafarma": {StoreID: "vidafarma", Price: 100, Availability: models.AvailabilityAvailable},
					"cremer":    {StoreID: "cremer", Price: 120, Availability: models.AvailabilityAvailable},
				},
			},
		},
	}
}

func newTestRouter(t *testing.T, syncer Syncer, notifier Notifier) (chi.Router, history.Store) {
	t.Helper()

	store, err := history.NewFileStore(filepath.Join(t.TempDir(), "history.json"), 10)
	require.NoError(t, err)

	cat := &catalog.Catalog{
		HomeStore: "vidafarma",
		Stores: map[string]catalog.StoreRule{
			"vidafarma": {Selector: ".price"},
			"cremer":    {Selector: ".price"},
		},
		Products: []catalog.Product{{ID: "p1", StoreURLs: map[string]string{"vidafarma": "https://home.example/p1"}}},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandlers(syncer, store, notifier, cat, logger)

	r := chi.NewRouter()
	h.Routes(r)
	return r, store
}

func TestSyncPersistsAndReturnsSnapshot(t *testing.T) {
	notifier := &recordingNotifier{}
	router, store := newTestRouter(t, &fakeSyncer{snap: testSnapshot()}, notifier)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp SnapshotResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "run-1", resp.Snapshot.ID)
	assert.Equal(t, 1, resp.Summary.Winning)
	assert.Equal(t, 1, notifier.published)

	saved, err := store.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-1", saved.ID)
}

func TestSyncFailure(t *testing.T) {
	router, _ := newTestRouter(t, &fakeSyncer{err: errors.New("context canceled")}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLatestEmpty(t *testing.T) {
	router, _ := newTestRouter(t, &fakeSyncer{snap: testSnapshot()}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/snapshot", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLatestAfterSync(t *testing.T) {
	router, store := newTestRouter(t, &fakeSyncer{snap: testSnapshot()}, nil)
	require.NoError(t, store.Save(context.Background(), testSnapshot()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/snapshot", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp SnapshotResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "run-1", resp.Snapshot.ID)
}

func TestListWithLimit(t *testing.T) {
	router, store := newTestRouter(t, &fakeSyncer{snap: testSnapshot()}, nil)

	for _, id := range []string{"run-1", "run-2", "run-3"} {
		snap := testSnapshot()
		snap.ID = id
		require.NoError(t, store.Save(context.Background(), snap))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/snapshots?limit=2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Snapshots []*models.Snapshot `json:"snapshots"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Snapshots, 2)
	assert.Equal(t, "run-3", resp.Snapshots[0].ID)
}

func TestCatalogEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &fakeSyncer{snap: testSnapshot()}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var cat catalog.Catalog
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&cat))
	assert.Equal(t, "vidafarma", cat.HomeStore)
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t, &fakeSyncer{snap: testSnapshot()}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
