package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/EdreyFreitas/monitor-dental/internal/catalog"
	"github.com/EdreyFreitas/monitor-dental/internal/history"
	"github.com/EdreyFreitas/monitor-dental/internal/models"
)

// Syncer runs one full catalog sync.
type Syncer interface {
	Run(ctx context.Context) (*models.Snapshot, error)
}

// Notifier announces a completed sync. Optional.
type Notifier interface {
	PublishSyncCompleted(ctx context.Context, snap *models.Snapshot) error
}

type Handlers struct {
	engine   Syncer
	store    history.Store
	notifier Notifier
	catalog  *catalog.Catalog
	logger   *slog.Logger

	// One browser, one sync at a time.
	syncMu sync.Mutex
}

func NewHandlers(engine Syncer, store history.Store, notifier Notifier, cat *catalog.Catalog, logger *slog.Logger) *Handlers {
	return &Handlers{
		engine:   engine,
		store:    store,
		notifier: notifier,
		catalog:  cat,
		logger:   logger.With("component", "api"),
	}
}

// SnapshotResponse wraps a snapshot with its KPI summary.
type SnapshotResponse struct {
	Snapshot *models.Snapshot `json:"snapshot"`
	Summary  models.Summary   `json:"summary"`
}

// Sync runs a full catalog sync, persists the snapshot, and returns it.
func (h *Handlers) Sync(w http.ResponseWriter, r *http.Request) {
	h.syncMu.Lock()
	defer h.syncMu.Unlock()

	snap, err := h.engine.Run(r.Context())
	if err != nil {
		h.logger.Error("sync failed", "error", err)
		h.respondError(w, http.StatusServiceUnavailable, "sync aborted: "+err.Error())
		return
	}

	if err := h.store.Save(r.Context(), snap); err != nil {
		h.logger.Error("failed to persist snapshot", "run", snap.ID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "snapshot not persisted")
		return
	}

	if h.notifier != nil {
		if err := h.notifier.PublishSyncCompleted(r.Context(), snap); err != nil {
			h.logger.Warn("failed to publish sync event", "run", snap.ID, "error", err)
		}
	}

	h.respondJSON(w, http.StatusOK, SnapshotResponse{Snapshot: snap, Summary: snap.Summarize()})
}

// Latest returns the most recent snapshot.
func (h *Handlers) Latest(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Latest(r.Context())
	if err != nil {
		if errors.Is(err, history.ErrNoSnapshots) {
			h.respondError(w, http.StatusNotFound, "no snapshots yet")
			return
		}
		h.logger.Error("failed to load snapshot", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load snapshot")
		return
	}

	h.respondJSON(w, http.StatusOK, SnapshotResponse{Snapshot: snap, Summary: snap.Summarize()})
}

// List returns recent snapshots, newest first. ?limit= caps the count.
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	snaps, err := h.store.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list snapshots", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list snapshots")
		return
	}
	if snaps == nil {
		snaps = []*models.Snapshot{}
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"snapshots": snaps})
}

// Catalog returns the monitored product and store configuration.
func (h *Handlers) Catalog(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.catalog)
}

// Health is the liveness probe.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Routes mounts the API under /api/v1.
func (h *Handlers) Routes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sync", h.Sync)
		r.Get("/snapshot", h.Latest)
		r.Get("/snapshots", h.List)
		r.Get("/catalog", h.Catalog)
	})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
