package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/EdreyFreitas/monitor-dental/internal/models"
)

// FileStore keeps a bounded list of snapshots in a single JSON file,
// newest first. Writes go through a temp file and rename so a crash never
// leaves a half-written history behind.
type FileStore struct {
	mu         sync.RWMutex
	filename   string
	maxEntries int
	snapshots  []*models.Snapshot
}

func NewFileStore(filename string, maxEntries int) (*FileStore, error) {
	if maxEntries < 1 {
		maxEntries = 1
	}

	fs := &FileStore{
		filename:   filename,
		maxEntries: maxEntries,
	}

	if err := fs.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	return fs, nil
}

func (fs *FileStore) Save(ctx context.Context, snap *models.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.snapshots = append([]*models.Snapshot{snap}, fs.snapshots...)
	if len(fs.snapshots) > fs.maxEntries {
		fs.snapshots = fs.snapshots[:fs.maxEntries]
	}

	return fs.save()
}

func (fs *FileStore) Latest(ctx context.Context) (*models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if len(fs.snapshots) == 0 {
		return nil, ErrNoSnapshots
	}
	return fs.snapshots[0], nil
}

func (fs *FileStore) Recent(ctx context.Context, limit int) ([]*models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if limit <= 0 || limit > len(fs.snapshots) {
		limit = len(fs.snapshots)
	}

	out := make([]*models.Snapshot, limit)
	copy(out, fs.snapshots[:limit])
	return out, nil
}

func (fs *FileStore) Close() error {
	return nil
}

func (fs *FileStore) save() error {
	data, err := json.MarshalIndent(fs.snapshots, "", "  ")
	if err != nil {
		return err
	}

	tmpFile := fs.filename + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return err
	}

	return os.Rename(tmpFile, fs.filename)
}

func (fs *FileStore) load() error {
	data, err := os.ReadFile(fs.filename)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, &fs.snapshots)
}
