// Package history persists completed snapshots. The engine itself never
// touches storage; callers hand it each snapshot the engine returns.
package history

import (
	"context"
	"errors"

	"github.com/EdreyFreitas/monitor-dental/internal/models"
)

var ErrNoSnapshots = errors.New("no snapshots recorded yet")

type Store interface {
	Save(ctx context.Context, snap *models.Snapshot) error
	Latest(ctx context.Context) (*models.Snapshot, error)
	Recent(ctx context.Context, limit int) ([]*models.Snapshot, error)
	Close() error
}
