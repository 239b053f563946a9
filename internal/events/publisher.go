// Package events notifies interested processes that a sync finished, so
// dashboards can refresh without polling the history store.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/EdreyFreitas/monitor-dental/internal/models"
)

// SyncCompletedPayload is the message published after every completed run.
type SyncCompletedPayload struct {
	EventType string         `json:"event_type"`
	RunID     string         `json:"run_id"`
	TakenAt   time.Time      `json:"taken_at"`
	Products  int            `json:"products"`
	Summary   models.Summary `json:"summary"`
}

const eventTypeSyncCompleted = "SYNC_COMPLETED"

type Publisher struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

func NewPublisher(ctx context.Context, addr, password string, db int, channel string, logger *slog.Logger) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Publisher{
		client:  client,
		channel: channel,
		logger:  logger.With("component", "events"),
	}, nil
}

// PublishSyncCompleted announces a finished run. Delivery is best effort;
// the snapshot is already persisted by the time this is called.
func (p *Publisher) PublishSyncCompleted(ctx context.Context, snap *models.Snapshot) error {
	payload := SyncCompletedPayload{
		EventType: eventTypeSyncCompleted,
		RunID:     snap.ID,
		TakenAt:   snap.TakenAt,
		Products:  len(snap.Records),
		Summary:   snap.Summarize(),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("sync event published", "run", snap.ID, "channel", p.channel)
	return nil
}

func (p *Publisher) Close() error {
	return p.client.Close()
}
