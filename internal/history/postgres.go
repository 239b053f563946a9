package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/EdreyFreitas/monitor-dental/internal/models"
)

const snapshotsSchema = `
	CREATE TABLE IF NOT EXISTS snapshots (
		id UUID PRIMARY KEY,
		taken_at TIMESTAMPTZ NOT NULL,
		payload JSONB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS snapshots_taken_at_idx ON snapshots (taken_at DESC);
`

// PostgresStore persists snapshots as jsonb rows.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, snapshotsSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (ps *PostgresStore) Save(ctx context.Context, snap *models.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	_, err = ps.pool.Exec(ctx,
		`INSERT INTO snapshots (id, taken_at, payload) VALUES ($1, $2, $3)`,
		snap.ID, snap.TakenAt, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return nil
}

func (ps *PostgresStore) Latest(ctx context.Context) (*models.Snapshot, error) {
	row := ps.pool.QueryRow(ctx,
		`SELECT payload FROM snapshots ORDER BY taken_at DESC LIMIT 1`)

	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoSnapshots
		}
		return nil, fmt.Errorf("failed to query latest snapshot: %w", err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return &snap, nil
}

func (ps *PostgresStore) Recent(ctx context.Context, limit int) ([]*models.Snapshot, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := ps.pool.Query(ctx,
		`SELECT payload FROM snapshots ORDER BY taken_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*models.Snapshot
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}

		var snap models.Snapshot
		if err := json.Unmarshal(payload, &snap); err != nil {
			return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
		}
		snaps = append(snaps, &snap)
	}

	return snaps, rows.Err()
}

func (ps *PostgresStore) Close() error {
	ps.pool.Close()
	return nil
}
