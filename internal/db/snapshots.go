package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GetSnapshot retrieves the snapshot of a run, or nil if the run has none
func (db *DB) GetSnapshot(ctx context.Context, runID uuid.UUID) (*Snapshot, error) {
	var s Snapshot
	var payload []byte
	err := db.pool.QueryRow(ctx,
		`SELECT id, run_id, payload, created_at FROM artifact_snapshots WHERE run_id = $1`,
		runID,
	).Scan(&s.ID, &s.RunID, &payload, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	s.Payload = payload
	return &s, nil
}

// CountSnapshots returns how many snapshots a run has; at most one by schema
func (db *DB) CountSnapshots(ctx context.Context, runID uuid.UUID) (int, error) {
	var n int
	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM artifact_snapshots WHERE run_id = $1`, runID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return n, nil
}
