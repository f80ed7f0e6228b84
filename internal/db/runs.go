package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/script-agent/internal/types"
)

const runColumns = `id, project_id, script_id, step, status, error_message, model_config, created_at, finished_at`

// CreateRun inserts a run in the running state and returns it
func (db *DB) CreateRun(ctx context.Context, input *RunInput) (*Run, error) {
	modelConfig, err := json.Marshal(input.ModelConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal model config: %w", err)
	}

	row := db.pool.QueryRow(ctx,
		`INSERT INTO extraction_runs (project_id, script_id, step, status, model_config)
		 VALUES ($1, $2, $3, 'running', $4)
		 RETURNING `+runColumns,
		input.ProjectID, input.ScriptID, types.ExtractionStep, modelConfig,
	)
	run, err := scanRun(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// GetRun retrieves a run by ID, or nil if it does not exist
func (db *DB) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	run, err := scanRun(db.pool.QueryRow(ctx,
		`SELECT `+runColumns+` FROM extraction_runs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves runs newest first, optionally filtered by project and status
func (db *DB) ListRuns(ctx context.Context, filters RunFilters) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM extraction_runs`
	var conditions []string
	var args []any

	if filters.ProjectID != nil {
		args = append(args, *filters.ProjectID)
		conditions = append(conditions, fmt.Sprintf("project_id = $%d", len(args)))
	}
	if filters.Status != nil {
		args = append(args, string(*filters.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// FailRun marks a running run as failed with a message. A run that already
// reached a terminal state is left untouched and ErrRunNotRunning is returned.
func (db *DB) FailRun(ctx context.Context, id uuid.UUID, message string) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE extraction_runs
		 SET status = 'failed', error_message = $2, finished_at = NOW()
		 WHERE id = $1 AND status = 'running'`,
		id, message,
	)
	if err != nil {
		return fmt.Errorf("failed to mark run failed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotRunning, id)
	}
	return nil
}

// FinalizeRun writes the candidates and the snapshot of a run and marks it
// completed, all in one transaction. Nothing is written if any step fails.
func (db *DB) FinalizeRun(ctx context.Context, input *FinalizeInput) error {
	return pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		if len(input.Candidates) > 0 {
			_, err := tx.CopyFrom(ctx,
				pgx.Identifier{"candidate_entities"},
				[]string{"id", "run_id", "position", "raw_name", "entity_type", "confidence"},
				pgx.CopyFromSlice(len(input.Candidates), func(i int) ([]any, error) {
					c := input.Candidates[i]
					return []any{c.ID, input.RunID, int32(i), c.RawName, string(c.EntityType), c.Confidence}, nil
				}),
			)
			if err != nil {
				return fmt.Errorf("failed to insert candidates: %w", err)
			}
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO artifact_snapshots (run_id, payload) VALUES ($1, $2::jsonb)`,
			input.RunID, string(input.Snapshot),
		); err != nil {
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}

		result, err := tx.Exec(ctx,
			`UPDATE extraction_runs SET status = 'completed', finished_at = NOW()
			 WHERE id = $1 AND status = 'running'`,
			input.RunID,
		)
		if err != nil {
			return fmt.Errorf("failed to complete run: %w", err)
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotRunning, input.RunID)
		}
		return nil
	})
}

func scanRun(row pgx.Row) (*Run, error) {
	var run Run
	var status string
	var modelConfig []byte
	err := row.Scan(&run.ID, &run.ProjectID, &run.ScriptID, &run.Step, &status,
		&run.ErrorMessage, &modelConfig, &run.CreatedAt, &run.FinishedAt)
	if err != nil {
		return nil, err
	}
	run.Status = types.RunStatus(status)
	if len(modelConfig) > 0 {
		_ = json.Unmarshal(modelConfig, &run.ModelConfig)
	}
	return &run, nil
}
