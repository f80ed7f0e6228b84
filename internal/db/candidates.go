package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/script-agent/internal/types"
)

const candidateColumns = `id, run_id, raw_name, entity_type, confidence, canonical_asset_id, is_deleted, created_at`

// ListCandidates returns the non-deleted candidates of a run in merge order,
// optionally restricted to one entity type
func (db *DB) ListCandidates(ctx context.Context, runID uuid.UUID, entityType *types.EntityType) ([]types.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidate_entities
	          WHERE run_id = $1 AND is_deleted = FALSE`
	args := []any{runID}
	if entityType != nil {
		query += ` AND entity_type = $2`
		args = append(args, string(*entityType))
	}
	query += ` ORDER BY position`

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	candidates := []types.Candidate{}
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	return candidates, nil
}

// GetCandidate retrieves a candidate by ID, or nil if it does not exist
func (db *DB) GetCandidate(ctx context.Context, id uuid.UUID) (*types.Candidate, error) {
	c, err := scanCandidate(db.pool.QueryRow(ctx,
		`SELECT `+candidateColumns+` FROM candidate_entities WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}
	return c, nil
}

// UpdateCandidate applies a curation update and returns the updated candidate.
// Deleted candidates cannot be updated. Changing the type to one the run
// already holds for the same name yields ErrConflict.
func (db *DB) UpdateCandidate(ctx context.Context, id uuid.UUID, update CandidateUpdate) (*types.Candidate, error) {
	var entityType *string
	if update.EntityType != nil {
		s := string(*update.EntityType)
		entityType = &s
	}

	c, err := scanCandidate(db.pool.QueryRow(ctx,
		`UPDATE candidate_entities
		 SET canonical_asset_id = COALESCE($2, canonical_asset_id),
		     entity_type = COALESCE($3, entity_type)
		 WHERE id = $1 AND is_deleted = FALSE
		 RETURNING `+candidateColumns,
		id, update.CanonicalAssetID, entityType,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("candidate %s: %w", id, ErrNotFound)
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("candidate %s: %w", id, ErrConflict)
		}
		return nil, fmt.Errorf("failed to update candidate: %w", err)
	}
	return c, nil
}

// DeleteCandidate soft-deletes a candidate
func (db *DB) DeleteCandidate(ctx context.Context, id uuid.UUID) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE candidate_entities SET is_deleted = TRUE WHERE id = $1 AND is_deleted = FALSE`, id)
	if err != nil {
		return fmt.Errorf("failed to delete candidate: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("candidate %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanCandidate(row pgx.Row) (*types.Candidate, error) {
	var c types.Candidate
	var entityType string
	err := row.Scan(&c.ID, &c.RunID, &c.RawName, &entityType, &c.Confidence,
		&c.CanonicalAssetID, &c.IsDeleted, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.EntityType = types.EntityType(entityType)
	return &c, nil
}
