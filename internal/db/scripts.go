package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateProject creates a project and returns it
func (db *DB) CreateProject(ctx context.Context, name, description string) (*Project, error) {
	var p Project
	err := db.pool.QueryRow(ctx,
		`INSERT INTO projects (name, description)
		 VALUES ($1, $2)
		 RETURNING id, name, description, created_at`,
		name, nullIfEmpty(description),
	).Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return &p, nil
}

// GetProject retrieves a project by ID, or nil if it does not exist
func (db *DB) GetProject(ctx context.Context, id uuid.UUID) (*Project, error) {
	var p Project
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, description, created_at FROM projects WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &p, nil
}

// CreateScript creates a script under a project
func (db *DB) CreateScript(ctx context.Context, projectID uuid.UUID, name, content string) (*Script, error) {
	var s Script
	err := db.pool.QueryRow(ctx,
		`INSERT INTO scripts (project_id, name, content)
		 VALUES ($1, $2, $3)
		 RETURNING id, project_id, name, content, created_at`,
		projectID, name, nullIfEmpty(content),
	).Scan(&s.ID, &s.ProjectID, &s.Name, &s.Content, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create script: %w", err)
	}
	return &s, nil
}

// GetScript retrieves a script by ID, or nil if it does not exist
func (db *DB) GetScript(ctx context.Context, id uuid.UUID) (*Script, error) {
	var s Script
	err := db.pool.QueryRow(ctx,
		`SELECT id, project_id, name, content, created_at FROM scripts WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.ProjectID, &s.Name, &s.Content, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get script: %w", err)
	}
	return &s, nil
}

// CreateNormalizedScript stores a normalized version of a script. The content
// is stored as given.
func (db *DB) CreateNormalizedScript(ctx context.Context, scriptID uuid.UUID, versionLabel string, contentJSON []byte) (*NormalizedScript, error) {
	var ns NormalizedScript
	var content string
	err := db.pool.QueryRow(ctx,
		`INSERT INTO normalized_scripts (script_id, version_label, content_json)
		 VALUES ($1, $2, $3::json)
		 RETURNING id, script_id, version_label, content_json::text, created_at`,
		scriptID, nullIfEmpty(versionLabel), string(contentJSON),
	).Scan(&ns.ID, &ns.ScriptID, &ns.VersionLabel, &content, &ns.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create normalized script: %w", err)
	}
	ns.ContentJSON = []byte(content)
	return &ns, nil
}

// GetNormalizedScript retrieves a normalized script by ID, or nil if it does not exist
func (db *DB) GetNormalizedScript(ctx context.Context, id uuid.UUID) (*NormalizedScript, error) {
	return db.queryNormalizedScript(ctx,
		`SELECT id, script_id, version_label, content_json::text, created_at
		 FROM normalized_scripts WHERE id = $1`,
		id,
	)
}

// LatestNormalizedScript retrieves the most recently created normalized
// version of a script, or nil if it has none
func (db *DB) LatestNormalizedScript(ctx context.Context, scriptID uuid.UUID) (*NormalizedScript, error) {
	return db.queryNormalizedScript(ctx,
		`SELECT id, script_id, version_label, content_json::text, created_at
		 FROM normalized_scripts WHERE script_id = $1
		 ORDER BY created_at DESC LIMIT 1`,
		scriptID,
	)
}

func (db *DB) queryNormalizedScript(ctx context.Context, query string, arg uuid.UUID) (*NormalizedScript, error) {
	var ns NormalizedScript
	var content string
	err := db.pool.QueryRow(ctx, query, arg).
		Scan(&ns.ID, &ns.ScriptID, &ns.VersionLabel, &content, &ns.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get normalized script: %w", err)
	}
	ns.ContentJSON = []byte(content)
	return &ns, nil
}
