package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/script-agent/internal/types"
)

// Project groups the scripts of one production
type Project struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Script is a screenplay belonging to a project
type Script struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	Name      string    `json:"name"`
	Content   *string   `json:"content,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NormalizedScript is one normalized version of a script. ContentJSON holds
// the stored JSON text unchanged.
type NormalizedScript struct {
	ID           uuid.UUID       `json:"id"`
	ScriptID     uuid.UUID       `json:"script_id"`
	VersionLabel *string         `json:"version_label,omitempty"`
	ContentJSON  json.RawMessage `json:"content_json"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Run is an extraction run record
type Run struct {
	ID           uuid.UUID         `json:"id"`
	ProjectID    uuid.UUID         `json:"project_id"`
	ScriptID     uuid.UUID         `json:"script_id"`
	Step         int               `json:"step"`
	Status       types.RunStatus   `json:"status"`
	ErrorMessage *string           `json:"error_message,omitempty"`
	ModelConfig  types.ModelConfig `json:"model_config"`
	CreatedAt    time.Time         `json:"created_at"`
	FinishedAt   *time.Time        `json:"finished_at,omitempty"`
}

// RunInput creates a run in the running state
type RunInput struct {
	ProjectID   uuid.UUID
	ScriptID    uuid.UUID
	ModelConfig types.ModelConfig
}

// RunFilters holds optional filters for listing runs
type RunFilters struct {
	ProjectID *uuid.UUID
	Status    *types.RunStatus
	Limit     int
}

// CandidateInput is a candidate to insert when a run is finalized. The ID is
// assigned by the caller so it can be referenced from the snapshot.
type CandidateInput struct {
	ID         uuid.UUID
	RawName    string
	EntityType types.EntityType
	Confidence *float64
}

// FinalizeInput is everything written when a run completes
type FinalizeInput struct {
	RunID      uuid.UUID
	Candidates []CandidateInput
	Snapshot   json.RawMessage
}

// Snapshot is the stored audit payload of a completed run
type Snapshot struct {
	ID        uuid.UUID       `json:"id"`
	RunID     uuid.UUID       `json:"run_id"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// CandidateUpdate curates a candidate. Nil fields are left unchanged.
type CandidateUpdate struct {
	CanonicalAssetID *uuid.UUID
	EntityType       *types.EntityType
}
