package types

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of an extraction run.
type RunStatus string

// Run statuses. A run starts running and moves exactly once to a terminal state.
const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed
}

// ExtractionStep is the pipeline step number recorded on every extraction run.
const ExtractionStep = 2

// ModelConfig is the provider metadata recorded on a run.
type ModelConfig struct {
	Provider           string     `json:"provider"`
	PromptSHA256       string     `json:"prompt_sha256"`
	PromptName         string     `json:"prompt_name,omitempty"`
	NormalizedScriptID *uuid.UUID `json:"normalized_script_id,omitempty"`
}

// RawOutput is one provider response recorded for audit, in chunk order.
type RawOutput struct {
	ChunkSize int    `json:"chunk_size"`
	RawOutput string `json:"raw_output"`
}

// SnapshotCandidate is the audit view of a persisted candidate.
type SnapshotCandidate struct {
	UID        uuid.UUID  `json:"uid"`
	RawName    string     `json:"raw_name"`
	EntityType EntityType `json:"entity_type"`
}

// RunSnapshot is the audit payload persisted with every completed run.
type RunSnapshot struct {
	Step                int                 `json:"step"`
	Provider            string              `json:"provider"`
	PromptSHA256        string              `json:"prompt_sha256"`
	ScriptUID           uuid.UUID           `json:"script_uid"`
	NormalizedScriptUID uuid.UUID           `json:"normalized_script_uid"`
	ChunkCount          int                 `json:"chunk_count"`
	Candidates          []SnapshotCandidate `json:"candidates"`
	RawOutputs          []RawOutput         `json:"raw_outputs"`
}

// RunSummary is the outcome of a completed extraction run.
type RunSummary struct {
	RunID          uuid.UUID     `json:"run_id"`
	Provider       string        `json:"provider"`
	ChunkCount     int           `json:"chunk_count"`
	CandidateCount int           `json:"candidate_count"`
	Duration       time.Duration `json:"duration"`
}
