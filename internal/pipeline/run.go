// Package pipeline coordinates a candidate extraction run: it resolves the
// inputs, chunks the normalized script, calls the provider per chunk, merges
// the results and persists them with an audit snapshot.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/script-agent/internal/chunking"
	"github.com/jonathan/script-agent/internal/db"
	"github.com/jonathan/script-agent/internal/extraction"
	"github.com/jonathan/script-agent/internal/merge"
	"github.com/jonathan/script-agent/internal/prompts"
	"github.com/jonathan/script-agent/internal/schemas"
	"github.com/jonathan/script-agent/internal/types"
)

// Store is the persistence the coordinator needs. *db.DB implements it.
type Store interface {
	GetScript(ctx context.Context, id uuid.UUID) (*db.Script, error)
	GetNormalizedScript(ctx context.Context, id uuid.UUID) (*db.NormalizedScript, error)
	LatestNormalizedScript(ctx context.Context, scriptID uuid.UUID) (*db.NormalizedScript, error)
	CreateRun(ctx context.Context, input *db.RunInput) (*db.Run, error)
	FailRun(ctx context.Context, id uuid.UUID, message string) error
	FinalizeRun(ctx context.Context, input *db.FinalizeInput) error
}

// ProviderFactory builds a provider by name. Unknown names and missing
// configuration must be reported before any run exists.
type ProviderFactory func(ctx context.Context, name string) (extraction.Provider, error)

// ProgressEvent represents a progress update during a run
type ProgressEvent struct {
	RunID      uuid.UUID `json:"run_id"`
	Chunk      int       `json:"chunk"`
	ChunkCount int       `json:"chunk_count"`
	ChunkSize  int       `json:"chunk_size"`
	Candidates int       `json:"candidates"`
}

// ProgressCallback is called after each chunk has been processed
type ProgressCallback func(event ProgressEvent)

// Request identifies the script to extract from and the provider to use.
type Request struct {
	ProjectID          uuid.UUID
	ScriptID           uuid.UUID
	Provider           string
	NormalizedScriptID *uuid.UUID

	// OnProgress, when set, receives this run's events in addition to the
	// coordinator-wide callback.
	OnProgress ProgressCallback
}

// Coordinator runs extraction requests. It holds no per-run state and is safe
// for concurrent use.
type Coordinator struct {
	store       Store
	prompts     *prompts.Loader
	newProvider ProviderFactory
	promptName  string
	logger      *zap.Logger
	onProgress  ProgressCallback
	newID       func() uuid.UUID
	now         func() time.Time
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithPromptName overrides the prompt template used for extraction
func WithPromptName(name string) Option {
	return func(c *Coordinator) { c.promptName = name }
}

// WithProgress registers a per-chunk progress callback
func WithProgress(cb ProgressCallback) Option {
	return func(c *Coordinator) { c.onProgress = cb }
}

// NewCoordinator creates a coordinator
func NewCoordinator(store Store, loader *prompts.Loader, factory ProviderFactory, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:       store,
		prompts:     loader,
		newProvider: factory,
		promptName:  prompts.DefaultName,
		logger:      zap.NewNop(),
		newID:       uuid.New,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes one extraction run. Input problems are returned as
// *ValidationError before any run is created. Failures after the run exists
// are returned as *RunError; the run is left running for the caller to fail.
func (c *Coordinator) Run(ctx context.Context, req Request) (*types.RunSummary, error) {
	return c.run(ctx, req, nil)
}

// run does the work of Run; created receives the run ID as soon as it exists.
func (c *Coordinator) run(ctx context.Context, req Request, created *uuid.UUID) (*types.RunSummary, error) {
	start := c.now()

	prompt, err := c.prompts.Load(c.promptName)
	if err != nil {
		if errors.Is(err, prompts.ErrNotFound) {
			return nil, invalid(err, "Prompt not found: %s", c.promptName)
		}
		return nil, fmt.Errorf("failed to load prompt: %w", err)
	}

	provider, err := c.newProvider(ctx, req.Provider)
	if err != nil {
		var cfgErr *extraction.ConfigError
		switch {
		case errors.Is(err, extraction.ErrUnsupportedProvider):
			return nil, invalid(err, "Unsupported provider")
		case errors.As(err, &cfgErr):
			return nil, invalid(err, "%s", cfgErr.Message)
		}
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}
	defer func() {
		if err := extraction.Close(provider); err != nil {
			c.logger.Warn("failed to close provider", zap.Error(err))
		}
	}()

	script, normalized, err := c.resolveInputs(ctx, req)
	if err != nil {
		return nil, err
	}

	run, err := c.store.CreateRun(ctx, &db.RunInput{
		ProjectID: req.ProjectID,
		ScriptID:  script.ID,
		ModelConfig: types.ModelConfig{
			Provider:           provider.Name(),
			PromptSHA256:       prompt.SHA256,
			PromptName:         prompt.Name,
			NormalizedScriptID: &normalized.ID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	if created != nil {
		*created = run.ID
	}

	logger := c.logger.With(
		zap.String("run_id", run.ID.String()),
		zap.String("provider", provider.Name()),
		zap.String("script_id", script.ID.String()),
	)
	logger.Info("extraction run started", zap.String("normalized_script_id", normalized.ID.String()))

	summary, err := c.extract(ctx, logger, run.ID, provider, prompt, script, normalized, c.progress(req.OnProgress))
	if err != nil {
		return nil, &RunError{RunID: run.ID, Err: err}
	}
	summary.Duration = c.now().Sub(start)

	logger.Info("extraction run completed",
		zap.Int("chunks", summary.ChunkCount),
		zap.Int("candidates", summary.CandidateCount),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}

// progress combines the coordinator callback with a per-request one.
func (c *Coordinator) progress(perRequest ProgressCallback) ProgressCallback {
	switch {
	case c.onProgress == nil:
		return perRequest
	case perRequest == nil:
		return c.onProgress
	}
	return func(event ProgressEvent) {
		c.onProgress(event)
		perRequest(event)
	}
}

func (c *Coordinator) resolveInputs(ctx context.Context, req Request) (*db.Script, *db.NormalizedScript, error) {
	script, err := c.store.GetScript(ctx, req.ScriptID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load script: %w", err)
	}
	if script == nil {
		return nil, nil, invalid(nil, "Script not found")
	}
	if script.ProjectID != req.ProjectID {
		return nil, nil, invalid(nil, "Script does not belong to project")
	}

	var normalized *db.NormalizedScript
	if req.NormalizedScriptID != nil {
		normalized, err = c.store.GetNormalizedScript(ctx, *req.NormalizedScriptID)
		if err == nil && normalized != nil && normalized.ScriptID != script.ID {
			normalized = nil
		}
	} else {
		normalized, err = c.store.LatestNormalizedScript(ctx, script.ID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load normalized script: %w", err)
	}
	if normalized == nil {
		return nil, nil, invalid(nil, "Normalized script not found; run Step1 first")
	}
	return script, normalized, nil
}

// extract runs the provider over every chunk and persists the result. Nothing
// is written unless every chunk succeeds.
func (c *Coordinator) extract(
	ctx context.Context,
	logger *zap.Logger,
	runID uuid.UUID,
	provider extraction.Provider,
	prompt *prompts.Prompt,
	script *db.Script,
	normalized *db.NormalizedScript,
	onProgress ProgressCallback,
) (*types.RunSummary, error) {
	rows, err := types.ParseNormalizedContent(normalized.ContentJSON)
	if err != nil {
		return nil, err
	}
	chunks := chunking.ByScene(rows)

	set := merge.NewSet()
	rawOutputs := make([]types.RawOutput, 0, len(chunks))

	for i, chunk := range chunks {
		chunkJSON, err := json.Marshal(chunk)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize chunk %d: %w", i, err)
		}

		raw, err := provider.ExtractCandidates(ctx, prompt.Content, string(chunkJSON))
		if err != nil {
			return nil, fmt.Errorf("provider failed on chunk %d: %w", i, err)
		}
		rawOutputs = append(rawOutputs, types.RawOutput{ChunkSize: len(chunk), RawOutput: raw})

		if err := set.AddRaw(raw); err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}

		logger.Debug("chunk processed", zap.Int("chunk", i), zap.Int("rows", len(chunk)), zap.Int("candidates", set.Len()))
		if onProgress != nil {
			onProgress(ProgressEvent{RunID: runID, Chunk: i + 1, ChunkCount: len(chunks), ChunkSize: len(chunk), Candidates: set.Len()})
		}
	}

	entries := set.Entries()
	candidates := make([]db.CandidateInput, len(entries))
	snapshotCandidates := make([]types.SnapshotCandidate, len(entries))
	for i, entry := range entries {
		id := c.newID()
		candidates[i] = db.CandidateInput{
			ID:         id,
			RawName:    entry.RawName,
			EntityType: entry.EntityType,
			Confidence: entry.Confidence,
		}
		snapshotCandidates[i] = types.SnapshotCandidate{UID: id, RawName: entry.RawName, EntityType: entry.EntityType}
	}

	snapshot, err := json.Marshal(types.RunSnapshot{
		Step:                types.ExtractionStep,
		Provider:            provider.Name(),
		PromptSHA256:        prompt.SHA256,
		ScriptUID:           script.ID,
		NormalizedScriptUID: normalized.ID,
		ChunkCount:          len(chunks),
		Candidates:          snapshotCandidates,
		RawOutputs:          rawOutputs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := schemas.ValidateSnapshot(snapshot); err != nil {
		return nil, fmt.Errorf("snapshot failed schema validation: %w", err)
	}

	if err := c.store.FinalizeRun(ctx, &db.FinalizeInput{
		RunID:      runID,
		Candidates: candidates,
		Snapshot:   snapshot,
	}); err != nil {
		return nil, fmt.Errorf("failed to finalize run: %w", err)
	}

	return &types.RunSummary{
		RunID:          runID,
		Provider:       provider.Name(),
		ChunkCount:     len(chunks),
		CandidateCount: len(entries),
	}, nil
}
