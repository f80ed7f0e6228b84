package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/script-agent/internal/db"
	"github.com/jonathan/script-agent/internal/types"
)

// memStore is an in-memory Store with the same transition rules as the
// PostgreSQL implementation.
type memStore struct {
	mu          sync.Mutex
	scripts     map[uuid.UUID]*db.Script
	normalized  map[uuid.UUID]*db.NormalizedScript
	runs        map[uuid.UUID]*db.Run
	candidates  map[uuid.UUID][]db.CandidateInput
	snapshots   map[uuid.UUID]json.RawMessage
	finalizeErr error
	failCtxErrs []error
}

func newMemStore() *memStore {
	return &memStore{
		scripts:    make(map[uuid.UUID]*db.Script),
		normalized: make(map[uuid.UUID]*db.NormalizedScript),
		runs:       make(map[uuid.UUID]*db.Run),
		candidates: make(map[uuid.UUID][]db.CandidateInput),
		snapshots:  make(map[uuid.UUID]json.RawMessage),
	}
}

// seed adds a script with one normalized version and returns their IDs.
func (s *memStore) seed(projectID uuid.UUID, content string) (uuid.UUID, uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	script := &db.Script{ID: uuid.New(), ProjectID: projectID, Name: "script"}
	s.scripts[script.ID] = script
	ns := &db.NormalizedScript{ID: uuid.New(), ScriptID: script.ID, ContentJSON: json.RawMessage(content), CreatedAt: time.Now()}
	s.normalized[ns.ID] = ns
	return script.ID, ns.ID
}

func (s *memStore) addVersion(scriptID uuid.UUID, content string, createdAt time.Time) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns := &db.NormalizedScript{ID: uuid.New(), ScriptID: scriptID, ContentJSON: json.RawMessage(content), CreatedAt: createdAt}
	s.normalized[ns.ID] = ns
	return ns.ID
}

func (s *memStore) GetScript(_ context.Context, id uuid.UUID) (*db.Script, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scripts[id], nil
}

func (s *memStore) GetNormalizedScript(_ context.Context, id uuid.UUID) (*db.NormalizedScript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.normalized[id], nil
}

func (s *memStore) LatestNormalizedScript(_ context.Context, scriptID uuid.UUID) (*db.NormalizedScript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *db.NormalizedScript
	for _, ns := range s.normalized {
		if ns.ScriptID == scriptID && (latest == nil || ns.CreatedAt.After(latest.CreatedAt)) {
			latest = ns
		}
	}
	return latest, nil
}

func (s *memStore) CreateRun(_ context.Context, input *db.RunInput) (*db.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run := &db.Run{
		ID:          uuid.New(),
		ProjectID:   input.ProjectID,
		ScriptID:    input.ScriptID,
		Step:        types.ExtractionStep,
		Status:      types.RunRunning,
		ModelConfig: input.ModelConfig,
		CreatedAt:   time.Now(),
	}
	s.runs[run.ID] = run
	return run, nil
}

func (s *memStore) FailRun(ctx context.Context, id uuid.UUID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCtxErrs = append(s.failCtxErrs, ctx.Err())
	run, ok := s.runs[id]
	if !ok || run.Status != types.RunRunning {
		return db.ErrRunNotRunning
	}
	now := time.Now()
	run.Status = types.RunFailed
	run.ErrorMessage = &message
	run.FinishedAt = &now
	return nil
}

func (s *memStore) FinalizeRun(_ context.Context, input *db.FinalizeInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalizeErr != nil {
		return s.finalizeErr
	}
	run, ok := s.runs[input.RunID]
	if !ok || run.Status != types.RunRunning {
		return db.ErrRunNotRunning
	}
	if _, exists := s.snapshots[input.RunID]; exists {
		return errors.New("duplicate snapshot")
	}
	now := time.Now()
	s.candidates[input.RunID] = append([]db.CandidateInput(nil), input.Candidates...)
	s.snapshots[input.RunID] = input.Snapshot
	run.Status = types.RunCompleted
	run.FinishedAt = &now
	return nil
}

func (s *memStore) run(id uuid.UUID) db.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.runs[id]
}

func (s *memStore) runCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}
