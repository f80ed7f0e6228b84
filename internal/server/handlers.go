package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/script-agent/internal/db"
	"github.com/jonathan/script-agent/internal/pipeline"
	"github.com/jonathan/script-agent/internal/types"
)

// maxRunsLimit caps the page size of GET /runs
const maxRunsLimit = 500

// RunResponse is the status view of a run
type RunResponse struct {
	RunID        string            `json:"run_id"`
	ProjectID    string            `json:"project_id"`
	ScriptID     string            `json:"script_id"`
	Step         int               `json:"step"`
	Status       types.RunStatus   `json:"status"`
	ErrorMessage *string           `json:"error_message,omitempty"`
	ModelConfig  types.ModelConfig `json:"model_config"`
	CreatedAt    string            `json:"created_at"`
	FinishedAt   *string           `json:"finished_at,omitempty"`
}

func toRunResponse(run *db.Run) RunResponse {
	resp := RunResponse{
		RunID:        run.ID.String(),
		ProjectID:    run.ProjectID.String(),
		ScriptID:     run.ScriptID.String(),
		Step:         run.Step,
		Status:       run.Status,
		ErrorMessage: run.ErrorMessage,
		ModelConfig:  run.ModelConfig,
		CreatedAt:    run.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if run.FinishedAt != nil {
		finished := run.FinishedAt.Format("2006-01-02T15:04:05Z07:00")
		resp.FinishedAt = &finished
	}
	return resp
}

// decodeExtractRequest reads and validates an extraction trigger body
func (s *Server) decodeExtractRequest(w http.ResponseWriter, r *http.Request) (*types.ExtractRequest, bool) {
	var req types.ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return nil, false
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return &req, true
}

func pipelineRequest(req *types.ExtractRequest) pipeline.Request {
	return pipeline.Request{
		ProjectID:          req.ProjectID,
		ScriptID:           req.ScriptID,
		Provider:           req.Provider,
		NormalizedScriptID: req.NormalizedScriptID,
	}
}

// handleExtract runs an extraction synchronously and returns the run ID
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeExtractRequest(w, r)
	if !ok {
		return
	}

	summary, err := s.extractor.Trigger(r.Context(), pipelineRequest(req))
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusCreated, types.ExtractResponse{RunID: summary.RunID})
}

// handleExtractStream runs an extraction and streams per-chunk progress via SSE
func (s *Server) handleExtractStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeExtractRequest(w, r)
	if !ok {
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	preq := pipelineRequest(req)
	preq.OnProgress = func(event pipeline.ProgressEvent) {
		if err := sse.WriteEvent("chunk", event); err != nil {
			s.logger.Warn("failed to write SSE event", zap.Error(err))
		}
	}

	summary, err := s.extractor.Trigger(r.Context(), preq)
	if err != nil {
		sse.WriteError(ErrorMessage(err))
		return
	}
	sse.WriteComplete(summary)
}

// handleGetRun returns the status of a run
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.pathUUID(w, r, "run")
	if !ok {
		return
	}

	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}
	if run == nil {
		s.errorResponse(w, http.StatusNotFound, "Run not found")
		return
	}

	s.jsonResponse(w, http.StatusOK, toRunResponse(run))
}

// handleListRuns returns runs newest first with optional filters
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	filters, err := s.runFilters(r)
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}

	runs, err := s.store.ListRuns(r.Context(), filters)
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}

	response := make([]RunResponse, 0, len(runs))
	for i := range runs {
		response = append(response, toRunResponse(&runs[i]))
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"runs":  response,
		"count": len(response),
	})
}

func (s *Server) runFilters(r *http.Request) (db.RunFilters, error) {
	q := r.URL.Query()
	filters := db.RunFilters{Limit: s.cfg.DefaultRunsLimit}

	if v := q.Get("project_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filters, &ErrValidation{Field: "project_id", Message: "invalid UUID"}
		}
		filters.ProjectID = &id
	}
	if v := q.Get("status"); v != "" {
		status := types.RunStatus(v)
		if status != types.RunRunning && !status.Terminal() {
			return filters, &ErrValidation{Field: "status", Message: "must be running, completed or failed"}
		}
		filters.Status = &status
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > maxRunsLimit {
			return filters, &ErrValidation{Field: "limit", Message: "must be between 1 and " + strconv.Itoa(maxRunsLimit)}
		}
		filters.Limit = limit
	}
	return filters, nil
}

// handleListCandidates returns the non-deleted candidates of a run
func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.pathUUID(w, r, "run")
	if !ok {
		return
	}

	var entityType *types.EntityType
	if v := r.URL.Query().Get("entity_type"); v != "" {
		et := types.EntityType(v)
		if !et.Valid() {
			s.errorFromErr(w, r, &ErrValidation{Field: "entity_type", Message: "must be person, scene, prop or other"})
			return
		}
		entityType = &et
	}

	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}
	if run == nil {
		s.errorResponse(w, http.StatusNotFound, "Run not found")
		return
	}

	candidates, err := s.store.ListCandidates(r.Context(), runID, entityType)
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}
	if candidates == nil {
		candidates = []types.Candidate{}
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"run_id":     runID.String(),
		"candidates": candidates,
		"count":      len(candidates),
	})
}

// handleGetSnapshot returns the audit snapshot payload of a run
func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.pathUUID(w, r, "run")
	if !ok {
		return
	}

	snapshot, err := s.store.GetSnapshot(r.Context(), runID)
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}
	if snapshot == nil {
		s.errorResponse(w, http.StatusNotFound, "Snapshot not found")
		return
	}

	s.jsonResponse(w, http.StatusOK, snapshot.Payload)
}

// handleUpdateCandidate links a candidate to an asset or changes its type
func (s *Server) handleUpdateCandidate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "candidate")
	if !ok {
		return
	}

	var req types.UpdateCandidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.CanonicalAssetID == nil && req.EntityType == nil {
		s.errorResponse(w, http.StatusBadRequest, "No fields to update")
		return
	}

	candidate, err := s.store.UpdateCandidate(r.Context(), id, db.CandidateUpdate{
		CanonicalAssetID: req.CanonicalAssetID,
		EntityType:       req.EntityType,
	})
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.errorResponse(w, http.StatusNotFound, "Candidate not found")
			return
		}
		if errors.Is(err, db.ErrConflict) {
			s.errorResponse(w, http.StatusConflict, "Run already has a candidate with this name and entity type")
			return
		}
		s.errorFromErr(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, candidate)
}

// handleDeleteCandidate soft-deletes a candidate
func (s *Server) handleDeleteCandidate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "candidate")
	if !ok {
		return
	}

	if err := s.store.DeleteCandidate(r.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.errorResponse(w, http.StatusNotFound, "Candidate not found")
			return
		}
		s.errorFromErr(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// pathUUID parses the {id} path value, writing a 400 when it is malformed.
func (s *Server) pathUUID(w http.ResponseWriter, r *http.Request, kind string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid "+kind+" ID format")
		return uuid.Nil, false
	}
	return id, true
}
