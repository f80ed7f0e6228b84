package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/script-agent/internal/pipeline"
	"github.com/jonathan/script-agent/internal/types"
)

func TestExtractOptions_Requests(t *testing.T) {
	projectID := uuid.New()
	a, b := uuid.New(), uuid.New()

	opts := &extractOptions{
		projectID:   projectID.String(),
		scriptIDs:   []string{a.String(), b.String(), a.String()},
		provider:    "mock",
		concurrency: 2,
	}
	requests, err := opts.requests()
	require.NoError(t, err)
	require.Len(t, requests, 2, "duplicates are dropped")
	assert.Equal(t, a, requests[0].ScriptID)
	assert.Equal(t, b, requests[1].ScriptID)
	assert.Equal(t, projectID, requests[1].ProjectID)
	assert.Nil(t, requests[0].NormalizedScriptID)
}

func TestExtractOptions_Invalid(t *testing.T) {
	valid := func() *extractOptions {
		return &extractOptions{projectID: uuid.NewString(), scriptIDs: []string{uuid.NewString()}, provider: "mock", concurrency: 1}
	}

	tests := []struct {
		name   string
		mutate func(o *extractOptions)
		errMsg string
	}{
		{"bad project", func(o *extractOptions) { o.projectID = "x" }, "--project"},
		{"no scripts", func(o *extractOptions) { o.scriptIDs = nil }, "--script"},
		{"bad script", func(o *extractOptions) { o.scriptIDs = []string{"x"} }, "--script"},
		{"zero concurrency", func(o *extractOptions) { o.concurrency = 0 }, "--concurrency"},
		{"empty provider", func(o *extractOptions) { o.provider = "" }, "Provider"},
		{"pinned with many", func(o *extractOptions) {
			o.scriptIDs = append(o.scriptIDs, uuid.NewString())
			o.normalizedScriptID = uuid.NewString()
		}, "exactly one"},
		{"bad pinned", func(o *extractOptions) { o.normalizedScriptID = "x" }, "--normalized-script"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := valid()
			tt.mutate(o)
			_, err := o.requests()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestExtractOptions_Pinned(t *testing.T) {
	pinned := uuid.New()
	o := &extractOptions{projectID: uuid.NewString(), scriptIDs: []string{uuid.NewString()}, provider: "gpt", concurrency: 1, normalizedScriptID: pinned.String()}
	requests, err := o.requests()
	require.NoError(t, err)
	require.NotNil(t, requests[0].NormalizedScriptID)
	assert.Equal(t, pinned, *requests[0].NormalizedScriptID)
}

// fakeTriggerer fails scripts listed in fail and tracks concurrency.
type fakeTriggerer struct {
	mu      sync.Mutex
	fail    map[uuid.UUID]bool
	active  int
	maxSeen int
	release chan struct{}
}

func (f *fakeTriggerer) Trigger(_ context.Context, req pipeline.Request) (*types.RunSummary, error) {
	f.mu.Lock()
	f.active++
	f.maxSeen = max(f.maxSeen, f.active)
	f.mu.Unlock()

	if f.release != nil {
		<-f.release
	}

	f.mu.Lock()
	f.active--
	f.mu.Unlock()

	if f.fail[req.ScriptID] {
		return nil, pipeline.ErrInternal
	}
	return &types.RunSummary{RunID: uuid.New(), Provider: req.Provider, ChunkCount: 1}, nil
}

func TestRunExtractions_PartialFailure(t *testing.T) {
	ok1, bad, ok2 := uuid.New(), uuid.New(), uuid.New()
	var requests []pipeline.Request
	for _, id := range []uuid.UUID{ok1, bad, ok2} {
		requests = append(requests, pipeline.Request{ScriptID: id, Provider: "mock"})
	}

	var out bytes.Buffer
	err := runExtractions(context.Background(), &fakeTriggerer{fail: map[uuid.UUID]bool{bad: true}}, requests, 2, &out)

	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrInternal)
	assert.Contains(t, err.Error(), bad.String())
	assert.Equal(t, 2, strings.Count(out.String(), "EXTRACTION RUN COMPLETED"))
}

func TestRunExtractions_RespectsLimit(t *testing.T) {
	f := &fakeTriggerer{release: make(chan struct{})}
	requests := make([]pipeline.Request, 6)
	for i := range requests {
		requests[i] = pipeline.Request{ScriptID: uuid.New(), Provider: "mock"}
	}

	done := make(chan error, 1)
	go func() { done <- runExtractions(context.Background(), f, requests, 2, &bytes.Buffer{}) }()

	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.active == 2
	}, eventuallyTimeout, eventuallyTick)
	close(f.release)

	require.NoError(t, <-done)
	assert.Equal(t, 2, f.maxSeen)
}

func TestProgressPrinter(t *testing.T) {
	var out bytes.Buffer
	runID := uuid.New()
	progressPrinter(&out)(pipeline.ProgressEvent{RunID: runID, Chunk: 2, ChunkCount: 5, ChunkSize: 7, Candidates: 3})
	assert.Equal(t, "["+runID.String()[:8]+"] chunk 2/5 (7 rows) → 3 candidates\n", out.String())
}
