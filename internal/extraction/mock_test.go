package extraction

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type decodedCandidate struct {
	RawName    string  `json:"raw_name"`
	EntityType string  `json:"entity_type"`
	Confidence float64 `json:"confidence"`
}

func runMock(t *testing.T, chunkJSON string) []decodedCandidate {
	t.Helper()
	out, err := MockProvider{}.ExtractCandidates(context.Background(), "ignored", chunkJSON)
	require.NoError(t, err)

	var payload struct {
		Candidates []decodedCandidate `json:"candidates"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	require.NotNil(t, payload.Candidates)
	return payload.Candidates
}

func TestMockProvider_SceneAndSpeakers(t *testing.T) {
	got := runMock(t, `[
		{"type":"scene_header","text":"INT ROOM"},
		{"type":"dialogue","text":"Alice: hi"},
		{"type":"dialogue","text":"Bob: hey"}
	]`)

	assert.Equal(t, []decodedCandidate{
		{RawName: "INT ROOM", EntityType: "scene", Confidence: 0.5},
		{RawName: "Alice", EntityType: "person", Confidence: 0.6},
		{RawName: "Bob", EntityType: "person", Confidence: 0.6},
	}, got)
}

func TestMockProvider_FullWidthColon(t *testing.T) {
	got := runMock(t, `[{"type":"dialogue","text":"  小明：你好"}]`)
	require.Len(t, got, 1)
	assert.Equal(t, "小明", got[0].RawName)
}

func TestMockProvider_SkipsNonMatchingRows(t *testing.T) {
	got := runMock(t, `[
		{"type":"dialogue","text":"no colon here"},
		{"type":"dialogue","text":"A speaker label that is far too long: hi"},
		{"type":"dialogue","text":"   : nobody"},
		{"type":"scene_header","text":"   "},
		{"type":"action","text":"Alice: not dialogue"},
		"not an object",
		{"text":"Carol: missing type"}
	]`)
	assert.Empty(t, got)
}

func TestMockProvider_DeduplicatesWithinCall(t *testing.T) {
	got := runMock(t, `[
		{"type":"dialogue","text":"Alice: one"},
		{"type":"dialogue","text":"Alice: two"},
		{"type":"scene_header","text":"Alice"}
	]`)
	require.Len(t, got, 2)
	assert.Equal(t, "person", got[0].EntityType)
	assert.Equal(t, "scene", got[1].EntityType)
}

func TestMockProvider_InvalidChunk(t *testing.T) {
	_, err := MockProvider{}.ExtractCandidates(context.Background(), "", `{"not":"a list"}`)
	assert.Error(t, err)
}

func TestMockProvider_Name(t *testing.T) {
	assert.Equal(t, "mock", MockProvider{}.Name())
}
