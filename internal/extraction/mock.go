package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/jonathan/script-agent/internal/types"
)

// speakerPattern matches a short speaker label before a full-width or ASCII colon.
var speakerPattern = regexp.MustCompile(`^\s*([^:：]{1,12})[:：]`)

const (
	mockPersonConfidence = 0.6
	mockSceneConfidence  = 0.5
)

type mockCandidate struct {
	RawName    string           `json:"raw_name"`
	EntityType types.EntityType `json:"entity_type"`
	Confidence float64          `json:"confidence"`
}

// MockProvider is a deterministic rule-based backend. Dialogue speakers
// become people and scene headers become scenes; the prompt is ignored.
type MockProvider struct{}

// Name returns "mock".
func (MockProvider) Name() string {
	return ProviderMock
}

// ExtractCandidates derives candidates from the rows in chunkJSON.
func (MockProvider) ExtractCandidates(_ context.Context, _ string, chunkJSON string) (string, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal([]byte(chunkJSON), &rows); err != nil {
		return "", fmt.Errorf("failed to decode chunk: %w", err)
	}

	seen := make(map[types.CandidateKey]struct{})
	candidates := make([]mockCandidate, 0)
	add := func(name string, entityType types.EntityType, confidence float64) {
		key := types.CandidateKey{RawName: name, EntityType: entityType}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		candidates = append(candidates, mockCandidate{RawName: name, EntityType: entityType, Confidence: confidence})
	}

	for _, raw := range rows {
		var row types.NormalizedRow
		if err := json.Unmarshal(raw, &row); err != nil {
			continue
		}

		switch row.Type {
		case types.RowDialogue:
			m := speakerPattern.FindStringSubmatch(row.Text)
			if m == nil {
				continue
			}
			if name := strings.TrimSpace(m[1]); name != "" {
				add(name, types.EntityPerson, mockPersonConfidence)
			}
		case types.RowSceneHeader:
			if name := strings.TrimSpace(row.Text); name != "" {
				add(name, types.EntityScene, mockSceneConfidence)
			}
		}
	}

	return encodeJSON(map[string]any{"candidates": candidates})
}
