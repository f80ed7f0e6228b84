// Package extraction defines the backends that turn one serialized chunk of a
// normalized screenplay into raw candidate JSON, and selects them by name.
package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonathan/script-agent/internal/llm"
)

// Provider extracts candidate entities from one chunk. The returned string is
// the provider's raw output: a JSON object with a "candidates" list.
type Provider interface {
	Name() string
	ExtractCandidates(ctx context.Context, prompt, chunkJSON string) (string, error)
}

var (
	// ErrEmptyContent is returned when a remote backend answers without content.
	ErrEmptyContent = errors.New("LLM returned empty content")
	// ErrInvalidOutput is returned when a remote backend's content is not a JSON object.
	ErrInvalidOutput = errors.New("LLM output must be a JSON object")
)

// normalizeOutput checks that content is a JSON object and returns it
// re-encoded. A markdown fence around the object is tolerated; any other text
// around it is not.
func normalizeOutput(content string) (string, error) {
	var parsed any
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		if err := json.Unmarshal([]byte(llm.CleanJSONBlock(content)), &parsed); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidOutput, err)
		}
	}

	obj, ok := parsed.(map[string]any)
	if !ok {
		return "", ErrInvalidOutput
	}
	return encodeJSON(obj)
}

// encodeJSON marshals v without HTML escaping so names keep their original text.
func encodeJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("failed to encode output: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
