// Package types provides type definitions for structured data used throughout the extraction pipeline.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Row kinds produced by the normalization step
const (
	RowSceneHeader = "scene_header"
	RowDialogue    = "dialogue"
	RowAction      = "action"
)

// NormalizedRow is one typed line of a normalized screenplay. Keys other than
// line_id, type and text are preserved: a row decoded from JSON marshals back
// to the same object, keys in their original order.
type NormalizedRow struct {
	LineID string
	Type   string
	Text   string

	raw json.RawMessage
}

// UnmarshalJSON decodes a row object. Non-string values of the known fields
// are kept in their JSON text form.
func (r *NormalizedRow) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("normalized row must be a JSON object")
	}

	r.Type = stringField(fields, "type")
	r.Text = stringField(fields, "text")
	r.LineID = stringField(fields, "line_id")
	if r.LineID == "" {
		r.LineID = stringField(fields, "id")
	}
	r.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON re-emits the original object when the row was decoded from
// JSON, otherwise the three known fields.
func (r NormalizedRow) MarshalJSON() ([]byte, error) {
	if len(r.raw) > 0 {
		return r.raw, nil
	}
	return json.Marshal(struct {
		LineID string `json:"line_id,omitempty"`
		Type   string `json:"type"`
		Text   string `json:"text"`
	}{r.LineID, r.Type, r.Text})
}

// Chunk is a contiguous, scene-bounded slice of rows sent to a provider in one call.
type Chunk []NormalizedRow

// ParseNormalizedContent decodes normalized content_json. The content must be
// a JSON array; elements that are not objects are dropped.
func ParseNormalizedContent(data []byte) ([]NormalizedRow, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, fmt.Errorf("normalized script content must be a list: %w", err)
	}
	if elems == nil && !bytes.Equal(bytes.TrimSpace(data), []byte("[]")) {
		return nil, fmt.Errorf("normalized script content must be a list")
	}

	rows := make([]NormalizedRow, 0, len(elems))
	for _, elem := range elems {
		trimmed := bytes.TrimSpace(elem)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			continue
		}
		var row NormalizedRow
		if err := json.Unmarshal(trimmed, &row); err != nil {
			return nil, fmt.Errorf("failed to decode normalized row: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// stringField renders a loosely typed JSON value as text. Missing and null
// values become "".
func stringField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}
