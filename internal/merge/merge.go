// Package merge folds per-chunk extraction output into one deduplicated
// candidate set for a run.
package merge

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jonathan/script-agent/internal/types"
)

// Entry is a merged candidate in first-seen order.
type Entry struct {
	RawName    string
	EntityType types.EntityType
	Confidence *float64
}

// Set accumulates candidates keyed by (raw name, entity type). The first
// occurrence of a key wins; later duplicates are dropped unchanged. A Set is
// not safe for concurrent use.
type Set struct {
	entries []Entry
	index   map[types.CandidateKey]int
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{index: make(map[types.CandidateKey]int)}
}

// AddRaw parses one provider output and adds its candidates. It fails only
// when raw is not a JSON object; a missing or non-list "candidates" field
// contributes nothing.
func (s *Set) AddRaw(raw string) error {
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return fmt.Errorf("failed to parse provider output: %w", err)
	}
	if payload == nil {
		return fmt.Errorf("failed to parse provider output: not a JSON object")
	}

	list, _ := payload["candidates"].([]any)
	s.Add(list)
	return nil
}

// Add merges a decoded candidates list. Elements that are not objects, lack a
// name, or carry an unknown entity type are skipped. Numeric names are taken
// in their JSON text form.
func (s *Set) Add(list []any) {
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}

		name := strings.TrimSpace(scalarText(obj["raw_name"]))
		if name == "" {
			continue
		}

		entityType := types.EntityType(strings.TrimSpace(scalarText(obj["entity_type"])))
		if !entityType.Valid() {
			continue
		}

		key := types.CandidateKey{RawName: name, EntityType: entityType}
		if _, seen := s.index[key]; seen {
			continue
		}
		s.index[key] = len(s.entries)
		s.entries = append(s.entries, Entry{
			RawName:    name,
			EntityType: entityType,
			Confidence: coerceConfidence(obj["confidence"]),
		})
	}
}

// Entries returns the merged candidates in first-seen order.
func (s *Set) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of distinct candidates.
func (s *Set) Len() int {
	return len(s.entries)
}

// scalarText renders strings and numbers as text; other values yield "".
func scalarText(v any) string {
	switch c := v.(type) {
	case string:
		return c
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	default:
		return ""
	}
}

// coerceConfidence accepts numbers, booleans (as 1 or 0) and numeric strings
// within [0, 1].
func coerceConfidence(v any) *float64 {
	var f float64
	switch c := v.(type) {
	case float64:
		f = c
	case bool:
		if c {
			f = 1
		}
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > 1 {
		return nil
	}
	return &f
}
