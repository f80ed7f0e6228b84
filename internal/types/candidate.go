package types

import (
	"time"

	"github.com/google/uuid"
)

// EntityType is the closed set of candidate categories.
type EntityType string

// Entity types accepted from extraction output
const (
	EntityPerson EntityType = "person"
	EntityScene  EntityType = "scene"
	EntityProp   EntityType = "prop"
	EntityOther  EntityType = "other"
)

// EntityTypes lists every valid entity type in display order.
var EntityTypes = []EntityType{EntityPerson, EntityScene, EntityProp, EntityOther}

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	switch t {
	case EntityPerson, EntityScene, EntityProp, EntityOther:
		return true
	}
	return false
}

// CandidateKey identifies a candidate within a run.
type CandidateKey struct {
	RawName    string
	EntityType EntityType
}

// Candidate is a persisted, deduplicated entity extracted by a run.
type Candidate struct {
	ID               uuid.UUID  `json:"id"`
	RunID            uuid.UUID  `json:"run_id"`
	RawName          string     `json:"raw_name"`
	EntityType       EntityType `json:"entity_type"`
	Confidence       *float64   `json:"confidence,omitempty"`
	CanonicalAssetID *uuid.UUID `json:"canonical_asset_id,omitempty"`
	IsDeleted        bool       `json:"is_deleted"`
	CreatedAt        time.Time  `json:"created_at"`
}
