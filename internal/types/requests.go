package types

import (
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// ExtractRequest triggers a candidate extraction run for a script.
type ExtractRequest struct {
	ProjectID          uuid.UUID  `json:"project_id" validate:"required"`
	ScriptID           uuid.UUID  `json:"script_id" validate:"required"`
	Provider           string     `json:"provider" validate:"required,min=1,max=64"`
	NormalizedScriptID *uuid.UUID `json:"normalized_script_id,omitempty"`
}

// ExtractResponse is returned after a successful extraction run.
type ExtractResponse struct {
	RunID uuid.UUID `json:"run_id"`
}

// UpdateCandidateRequest curates a candidate. Nil fields are left unchanged.
type UpdateCandidateRequest struct {
	CanonicalAssetID *uuid.UUID  `json:"canonical_asset_id,omitempty"`
	EntityType       *EntityType `json:"entity_type,omitempty" validate:"omitempty,oneof=person scene prop other"`
}

// ImportScriptRequest creates a project/script pair with a normalized version.
type ImportScriptRequest struct {
	ProjectName  string          `json:"project_name" validate:"required,min=1,max=200"`
	ScriptName   string          `json:"script_name" validate:"required,min=1,max=200"`
	VersionLabel string          `json:"version_label,omitempty" validate:"max=64"`
	Rows         []NormalizedRow `json:"rows" validate:"required"`
}

// Validate validates the ExtractRequest using the validator.
func (r *ExtractRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the UpdateCandidateRequest using the validator.
func (r *UpdateCandidateRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the ImportScriptRequest using the validator.
func (r *ImportScriptRequest) Validate() error {
	return validate.Struct(r)
}
