// Package schemas provides JSON Schema validation for the artifacts a run persists.
package schemas

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed files/*.schema.json
var files embed.FS

// SnapshotSchema is the embedded schema name for run snapshots.
const SnapshotSchema = "run_snapshot.schema.json"

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

var (
	compileOnce sync.Once
	compiled    map[string]*gojsonschema.Schema
	compileErr  error
)

// load compiles every embedded schema once.
func load() (map[string]*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		entries, err := files.ReadDir("files")
		if err != nil {
			compileErr = &SchemaLoadError{Path: "files", Message: "cannot list embedded schemas", Cause: err}
			return
		}
		compiled = make(map[string]*gojsonschema.Schema, len(entries))
		for _, entry := range entries {
			data, err := files.ReadFile("files/" + entry.Name())
			if err != nil {
				compileErr = &SchemaLoadError{Path: entry.Name(), Message: "cannot read embedded schema", Cause: err}
				return
			}
			schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
			if err != nil {
				compileErr = &SchemaLoadError{Path: entry.Name(), Message: "invalid schema", Cause: err}
				return
			}
			compiled[entry.Name()] = schema
		}
	})
	return compiled, compileErr
}

// Validate checks document against the named embedded schema.
func Validate(name string, document []byte) error {
	schemas, err := load()
	if err != nil {
		return err
	}
	schema, ok := schemas[name]
	if !ok {
		return &SchemaLoadError{Path: name, Message: "unknown schema"}
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}
	return toValidationError(result)
}

// ValidateSnapshot checks a serialized run snapshot.
func ValidateSnapshot(document []byte) error {
	return Validate(SnapshotSchema, document)
}

func toValidationError(result *gojsonschema.Result) error {
	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}
