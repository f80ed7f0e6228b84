package pipeline

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInternal is returned by Trigger for any failure that is not a validation
// error. Details are logged, not surfaced.
var ErrInternal = errors.New("Internal error")

// ValidationError reports a request that cannot start a run. Its message is
// safe to show to the caller.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(err error, format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...), Err: err}
}

// RunError is a failure after the run record was created.
type RunError struct {
	RunID uuid.UUID
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %s failed: %v", e.RunID, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
