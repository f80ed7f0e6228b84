// Package server provides the HTTP REST API for candidate extraction.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/script-agent/internal/db"
	"github.com/jonathan/script-agent/internal/pipeline"
)

// internalMessage is the only detail a 500 response carries
const internalMessage = "Internal error"

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		fieldErr      *ErrValidation
		pipelineErr   *pipeline.ValidationError
		validationErr validator.ValidationErrors
	)
	switch {
	case errors.As(err, &fieldErr), errors.As(err, &pipelineErr), errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, db.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ErrorMessage returns the text to send to the client for err. Server errors
// are reduced to a generic message.
func ErrorMessage(err error) string {
	if HTTPStatus(err) == http.StatusInternalServerError {
		return internalMessage
	}
	return err.Error()
}
