// Package server provides the HTTP REST API for the resume enhancer.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/resume-enhancer/internal/extraction"
	"github.com/jonathan/resume-enhancer/internal/llm"
	"github.com/jonathan/resume-enhancer/internal/rendering"
	"github.com/jonathan/resume-enhancer/internal/session"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrNoArtifact indicates the session has no enhanced resume to serve yet
type ErrNoArtifact struct {
	SessionID string
}

func (e *ErrNoArtifact) Error() string {
	return fmt.Sprintf("no enhanced resume available for session %s", e.SessionID)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validationErr *ErrValidation
		noArtifact    *ErrNoArtifact
		notFound      *session.NotFoundError
		stateErr      *session.StateError
		unknownKw     *session.UnknownKeywordError
		unsupported   *extraction.UnsupportedFormatError
		parseErr      *extraction.DocumentParseError
		apiErr        *llm.APIError
		renderErr     *rendering.RenderError
		tooLarge      *http.MaxBytesError
	)

	switch {
	case errors.As(err, &validationErr),
		errors.As(err, &unknownKw),
		errors.As(err, &parseErr),
		errors.Is(err, session.ErrMissingInput):
		return http.StatusBadRequest
	case errors.As(err, &unsupported):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &notFound), errors.As(err, &noArtifact):
		return http.StatusNotFound
	case errors.As(err, &stateErr), errors.Is(err, session.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	case errors.As(err, &renderErr):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
