package session

import (
	"errors"
	"fmt"
)

// ErrMissingInput is returned when analysis is requested without both a
// resume and a job description
var ErrMissingInput = errors.New("resume text and job description are both required")

// ErrBusy is returned when an analysis or enhancement is already running for the session
var ErrBusy = errors.New("another action is already in progress for this session")

// StateError represents an action that is not allowed in the session's current state
type StateError struct {
	Action string
	State  State
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s in state %s: %s", e.Action, e.State, e.Reason)
}

// UnknownKeywordError represents an answer for a keyword that is not in the
// current analysis
type UnknownKeywordError struct {
	Keyword string
}

func (e *UnknownKeywordError) Error() string {
	return fmt.Sprintf("keyword %q is not in the current list of missing keywords", e.Keyword)
}

// NotFoundError represents a session id with no live session
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("session not found: %s", e.ID)
}
