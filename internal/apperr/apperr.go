// Package apperr defines the error taxonomy that crosses the answer
// router boundary and its mapping to HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Code classifies an error by who is at fault.
type Code string

const (
	// CodeClientInput means the caller sent something unusable.
	CodeClientInput Code = "CLIENT_INPUT"
	// CodeConflict means an idempotency key is already being processed.
	CodeConflict Code = "CONFLICT"
	// CodeCollaborator means an LLM, data store, search or calendar call failed.
	CodeCollaborator Code = "COLLABORATOR_FAILED"
)

// Error is a classified application error.
type Error struct {
	Code      Code      `json:"code"`
	Message   string    `json:"message"`
	Cause     error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *Error) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// ClientInput reports a problem with the caller's input (400).
func ClientInput(msg string) *Error {
	return &Error{Code: CodeClientInput, Message: msg, Timestamp: time.Now().UTC()}
}

// Conflict reports a request that collides with one still in flight (409).
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg, Timestamp: time.Now().UTC()}
}

// Collaborator reports a failed downstream call (500).
func Collaborator(msg string, cause error) *Error {
	return &Error{Code: CodeCollaborator, Message: msg, Cause: cause, Timestamp: time.Now().UTC()}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the code of err, defaulting to CodeCollaborator for
// unclassified errors.
func CodeOf(err error) Code {
	if e, ok := As(err); ok {
		return e.Code
	}
	return CodeCollaborator
}

// HTTPStatus maps err to a response status.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeClientInput:
		return http.StatusBadRequest
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Detail is the human-readable message returned to API callers.
func Detail(err error) string {
	if e, ok := As(err); ok {
		if e.Code == CodeCollaborator && e.Cause != nil && e.Message == "" {
			return e.Cause.Error()
		}
		return e.Message
	}
	return err.Error()
}
