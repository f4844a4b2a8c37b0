package schedule

import (
	"errors"
	"fmt"
)

// InspectError represents a failure surfaced by the value-presentation
// engine.
//
// The taxonomy is closed:
//   - Context changed: the bound suspension became invalid mid-flight.
//     Terminal, never retried automatically.
//   - Computation failed: a renderer or evaluator failed while producing
//     a label, children batch, or expression. Logged and contained.
//   - Obsolete: the request was superseded. Silently dropped.
//   - Capability unavailable: an optional introspection feature is
//     missing. Callers fall back to a baseline provider.
type InspectError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Generation identifies the suspension episode, when known.
	Generation int64

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes inspection errors.
type ErrorCode string

const (
	// ErrCodeContextChanged indicates the bound suspension was invalidated.
	ErrCodeContextChanged ErrorCode = "CONTEXT_CHANGED"

	// ErrCodeComputationFailed indicates a renderer or evaluator failed.
	ErrCodeComputationFailed ErrorCode = "COMPUTATION_FAILED"

	// ErrCodeObsolete indicates the request was superseded by newer activity.
	ErrCodeObsolete ErrorCode = "OBSOLETE"

	// ErrCodeCapabilityUnavailable indicates an optional debuggee feature
	// is missing.
	ErrCodeCapabilityUnavailable ErrorCode = "CAPABILITY_UNAVAILABLE"
)

// Error implements the error interface.
func (e *InspectError) Error() string {
	if e.Generation > 0 {
		return fmt.Sprintf("%s: %s (generation=%d)", e.Code, e.Message, e.Generation)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *InspectError) Unwrap() error {
	return e.Err
}

// IsContextChanged returns true if the error is a context invalidation.
// Uses errors.As to handle wrapped errors.
func IsContextChanged(err error) bool {
	var ie *InspectError
	if errors.As(err, &ie) {
		return ie.Code == ErrCodeContextChanged
	}
	return false
}

// IsComputationFailure returns true if the error is a contained
// renderer/evaluator failure.
func IsComputationFailure(err error) bool {
	var ie *InspectError
	if errors.As(err, &ie) {
		return ie.Code == ErrCodeComputationFailed
	}
	return false
}

// IsObsolete returns true if the error marks a superseded request.
func IsObsolete(err error) bool {
	var ie *InspectError
	if errors.As(err, &ie) {
		return ie.Code == ErrCodeObsolete
	}
	return false
}

// NewContextChangedError creates an InspectError for an invalidated
// suspension episode.
func NewContextChangedError(generation int64) *InspectError {
	return &InspectError{
		Code:       ErrCodeContextChanged,
		Message:    "context has changed",
		Generation: generation,
	}
}

// NewComputationError wraps a renderer/evaluator failure.
func NewComputationError(message string, cause error) *InspectError {
	return &InspectError{
		Code:    ErrCodeComputationFailed,
		Message: message,
		Err:     cause,
	}
}

// NewCapabilityError creates an InspectError for a missing optional
// debuggee capability.
func NewCapabilityError(capability string) *InspectError {
	return &InspectError{
		Code:    ErrCodeCapabilityUnavailable,
		Message: fmt.Sprintf("debuggee does not support %s", capability),
	}
}
