package models

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes planning failures so callers can branch without
// string-matching error messages.
type ErrorKind string

const (
	// ErrKindAmbiguousQuery means surface or dirt type could not be resolved
	// from the query or explicit input.
	ErrKindAmbiguousQuery ErrorKind = "ambiguous_query"

	// ErrKindNoMatchFound means zero method candidates remained even after a
	// similar-scenario substitution attempt.
	ErrKindNoMatchFound ErrorKind = "no_match_found"

	// ErrKindInsufficientSteps means the composed workflow stayed below the
	// absolute minimum step count after the similar-scenario retry.
	ErrKindInsufficientSteps ErrorKind = "insufficient_steps"

	// ErrKindRetrievalFailure means a retrieval call failed; infrastructure
	// rather than domain, so callers can retry later instead of rephrasing.
	ErrKindRetrievalFailure ErrorKind = "retrieval_failure"
)

// PlanError is a tagged domain error surfaced at the planner boundary.
type PlanError struct {
	Kind        ErrorKind
	Message     string
	Found       int              // steps found (insufficient_steps)
	Required    int              // steps required (insufficient_steps)
	Suggestions []SimilarMatch   // actionable alternatives (no_match_found)
	Err         error            // wrapped cause (retrieval_failure)
}

// SimilarMatch is a similar-scenario suggestion attached to NoMatchFound errors.
type SimilarMatch struct {
	SurfaceType     string  `json:"surface_type"`
	DirtType        string  `json:"dirt_type"`
	CleaningMethod  string  `json:"cleaning_method"`
	SimilarityScore float64 `json:"similarity_score"`
}

func (e *PlanError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *PlanError) Unwrap() error { return e.Err }

// NewAmbiguousQueryError reports an unresolvable surface or dirt dimension.
func NewAmbiguousQueryError(message string) *PlanError {
	return &PlanError{Kind: ErrKindAmbiguousQuery, Message: message}
}

// NewNoMatchFoundError reports an empty candidate set, carrying any
// similar-scenario suggestions for the caller.
func NewNoMatchFoundError(message string, suggestions []SimilarMatch) *PlanError {
	return &PlanError{Kind: ErrKindNoMatchFound, Message: message, Suggestions: suggestions}
}

// NewInsufficientStepsError reports a workflow below the absolute minimum.
func NewInsufficientStepsError(found, required int) *PlanError {
	return &PlanError{
		Kind:     ErrKindInsufficientSteps,
		Message:  fmt.Sprintf("workflow has %d steps, %d required", found, required),
		Found:    found,
		Required: required,
	}
}

// NewRetrievalError wraps a failed retrieval call.
func NewRetrievalError(operation string, err error) *PlanError {
	return &PlanError{
		Kind:    ErrKindRetrievalFailure,
		Message: fmt.Sprintf("retrieval operation %s failed", operation),
		Err:     err,
	}
}

// KindOf extracts the error kind from err, or "" if err is not a PlanError.
func KindOf(err error) ErrorKind {
	var pe *PlanError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
