package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrValidation signals malformed user parameters.
	ErrValidation = errors.New("validation failed")
	// ErrOutOfRange signals a numeric parameter outside its allowed range.
	ErrOutOfRange = fmt.Errorf("%w: out of range", ErrValidation)
	// ErrProvider signals a network or parse failure fetching documents or vectors.
	ErrProvider = errors.New("provider error")
	// ErrCut signals a cluster assignment that left a document unassigned.
	ErrCut = errors.New("cluster cut left unassigned documents")
	// ErrRefinement signals a failed label refinement call.
	ErrRefinement = errors.New("label refinement failed")
	// ErrNoSearchResult signals a clustering request before any search completed.
	ErrNoSearchResult = errors.New("no search result to cluster")
	// ErrSuperseded signals a result dropped because a newer request replaced it.
	ErrSuperseded = errors.New("superseded by a newer request")
)

// RangeError wraps ErrOutOfRange with the offending value and bounds.
type RangeError struct {
	Field    string
	Value    int
	Min, Max int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s: %s must be in [%d, %d], got %d", ErrOutOfRange.Error(), e.Field, e.Min, e.Max, e.Value)
}

func (e *RangeError) Unwrap() error { return ErrOutOfRange }

// NewRangeError creates an out-of-range error for field.
func NewRangeError(field string, value, minVal, maxVal int) error {
	return &RangeError{Field: field, Value: value, Min: minVal, Max: maxVal}
}
