package domain

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrMissingLocation = errors.New("missing location")
	ErrNotFound        = errors.New("not found")
)

// ValidationError reports input that violates a plan or stop invariant.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// MissingLocationError reports a stop without valid coordinates where one is required.
type MissingLocationError struct {
	StopID StopID
}

func (e *MissingLocationError) Error() string {
	if e.StopID == "" {
		return "missing location: no stop carries valid coordinates"
	}
	return fmt.Sprintf("missing location: stop %q has no valid coordinates", string(e.StopID))
}

func (e *MissingLocationError) Is(target error) bool { return target == ErrMissingLocation }

// NotFoundError reports a reference to an id that does not exist.
// Kind is "stop", "cafe" or "plan".
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
