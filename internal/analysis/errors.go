package analysis

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingInput is returned when the resume text is empty.
	ErrMissingInput = errors.New("resume text is required")
	// ErrGenerationFailure is returned when both the primary and fallback models fail.
	ErrGenerationFailure = errors.New("analysis generation failed")
	// ErrMalformedOutput matches any *MalformedOutputError.
	ErrMalformedOutput = errors.New("malformed analysis output")
)

// MalformedOutputError carries the unmodified model output that failed validation.
type MalformedOutputError struct {
	Raw    string
	Reason string
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMalformedOutput, e.Reason)
}

func (e *MalformedOutputError) Unwrap() error {
	return ErrMalformedOutput
}
