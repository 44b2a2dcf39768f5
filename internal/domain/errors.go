package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("job not found")
	ErrJobExists         = errors.New("job already exists")
	ErrInvalidTransition = errors.New("invalid job status transition")
	ErrOutputMissing     = errors.New("output file not found")
)

// ValidationError rejects a submission before any job is created.
type ValidationError struct {
	Reason string
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// ConflictError is returned when a job is not in the state an operation needs.
type ConflictError struct {
	JobID  string
	Status JobStatus
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("job %s is %s, output is only available when %s", e.JobID, e.Status, JobStatusFinished)
}
