package models

import "fmt"

// ErrorKind is the closed set of failure classifications a job can carry.
// Skills and the executor never let any other shape reach durable storage.
type ErrorKind string

const (
	// ErrKindValidation marks bad or missing input. Never retried; the
	// caller must fix the request and resubmit.
	ErrKindValidation ErrorKind = "validation"
	// ErrKindNotFound marks an absent property, user, or job. Fatal for
	// the job.
	ErrKindNotFound ErrorKind = "not_found"
	// ErrKindExecution marks a failed dependent call. Retryable up to the
	// configured attempt cap.
	ErrKindExecution ErrorKind = "execution"
	// ErrKindConfiguration marks an unknown job type, a missing registry
	// entry, or bad startup config. Fatal to the process, not just the job.
	ErrKindConfiguration ErrorKind = "configuration"
)

// JobError is the uniform error payload persisted on failed jobs.
type JobError struct {
	Kind      ErrorKind `json:"kind"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
}

func (e *JobError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NewValidationError(format string, args ...any) *JobError {
	return &JobError{Kind: ErrKindValidation, Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(format string, args ...any) *JobError {
	return &JobError{Kind: ErrKindNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewExecutionError(format string, args ...any) *JobError {
	return &JobError{Kind: ErrKindExecution, Message: fmt.Sprintf(format, args...), Retryable: true}
}

func NewConfigurationError(format string, args ...any) *JobError {
	return &JobError{Kind: ErrKindConfiguration, Message: fmt.Sprintf(format, args...)}
}
