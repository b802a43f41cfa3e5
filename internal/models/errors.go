package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures per the worker's error taxonomy. The kind
// decides retry behavior: transient kinds are retried by the task-level
// retry mechanism, permanent kinds are not.
type ErrorKind string

const (
	ErrTransientNetwork ErrorKind = "transient_network"
	ErrPermanentSource  ErrorKind = "permanent_source"
	ErrRateLimited      ErrorKind = "rate_limited"
	ErrParse            ErrorKind = "parse_error"
	ErrBudgetExhausted  ErrorKind = "budget_exhausted"
	ErrInvalidState     ErrorKind = "invalid_state"
	ErrMissingConfig    ErrorKind = "missing_config"
)

// WorkerError wraps an underlying error with its taxonomy kind.
type WorkerError struct {
	Kind ErrorKind
	Err  error
}

func (e *WorkerError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *WorkerError) Unwrap() error { return e.Err }

// NewWorkerError wraps err with a taxonomy kind.
func NewWorkerError(kind ErrorKind, err error) *WorkerError {
	return &WorkerError{Kind: kind, Err: err}
}

// Errorf builds a classified error from a format string.
func Errorf(kind ErrorKind, format string, args ...interface{}) *WorkerError {
	return &WorkerError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the taxonomy kind from an error chain. Unclassified
// errors are treated as transient so the retry mechanism gets a chance.
func KindOf(err error) ErrorKind {
	var we *WorkerError
	if errors.As(err, &we) {
		return we.Kind
	}
	return ErrTransientNetwork
}

// IsRetryable reports whether the task-level retry mechanism should re-enqueue
// after this error. Budget exhaustion is retryable: the daily counters reset
// and a later attempt can succeed.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case ErrTransientNetwork, ErrRateLimited, ErrBudgetExhausted:
		return true
	}
	return false
}

// KindForHTTPStatus classifies an HTTP response status per the taxonomy.
func KindForHTTPStatus(status int) ErrorKind {
	switch {
	case status == 429:
		return ErrRateLimited
	case status >= 500:
		return ErrTransientNetwork
	case status >= 400:
		return ErrPermanentSource
	}
	return ErrTransientNetwork
}
