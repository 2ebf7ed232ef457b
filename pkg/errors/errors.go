// Package errors defines coded error types for the intelpipe service.
// Every failure class the pipeline distinguishes (fetch, normalization,
// duplicate conflict, scoring, persistence) maps to one Code so that callers
// decide recovery behavior from the code, never from message text.
package errors

import (
	"errors"
	"fmt"
)

// Code defines the type for error codes.
type Code string

const (
	// CodeFetchFailed indicates an upstream feed request failed (network,
	// HTTP status, or timeout). Recovered locally; the source is skipped
	// for the cycle.
	CodeFetchFailed Code = "fetch_failed"

	// CodeNormalizationFailed indicates a single payload item could not be
	// normalized (missing required field). The item is skipped and counted.
	CodeNormalizationFailed Code = "normalization_failed"

	// CodeDuplicateConflict indicates a unique-key insert raced a concurrent
	// duplicate. Treated as a successful dedup outcome, not a failure.
	CodeDuplicateConflict Code = "duplicate_conflict"

	// CodeScoringFailed indicates a record could not be scored this run.
	CodeScoringFailed Code = "scoring_failed"

	// CodePersistenceFailed indicates the store is unreachable or rejected a
	// write. Fatal for the current run.
	CodePersistenceFailed Code = "persistence_failed"

	// CodeInvalidConfig indicates a configuration-time error (e.g. an
	// unrecognized feed format tag).
	CodeInvalidConfig Code = "invalid_config"

	// CodeNotFound indicates a referenced entity does not exist.
	CodeNotFound Code = "not_found"

	// CodeConflict indicates a run-lock or state conflict (e.g. a stage run
	// is already in progress).
	CodeConflict Code = "conflict"

	// CodeInternal indicates an unexpected internal failure.
	CodeInternal Code = "internal"
)

// AppError is the structured application error carrying a code, a message and
// an optional wrapped cause.
type AppError struct {
	ErrCode Code
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.ErrCode, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.ErrCode, e.Message)
}

// Unwrap returns the underlying cause for errors.Is / errors.As chains.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Code returns the error code, or CodeInternal for foreign errors.
func (e *AppError) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.ErrCode
}

// New creates a new AppError with the given code and message.
func New(code Code, format string, args ...interface{}) *AppError {
	return &AppError{ErrCode: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with a code and message.
func Wrap(err error, code Code, format string, args ...interface{}) *AppError {
	return &AppError{ErrCode: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// CodeOf extracts the Code from an error chain, or CodeInternal if none.
func CodeOf(err error) Code {
	var app *AppError
	if errors.As(err, &app) {
		return app.ErrCode
	}
	return CodeInternal
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var app *AppError
	if errors.As(err, &app) {
		return app.ErrCode == code
	}
	return false
}

// IsDuplicateConflict reports whether err is a unique-key race, which the
// pipeline treats as "duplicate observed".
func IsDuplicateConflict(err error) bool {
	return HasCode(err, CodeDuplicateConflict)
}

// IsPersistenceFailure reports whether err means the store is unavailable,
// which aborts the current run.
func IsPersistenceFailure(err error) bool {
	return HasCode(err, CodePersistenceFailed)
}
