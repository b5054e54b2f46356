package errors

import (
	"errors"
	"fmt"
)

// Generic error types

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")
)

// Analysis pipeline errors
//
// The failure taxonomy of a run: ErrRateLimited is recoverable (retry with
// backoff, bounded attempts), ErrModelFailure is terminal for a single
// invocation, ErrDataUnavailable and ErrMemoryUnavailable degrade the
// affected step only, ErrRunAborted marks a run that terminated mid-debate.
// Unparseable model output has no sentinel: it is recovered in place by the
// signal extractor fallback chain before any error could surface.

var (
	// ErrRateLimited indicates the LLM provider rejected the request with a rate limit
	ErrRateLimited = errors.New("rate limited by provider")

	// ErrModelFailure indicates the LLM call failed for a non-recoverable reason
	ErrModelFailure = errors.New("model invocation failed")

	// ErrDataUnavailable indicates a data tool returned nothing usable
	ErrDataUnavailable = errors.New("market data unavailable")

	// ErrMemoryUnavailable indicates the memory store could not be queried
	ErrMemoryUnavailable = errors.New("memory store unavailable")

	// ErrRetriesExhausted indicates the invocation retry budget was spent
	ErrRetriesExhausted = errors.New("retry budget exhausted")

	// ErrRunAborted indicates the analysis run terminated before completion
	ErrRunAborted = errors.New("analysis run aborted")
)

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Join combines errors so Is matches any of them
func Join(errs ...error) error {
	return errors.Join(errs...)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
