package ai

import (
	"fmt"
	"time"

	"nexus/pkg/errors"
)

// RateLimitError is returned when the provider rejects a request with a
// rate limit. RetryAfter carries the server-suggested delay when the
// response included one, zero otherwise. The retry policy lives in the
// Invoker, not in callers: they only need errors.Is(err, ErrRateLimited).
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
	Err        error
}

// Error implements the error interface
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: rate limited, retry after %s", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("%s: rate limited", e.Provider)
}

// Unwrap ties the error into the sentinel taxonomy.
func (e *RateLimitError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return errors.ErrRateLimited
}

// Is reports rate-limit identity regardless of the wrapped cause.
func (e *RateLimitError) Is(target error) bool {
	return target == errors.ErrRateLimited
}
