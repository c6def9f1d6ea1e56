package sascar

import (
	"errors"
	"fmt"
)

// ErrAuth indicates the feed rejected the configured credentials.
// Credentials do not self-heal, so callers must not retry with backoff.
var ErrAuth = errors.New("sascar: authentication rejected")

// TransientError wraps a failure worth retrying: network errors,
// timeouts, HTTP 5xx and rate-limit responses.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("sascar: transient failure in %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retryable feed failure.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}
