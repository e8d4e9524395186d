package llm

import (
	"errors"
	"fmt"
)

// ErrTimeout is returned when the upstream call exceeds its deadline.
// The underlying HTTP request is cancelled, not abandoned.
var ErrTimeout = errors.New("llm: upstream call timed out")

// UpstreamError means the provider answered with a non-2xx status.
// Detail carries the raw upstream error body for diagnostics; redact and
// truncate it before surfacing outside the process.
type UpstreamError struct {
	StatusCode int
	Detail     string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("llm: upstream error (status %d)", e.StatusCode)
}

// TransportError means the request failed before any upstream response was
// obtained (DNS, connect, TLS, broken pipe).
type TransportError struct {
	Detail string
}

func (e *TransportError) Error() string {
	return "llm: transport error: " + e.Detail
}
