package llm

import (
	"errors"
	"fmt"
)

// ErrMissingAPIKey signals that no provider API key is configured. It is
// fatal for the request and never retried.
var ErrMissingAPIKey = errors.New("llm: missing API key (set GEMINI_API_KEY)")

// UpstreamError wraps a failed call to the completion service: network
// errors, non-2xx responses and empty completions. It is surfaced to the
// caller with the upstream detail attached and is not retried
// automatically.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("llm: upstream call failed: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// MalformedResponseError means the model returned a body that is not
// parseable JSON at all. This is distinct from a parseable object with
// missing keys, which the normalizer handles by defaulting, and distinct
// from valid-but-empty results, which are a success.
type MalformedResponseError struct {
	Raw string // raw completion text, for diagnostics
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("llm: malformed model response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}
