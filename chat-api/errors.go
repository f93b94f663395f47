package chatapi

import "errors"

var (
	// ErrMissingAPIKey means the upstream credential is absent; no network
	// call is attempted.
	ErrMissingAPIKey = errors.New("OPENROUTER_API_KEY not configured")

	// ErrIdleTimeout means the upstream stalled past the idle ceiling.
	ErrIdleTimeout = errors.New("upstream idle timeout")
)

// UpstreamError wraps an upstream connection or protocol failure.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return "upstream " + e.Op + ": " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
