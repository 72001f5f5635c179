package llm

import "errors"

var (
	// ErrDisabled indicates no API key is configured; callers should use
	// the deterministic fallback.
	ErrDisabled = errors.New("llm disabled: no api key configured")

	// ErrUnavailable indicates the completion endpoint is unreachable.
	ErrUnavailable = errors.New("llm endpoint unavailable")

	// ErrTimeout indicates the request exceeded the configured timeout.
	ErrTimeout = errors.New("llm request timed out")

	// ErrInvalidOutput indicates the response could not be parsed into the
	// expected structured format.
	ErrInvalidOutput = errors.New("invalid llm output format")

	// ErrBadStatus indicates the endpoint returned a non-retryable HTTP error.
	ErrBadStatus = errors.New("llm endpoint returned error status")
)
