package chat

import "errors"

// Client-input error classes. Gateway-class failures (timeout, upstream,
// transport) are defined in the llm package and pass through Submit
// unwrapped so the boundary can match on them directly.
var (
	// ErrInvalidInput means role or text was missing from the submission.
	ErrInvalidInput = errors.New("chat: role and text are required")

	// ErrRateLimited means the admission controller denied the call before
	// any state was touched.
	ErrRateLimited = errors.New("chat: rate limit exceeded")

	// ErrInvalidPersonality means the referenced personality does not exist.
	ErrInvalidPersonality = errors.New("chat: personality not found")
)
