// Package llm defines the completion provider interface and the OpenAI
// client used by the chat service.
//
// The service builds a prompt sequence, then calls Complete exactly once
// per submission under a deadline context. Failure modes are distinguished
// by typed errors (see errors.go) so the HTTP boundary can map each class
// to its own status code.
package llm

import "context"

// Role is the role of a prompt message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in the prompt sequence sent upstream.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the input to a single completion call. Zero fields
// fall back to the client's configured defaults; nothing is hardcoded at
// call sites.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Completion is the normalized successful outcome of a completion call.
type Completion struct {
	// Text is the extracted reply. May be empty; an empty reply is not an
	// error and callers must handle it gracefully.
	Text string
	// Model is the model the upstream reports having used.
	Model string
}

// Provider is the interface all completion backends implement.
type Provider interface {
	// Complete sends the prompt sequence upstream and returns the reply.
	// Implementations must observe ctx cancellation promptly and abort the
	// in-flight network call when the deadline passes. Exactly one upstream
	// request is made per invocation; retries are the caller's decision.
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}
