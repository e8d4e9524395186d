// Package chat implements the conversation orchestration service: admission
// control, conversation memory bookkeeping, prompt assembly, and the
// timeout-bounded upstream completion call.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/companion-labs/companion/internal/companion/llm"
	"github.com/companion-labs/companion/internal/companion/memory"
	"github.com/companion-labs/companion/internal/companion/store"
)

// DefaultMaxContext is the default cap on how many recent turns are replayed
// upstream per submission, independent of total retained history.
const DefaultMaxContext = 40

// PersonalityResolver is the slice of the store the service needs.
type PersonalityResolver interface {
	GetPersonality(ctx context.Context, id int64) (*store.Personality, error)
}

// Config holds options for creating a Service.
type Config struct {
	// MaxContext caps the number of recent turns sent upstream.
	// Defaults to DefaultMaxContext when ≤ 0.
	MaxContext int
	// RateLimit is the admission ceiling per client key per minute.
	// Defaults to DefaultRateLimit when ≤ 0.
	RateLimit int
	// UpstreamTimeout bounds each completion call.
	// Defaults to llm.DefaultTimeout when ≤ 0.
	UpstreamTimeout time.Duration
}

// Service composes the admission controller, conversation memory, context
// builder, and completion gateway into the single submit operation.
type Service struct {
	log           *memory.Log
	provider      llm.Provider
	personalities PersonalityResolver
	limiter       *RateLimiter
	maxContext    int
	timeout       time.Duration
}

// NewService wires a Service from its collaborators. The memory log is
// constructed once at process start and shared by reference; the service
// never reaches for ambient globals.
func NewService(log *memory.Log, provider llm.Provider, personalities PersonalityResolver, cfg Config) *Service {
	maxContext := cfg.MaxContext
	if maxContext <= 0 {
		maxContext = DefaultMaxContext
	}
	timeout := cfg.UpstreamTimeout
	if timeout <= 0 {
		timeout = llm.DefaultTimeout
	}
	return &Service{
		log:           log,
		provider:      provider,
		personalities: personalities,
		limiter:       NewRateLimiter(cfg.RateLimit, time.Minute),
		maxContext:    maxContext,
		timeout:       timeout,
	}
}

// SubmitRequest is one inbound message.
type SubmitRequest struct {
	// ClientKey identifies the caller for admission control (network origin).
	ClientKey string
	// Role tags the inbound turn; usually "user".
	Role string
	// Text is the message body.
	Text string
	// PersonalityID optionally selects a persona profile. Nil means no
	// system framing is injected.
	PersonalityID *int64
}

// SubmitResult is the terminal outcome of a successful submission.
type SubmitResult struct {
	// Reply is the assistant's text. May be empty when the upstream returns
	// an empty completion; that is a valid outcome.
	Reply string
}

// Submit runs one message through the full pipeline: admission → validation
// → record inbound → resolve personality → build context → completion call
// → record reply.
//
// Admission and validation failures return before any state is touched. A
// rejected personality or a failed upstream call leaves the inbound turn in
// memory without a matching reply; that asymmetry is intentional — the user
// utterance is preserved even when no answer was produced.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if !s.limiter.Allow(req.ClientKey) {
		slog.Info("chat: submission rate limited", "client", req.ClientKey)
		return nil, ErrRateLimited
	}
	if req.Role == "" || req.Text == "" {
		return nil, ErrInvalidInput
	}

	s.log.Append(memory.Role(req.Role), req.Text)

	var profile *store.Personality
	if req.PersonalityID != nil {
		var err error
		profile, err = s.personalities.GetPersonality(ctx, *req.PersonalityID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidPersonality
		}
		if err != nil {
			return nil, err
		}
	}

	prompt := BuildContext(s.log.Recent(s.maxContext), profile)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	completion, err := s.provider.Complete(callCtx, llm.CompletionRequest{Messages: prompt})
	if err != nil {
		// Gateway-class errors pass through untouched; the inbound turn
		// stays recorded.
		return nil, err
	}

	s.log.Append(memory.RoleAssistant, completion.Text)

	return &SubmitResult{Reply: completion.Text}, nil
}

// RetryAfter reports how long the client must wait before its next
// submission can be admitted. Zero means it is admissible now.
func (s *Service) RetryAfter(clientKey string) time.Duration {
	return s.limiter.RetryAfter(clientKey)
}
