package chat_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/companion-labs/companion/internal/companion/chat"
	"github.com/companion-labs/companion/internal/companion/llm"
	"github.com/companion-labs/companion/internal/companion/memory"
	"github.com/companion-labs/companion/internal/companion/store"
)

// fakeProvider is a scripted completion backend that records calls.
type fakeProvider struct {
	calls   int
	lastReq llm.CompletionRequest
	reply   string
	err     error
	delay   time.Duration
}

func (f *fakeProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.Completion, error) {
	f.calls++
	f.lastReq = req
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, llm.ErrTimeout
		case <-time.After(f.delay):
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Completion{Text: f.reply}, nil
}

// fakeResolver serves personalities from a map.
type fakeResolver struct {
	profiles map[int64]*store.Personality
}

func (f *fakeResolver) GetPersonality(ctx context.Context, id int64) (*store.Personality, error) {
	if p, ok := f.profiles[id]; ok {
		return p, nil
	}
	return nil, store.ErrNotFound
}

func newTestService(provider llm.Provider, cfg chat.Config) (*chat.Service, *memory.Log) {
	log := memory.NewLog(10)
	resolver := &fakeResolver{profiles: map[int64]*store.Personality{
		2: {ID: 2, Name: "Curious Owl"},
	}}
	return chat.NewService(log, provider, resolver, cfg), log
}

func submitReq(text string) chat.SubmitRequest {
	return chat.SubmitRequest{ClientKey: "10.0.0.1", Role: "user", Text: text}
}

func TestSubmit_Success(t *testing.T) {
	provider := &fakeProvider{reply: "hello there"}
	svc, log := newTestService(provider, chat.Config{})

	got, err := svc.Submit(context.Background(), submitReq("hi"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got.Reply != "hello there" {
		t.Errorf("reply: got %q", got.Reply)
	}

	// Both the inbound turn and the reply are recorded, in order.
	turns := log.Snapshot()
	if len(turns) != 2 {
		t.Fatalf("memory: got %d turns, want 2", len(turns))
	}
	if turns[0].Role != memory.RoleUser || turns[0].Text != "hi" {
		t.Errorf("inbound turn: got %+v", turns[0])
	}
	if turns[1].Role != memory.RoleAssistant || turns[1].Text != "hello there" {
		t.Errorf("reply turn: got %+v", turns[1])
	}
}

func TestSubmit_EmptyReplyIsValid(t *testing.T) {
	provider := &fakeProvider{reply: ""}
	svc, log := newTestService(provider, chat.Config{})

	got, err := svc.Submit(context.Background(), submitReq("hi"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got.Reply != "" {
		t.Errorf("reply: got %q, want empty", got.Reply)
	}
	if log.Len() != 2 {
		t.Errorf("memory: got %d turns, want 2 (empty reply still recorded)", log.Len())
	}
}

func TestSubmit_InvalidInputBeforeAnyMutation(t *testing.T) {
	provider := &fakeProvider{reply: "unused"}
	svc, log := newTestService(provider, chat.Config{})

	tests := []chat.SubmitRequest{
		{ClientKey: "10.0.0.1", Role: "", Text: "hi"},
		{ClientKey: "10.0.0.1", Role: "user", Text: ""},
	}
	for _, req := range tests {
		if _, err := svc.Submit(context.Background(), req); !errors.Is(err, chat.ErrInvalidInput) {
			t.Errorf("Submit(%+v): got %v, want ErrInvalidInput", req, err)
		}
	}

	if log.Len() != 0 {
		t.Errorf("memory mutated by rejected input: %d turns", log.Len())
	}
	if provider.calls != 0 {
		t.Errorf("gateway called for rejected input: %d calls", provider.calls)
	}
}

func TestSubmit_InvalidPersonalityShortCircuitsGateway(t *testing.T) {
	provider := &fakeProvider{reply: "unused"}
	svc, log := newTestService(provider, chat.Config{})

	missing := int64(999)
	req := submitReq("hi")
	req.PersonalityID = &missing

	_, err := svc.Submit(context.Background(), req)
	if !errors.Is(err, chat.ErrInvalidPersonality) {
		t.Fatalf("error: got %v, want ErrInvalidPersonality", err)
	}
	if provider.calls != 0 {
		t.Errorf("gateway was called despite invalid personality: %d calls", provider.calls)
	}
	// The inbound turn stays recorded; only the reply is missing.
	turns := log.Snapshot()
	if len(turns) != 1 || turns[0].Role != memory.RoleUser {
		t.Errorf("memory after rejection: got %+v, want just the inbound turn", turns)
	}
}

func TestSubmit_PersonalityFramingReachesGateway(t *testing.T) {
	provider := &fakeProvider{reply: "hoot"}
	svc, _ := newTestService(provider, chat.Config{})

	id := int64(2)
	req := submitReq("hi")
	req.PersonalityID = &id

	if _, err := svc.Submit(context.Background(), req); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	msgs := provider.lastReq.Messages
	if len(msgs) < 2 || msgs[0].Role != llm.RoleSystem {
		t.Fatalf("prompt sent upstream lacks system framing: %+v", msgs)
	}
}

func TestSubmit_TimeoutLeavesInboundWithoutReply(t *testing.T) {
	provider := &fakeProvider{reply: "too late", delay: time.Second}
	svc, log := newTestService(provider, chat.Config{UpstreamTimeout: time.Millisecond})

	start := time.Now()
	_, err := svc.Submit(context.Background(), submitReq("hi"))
	elapsed := time.Since(start)

	if !errors.Is(err, llm.ErrTimeout) {
		t.Fatalf("error: got %v, want ErrTimeout", err)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("Submit took %v; the timeout did not bound the call", elapsed)
	}

	turns := log.Snapshot()
	if len(turns) != 1 {
		t.Fatalf("memory after timeout: got %d turns, want 1", len(turns))
	}
	if turns[0].Role != memory.RoleUser || turns[0].Text != "hi" {
		t.Errorf("retained turn: got %+v, want the inbound user turn", turns[0])
	}
}

func TestSubmit_UpstreamErrorKeepsInboundTurn(t *testing.T) {
	provider := &fakeProvider{err: &llm.UpstreamError{StatusCode: 500, Detail: "boom"}}
	svc, log := newTestService(provider, chat.Config{})

	_, err := svc.Submit(context.Background(), submitReq("hi"))

	var upErr *llm.UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("error: got %v, want *UpstreamError", err)
	}
	if log.Len() != 1 {
		t.Errorf("memory after upstream failure: got %d turns, want 1 (inbound only)", log.Len())
	}
}

func TestSubmit_RateLimitedBeforeMutation(t *testing.T) {
	provider := &fakeProvider{reply: "ok"}
	svc, log := newTestService(provider, chat.Config{RateLimit: 2})

	for i := 0; i < 2; i++ {
		if _, err := svc.Submit(context.Background(), submitReq("hi")); err != nil {
			t.Fatalf("Submit %d: %v", i+1, err)
		}
	}

	before := log.Len()
	_, err := svc.Submit(context.Background(), submitReq("one too many"))
	if !errors.Is(err, chat.ErrRateLimited) {
		t.Fatalf("error: got %v, want ErrRateLimited", err)
	}
	if log.Len() != before {
		t.Errorf("memory mutated by rate-limited call: %d → %d turns", before, log.Len())
	}
	if provider.calls != 2 {
		t.Errorf("gateway calls: got %d, want 2 (denied call must not reach it)", provider.calls)
	}
	if svc.RetryAfter("10.0.0.1") <= 0 {
		t.Error("RetryAfter for exhausted client: got 0, want positive hint")
	}
}

func TestSubmit_ContextCapBoundsPrompt(t *testing.T) {
	provider := &fakeProvider{reply: "ok"}
	svc, _ := newTestService(provider, chat.Config{MaxContext: 3})

	for i := 0; i < 5; i++ {
		if _, err := svc.Submit(context.Background(), submitReq("msg")); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}

	// Only the capped recent slice is replayed, regardless of retention.
	if got := len(provider.lastReq.Messages); got != 3 {
		t.Errorf("prompt length: got %d, want 3", got)
	}
}
