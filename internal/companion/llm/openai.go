package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultOpenAIBase = "https://api.openai.com/v1"
	defaultModel      = "gpt-3.5-turbo"
	defaultMaxTokens  = 800

	// DefaultTemperature is applied when the request carries no explicit
	// temperature. Kept as a named constant because 0 is a valid value and
	// the zero-field fallback must not clobber it silently at call sites.
	DefaultTemperature = 0.7

	// DefaultTimeout bounds a single completion call when the caller's
	// context carries no deadline of its own.
	DefaultTimeout = 10 * time.Second
)

// OpenAIConfig configures the OpenAI-compatible client.
type OpenAIConfig struct {
	// APIKey is the bearer token for the API. Required.
	APIKey string
	// BaseURL overrides the API endpoint (useful for local models like
	// Ollama). Defaults to https://api.openai.com/v1.
	BaseURL string
	// Model is the default model when CompletionRequest.Model is empty.
	Model string
	// MaxTokens is the default output cap when the request leaves it zero.
	MaxTokens int
	// Temperature is the default sampling temperature. Nil means
	// DefaultTemperature.
	Temperature *float64
	// Timeout bounds each call when the caller's context has no deadline.
	Timeout time.Duration
}

// openAIClient implements Provider using the OpenAI chat completions API.
type openAIClient struct {
	cfg    OpenAIConfig
	client *http.Client
}

// NewOpenAI returns a Provider backed by the OpenAI (or compatible) API.
// The returned provider is safe for concurrent use.
func NewOpenAI(cfg OpenAIConfig) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenAIBase
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Temperature == nil {
		temp := DefaultTemperature
		cfg.Temperature = &temp
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	// Cancellation comes from the per-call context so the deadline and the
	// connection teardown stay coupled; no client-level timeout on top.
	return &openAIClient{cfg: cfg, client: &http.Client{}}
}

// --- wire types (subset of the OpenAI API) ---

type oaiRequest struct {
	Model       string       `json:"model"`
	Messages    []oaiMessage `json:"messages"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature float64      `json:"temperature"`
}

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiResponse struct {
	Model   string      `json:"model"`
	Choices []oaiChoice `json:"choices"`
}

type oaiChoice struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	// Text is the legacy flat completion field; some compatible backends
	// still answer with it instead of message.content.
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason"`
}

// Complete sends one chat completion request. See extractText for the reply
// extraction contract.
func (c *openAIClient) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	model := req.Model
	if model == "" {
		model = c.cfg.Model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxTokens
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = *c.cfg.Temperature
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	oaiMessages := make([]oaiMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		oaiMessages = append(oaiMessages, oaiMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	body := oaiRequest{
		Model:       model,
		Messages:    oaiMessages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/chat/completions",
		bytes.NewReader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("llm: create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyTransport(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Detail:     string(respBody),
		}
	}

	var oaiResp oaiResponse
	if err := json.Unmarshal(respBody, &oaiResp); err != nil {
		return nil, fmt.Errorf("llm: decode response: %w", err)
	}

	return &Completion{
		Text:  extractText(oaiResp),
		Model: oaiResp.Model,
	}, nil
}

// classifyTransport maps a request failure to the error taxonomy: deadline
// expiry is ErrTimeout, everything else is a TransportError.
func classifyTransport(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return &TransportError{Detail: err.Error()}
}

// extractText pulls the reply text out of an upstream response.
//
// Fallback order is part of the client contract:
//  1. choices[0].message.content (chat completions shape)
//  2. choices[0].text (legacy flat completions shape)
//  3. "" — a missing reply is an empty string, not an error.
func extractText(resp oaiResponse) string {
	if len(resp.Choices) == 0 {
		return ""
	}
	if resp.Choices[0].Message.Content != "" {
		return resp.Choices[0].Message.Content
	}
	return resp.Choices[0].Text
}
