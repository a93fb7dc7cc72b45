// Package compat implements the chat-completions REST dialect shared by
// DeepSeek, Groq and other OpenAI-style vendors.
package compat

import (
	"context"
	"net/http"

	"zarachat/internal/core"
	"zarachat/internal/llmclient"
	"zarachat/internal/providers"
)

const chatEndpoint = "/chat/completions"

// Config identifies one vendor speaking the compat dialect.
type Config struct {
	// Name is the provider name used in errors and metrics.
	Name string
	// BaseURL is the vendor's default API root; ProviderOptions.BaseURL overrides it.
	BaseURL string
}

// Provider is a core.Provider for a compat vendor.
type Provider struct {
	name   string
	client *llmclient.Client
	apiKey string
}

// New creates a compat provider.
func New(cfg Config, opts providers.ProviderOptions) *Provider {
	p := &Provider{name: cfg.Name, apiKey: opts.APIKey}

	clientCfg := llmclient.DefaultConfig(cfg.Name, cfg.BaseURL)
	clientCfg.Hooks = opts.Hooks
	if opts.BaseURL != "" {
		clientCfg.BaseURL = opts.BaseURL
	}
	p.client = llmclient.NewWithHTTPClient(opts.HTTPClient, clientCfg, p.setHeaders)
	return p
}

func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	if requestID := core.GetRequestID(req.Context()); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
}

// chatMessage carries only role and content; vendors in this dialect reject
// or ignore the remaining fields.
type chatMessage struct {
	Role    core.Role `json:"role"`
	Content string    `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

func buildRequest(req *core.CompletionRequest, stream bool) *chatRequest {
	msgs := make([]chatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, chatMessage{Role: m.Role, Content: m.Content})
	}
	return &chatRequest{
		Model:       req.Model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}
}

// Complete sends the conversation and returns choices[0].message.content.
func (p *Provider) Complete(ctx context.Context, req *core.CompletionRequest) (*core.Completion, error) {
	resp, err := p.client.DoRaw(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: chatEndpoint,
		Body:     buildRequest(req, false),
	})
	if err != nil {
		return nil, err
	}
	return ParseCompletion(p.name, resp.Body, req.Model)
}

// Stream requests an SSE reply and yields each delta's content.
func (p *Provider) Stream(ctx context.Context, req *core.CompletionRequest) (*core.TextStream, error) {
	body, err := p.client.DoStream(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: chatEndpoint,
		Body:     buildRequest(req, true),
	})
	if err != nil {
		return nil, err
	}
	return DeltaStream(p.name, body), nil
}
