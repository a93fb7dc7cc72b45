// Package openai provides OpenAI API integration for the chat gateway.
package openai

import (
	"context"
	"net/http"
	"strings"

	"zarachat/internal/core"
	"zarachat/internal/llmclient"
	"zarachat/internal/providers"
	"zarachat/internal/providers/compat"
)

// Registration provides factory registration for the OpenAI provider.
var Registration = providers.Registration{
	Type: providers.OpenAI,
	New:  New,
}

const (
	defaultBaseURL = "https://api.openai.com/v1"
)

// Provider implements the core.Provider interface for OpenAI
type Provider struct {
	client *llmclient.Client
	apiKey string
}

// New creates a new OpenAI provider.
func New(opts providers.ProviderOptions) core.Provider {
	return newProvider(opts)
}

func newProvider(opts providers.ProviderOptions) *Provider {
	p := &Provider{apiKey: opts.APIKey}
	cfg := llmclient.DefaultConfig(providers.OpenAI, defaultBaseURL)
	cfg.Hooks = opts.Hooks
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	p.client = llmclient.NewWithHTTPClient(opts.HTTPClient, cfg, p.setHeaders)
	return p
}

// setHeaders sets the required headers for OpenAI API requests
func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	// OpenAI rejects X-Client-Request-Id values that are non-ASCII or over 512 bytes.
	if requestID := core.GetRequestID(req.Context()); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
		if isValidClientRequestID(requestID) {
			req.Header.Set("X-Client-Request-Id", requestID)
		}
	}
}

// isValidClientRequestID checks if the request ID is valid for OpenAI's X-Client-Request-Id header.
func isValidClientRequestID(id string) bool {
	if len(id) > 512 {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] > 127 {
			return false
		}
	}
	return true
}

// isOSeriesModel reports whether the model is an o-series reasoning model
// (o1, o3, o4) that requires max_completion_tokens and rejects sampling params.
func isOSeriesModel(model string) bool {
	m := strings.ToLower(model)
	return len(m) >= 2 && m[0] == 'o' && m[1] >= '0' && m[1] <= '9'
}

type chatMessage struct {
	Role       core.Role `json:"role"`
	Content    string    `json:"content"`
	Name       string    `json:"name,omitempty"`
	ToolCallID string    `json:"tool_call_id,omitempty"`
}

type chatRequest struct {
	Model               string        `json:"model"`
	Messages            []chatMessage `json:"messages"`
	Temperature         *float64      `json:"temperature,omitempty"`
	TopP                *float64      `json:"top_p,omitempty"`
	MaxTokens           *int          `json:"max_tokens,omitempty"`
	MaxCompletionTokens *int          `json:"max_completion_tokens,omitempty"`
	Stream              bool          `json:"stream,omitempty"`
}

// chatRequestBody converts a CompletionRequest into the wire body.
// Reasoning models get max_completion_tokens and no sampling parameters.
func chatRequestBody(req *core.CompletionRequest, stream bool) *chatRequest {
	msgs := make([]chatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, chatMessage{
			Role:       m.Role,
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		})
	}

	body := &chatRequest{
		Model:    req.Model,
		Messages: msgs,
		Stream:   stream,
	}
	if isOSeriesModel(req.Model) {
		body.MaxCompletionTokens = req.MaxTokens
		return body
	}

	temperature, topP := req.Temperature, req.TopP
	body.Temperature = &temperature
	body.TopP = &topP
	body.MaxTokens = req.MaxTokens
	return body
}

// Complete sends a chat completion request to OpenAI
func (p *Provider) Complete(ctx context.Context, req *core.CompletionRequest) (*core.Completion, error) {
	resp, err := p.client.DoRaw(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/chat/completions",
		Body:     chatRequestBody(req, false),
	})
	if err != nil {
		return nil, err
	}
	return compat.ParseCompletion(providers.OpenAI, resp.Body, req.Model)
}

// Stream starts a streamed chat completion and yields delta content.
func (p *Provider) Stream(ctx context.Context, req *core.CompletionRequest) (*core.TextStream, error) {
	body, err := p.client.DoStream(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/chat/completions",
		Body:     chatRequestBody(req, true),
	})
	if err != nil {
		return nil, err
	}
	return compat.DeltaStream(providers.OpenAI, body), nil
}
