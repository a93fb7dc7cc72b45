// Package gemini provides Google Gemini API integration for the chat gateway.
// It speaks the native generateContent API rather than the OpenAI-compatible
// surface so that block reasons and usage metadata are available.
package gemini

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"zarachat/internal/core"
	"zarachat/internal/llmclient"
	"zarachat/internal/providers"
)

// Registration provides factory registration for the Gemini provider.
var Registration = providers.Registration{
	Type: providers.Gemini,
	New:  New,
}

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

// Provider implements the core.Provider interface for Google Gemini
type Provider struct {
	client *llmclient.Client
	apiKey string
}

// New creates a new Gemini provider.
func New(opts providers.ProviderOptions) core.Provider {
	return newProvider(opts)
}

func newProvider(opts providers.ProviderOptions) *Provider {
	p := &Provider{apiKey: opts.APIKey}
	cfg := llmclient.DefaultConfig(providers.Gemini, defaultBaseURL)
	cfg.Hooks = opts.Hooks
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	p.client = llmclient.NewWithHTTPClient(opts.HTTPClient, cfg, p.setHeaders)
	return p
}

// setHeaders authenticates with a header so the key never appears in URLs or access logs.
func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("x-goog-api-key", p.apiKey)

	if requestID := core.GetRequestID(req.Context()); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
}

func modelEndpoint(model, method string) string {
	model = strings.TrimPrefix(model, "models/")
	return "/models/" + url.PathEscape(model) + ":" + method
}

// Complete sends the conversation to generateContent.
func (p *Provider) Complete(ctx context.Context, req *core.CompletionRequest) (*core.Completion, error) {
	resp, err := p.client.DoRaw(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: modelEndpoint(req.Model, "generateContent"),
		Body:     buildRequest(req),
	})
	if err != nil {
		return nil, err
	}

	text, usage, err := parseResponse(resp.Body)
	if err != nil {
		return nil, err
	}
	return &core.Completion{Content: text, Model: req.Model, Usage: usage}, nil
}

// Stream calls streamGenerateContent in SSE mode. Each event carries the next
// slice of text; empty slices are skipped.
func (p *Provider) Stream(ctx context.Context, req *core.CompletionRequest) (*core.TextStream, error) {
	body, err := p.client.DoStream(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: modelEndpoint(req.Model, "streamGenerateContent") + "?alt=sse",
		Body:     buildRequest(req),
	})
	if err != nil {
		return nil, err
	}

	scanner := llmclient.NewSSEScanner(body)
	seq := func(yield func(string, error) bool) {
		for {
			data, err := scanner.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", core.NewUpstreamError(providers.Gemini, http.StatusBadGateway, "stream read failed: "+err.Error(), err))
				return
			}

			text, _, err := parseResponse([]byte(data))
			if err != nil {
				yield("", err)
				return
			}
			if text == "" {
				continue
			}
			if !yield(text, nil) {
				return
			}
		}
	}

	return core.NewTextStream(seq, body), nil
}
