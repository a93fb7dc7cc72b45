package providers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"zarachat/internal/core"
)

// ProviderSettings is the per-provider deployment configuration.
type ProviderSettings struct {
	APIKey  string
	BaseURL string
	// Model overrides the catalog default model when non-empty.
	Model string
}

// RouterConfig configures a Router.
type RouterConfig struct {
	DefaultProvider string
	Providers       map[string]ProviderSettings
}

// Route is the outcome of resolving a chat request to an adapter.
type Route struct {
	Provider string
	Model    string
	adapter  core.Provider
}

// StreamResult is a started stream together with the route that produced it.
type StreamResult struct {
	Provider string
	Model    string
	Stream   *core.TextStream
}

// Router validates chat requests, picks the provider and model, and dispatches
// to the matching adapter. Each request is attempted once; there is no fallback.
type Router struct {
	defaultProvider string
	settings        map[string]ProviderSettings
	adapters        map[string]core.Provider
}

// NewRouter builds one adapter per known provider that has both a credential
// and a registered constructor. Providers missing either are still routable
// and fail per request with a configuration error.
func NewRouter(factory *ProviderFactory, cfg RouterConfig) (*Router, error) {
	if factory == nil {
		return nil, fmt.Errorf("factory cannot be nil")
	}

	r := &Router{
		defaultProvider: normalizeProvider(cfg.DefaultProvider),
		settings:        make(map[string]ProviderSettings, len(cfg.Providers)),
		adapters:        make(map[string]core.Provider),
	}
	if r.defaultProvider == "" {
		r.defaultProvider = Gemini
	}

	for name, s := range cfg.Providers {
		name = normalizeProvider(name)
		s.APIKey = strings.TrimSpace(s.APIKey)
		r.settings[name] = s

		if !IsKnown(name) || s.APIKey == "" || !factory.Has(name) {
			continue
		}
		adapter, err := factory.Create(name, s.APIKey, s.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("create %s adapter: %w", name, err)
		}
		r.adapters[name] = adapter
	}

	return r, nil
}

// DefaultProvider returns the normalized provider used when a request names none.
func (r *Router) DefaultProvider() string {
	return r.defaultProvider
}

// Configured returns the providers that have a live adapter.
func (r *Router) Configured() []string {
	var names []string
	for _, name := range KnownProviders() {
		if _, ok := r.adapters[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// Resolve validates req and returns the route it would take without calling
// any adapter. Checks run in a fixed order: messages, provider, credential,
// adapter availability.
func (r *Router) Resolve(req *core.ChatRequest) (*Route, error) {
	if req == nil || !req.HasContent() {
		return nil, core.NewValidationError("messages cannot be empty")
	}

	sel, err := core.ParseModelSelector(req.Model, req.Provider, IsKnown)
	if err != nil {
		return nil, core.NewValidationError(err.Error())
	}

	provider := sel.Provider
	if provider == "" {
		provider = r.defaultProvider
	}
	if !IsKnown(provider) {
		return nil, core.NewValidationError("Unsupported provider: " + provider)
	}

	settings := r.settings[provider]
	if settings.APIKey == "" {
		return nil, core.NewMissingKeyError(provider)
	}

	adapter, ok := r.adapters[provider]
	if !ok {
		return nil, core.NewIntegrationUnavailableError(provider)
	}

	model := sel.Model
	if model == "" {
		model = strings.TrimSpace(settings.Model)
	}
	if model == "" {
		model = DefaultModel(provider)
	}

	return &Route{Provider: provider, Model: model, adapter: adapter}, nil
}

// Complete dispatches a non-streaming chat request and wraps the adapter's
// reply in the uniform response envelope.
func (r *Router) Complete(ctx context.Context, req *core.ChatRequest) (*core.ChatResponse, error) {
	route, err := r.Resolve(req)
	if err != nil {
		return nil, err
	}
	r.logDispatch(ctx, route, req, false)

	start := time.Now()
	completion, err := route.adapter.Complete(ctx, completionRequest(route, req))
	latency := time.Since(start)
	if err != nil {
		return nil, err
	}

	return &core.ChatResponse{
		Provider:  route.Provider,
		Model:     route.Model,
		Content:   completion.Content,
		Usage:     completion.Usage,
		LatencyMS: latency.Milliseconds(),
	}, nil
}

// Stream dispatches a streaming chat request. Upstream status errors are
// returned here, before any fragment is produced.
func (r *Router) Stream(ctx context.Context, req *core.ChatRequest) (*StreamResult, error) {
	route, err := r.Resolve(req)
	if err != nil {
		return nil, err
	}
	r.logDispatch(ctx, route, req, true)

	stream, err := route.adapter.Stream(ctx, completionRequest(route, req))
	if err != nil {
		return nil, err
	}
	return &StreamResult{Provider: route.Provider, Model: route.Model, Stream: stream}, nil
}

func (r *Router) logDispatch(ctx context.Context, route *Route, req *core.ChatRequest, stream bool) {
	slog.InfoContext(ctx, "dispatching chat request",
		"provider", route.Provider,
		"model", route.Model,
		"messages", len(req.Messages),
		"stream", stream,
		"request_id", core.GetRequestID(ctx),
		"session_id", core.GetSessionID(ctx),
	)
}

func completionRequest(route *Route, req *core.ChatRequest) *core.CompletionRequest {
	return &core.CompletionRequest{
		Messages:    req.Messages,
		Model:       route.Model,
		Temperature: req.EffectiveTemperature(),
		TopP:        req.EffectiveTopP(),
		MaxTokens:   req.MaxTokens,
	}
}

func normalizeProvider(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
