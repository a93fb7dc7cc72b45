// Package providers selects and builds upstream provider adapters and routes
// chat requests to them.
package providers

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"zarachat/internal/core"
	"zarachat/internal/llmclient"
)

// ProviderOptions carries everything an adapter constructor needs.
type ProviderOptions struct {
	APIKey string
	// BaseURL overrides the adapter's built-in endpoint when non-empty.
	BaseURL string
	// HTTPClient is shared across adapters; nil means the adapter builds its own.
	HTTPClient *http.Client
	Hooks      llmclient.Hooks
}

// Registration binds a provider name to its adapter constructor.
// Each adapter package exports one as Registration.
type Registration struct {
	Type string
	New  func(opts ProviderOptions) core.Provider
}

// ProviderFactory manages adapter constructors and builds adapters with
// shared options (hooks, HTTP client) applied.
type ProviderFactory struct {
	mu         sync.RWMutex
	builders   map[string]func(ProviderOptions) core.Provider
	hooks      llmclient.Hooks
	httpClient *http.Client
}

// NewProviderFactory creates an empty factory.
func NewProviderFactory() *ProviderFactory {
	return &ProviderFactory{
		builders: make(map[string]func(ProviderOptions) core.Provider),
	}
}

// Add registers an adapter constructor. A later registration for the same
// type replaces the earlier one.
func (f *ProviderFactory) Add(reg Registration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[reg.Type] = reg.New
}

// SetHooks sets the observability hooks passed to every adapter built afterwards.
func (f *ProviderFactory) SetHooks(hooks llmclient.Hooks) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks = hooks
}

// SetHTTPClient sets the HTTP client shared by every adapter built afterwards.
func (f *ProviderFactory) SetHTTPClient(client *http.Client) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.httpClient = client
}

// Has reports whether an adapter is registered for providerType.
func (f *ProviderFactory) Has(providerType string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.builders[providerType]
	return ok
}

// Create builds an adapter for providerType.
func (f *ProviderFactory) Create(providerType, apiKey, baseURL string) (core.Provider, error) {
	f.mu.RLock()
	builder, ok := f.builders[providerType]
	opts := ProviderOptions{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		HTTPClient: f.httpClient,
		Hooks:      f.hooks,
	}
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown provider type: %s", providerType)
	}
	return builder(opts), nil
}

// ListRegistered returns the registered provider types, sorted.
func (f *ProviderFactory) ListRegistered() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]string, 0, len(f.builders))
	for t := range f.builders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
