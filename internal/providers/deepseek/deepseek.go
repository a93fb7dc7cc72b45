// Package deepseek provides DeepSeek API integration for the chat gateway.
package deepseek

import (
	"zarachat/internal/core"
	"zarachat/internal/providers"
	"zarachat/internal/providers/compat"
)

// Registration provides factory registration for the DeepSeek provider.
var Registration = providers.Registration{
	Type: providers.DeepSeek,
	New:  New,
}

const defaultBaseURL = "https://api.deepseek.com/v1"

// New creates a new DeepSeek provider.
func New(opts providers.ProviderOptions) core.Provider {
	return compat.New(compat.Config{Name: providers.DeepSeek, BaseURL: defaultBaseURL}, opts)
}
