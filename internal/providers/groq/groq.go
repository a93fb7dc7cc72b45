// Package groq provides Groq API integration for the chat gateway.
package groq

import (
	"zarachat/internal/core"
	"zarachat/internal/providers"
	"zarachat/internal/providers/compat"
)

// Registration provides factory registration for the Groq provider.
var Registration = providers.Registration{
	Type: providers.Groq,
	New:  New,
}

const defaultBaseURL = "https://api.groq.com/openai/v1"

// New creates a new Groq provider.
func New(opts providers.ProviderOptions) core.Provider {
	return compat.New(compat.Config{Name: providers.Groq, BaseURL: defaultBaseURL}, opts)
}
