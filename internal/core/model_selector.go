package core

import (
	"fmt"
	"strings"
)

// ModelSelector is a normalized provider/model routing selector.
// Model is the raw upstream model ID (without provider prefix) and may be
// empty, meaning "use the provider default".
type ModelSelector struct {
	Model    string
	Provider string
}

// ParseModelSelector normalizes provider/model routing input.
//
// Accepted forms:
//   - model only: "deepseek-chat"
//   - model with provider prefix: "groq:llama-3.1-8b-instant"
//   - explicit provider field: provider="groq", model="llama-3.1-8b-instant"
//
// A prefix is only split off when isProvider recognizes it, so model IDs that
// legitimately contain a colon pass through untouched. The provider is
// lowercased and trimmed. If provider is present in both places, values must match.
func ParseModelSelector(model, provider string, isProvider func(string) bool) (ModelSelector, error) {
	model = strings.TrimSpace(model)
	provider = strings.ToLower(strings.TrimSpace(provider))

	if prefix, rest, ok := strings.Cut(model, ":"); ok && isProvider != nil {
		prefix = strings.ToLower(strings.TrimSpace(prefix))
		rest = strings.TrimSpace(rest)
		if prefix != "" && isProvider(prefix) {
			if provider != "" && provider != prefix {
				return ModelSelector{}, fmt.Errorf("provider field %q conflicts with model prefix %q", provider, prefix)
			}
			provider = prefix
			model = rest
		}
	}

	return ModelSelector{
		Model:    model,
		Provider: provider,
	}, nil
}
