package providers

import "slices"

// Known provider names.
const (
	Gemini   = "gemini"
	DeepSeek = "deepseek"
	Groq     = "groq"
	OpenAI   = "openai"
)

// catalogEntry describes what the gateway advertises for one provider.
type catalogEntry struct {
	name         string
	defaultModel string
	models       []string
}

// catalog is ordered; ListModels and KnownProviders preserve this order.
var catalog = []catalogEntry{
	{
		name:         Gemini,
		defaultModel: "gemini-1.5-flash",
		models:       []string{"gemini-2.0-flash", "gemini-1.5-pro", "gemini-1.5-flash"},
	},
	{
		name:         DeepSeek,
		defaultModel: "deepseek-chat",
		models:       []string{"deepseek-chat", "deepseek-coder"},
	},
	{
		name:         Groq,
		defaultModel: "llama-3.1-8b-instant",
		models:       []string{"llama-3.1-8b-instant", "llama-3.3-70b-versatile"},
	},
	{
		name:         OpenAI,
		defaultModel: "gpt-4o-mini",
		models:       []string{"gpt-4o-mini", "gpt-4o"},
	},
}

func lookup(name string) (catalogEntry, bool) {
	for _, e := range catalog {
		if e.name == name {
			return e, true
		}
	}
	return catalogEntry{}, false
}

// IsKnown reports whether name is a provider the gateway can route to.
// name must already be normalized.
func IsKnown(name string) bool {
	_, ok := lookup(name)
	return ok
}

// KnownProviders returns every routable provider name in catalog order.
func KnownProviders() []string {
	names := make([]string, 0, len(catalog))
	for _, e := range catalog {
		names = append(names, e.name)
	}
	return names
}

// DefaultModel returns the built-in default model for a provider, or "" if unknown.
func DefaultModel(name string) string {
	e, _ := lookup(name)
	return e.defaultModel
}

// ListModels returns the static provider → model ids map served by GET /models.
// The returned map and slices are copies.
func ListModels() map[string][]string {
	out := make(map[string][]string, len(catalog))
	for _, e := range catalog {
		out[e.name] = slices.Clone(e.models)
	}
	return out
}
