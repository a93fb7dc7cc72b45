package core

import "strings"

// Role identifies the author of a message in a conversation.
type Role string

// Supported message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Default sampling parameters applied when a request omits them.
const (
	DefaultTemperature = 0.7
	DefaultTopP        = 1.0
)

// Message represents a single turn in a conversation.
// Messages are treated as immutable once constructed.
type Message struct {
	Role       Role           `json:"role" validate:"required,oneof=system user assistant tool"`
	Content    string         `json:"content"`
	Name       string         `json:"name,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ChatRequest is the client-facing chat request accepted by the gateway.
type ChatRequest struct {
	SessionID   string    `json:"session_id"`
	Messages    []Message `json:"messages" validate:"dive"`
	Provider    string    `json:"provider,omitempty"`
	Model       string    `json:"model,omitempty"`
	Temperature *float64  `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	MaxTokens   *int      `json:"max_tokens,omitempty" validate:"omitempty,gte=1"`
	TopP        *float64  `json:"top_p,omitempty" validate:"omitempty,gte=0,lte=1"`
	Stream      bool      `json:"stream,omitempty"`
}

// Normalize fills in what clients may leave out. A message without a role
// is from the user, and a max_tokens of zero means no limit was requested.
func (r *ChatRequest) Normalize() {
	for i := range r.Messages {
		if r.Messages[i].Role == "" {
			r.Messages[i].Role = RoleUser
		}
	}
	if r.MaxTokens != nil && *r.MaxTokens == 0 {
		r.MaxTokens = nil
	}
}

// EffectiveTemperature returns the requested temperature or DefaultTemperature.
func (r *ChatRequest) EffectiveTemperature() float64 {
	if r.Temperature == nil {
		return DefaultTemperature
	}
	return *r.Temperature
}

// EffectiveTopP returns the requested top_p or DefaultTopP.
func (r *ChatRequest) EffectiveTopP() float64 {
	if r.TopP == nil {
		return DefaultTopP
	}
	return *r.TopP
}

// HasContent reports whether at least one message carries non-blank content.
func (r *ChatRequest) HasContent() bool {
	for _, m := range r.Messages {
		if strings.TrimSpace(m.Content) != "" {
			return true
		}
	}
	return false
}

// ChatResponse is the uniform envelope returned for a non-streaming chat request.
type ChatResponse struct {
	Provider  string         `json:"provider"`
	Model     string         `json:"model"`
	Content   string         `json:"content"`
	Usage     map[string]any `json:"usage,omitempty"`
	LatencyMS int64          `json:"latency_ms"`
}

// ChatChunk is one server-sent fragment of a streamed reply.
type ChatChunk struct {
	SessionID string `json:"session_id"`
	Delta     string `json:"delta"`
	Done      bool   `json:"done"`
}

// CompletionRequest is what the router hands to a provider adapter.
// Model is always resolved by the time an adapter sees it.
type CompletionRequest struct {
	Messages    []Message
	Model       string
	Temperature float64
	TopP        float64
	MaxTokens   *int
}

// Completion is an adapter's normalized reply.
type Completion struct {
	Content string
	Model   string
	Usage   map[string]any
}
