package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zarachat/internal/core"
)

// mockProvider records calls and returns canned results.
type mockProvider struct {
	completeCalls int
	streamCalls   int
	lastReq       *core.CompletionRequest
	content       string
	fragments     []string
	err           error
}

func (m *mockProvider) Complete(_ context.Context, req *core.CompletionRequest) (*core.Completion, error) {
	m.completeCalls++
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &core.Completion{Content: m.content, Model: req.Model, Usage: map[string]any{"total_tokens": 3}}, nil
}

func (m *mockProvider) Stream(_ context.Context, req *core.CompletionRequest) (*core.TextStream, error) {
	m.streamCalls++
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return core.NewStaticStream(m.fragments...), nil
}

func (m *mockProvider) calls() int {
	return m.completeCalls + m.streamCalls
}

// newTestRouter registers the same mock for every known provider and
// configures keys only for the providers listed in keys.
func newTestRouter(t *testing.T, mock *mockProvider, defaultProvider string, keys ...string) *Router {
	t.Helper()
	factory := NewProviderFactory()
	for _, name := range KnownProviders() {
		factory.Add(Registration{Type: name, New: func(ProviderOptions) core.Provider { return mock }})
	}
	settings := make(map[string]ProviderSettings)
	for _, k := range keys {
		settings[k] = ProviderSettings{APIKey: "key-" + k}
	}
	router, err := NewRouter(factory, RouterConfig{DefaultProvider: defaultProvider, Providers: settings})
	require.NoError(t, err)
	return router
}

func userRequest(content string) *core.ChatRequest {
	return &core.ChatRequest{
		SessionID: "s1",
		Messages:  []core.Message{{Role: core.RoleUser, Content: content}},
	}
}

func requireGatewayError(t *testing.T, err error, wantType core.ErrorType, wantStatus int, wantMsg string) {
	t.Helper()
	var gwErr *core.GatewayError
	require.True(t, errors.As(err, &gwErr), "expected GatewayError, got %v", err)
	assert.Equal(t, wantType, gwErr.Type)
	assert.Equal(t, wantStatus, gwErr.HTTPStatusCode())
	assert.Equal(t, wantMsg, gwErr.Message)
}

func TestRouter_Complete_DefaultModel(t *testing.T) {
	mock := &mockProvider{content: "hello back"}
	router := newTestRouter(t, mock, "gemini", Gemini)

	resp, err := router.Complete(context.Background(), userRequest("hi"))
	require.NoError(t, err)

	assert.Equal(t, Gemini, resp.Provider)
	assert.Equal(t, "gemini-1.5-flash", resp.Model)
	assert.Equal(t, "hello back", resp.Content)
	assert.GreaterOrEqual(t, resp.LatencyMS, int64(0))
	assert.Equal(t, 1, mock.completeCalls)
	assert.Equal(t, core.DefaultTemperature, mock.lastReq.Temperature)
	assert.Equal(t, core.DefaultTopP, mock.lastReq.TopP)
	assert.Nil(t, mock.lastReq.MaxTokens)
}

func TestRouter_Complete_ModelOverride(t *testing.T) {
	mock := &mockProvider{content: "ok"}
	router := newTestRouter(t, mock, "gemini", Groq)

	temp := 0.2
	maxTokens := 64
	req := userRequest("hi")
	req.Provider = "  GROQ "
	req.Model = " llama-3.3-70b-versatile "
	req.Temperature = &temp
	req.MaxTokens = &maxTokens

	resp, err := router.Complete(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, Groq, resp.Provider)
	assert.Equal(t, "llama-3.3-70b-versatile", resp.Model)
	assert.Equal(t, "llama-3.3-70b-versatile", mock.lastReq.Model)
	assert.Equal(t, 0.2, mock.lastReq.Temperature)
	require.NotNil(t, mock.lastReq.MaxTokens)
	assert.Equal(t, 64, *mock.lastReq.MaxTokens)
}

func TestRouter_Complete_ConfiguredModelBeatsCatalog(t *testing.T) {
	mock := &mockProvider{content: "ok"}
	factory := NewProviderFactory()
	factory.Add(Registration{Type: OpenAI, New: func(ProviderOptions) core.Provider { return mock }})
	router, err := NewRouter(factory, RouterConfig{
		DefaultProvider: "openai",
		Providers:       map[string]ProviderSettings{OpenAI: {APIKey: "k", Model: "gpt-4o"}},
	})
	require.NoError(t, err)

	resp, err := router.Complete(context.Background(), userRequest("hi"))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", resp.Model)
}

func TestRouter_Complete_ModelPrefixSelectsProvider(t *testing.T) {
	mock := &mockProvider{content: "ok"}
	router := newTestRouter(t, mock, "gemini", DeepSeek)

	req := userRequest("hi")
	req.Model = "deepseek:deepseek-coder"

	resp, err := router.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, DeepSeek, resp.Provider)
	assert.Equal(t, "deepseek-coder", resp.Model)
}

func TestRouter_ContentRoundTrip(t *testing.T) {
	content := "  exact\ncontent with trailing space  "
	mock := &mockProvider{content: content}
	router := newTestRouter(t, mock, "openai", OpenAI)

	resp, err := router.Complete(context.Background(), userRequest("hi"))
	require.NoError(t, err)
	assert.Equal(t, content, resp.Content)
}

func TestRouter_LogsRequestAndSessionIDs(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	router := newTestRouter(t, &mockProvider{content: "ok"}, "groq", Groq)
	ctx := core.WithSessionID(core.WithRequestID(context.Background(), "req-1"), "sess-1")

	_, err := router.Complete(ctx, userRequest("hi"))
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record), buf.String())
	assert.Equal(t, "dispatching chat request", record["msg"])
	assert.Equal(t, "req-1", record["request_id"])
	assert.Equal(t, "sess-1", record["session_id"])
}

func TestRouter_EmptyMessages(t *testing.T) {
	tests := []struct {
		name     string
		messages []core.Message
	}{
		{"nil", nil},
		{"empty", []core.Message{}},
		{"blank", []core.Message{{Role: core.RoleUser, Content: "   "}, {Role: core.RoleUser, Content: "\n"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockProvider{}
			// groq has no key: the empty messages error must win.
			router := newTestRouter(t, mock, "gemini")

			req := &core.ChatRequest{Messages: tt.messages, Provider: "groq"}
			_, err := router.Complete(context.Background(), req)
			requireGatewayError(t, err, core.ErrorTypeInvalidRequest, http.StatusBadRequest, "messages cannot be empty")

			_, err = router.Stream(context.Background(), req)
			requireGatewayError(t, err, core.ErrorTypeInvalidRequest, http.StatusBadRequest, "messages cannot be empty")

			assert.Equal(t, 0, mock.calls())
		})
	}
}

func TestRouter_MissingKey(t *testing.T) {
	mock := &mockProvider{}
	router := newTestRouter(t, mock, "gemini", Gemini)

	req := userRequest("hi")
	req.Provider = "deepseek"

	_, err := router.Complete(context.Background(), req)
	requireGatewayError(t, err, core.ErrorTypeConfiguration, http.StatusBadRequest, "Missing API key for provider: deepseek")
	assert.Equal(t, 0, mock.calls())
}

func TestRouter_UnsupportedProvider(t *testing.T) {
	mock := &mockProvider{}
	router := newTestRouter(t, mock, "gemini", Gemini)

	req := userRequest("hi")
	req.Provider = "Bogus"

	_, err := router.Complete(context.Background(), req)
	requireGatewayError(t, err, core.ErrorTypeInvalidRequest, http.StatusBadRequest, "Unsupported provider: bogus")
	assert.Equal(t, 0, mock.calls())
}

func TestRouter_UnsupportedDefaultProvider(t *testing.T) {
	router := newTestRouter(t, &mockProvider{}, "anthropic")

	_, err := router.Complete(context.Background(), userRequest("hi"))
	requireGatewayError(t, err, core.ErrorTypeInvalidRequest, http.StatusBadRequest, "Unsupported provider: anthropic")
}

func TestRouter_IntegrationUnavailable(t *testing.T) {
	router, err := NewRouter(NewProviderFactory(), RouterConfig{
		DefaultProvider: "groq",
		Providers:       map[string]ProviderSettings{Groq: {APIKey: "k"}},
	})
	require.NoError(t, err)

	_, err = router.Complete(context.Background(), userRequest("hi"))
	requireGatewayError(t, err, core.ErrorTypeConfiguration, http.StatusInternalServerError, "provider integration not available: groq")
}

func TestRouter_ProviderConflict(t *testing.T) {
	router := newTestRouter(t, &mockProvider{}, "gemini", Gemini, Groq)

	req := userRequest("hi")
	req.Provider = "gemini"
	req.Model = "groq:llama-3.1-8b-instant"

	_, err := router.Complete(context.Background(), req)
	var gwErr *core.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, core.ErrorTypeInvalidRequest, gwErr.Type)
}

func TestRouter_AdapterErrorPassesThrough(t *testing.T) {
	upstream := core.NewUpstreamError("groq", http.StatusTooManyRequests, `{"error":"slow down"}`, nil)
	mock := &mockProvider{err: upstream}
	router := newTestRouter(t, mock, "groq", Groq)

	_, err := router.Complete(context.Background(), userRequest("hi"))
	assert.Same(t, upstream, err)
	assert.Equal(t, 1, mock.completeCalls)
}

func TestRouter_Stream(t *testing.T) {
	mock := &mockProvider{fragments: []string{"Hel", "lo", "!"}}
	router := newTestRouter(t, mock, "gemini", Gemini)

	result, err := router.Stream(context.Background(), userRequest("hi"))
	require.NoError(t, err)
	assert.Equal(t, Gemini, result.Provider)
	assert.Equal(t, "gemini-1.5-flash", result.Model)

	text, err := result.Stream.Collect()
	require.NoError(t, err)
	assert.Equal(t, "Hello!", text)
	assert.Equal(t, 1, mock.streamCalls)
}

func TestRouter_Configured(t *testing.T) {
	router := newTestRouter(t, &mockProvider{}, "gemini", OpenAI, Gemini)
	assert.Equal(t, []string{Gemini, OpenAI}, router.Configured())
	assert.Equal(t, Gemini, router.DefaultProvider())
}

func TestNewRouter_NilFactory(t *testing.T) {
	_, err := NewRouter(nil, RouterConfig{})
	assert.Error(t, err)
}
