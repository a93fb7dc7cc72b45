package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"zarachat/internal/core"
	"zarachat/internal/providers"
)

func TestNew(t *testing.T) {
	provider := newProvider(providers.ProviderOptions{APIKey: "test-api-key"})

	if provider.apiKey != "test-api-key" {
		t.Errorf("apiKey = %q, want %q", provider.apiKey, "test-api-key")
	}
	if provider.client.BaseURL() != defaultBaseURL {
		t.Errorf("BaseURL() = %q, want %q", provider.client.BaseURL(), defaultBaseURL)
	}
}

func TestNew_BaseURLOverride(t *testing.T) {
	provider := newProvider(providers.ProviderOptions{APIKey: "k", BaseURL: "http://proxy.local/v1"})

	if provider.client.BaseURL() != "http://proxy.local/v1" {
		t.Errorf("BaseURL() = %q, want override", provider.client.BaseURL())
	}
}

func testRequest(model string) *core.CompletionRequest {
	maxTokens := 50
	return &core.CompletionRequest{
		Messages: []core.Message{
			{Role: core.RoleSystem, Content: "You are helpful."},
			{Role: core.RoleUser, Content: "Weather?", Name: "bob"},
			{Role: core.RoleTool, Content: `{"temp":21}`, ToolCallID: "call_1"},
		},
		Model:       model,
		Temperature: 0.3,
		TopP:        0.8,
		MaxTokens:   &maxTokens,
	}
}

func TestComplete(t *testing.T) {
	tests := []struct {
		name          string
		statusCode    int
		responseBody  string
		expectedError bool
		wantContent   string
	}{
		{
			name:       "successful request",
			statusCode: http.StatusOK,
			responseBody: `{
				"id": "chatcmpl-123",
				"model": "gpt-4o-mini-2024-07-18",
				"choices": [{"index": 0, "message": {"role": "assistant", "content": "Sunny, 21C."}, "finish_reason": "stop"}],
				"usage": {"prompt_tokens": 10, "completion_tokens": 4, "total_tokens": 14}
			}`,
			wantContent: "Sunny, 21C.",
		},
		{
			name:          "API error",
			statusCode:    http.StatusUnauthorized,
			responseBody:  `{"error": {"message": "Invalid API key"}}`,
			expectedError: true,
		},
		{
			name:          "rate limit error",
			statusCode:    http.StatusTooManyRequests,
			responseBody:  `{"error": {"message": "Rate limit exceeded"}}`,
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var received map[string]any
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/chat/completions" {
					t.Errorf("Path = %q, want %q", r.URL.Path, "/chat/completions")
				}
				if got := r.Header.Get("Authorization"); got != "Bearer test-api-key" {
					t.Errorf("Authorization = %q", got)
				}
				body, _ := io.ReadAll(r.Body)
				_ = json.Unmarshal(body, &received)
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.responseBody))
			}))
			defer server.Close()

			provider := New(providers.ProviderOptions{APIKey: "test-api-key", BaseURL: server.URL})
			resp, err := provider.Complete(context.Background(), testRequest("gpt-4o-mini"))

			if tt.expectedError {
				var gwErr *core.GatewayError
				if !errors.As(err, &gwErr) {
					t.Fatalf("expected GatewayError, got %v", err)
				}
				if gwErr.HTTPStatusCode() != tt.statusCode {
					t.Errorf("status = %d, want %d", gwErr.HTTPStatusCode(), tt.statusCode)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.Content != tt.wantContent {
				t.Errorf("Content = %q, want %q", resp.Content, tt.wantContent)
			}
			if resp.Model != "gpt-4o-mini-2024-07-18" {
				t.Errorf("Model = %q", resp.Model)
			}
			if resp.Usage["total_tokens"] != float64(14) {
				t.Errorf("Usage = %v", resp.Usage)
			}

			if received["top_p"] != 0.8 || received["temperature"] != 0.3 || received["max_tokens"] != float64(50) {
				t.Errorf("unexpected sampling params: %v", received)
			}
			msgs := received["messages"].([]any)
			if len(msgs) != 3 {
				t.Fatalf("len(messages) = %d, want 3", len(msgs))
			}
			user := msgs[1].(map[string]any)
			if user["name"] != "bob" {
				t.Errorf("name not passed through: %v", user)
			}
			tool := msgs[2].(map[string]any)
			if tool["role"] != "tool" || tool["tool_call_id"] != "call_1" {
				t.Errorf("tool message not passed through: %v", tool)
			}
		})
	}
}

func TestComplete_OSeriesModel(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"thought"}}]}`))
	}))
	defer server.Close()

	provider := New(providers.ProviderOptions{APIKey: "k", BaseURL: server.URL})
	if _, err := provider.Complete(context.Background(), testRequest("o3-mini")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := received["temperature"]; ok {
		t.Error("temperature should be omitted for o-series models")
	}
	if _, ok := received["max_tokens"]; ok {
		t.Error("max_tokens should be omitted for o-series models")
	}
	if received["max_completion_tokens"] != float64(50) {
		t.Errorf("max_completion_tokens = %v, want 50", received["max_completion_tokens"])
	}
}

func TestStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"stream":true`) {
			t.Errorf("stream flag missing: %s", body)
		}
		if r.Header.Get("X-Client-Request-Id") != "req-1" {
			t.Errorf("X-Client-Request-Id = %q", r.Header.Get("X-Client-Request-Id"))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: {\"choices\":[{\"index\":0,\"delta\":{\"role\":\"assistant\",\"content\":\"\"}}]}\n\n"))
		_, _ = w.Write([]byte("data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"Sun\"}}]}\n\n"))
		_, _ = w.Write([]byte("data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"ny\"}}]}\n\n"))
		_, _ = w.Write([]byte("data: {\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n"))
		_, _ = w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer server.Close()

	provider := New(providers.ProviderOptions{APIKey: "k", BaseURL: server.URL})
	ctx := core.WithRequestID(context.Background(), "req-1")
	stream, err := provider.Stream(ctx, testRequest("gpt-4o-mini"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var chunks []string
	for chunk, err := range stream.Chunks() {
		if err != nil {
			t.Fatalf("unexpected stream error: %v", err)
		}
		chunks = append(chunks, chunk)
	}
	if strings.Join(chunks, "|") != "Sun|ny" {
		t.Errorf("chunks = %v", chunks)
	}
}

func TestIsValidClientRequestID(t *testing.T) {
	if !isValidClientRequestID("abc-123") {
		t.Error("expected ASCII id to be valid")
	}
	if isValidClientRequestID("héllo") {
		t.Error("expected non-ASCII id to be invalid")
	}
	if isValidClientRequestID(strings.Repeat("a", 513)) {
		t.Error("expected oversized id to be invalid")
	}
}
