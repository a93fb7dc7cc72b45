package providers

import (
	"context"
	"net/http"
	"testing"

	"zarachat/internal/core"
	"zarachat/internal/llmclient"
)

func TestProviderFactory_Add(t *testing.T) {
	factory := NewProviderFactory()

	factory.Add(Registration{
		Type: "test-provider",
		New:  func(ProviderOptions) core.Provider { return &mockProvider{} },
	})

	registered := factory.ListRegistered()
	if len(registered) != 1 {
		t.Errorf("expected 1 registered provider, got %d", len(registered))
	}
	if registered[0] != "test-provider" {
		t.Errorf("expected 'test-provider', got %q", registered[0])
	}
	if !factory.Has("test-provider") {
		t.Error("expected Has to report the registered provider")
	}
}

func TestProviderFactory_Create_UnknownType(t *testing.T) {
	factory := NewProviderFactory()

	_, err := factory.Create("unknown-type", "test-key", "")
	if err == nil {
		t.Fatal("expected error for unknown provider type, got nil")
	}

	expectedMsg := "unknown provider type: unknown-type"
	if err.Error() != expectedMsg {
		t.Errorf("expected error message '%s', got '%s'", expectedMsg, err.Error())
	}
}

func TestProviderFactory_Create_PassesOptions(t *testing.T) {
	factory := NewProviderFactory()

	var got ProviderOptions
	factory.Add(Registration{
		Type: "mock",
		New: func(opts ProviderOptions) core.Provider {
			got = opts
			return &mockProvider{}
		},
	})

	client := &http.Client{}
	hookCalled := false
	factory.SetHTTPClient(client)
	factory.SetHooks(llmclient.Hooks{
		OnRequestStart: func(ctx context.Context, _ llmclient.RequestInfo) context.Context {
			hookCalled = true
			return ctx
		},
	})

	provider, err := factory.Create("mock", "test-key", "http://localhost:1234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider == nil {
		t.Fatal("expected provider to be created, got nil")
	}
	if got.APIKey != "test-key" || got.BaseURL != "http://localhost:1234" {
		t.Errorf("unexpected options: %+v", got)
	}
	if got.HTTPClient != client {
		t.Error("expected shared HTTP client to be passed through")
	}
	if got.Hooks.OnRequestStart == nil {
		t.Fatal("expected hooks to be passed through")
	}
	got.Hooks.OnRequestStart(context.Background(), llmclient.RequestInfo{})
	if !hookCalled {
		t.Error("expected the configured hook to be the one passed through")
	}
}

func TestProviderFactory_ListRegistered_Sorted(t *testing.T) {
	factory := NewProviderFactory()

	for _, name := range []string{"provider3", "provider1", "provider2"} {
		factory.Add(Registration{Type: name, New: func(ProviderOptions) core.Provider { return nil }})
	}

	registered := factory.ListRegistered()
	want := []string{"provider1", "provider2", "provider3"}
	if len(registered) != len(want) {
		t.Fatalf("expected %d registered providers, got %d", len(want), len(registered))
	}
	for i := range want {
		if registered[i] != want[i] {
			t.Errorf("registered[%d] = %q, want %q", i, registered[i], want[i])
		}
	}
}
