package core

import "testing"

func TestParseModelSelector(t *testing.T) {
	known := func(p string) bool {
		switch p {
		case "gemini", "deepseek", "groq", "openai":
			return true
		}
		return false
	}

	tests := []struct {
		name         string
		model        string
		provider     string
		wantModel    string
		wantProvider string
		wantErr      bool
	}{
		{
			name:         "plain model",
			model:        "deepseek-chat",
			wantModel:    "deepseek-chat",
			wantProvider: "",
		},
		{
			name:         "prefixed model",
			model:        "groq:llama-3.1-8b-instant",
			wantModel:    "llama-3.1-8b-instant",
			wantProvider: "groq",
		},
		{
			name:         "provider field normalized",
			model:        " gemini-2.0-flash ",
			provider:     "  GEMINI ",
			wantModel:    "gemini-2.0-flash",
			wantProvider: "gemini",
		},
		{
			name:         "unknown prefix is kept in the model",
			model:        "llama3:8b",
			provider:     "groq",
			wantModel:    "llama3:8b",
			wantProvider: "groq",
		},
		{
			name:         "provider only",
			provider:     "deepseek",
			wantModel:    "",
			wantProvider: "deepseek",
		},
		{
			name:     "provider conflict",
			model:    "groq:llama-3.1-8b-instant",
			provider: "deepseek",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseModelSelector(tt.model, tt.provider, known)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Model != tt.wantModel {
				t.Errorf("Model = %q, want %q", got.Model, tt.wantModel)
			}
			if got.Provider != tt.wantProvider {
				t.Errorf("Provider = %q, want %q", got.Provider, tt.wantProvider)
			}
		})
	}
}
