package gemini

import (
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"zarachat/internal/core"
	"zarachat/internal/providers"
)

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens *int    `json:"maxOutputTokens,omitempty"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

// geminiRole maps gateway roles onto Gemini's two-role model.
func geminiRole(role core.Role) string {
	if role == core.RoleAssistant {
		return "model"
	}
	return "user"
}

// buildRequest turns a conversation into history plus a final user turn.
func buildRequest(req *core.CompletionRequest) *generateRequest {
	contents := make([]content, 0, len(req.Messages))
	if n := len(req.Messages); n > 0 {
		for _, m := range req.Messages[:n-1] {
			contents = append(contents, content{
				Role:  geminiRole(m.Role),
				Parts: []part{{Text: m.Content}},
			})
		}
		contents = append(contents, content{
			Role:  "user",
			Parts: []part{{Text: req.Messages[n-1].Content}},
		})
	}

	return &generateRequest{
		Contents: contents,
		GenerationConfig: generationConfig{
			Temperature:     req.Temperature,
			TopP:            req.TopP,
			MaxOutputTokens: req.MaxTokens,
		},
	}
}

// parseResponse extracts reply text and usage from one GenerateContentResponse
// object. Streamed events share the same shape, so both modes use it.
func parseResponse(data []byte) (text string, usage map[string]any, err error) {
	if !gjson.ValidBytes(data) {
		return "", nil, core.NewUpstreamError(providers.Gemini, http.StatusBadGateway, "malformed response body: "+string(data), nil)
	}
	result := gjson.ParseBytes(data)

	// Streams report failures after the 200 as an in-band error object.
	if errVal := result.Get("error"); errVal.Exists() {
		return "", nil, core.NewUpstreamError(providers.Gemini, int(errVal.Get("code").Int()), errVal.Raw, nil)
	}

	if reason := result.Get("promptFeedback.blockReason").String(); reason != "" {
		return "", nil, core.NewUpstreamError(providers.Gemini, http.StatusBadRequest, "Gemini blocked: "+reason, nil)
	}

	var b strings.Builder
	for _, p := range result.Get("candidates.0.content.parts").Array() {
		b.WriteString(p.Get("text").String())
	}

	return b.String(), parseUsage(result.Get("usageMetadata")), nil
}

var usageFields = []struct {
	from string
	to   string
}{
	{"promptTokenCount", "prompt_tokens"},
	{"candidatesTokenCount", "completion_tokens"},
	{"totalTokenCount", "total_tokens"},
}

func parseUsage(meta gjson.Result) map[string]any {
	if !meta.IsObject() {
		return nil
	}
	usage := make(map[string]any, len(usageFields))
	for _, f := range usageFields {
		if v := meta.Get(f.from); v.Exists() {
			usage[f.to] = v.Int()
		}
	}
	if len(usage) == 0 {
		return nil
	}
	return usage
}
