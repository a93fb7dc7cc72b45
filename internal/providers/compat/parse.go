package compat

import (
	"errors"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"zarachat/internal/core"
	"zarachat/internal/llmclient"
)

// ParseCompletion extracts the reply from a chat-completions response body.
// requestedModel is used when the body does not name a model.
func ParseCompletion(provider string, body []byte, requestedModel string) (*core.Completion, error) {
	if !gjson.ValidBytes(body) {
		return nil, core.NewUpstreamError(provider, http.StatusBadGateway, "malformed response body: "+string(body), nil)
	}

	result := gjson.ParseBytes(body)
	choice := result.Get("choices.0")
	if !choice.Exists() {
		return nil, core.NewUpstreamError(provider, http.StatusBadGateway, "response has no choices: "+string(body), nil)
	}

	completion := &core.Completion{
		Content: choice.Get("message.content").String(),
		Model:   result.Get("model").String(),
	}
	if completion.Model == "" {
		completion.Model = requestedModel
	}
	if usage := result.Get("usage"); usage.IsObject() {
		if m, ok := usage.Value().(map[string]any); ok {
			completion.Usage = m
		}
	}
	return completion, nil
}

// DeltaStream adapts an OpenAI-style SSE body into a TextStream of
// choices[].delta.content fragments. Empty deltas are skipped; an error
// payload inside the stream ends it with an UpstreamError.
func DeltaStream(provider string, body io.ReadCloser) *core.TextStream {
	scanner := llmclient.NewSSEScanner(body)

	seq := func(yield func(string, error) bool) {
		for {
			data, err := scanner.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", core.NewUpstreamError(provider, http.StatusBadGateway, "stream read failed: "+err.Error(), err))
				return
			}

			if !gjson.Valid(data) {
				continue
			}
			event := gjson.Parse(data)
			if errVal := event.Get("error"); errVal.Exists() {
				yield("", core.NewUpstreamError(provider, http.StatusBadGateway, errVal.Raw, nil))
				return
			}

			for _, choice := range event.Get("choices").Array() {
				text := choice.Get("delta.content").String()
				if text == "" {
					continue
				}
				if !yield(text, nil) {
					return
				}
			}
		}
	}

	return core.NewTextStream(seq, body)
}
