// Package llmclient provides the shared HTTP client used by provider adapters:
//   - JSON request marshaling
//   - upstream error mapping that preserves status code and raw body
//   - streaming requests that hand back the open body
//   - request lifecycle hooks for metrics
//
// Requests are attempted exactly once; there is no retry or fallback.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"zarachat/internal/core"
	"zarachat/internal/httpclient"
)

// Config holds configuration for the LLM client
type Config struct {
	// ProviderName identifies the provider for error messages and metrics
	ProviderName string

	// BaseURL is the API base URL
	BaseURL string

	// Hooks observe each upstream request; zero value disables them
	Hooks Hooks
}

// DefaultConfig returns client configuration with no hooks.
func DefaultConfig(providerName, baseURL string) Config {
	return Config{
		ProviderName: providerName,
		BaseURL:      baseURL,
	}
}

// HeaderSetter is a function that sets headers on an HTTP request
type HeaderSetter func(req *http.Request)

// Client is a base HTTP client for LLM providers
type Client struct {
	httpClient   *http.Client
	config       Config
	headerSetter HeaderSetter
}

// NewWithHTTPClient creates a new LLM client with a custom HTTP client.
// If httpClient is nil, a default client is created.
func NewWithHTTPClient(httpClient *http.Client, config Config, headerSetter HeaderSetter) *Client {
	if httpClient == nil {
		httpClient = httpclient.NewHTTPClient(nil)
	}
	return &Client{
		httpClient:   httpClient,
		config:       config,
		headerSetter: headerSetter,
	}
}

// BaseURL returns the current base URL
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Request represents an HTTP request to be made
type Request struct {
	Method   string
	Endpoint string
	Body     any // Will be JSON marshaled if not nil
}

// Response represents an HTTP response
type Response struct {
	StatusCode int
	Body       []byte
}

// DoRaw executes a request and returns the raw response body.
// Any status >= 400 becomes an UpstreamError carrying the upstream status and body.
func (c *Client) DoRaw(ctx context.Context, req Request) (*Response, error) {
	ctx, info := c.start(ctx, req, false)
	start := time.Now()

	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		c.end(ctx, info, 0, start, err)
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		gwErr := c.transportError(err)
		c.end(ctx, info, 0, start, gwErr)
		return nil, gwErr
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		gwErr := core.NewUpstreamError(c.config.ProviderName, http.StatusBadGateway, "failed to read response: "+err.Error(), err)
		c.end(ctx, info, resp.StatusCode, start, gwErr)
		return nil, gwErr
	}

	if resp.StatusCode >= http.StatusBadRequest {
		gwErr := core.ParseProviderError(c.config.ProviderName, resp.StatusCode, body, nil)
		c.end(ctx, info, resp.StatusCode, start, gwErr)
		return nil, gwErr
	}

	c.end(ctx, info, resp.StatusCode, start, nil)
	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
	}, nil
}

// DoStream executes a streaming request, returning the open body (caller must close).
// The status is checked before returning so failures surface as errors, not stream content.
func (c *Client) DoStream(ctx context.Context, req Request) (io.ReadCloser, error) {
	ctx, info := c.start(ctx, req, true)
	start := time.Now()

	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		c.end(ctx, info, 0, start, err)
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		gwErr := c.transportError(err)
		c.end(ctx, info, 0, start, gwErr)
		return nil, gwErr
	}

	if resp.StatusCode >= http.StatusBadRequest {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			respBody = []byte("failed to read error response")
		}
		_ = resp.Body.Close()

		gwErr := core.ParseProviderError(c.config.ProviderName, resp.StatusCode, respBody, nil)
		c.end(ctx, info, resp.StatusCode, start, gwErr)
		return nil, gwErr
	}

	c.end(ctx, info, resp.StatusCode, start, nil)
	return resp.Body, nil
}

// transportError maps a failed round trip to an UpstreamError.
// Timeouts report 504 so callers can tell them apart from refused connections.
func (c *Client) transportError(err error) *core.GatewayError {
	status := http.StatusBadGateway
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		status = http.StatusGatewayTimeout
	}
	return core.NewUpstreamError(c.config.ProviderName, status, "failed to send request: "+err.Error(), err)
}

// buildRequest creates an HTTP request from a Request
func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	url := c.config.BaseURL + req.Endpoint

	var bodyReader io.Reader
	if req.Body != nil {
		bodyBytes, err := json.Marshal(req.Body)
		if err != nil {
			return nil, core.NewValidationError("failed to marshal request: " + err.Error())
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, bodyReader)
	if err != nil {
		return nil, core.NewUpstreamError(c.config.ProviderName, http.StatusInternalServerError, "failed to create request: "+err.Error(), err)
	}

	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	// Provider-specific headers (auth, request id)
	if c.headerSetter != nil {
		c.headerSetter(httpReq)
	}

	return httpReq, nil
}

func (c *Client) start(ctx context.Context, req Request, stream bool) (context.Context, RequestInfo) {
	info := RequestInfo{
		Provider: c.config.ProviderName,
		Method:   req.Method,
		Endpoint: req.Endpoint,
		Stream:   stream,
	}
	if c.config.Hooks.OnRequestStart != nil {
		ctx = c.config.Hooks.OnRequestStart(ctx, info)
	}
	return ctx, info
}

func (c *Client) end(ctx context.Context, info RequestInfo, status int, start time.Time, err error) {
	if c.config.Hooks.OnRequestEnd == nil {
		return
	}
	c.config.Hooks.OnRequestEnd(ctx, ResponseInfo{
		RequestInfo: info,
		StatusCode:  status,
		Duration:    time.Since(start),
		Err:         err,
	})
}
