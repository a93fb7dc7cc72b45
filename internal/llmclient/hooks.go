package llmclient

import (
	"context"
	"time"
)

// RequestInfo describes an upstream request as it starts.
type RequestInfo struct {
	Provider string
	Method   string
	Endpoint string
	Stream   bool
}

// ResponseInfo describes how an upstream request finished.
// For streams it covers the time until response headers arrived.
type ResponseInfo struct {
	RequestInfo
	StatusCode int
	Duration   time.Duration
	Err        error
}

// Hooks observe upstream requests. Either field may be nil.
type Hooks struct {
	OnRequestStart func(ctx context.Context, info RequestInfo) context.Context
	OnRequestEnd   func(ctx context.Context, info ResponseInfo)
}
