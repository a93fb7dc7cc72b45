// Package core defines the core interfaces and types for the chat gateway.
package core

import "context"

// Provider defines the capability set every upstream adapter implements.
type Provider interface {
	// Complete sends the whole conversation and returns the assembled reply.
	Complete(ctx context.Context, req *CompletionRequest) (*Completion, error)

	// Stream starts a streamed reply. The upstream status is checked before
	// returning; fragments are pulled lazily from the returned stream.
	Stream(ctx context.Context, req *CompletionRequest) (*TextStream, error)
}
