// Package conversation stores per-session message history.
// Supports an in-process backend and a Redis backend for multi-instance deployments.
package conversation

import (
	"context"
	"fmt"
	"strings"

	"zarachat/internal/core"
)

// DefaultTruncateHint is the token budget callers pass to Truncate when they have no better figure.
const DefaultTruncateHint = 6000

// Store holds ordered message history keyed by session id.
// Implementations must be safe for concurrent use. Messages from a single
// Append land contiguously even when other appends to the same session race.
type Store interface {
	// Append adds msgs to the end of the session's history.
	Append(ctx context.Context, sessionID string, msgs ...core.Message) error

	// History returns a copy of the session's messages in append order.
	// Unknown sessions yield an empty, non-nil slice.
	History(ctx context.Context, sessionID string) ([]core.Message, error)

	// AppendTurn records one chat exchange atomically. When the session is
	// empty the whole request conversation is stored, otherwise only its final
	// message; reply follows. Concurrent first turns store the conversation once.
	AppendTurn(ctx context.Context, sessionID string, request []core.Message, reply core.Message) error

	// Truncate is reserved for a future trimming policy. History is
	// currently unbounded and every implementation leaves it untouched.
	Truncate(ctx context.Context, sessionID string, maxTokensHint int) error

	// Close releases any resources held by the store.
	Close() error
}

// Backend names accepted by New.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config selects and configures a backend.
type Config struct {
	Type  string
	Redis RedisConfig
}

// New creates the store named by cfg.Type. An empty type selects memory.
func New(cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendRedis:
		return NewRedisStore(cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown conversation store type: %s", cfg.Type)
	}
}

// turnMessages returns what a turn adds to a session that is empty (first)
// or already holds the earlier conversation.
func turnMessages(first bool, request []core.Message, reply core.Message) []core.Message {
	if !first && len(request) > 0 {
		request = request[len(request)-1:]
	}
	out := make([]core.Message, 0, len(request)+1)
	out = append(out, request...)
	return append(out, reply)
}
