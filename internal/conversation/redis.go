package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"zarachat/internal/core"
)

// DefaultRedisKeyPrefix namespaces session lists in a shared Redis.
const DefaultRedisKeyPrefix = "zarachat:session:"

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379" or "redis://:password@host:6379/0")
	URL string

	// KeyPrefix is prepended to the session id (defaults to "zarachat:session:")
	KeyPrefix string

	// TTL expires a session after this much idle time; zero keeps sessions forever
	TTL time.Duration
}

// RedisStore keeps each session as a Redis list of JSON-encoded messages.
// A single RPUSH per Append keeps multi-message appends contiguous.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}

	slog.Info("redis conversation store connected", "prefix", prefix, "ttl", cfg.TTL)

	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    cfg.TTL,
	}, nil
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + sessionID
}

// Append pushes msgs onto the session list and refreshes its TTL.
func (s *RedisStore) Append(ctx context.Context, sessionID string, msgs ...core.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	values := make([]any, 0, len(msgs))
	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		values = append(values, data)
	}

	key := s.key(sessionID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append to session in redis: %w", err)
	}
	return nil
}

// History returns the session's messages in append order.
func (s *RedisStore) History(ctx context.Context, sessionID string) ([]core.Message, error) {
	raw, err := s.client.LRange(ctx, s.key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session from redis: %w", err)
	}

	msgs := make([]core.Message, 0, len(raw))
	for _, item := range raw {
		var m core.Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, fmt.Errorf("failed to parse message from redis: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// appendTurnScript pushes a turn in one atomic step.
// ARGV: ttl in ms (0 keeps the key forever), request message count, the
// encoded request messages, then the encoded reply. A non-empty list only
// receives the final request message and the reply.
var appendTurnScript = redis.NewScript(`
local count = tonumber(ARGV[2])
local first = 3
if count > 0 and redis.call('LLEN', KEYS[1]) > 0 then
	first = 2 + count
end
for i = first, #ARGV do
	redis.call('RPUSH', KEYS[1], ARGV[i])
end
local ttl = tonumber(ARGV[1])
if ttl > 0 then
	redis.call('PEXPIRE', KEYS[1], ttl)
end
return redis.call('LLEN', KEYS[1])
`)

// AppendTurn records an exchange with a server-side script so the
// first-turn check and the push cannot interleave with another writer.
func (s *RedisStore) AppendTurn(ctx context.Context, sessionID string, request []core.Message, reply core.Message) error {
	args := make([]any, 0, len(request)+3)
	args = append(args, s.ttl.Milliseconds(), len(request))
	for _, m := range append(slices.Clone(request), reply) {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		args = append(args, data)
	}

	if err := appendTurnScript.Run(ctx, s.client, []string{s.key(sessionID)}, args...).Err(); err != nil {
		return fmt.Errorf("failed to record turn in redis: %w", err)
	}
	return nil
}

// Truncate is a no-op; history is unbounded.
func (s *RedisStore) Truncate(_ context.Context, _ string, _ int) error {
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
