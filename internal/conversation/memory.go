package conversation

import (
	"context"
	"slices"
	"sync"

	"zarachat/internal/core"
)

type session struct {
	mu   sync.Mutex
	msgs []core.Message
}

// MemoryStore keeps history in process memory. Each session has its own
// mutex, so appends to one session are serialized while different sessions
// never contend. History is lost on restart.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*session)}
}

func (s *MemoryStore) lookup(id string, create bool) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok && create {
		sess = &session{}
		s.sessions[id] = sess
	}
	return sess
}

// Append adds msgs to the session's history.
func (s *MemoryStore) Append(_ context.Context, sessionID string, msgs ...core.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	sess := s.lookup(sessionID, true)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.msgs = append(sess.msgs, msgs...)
	return nil
}

// History returns a copy of the session's messages.
func (s *MemoryStore) History(_ context.Context, sessionID string) ([]core.Message, error) {
	sess := s.lookup(sessionID, false)
	if sess == nil {
		return []core.Message{}, nil
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := slices.Clone(sess.msgs)
	if out == nil {
		out = []core.Message{}
	}
	return out, nil
}

// AppendTurn records an exchange under the session lock.
func (s *MemoryStore) AppendTurn(_ context.Context, sessionID string, request []core.Message, reply core.Message) error {
	sess := s.lookup(sessionID, true)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.msgs = append(sess.msgs, turnMessages(len(sess.msgs) == 0, request, reply)...)
	return nil
}

// Truncate is a no-op; history is unbounded.
func (s *MemoryStore) Truncate(_ context.Context, _ string, _ int) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
