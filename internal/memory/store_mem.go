package memory

import (
	"context"
	"strings"
	"sync"
	"time"
)

// InMemoryStore is a concurrency-safe, in-process Store. It preserves
// the append-only discipline of the durable store: facts are appended,
// never overwritten, and the most recent version wins on read.
// Each instance owns its own state; nothing is shared between instances.
type InMemoryStore struct {
	mu         sync.RWMutex
	messages   map[string][]Turn
	operations map[string][]Operation
	facts      map[string][]Fact

	// now is injectable for deterministic tests.
	now func() time.Time
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates a ready-to-use in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		messages:   make(map[string][]Turn),
		operations: make(map[string][]Operation),
		facts:      make(map[string][]Fact),
		now:        time.Now,
	}
}

// AppendMessage implements Store.
func (s *InMemoryStore) AppendMessage(_ context.Context, sessionID, role, content string, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ts.IsZero() {
		ts = s.now()
	}
	s.messages[sessionID] = append(s.messages[sessionID], Turn{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Timestamp: ts,
	})
	return nil
}

// RecentMessages implements Store.
func (s *InMemoryStore) RecentMessages(_ context.Context, sessionID string, limit int) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.messages[sessionID]
	if limit <= 0 || len(turns) == 0 {
		return nil, nil
	}
	if limit > len(turns) {
		limit = len(turns)
	}
	out := make([]Turn, limit)
	copy(out, turns[len(turns)-limit:])
	return out, nil
}

// SearchMessages implements Store.
func (s *InMemoryStore) SearchMessages(_ context.Context, sessionID, keyword string, limit int) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.messages[sessionID]
	var out []Turn
	// Newest first.
	for i := len(turns) - 1; i >= 0 && len(out) < limit; i-- {
		if strings.Contains(turns[i].Content, keyword) {
			out = append(out, turns[i])
		}
	}
	return out, nil
}

// RecordOperation implements Store.
func (s *InMemoryStore) RecordOperation(_ context.Context, sessionID, opType, summary string, metadata map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.operations[sessionID] = append(s.operations[sessionID], Operation{
		SessionID: sessionID,
		OpType:    opType,
		Summary:   summary,
		Metadata:  metadata,
		Timestamp: s.now(),
	})
	return nil
}

// RecentOperations implements Store.
func (s *InMemoryStore) RecentOperations(_ context.Context, sessionID string, limit int) ([]Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ops := s.operations[sessionID]
	if limit <= 0 || len(ops) == 0 {
		return nil, nil
	}
	if limit > len(ops) {
		limit = len(ops)
	}
	out := make([]Operation, limit)
	copy(out, ops[len(ops)-limit:])
	return out, nil
}

// SearchOperations implements Store.
func (s *InMemoryStore) SearchOperations(_ context.Context, sessionID, keyword string, limit int) ([]Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ops := s.operations[sessionID]
	var out []Operation
	for i := len(ops) - 1; i >= 0 && len(out) < limit; i-- {
		if strings.Contains(ops[i].Summary, keyword) {
			out = append(out, ops[i])
		}
	}
	return out, nil
}

// PutFact implements Store.
func (s *InMemoryStore) PutFact(_ context.Context, sessionID, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.facts[sessionID] = append(s.facts[sessionID], Fact{
		SessionID: sessionID,
		Key:       key,
		Value:     value,
		Timestamp: s.now(),
	})
	return nil
}

// GetFact implements Store. The most recent write for the key wins.
func (s *InMemoryStore) GetFact(_ context.Context, sessionID, key string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	facts := s.facts[sessionID]
	for i := len(facts) - 1; i >= 0; i-- {
		if facts[i].Key == key {
			return facts[i].Value, nil
		}
	}
	return nil, ErrFactNotFound
}
