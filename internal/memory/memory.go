// Package memory defines the session memory contracts: the durable,
// append-only log of conversation turns, operation records, and
// key/value facts, keyed by session id. The sqlite subpackage provides
// the persistent implementation.
package memory

import (
	"context"
	"errors"
	"time"
)

// ErrFactNotFound is returned by GetFact when no write exists for the key.
// It is distinct from a stored empty value.
var ErrFactNotFound = errors.New("memory: fact not found")

// Turn is one message within a session's conversation log.
// Immutable once appended.
type Turn struct {
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Operation is an audit entry for a non-chat action, independent from Turns.
type Operation struct {
	SessionID string            `json:"session_id"`
	OpType    string            `json:"op_type"`
	Summary   string            `json:"summary"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Fact is a versioned key/value record scoped to a session. Multiple
// versions may exist for the same key; retrieval returns the most recent.
type Fact struct {
	SessionID string    `json:"session_id"`
	Key       string    `json:"key"`
	Value     any       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is the durable session memory store. The log is append-only:
// no update or delete operation exists, and "most recent wins" is
// implemented via ordering, not in-place mutation.
// Implementations must be safe for concurrent use and every write must
// be visible to subsequent reads.
type Store interface {
	// AppendMessage appends a turn to the conversation log.
	// A zero ts means "now".
	AppendMessage(ctx context.Context, sessionID, role, content string, ts time.Time) error

	// RecentMessages returns the most recent limit turns in
	// chronological (oldest-first) order.
	RecentMessages(ctx context.Context, sessionID string, limit int) ([]Turn, error)

	// SearchMessages returns turns whose content contains keyword as a
	// substring, newest-first, capped at limit.
	SearchMessages(ctx context.Context, sessionID, keyword string, limit int) ([]Turn, error)

	// RecordOperation appends an operation audit entry.
	RecordOperation(ctx context.Context, sessionID, opType, summary string, metadata map[string]string) error

	// RecentOperations returns the most recent limit operations in
	// chronological order.
	RecentOperations(ctx context.Context, sessionID string, limit int) ([]Operation, error)

	// SearchOperations returns operations whose summary contains keyword,
	// newest-first, capped at limit.
	SearchOperations(ctx context.Context, sessionID, keyword string, limit int) ([]Operation, error)

	// PutFact appends a new version of the fact. Earlier versions are
	// shadowed, never mutated.
	PutFact(ctx context.Context, sessionID, key string, value any) error

	// GetFact returns the most recent value written for key, or
	// ErrFactNotFound if no write exists.
	GetFact(ctx context.Context, sessionID, key string) (any, error)
}
