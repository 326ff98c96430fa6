package dispatch

import (
	"sync"
	"time"

	"github.com/okdesk/deskagent/internal/provider"
)

// Session is an active conversation context, identified by the opaque
// session id the caller supplies. It holds the in-memory history the
// classifier and the chat path consume. History mutation is serialized
// by the dispatcher's lane lock, never by the session itself.
type Session struct {
	ID           string
	CreatedAt    time.Time
	LastActiveAt time.Time
	History      []provider.LLMMessage
}

// SessionStore manages session lifecycle.
// Implementations must be safe for concurrent use.
type SessionStore interface {
	// GetOrCreate returns an existing session or creates a new one.
	// The bool return indicates whether the session was newly created.
	GetOrCreate(id string) (*Session, bool)

	// Get returns the session for the given id, or nil if none exists.
	Get(id string) *Session

	// Touch updates the session's LastActiveAt timestamp.
	Touch(id string)

	// Delete removes the session for the given id.
	Delete(id string)

	// Prune removes sessions that have been idle longer than maxIdle
	// and returns the number of sessions pruned.
	Prune(maxIdle time.Duration) int

	// Len returns the number of active sessions.
	Len() int

	// ActiveIDs returns a snapshot of currently active session ids.
	ActiveIDs() map[string]struct{}
}

// InMemorySessionStore is a concurrency-safe, in-memory SessionStore.
// Sessions are created lazily on first reference and live until pruned.
// The `now` function is injectable for deterministic testing.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	// maxSessions limits the number of concurrent sessions.
	// Zero means unlimited.
	maxSessions int

	now func() time.Time
}

// NewInMemorySessionStore creates a ready-to-use in-memory session store.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// SetMaxSessions configures the maximum number of concurrent sessions.
// Zero means unlimited.
func (s *InMemorySessionStore) SetMaxSessions(limit int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxSessions = limit
}

// GetOrCreate returns the existing session for the id, or creates a new
// one if none exists. If maxSessions > 0 and the limit is reached, no
// new session is created and (nil, false) is returned.
func (s *InMemorySessionStore) GetOrCreate(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		return sess, false
	}

	if s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		return nil, false
	}

	now := s.now()
	sess := &Session{
		ID:           id,
		CreatedAt:    now,
		LastActiveAt: now,
	}
	s.sessions[id] = sess
	return sess, true
}

// Get returns the session for the given id, or nil if none exists.
func (s *InMemorySessionStore) Get(id string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// Touch updates the session's LastActiveAt timestamp to the current
// time. It is a no-op if the session does not exist.
func (s *InMemorySessionStore) Touch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		sess.LastActiveAt = s.now()
	}
}

// Delete removes the session for the given id. It is a no-op if the
// session does not exist.
func (s *InMemorySessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Prune removes sessions whose idle time exceeds maxIdle and returns
// the number of sessions pruned.
func (s *InMemorySessionStore) Prune(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	pruned := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.LastActiveAt) > maxIdle {
			delete(s.sessions, id)
			pruned++
		}
	}
	return pruned
}

// Len returns the number of active sessions.
func (s *InMemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// ActiveIDs returns a snapshot of currently active session ids.
func (s *InMemorySessionStore) ActiveIDs() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make(map[string]struct{}, len(s.sessions))
	for id := range s.sessions {
		ids[id] = struct{}{}
	}
	return ids
}
