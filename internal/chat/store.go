package chat

import (
	"context"
	"strings"

	"sheetgenie/internal/observability"
	id "sheetgenie/internal/utils/id"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultStoreSize = 256

// Store keeps the most recently used sessions in memory. Evicted sessions are
// gone; there is no persistence.
type Store struct {
	cache   *lru.Cache[string, *Session]
	metrics *observability.MetricsCollector
}

// NewStore returns a store holding at most size sessions.
func NewStore(size int, metrics *observability.MetricsCollector) *Store {
	if size <= 0 {
		size = defaultStoreSize
	}
	s := &Store{metrics: metrics}
	cache, err := lru.NewWithEvict[string, *Session](size, func(string, *Session) {
		s.metrics.DecrementActiveSessions(context.Background())
	})
	if err != nil {
		// only a non-positive size fails, which is guarded above
		panic(err)
	}
	s.cache = cache
	return s
}

// Get returns an existing session.
func (s *Store) Get(sessionID string) (*Session, bool) {
	return s.cache.Get(strings.TrimSpace(sessionID))
}

// GetOrCreate returns the session with sessionID, creating it when missing.
// An empty id gets a fresh one.
func (s *Store) GetOrCreate(ctx context.Context, sessionID string) *Session {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = id.NewSessionID()
	}
	if session, ok := s.cache.Get(sessionID); ok {
		return session
	}
	session := NewSession(sessionID)
	if existing, ok, _ := s.cache.PeekOrAdd(sessionID, session); ok {
		return existing
	}
	s.metrics.IncrementActiveSessions(ctx)
	return session
}

// Delete drops a session. It reports whether the session existed.
func (s *Store) Delete(sessionID string) bool {
	return s.cache.Remove(strings.TrimSpace(sessionID))
}

func (s *Store) Len() int {
	return s.cache.Len()
}
