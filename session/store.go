package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"nutribudget"
)

const (
	DefaultIdleTTL  = 2 * time.Hour
	DefaultCapacity = 10000
)

// NewID returns a fresh opaque session id.
func NewID() string {
	return uuid.NewString()
}

// Store keeps sessions in memory. A session is dropped once it has been idle for the
// store's TTL or when capacity is reached, least recently used first.
type Store struct {
	mu       sync.Mutex
	sessions *expirable.LRU[string, *Session]
}

func NewStore(capacity int, idleTTL time.Duration) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	onEvict := func(id string, _ *Session) {
		slog.Info("SESSION: Evicted session", "session_id", id)
	}
	return &Store{sessions: expirable.NewLRU[string, *Session](capacity, onEvict, idleTTL)}
}

// GetOrCreate returns the session for id, creating it when absent. created reports
// whether a new session was made. Every call refreshes the idle timer.
func (s *Store) GetOrCreate(id string) (sess *Session, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions.Get(id)
	if !ok {
		sess = newSession(id)
		created = true
		slog.Info("SESSION: Created session", "session_id", id)
	}
	s.sessions.Add(id, sess)
	return sess, created
}

// Get returns an existing session and refreshes its idle timer.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", nutribudget.ErrSessionNotFound, id)
	}
	s.sessions.Add(id, sess)
	return sess, nil
}

func (s *Store) Delete(id string) {
	s.sessions.Remove(id)
}

func (s *Store) Len() int {
	return s.sessions.Len()
}
