package services

import (
	"context"
	"safe-route-service/internal/ports"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Defaults for idle session eviction.
const (
	DefaultSessionIdle   = 30 * time.Minute
	DefaultSweepInterval = time.Minute
)

// A routing session: one map instance and the orchestrator driving it.
type Session struct {
	ID        string
	Routing   *RoutingOrchestrator
	Map       ports.MapView
	CreatedAt time.Time

	// Guarded by the store lock.
	lastSeen time.Time
}

// Builds the collaborators of a new session.
type SessionFactory func() (*RoutingOrchestrator, ports.MapView)

// SessionStore keeps live sessions by ID. It is safe for concurrent use.
type SessionStore struct {
	factory SessionFactory
	clock   clock.Clock
	log     *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionStore(factory SessionFactory, log *zap.Logger) *SessionStore {
	if log == nil {
		log = zap.L()
	}
	return &SessionStore{
		factory:  factory,
		clock:    clock.New(),
		log:      log.Named("sessions"),
		sessions: make(map[string]*Session),
	}
}

// Create builds a session and loads its initial crime dataset.
func (s *SessionStore) Create(ctx context.Context) *Session {
	routing, view := s.factory()
	sess := &Session{
		ID:        uuid.NewString(),
		Routing:   routing,
		Map:       view,
		CreatedAt: s.clock.Now(),
	}

	routing.Init(ctx)

	s.mu.Lock()
	sess.lastSeen = s.clock.Now()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.log.Info("session created", zap.String("session_id", sess.ID))
	return sess
}

// Get returns the session and marks it as used.
func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if ok {
		sess.lastSeen = s.clock.Now()
	}
	return sess, ok
}

// Destroy removes the session and tears down its map instance.
func (s *SessionStore) Destroy(id string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return false
	}
	sess.Routing.Destroy()
	s.log.Info("session destroyed", zap.String("session_id", id))
	return true
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close destroys every session.
func (s *SessionStore) Close() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range all {
		sess.Routing.Destroy()
	}
}

// EvictIdle destroys every session not used within idle and returns how
// many were removed.
func (s *SessionStore) EvictIdle(idle time.Duration) int {
	cutoff := s.clock.Now().Add(-idle)

	s.mu.Lock()
	var stale []*Session
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			stale = append(stale, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range stale {
		sess.Routing.Destroy()
		s.log.Info("idle session evicted", zap.String("session_id", sess.ID))
	}
	return len(stale)
}

// RunJanitor evicts idle sessions every interval until ctx is done.
func (s *SessionStore) RunJanitor(ctx context.Context, idle, interval time.Duration) {
	if idle <= 0 {
		idle = DefaultSessionIdle
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	ticker := s.clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.EvictIdle(idle)
		}
	}
}
