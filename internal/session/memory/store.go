// Package memory is an in-memory SessionStore for tests and single-process
// deployments without persistence.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ventabot/ventabot/internal/domain"
	"github.com/ventabot/ventabot/internal/session"
)

// maxHistory bounds the per-session history kept in memory.
const maxHistory = 50

// Store is an in-memory implementation of session.Store.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

var _ session.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{sessions: make(map[string]*domain.Session)}
}

func (s *Store) Get(ctx context.Context, key string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[key]
	if !ok {
		return nil, domain.ErrNotFound("session " + key + " not found")
	}
	return copySession(sess), nil
}

func (s *Store) Create(ctx context.Context, key string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[key]; ok {
		return copySession(existing), nil
	}
	sess := domain.NewSession(key)
	s.sessions[key] = sess
	return copySession(sess), nil
}

func (s *Store) Update(ctx context.Context, key string, state domain.State, contextPatch map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key]
	if !ok {
		return domain.ErrNotFound("session " + key + " not found")
	}
	sess.State = state
	for k, v := range contextPatch {
		if v == "" {
			delete(sess.Context, k)
			continue
		}
		sess.Context[k] = v
	}
	sess.UpdatedAt = time.Now()
	return nil
}

func (s *Store) AppendHistory(ctx context.Context, key string, turn domain.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key]
	if !ok {
		return domain.ErrNotFound("session " + key + " not found")
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	sess.History = append(sess.History, turn)
	if len(sess.History) > maxHistory {
		sess.History = sess.History[len(sess.History)-maxHistory:]
	}
	sess.UpdatedAt = time.Now()
	return nil
}

func (s *Store) RecentHistory(ctx context.Context, key string, n int) ([]domain.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[key]
	if !ok {
		return nil, domain.ErrNotFound("session " + key + " not found")
	}
	h := sess.History
	if n > 0 && len(h) > n {
		h = h[len(h)-n:]
	}
	out := make([]domain.Turn, len(h))
	copy(out, h)
	return out, nil
}

// copySession returns a deep copy so callers cannot mutate stored state
// outside Update/AppendHistory.
func copySession(sess *domain.Session) *domain.Session {
	cp := *sess
	cp.Context = make(map[string]string, len(sess.Context))
	for k, v := range sess.Context {
		cp.Context[k] = v
	}
	cp.History = make([]domain.Turn, len(sess.History))
	copy(cp.History, sess.History)
	return &cp
}
