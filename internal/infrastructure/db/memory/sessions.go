package memory

import (
	"context"
	"sync"
	"time"

	"github.com/villagegrid/outage-alerts/internal/core/domain"
	"github.com/villagegrid/outage-alerts/internal/core/ports"
)

// SessionStore implements ports.SessionStore with a per-user index for
// logout-all.
type SessionStore struct {
	mu     sync.RWMutex
	byID   map[string]*domain.Session
	byUser map[string]map[string]struct{}
	now    func() time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		byID:   make(map[string]*domain.Session),
		byUser: make(map[string]map[string]struct{}),
		now:    time.Now,
	}
}

var _ ports.SessionStore = (*SessionStore)(nil)

func (s *SessionStore) Save(_ context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.byID[sess.ID] = &cp
	if s.byUser[sess.UserID] == nil {
		s.byUser[sess.UserID] = make(map[string]struct{})
	}
	s.byUser[sess.UserID][sess.ID] = struct{}{}
	return nil
}

func (s *SessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	s.mu.RLock()
	sess, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if sess.Expired(s.now()) {
		s.mu.Lock()
		s.remove(id)
		s.mu.Unlock()
		return nil, domain.ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(id)
	return nil
}

func (s *SessionStore) DeleteAllForUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.byUser[userID] {
		delete(s.byID, id)
	}
	delete(s.byUser, userID)
	return nil
}

// remove must be called with mu held.
func (s *SessionStore) remove(id string) {
	sess, ok := s.byID[id]
	if !ok {
		return
	}
	delete(s.byID, id)
	if ids := s.byUser[sess.UserID]; ids != nil {
		delete(ids, id)
		if len(ids) == 0 {
			delete(s.byUser, sess.UserID)
		}
	}
}
