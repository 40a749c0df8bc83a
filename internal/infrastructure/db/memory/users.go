// Package memory is an in-process storage engine used for development and
// tests. Every store guards its maps with a RWMutex and hands out copies, so
// callers never share a record with the store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/villagegrid/outage-alerts/internal/core/domain"
	"github.com/villagegrid/outage-alerts/internal/core/ports"
)

// UserStore implements ports.UserRepository.
type UserStore struct {
	mu       sync.RWMutex
	byID     map[string]*domain.User
	byMobile map[string]string
}

func NewUserStore() *UserStore {
	return &UserStore{
		byID:     make(map[string]*domain.User),
		byMobile: make(map[string]string),
	}
}

var _ ports.UserRepository = (*UserStore)(nil)

func (s *UserStore) Create(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byMobile[u.Mobile]; ok {
		return domain.ErrMobileTaken
	}
	cp := *u
	s.byID[u.ID] = &cp
	s.byMobile[u.Mobile] = u.ID
	return nil
}

func (s *UserStore) FindByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *UserStore) FindByMobile(_ context.Context, mobile string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byMobile[mobile]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *UserStore) SetSMSEnabled(_ context.Context, id string, enabled bool, at time.Time) (*domain.User, error) {
	return s.mutate(id, func(u *domain.User) {
		u.SMSEnabled = enabled
		u.UpdatedAt = at.UTC()
	})
}

func (s *UserStore) ToggleSMS(_ context.Context, id string, at time.Time) (*domain.User, error) {
	return s.mutate(id, func(u *domain.User) {
		u.SMSEnabled = !u.SMSEnabled
		u.UpdatedAt = at.UTC()
	})
}

func (s *UserStore) UpdatePassword(_ context.Context, id, hash string, at time.Time) error {
	_, err := s.mutate(id, func(u *domain.User) {
		u.PasswordHash = hash
		u.UpdatedAt = at.UTC()
	})
	return err
}

func (s *UserStore) SetActive(_ context.Context, id string, active bool, at time.Time) error {
	_, err := s.mutate(id, func(u *domain.User) {
		u.Active = active
		u.UpdatedAt = at.UTC()
	})
	return err
}

func (s *UserStore) ListSubscribers(_ context.Context, villageID string) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.User, 0)
	for _, u := range s.byID {
		if u.VillageID == villageID && u.Active && u.SMSEnabled {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Mobile < out[j].Mobile })
	return out, nil
}

func (s *UserStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.byID)), nil
}

func (s *UserStore) mutate(id string, fn func(*domain.User)) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	fn(u)
	cp := *u
	return &cp, nil
}
