package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/villagegrid/outage-alerts/internal/core/domain"
	"github.com/villagegrid/outage-alerts/internal/core/ports"
)

// VillageStore implements ports.VillageRepository.
type VillageStore struct {
	mu     sync.RWMutex
	byID   map[string]*domain.Village
	bySlug map[string]string
}

func NewVillageStore() *VillageStore {
	return &VillageStore{
		byID:   make(map[string]*domain.Village),
		bySlug: make(map[string]string),
	}
}

var _ ports.VillageRepository = (*VillageStore)(nil)

func (s *VillageStore) Create(_ context.Context, v *domain.Village) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bySlug[v.Slug]; ok {
		return domain.ErrVillageExists
	}
	cp := *v
	s.byID[v.ID] = &cp
	s.bySlug[v.Slug] = v.ID
	return nil
}

func (s *VillageStore) FindByID(_ context.Context, id string) (*domain.Village, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrVillageNotFound
	}
	cp := *v
	return &cp, nil
}

func (s *VillageStore) FindBySlug(_ context.Context, slug string) (*domain.Village, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.bySlug[slug]
	if !ok {
		return nil, domain.ErrVillageNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *VillageStore) List(_ context.Context) ([]*domain.Village, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Village, 0, len(s.byID))
	for _, v := range s.byID {
		cp := *v
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
