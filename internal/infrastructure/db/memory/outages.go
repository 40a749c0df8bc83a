package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/villagegrid/outage-alerts/internal/core/domain"
	"github.com/villagegrid/outage-alerts/internal/core/ports"
)

// OutageStore implements ports.OutageRepository. Resolve and Update check
// and write under one lock, which gives the same compare-and-set semantics
// as the Mongo filters.
type OutageStore struct {
	mu   sync.RWMutex
	byID map[string]*domain.Outage
}

func NewOutageStore() *OutageStore {
	return &OutageStore{byID: make(map[string]*domain.Outage)}
}

var _ ports.OutageRepository = (*OutageStore)(nil)

func cloneOutage(o *domain.Outage) *domain.Outage {
	cp := *o
	if o.ResolvedTime != nil {
		t := *o.ResolvedTime
		cp.ResolvedTime = &t
	}
	return &cp
}

func (s *OutageStore) Create(_ context.Context, o *domain.Outage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[o.ID] = cloneOutage(o)
	return nil
}

func (s *OutageStore) FindByID(_ context.Context, id string) (*domain.Outage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrOutageNotFound
	}
	return cloneOutage(o), nil
}

func (s *OutageStore) List(_ context.Context, f ports.OutageFilter) ([]*domain.Outage, error) {
	s.mu.RLock()
	out := make([]*domain.Outage, 0)
	for _, o := range s.byID {
		if matches(o, f) {
			out = append(out, cloneOutage(o))
		}
	}
	s.mu.RUnlock()

	key := func(o *domain.Outage) time.Time {
		if f.ByResolution && o.ResolvedTime != nil {
			return *o.ResolvedTime
		}
		return o.StartTime
	}
	sort.Slice(out, func(i, j int) bool {
		ki, kj := key(out[i]), key(out[j])
		if !ki.Equal(kj) {
			return ki.After(kj)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func matches(o *domain.Outage, f ports.OutageFilter) bool {
	if f.VillageID != "" && o.VillageID != f.VillageID {
		return false
	}
	if f.Resolved != nil && o.Resolved != *f.Resolved {
		return false
	}
	if f.Severity != "" && o.Severity != f.Severity {
		return false
	}
	t := o.StartTime
	if f.ByResolution {
		if o.ResolvedTime == nil {
			return false
		}
		t = *o.ResolvedTime
	}
	if !f.From.IsZero() && t.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.After(f.To) {
		return false
	}
	return true
}

func (s *OutageStore) Resolve(_ context.Context, id, resolvedBy string, at time.Time) (*domain.Outage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrOutageNotFound
	}
	next := cloneOutage(o)
	if err := next.Resolve(resolvedBy, at); err != nil {
		return nil, err
	}
	s.byID[id] = next
	return cloneOutage(next), nil
}

func (s *OutageStore) Update(_ context.Context, o *domain.Outage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.byID[o.ID]
	if !ok {
		return domain.ErrOutageNotFound
	}
	if cur.Resolved {
		return domain.ErrOutageResolved
	}
	if cur.Version != o.Version-1 {
		return domain.ErrVersionConflict
	}
	next := cloneOutage(cur)
	next.Reason = o.Reason
	next.Severity = o.Severity
	next.ExpectedReturn = o.ExpectedReturn
	next.AffectedAreas = o.AffectedAreas
	next.UpdatedAt = o.UpdatedAt
	next.Version = o.Version
	s.byID[o.ID] = next
	return nil
}

func (s *OutageStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return domain.ErrOutageNotFound
	}
	delete(s.byID, id)
	return nil
}
