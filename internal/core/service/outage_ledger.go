package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/villagegrid/outage-alerts/internal/core/domain"
	"github.com/villagegrid/outage-alerts/internal/core/ports"
)

// maxUpdateAttempts bounds optimistic-concurrency retries for Update.
const maxUpdateAttempts = 3

// NewOutage carries validated-at-the-edge input for OutageLedger.Create.
type NewOutage struct {
	VillageID     string
	Reason        string
	Severity      string
	DurationHours float64
	AffectedAreas string
	ReportedBy    string
}

// OutageLedger owns outage records and their lifecycle. It performs no
// authorisation and triggers no side effects; both belong to OutageService.
type OutageLedger struct {
	repo     ports.OutageRepository
	villages ports.VillageRepository
	now      func() time.Time
}

func NewOutageLedger(repo ports.OutageRepository, villages ports.VillageRepository) *OutageLedger {
	return &OutageLedger{repo: repo, villages: villages, now: time.Now}
}

// Create records a new open outage starting now.
func (l *OutageLedger) Create(ctx context.Context, in NewOutage) (*domain.Outage, error) {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, domain.Invalid("reason is required")
	}
	sev, err := domain.ParseSeverity(in.Severity)
	if err != nil {
		return nil, err
	}
	d, err := domain.DurationFromHours(in.DurationHours)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.VillageID) == "" {
		return nil, domain.Invalid("village is required")
	}
	if _, err := l.villages.FindByID(ctx, in.VillageID); err != nil {
		return nil, fmt.Errorf("create outage: %w", err)
	}

	start := l.now().UTC()
	o := &domain.Outage{
		ID:             uuid.NewString(),
		VillageID:      in.VillageID,
		Reason:         reason,
		Severity:       sev,
		StartTime:      start,
		ExpectedReturn: start.Add(d),
		AffectedAreas:  strings.TrimSpace(in.AffectedAreas),
		ReportedBy:     in.ReportedBy,
		Version:        1,
		UpdatedAt:      start,
	}
	if err := l.repo.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create outage: %w", err)
	}
	return o, nil
}

// Get returns a single outage.
func (l *OutageLedger) Get(ctx context.Context, id string) (*domain.Outage, error) {
	return l.repo.FindByID(ctx, id)
}

// Resolve performs the open -> resolved transition. It is deliberately not
// idempotent: a second call returns domain.ErrOutageResolved.
func (l *OutageLedger) Resolve(ctx context.Context, id, resolvedBy string) (*domain.Outage, error) {
	o, err := l.repo.Resolve(ctx, id, resolvedBy, l.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("resolve outage %s: %w", id, err)
	}
	return o, nil
}

// Update applies patch while the outage is open. Concurrent updates are
// retried against the fresh record; a concurrent resolve wins and the update
// fails with domain.ErrOutageResolved.
func (l *OutageLedger) Update(ctx context.Context, id string, patch domain.OutagePatch) (*domain.Outage, error) {
	if patch.Empty() {
		return nil, domain.Invalid("no updatable fields supplied")
	}
	for attempt := 1; ; attempt++ {
		o, err := l.repo.FindByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("update outage %s: %w", id, err)
		}
		if err := o.Apply(patch, l.now()); err != nil {
			return nil, err
		}
		err = l.repo.Update(ctx, o)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) || attempt == maxUpdateAttempts {
			return nil, fmt.Errorf("update outage %s: %w", id, err)
		}
	}
}

// Delete removes an outage record.
func (l *OutageLedger) Delete(ctx context.Context, id string) error {
	if err := l.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete outage %s: %w", id, err)
	}
	return nil
}

// ListAll returns every outage matching filter, newest first.
func (l *OutageLedger) ListAll(ctx context.Context, filter ports.OutageFilter) ([]*domain.Outage, error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, domain.Invalid("to must not be before from")
	}
	return l.repo.List(ctx, filter)
}

// ListActive returns the open outages of a village, newest first.
func (l *OutageLedger) ListActive(ctx context.Context, villageID string) ([]*domain.Outage, error) {
	open := false
	return l.repo.List(ctx, ports.OutageFilter{VillageID: villageID, Resolved: &open})
}

// ListHistory returns outages resolved within [from, to]. Zero bounds are
// open-ended; an empty villageID spans all villages.
func (l *OutageLedger) ListHistory(ctx context.Context, villageID string, from, to time.Time) ([]*domain.Outage, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, domain.Invalid("to must not be before from")
	}
	resolved := true
	return l.repo.List(ctx, ports.OutageFilter{
		VillageID:    villageID,
		Resolved:     &resolved,
		From:         from,
		To:           to,
		ByResolution: true,
	})
}
