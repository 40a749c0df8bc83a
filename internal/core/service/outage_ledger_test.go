package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/villagegrid/outage-alerts/internal/core/domain"
	"github.com/villagegrid/outage-alerts/internal/core/ports"
	"github.com/villagegrid/outage-alerts/internal/infrastructure/db/memory"
)

// conflictingRepo reports a version conflict for the first n updates.
type conflictingRepo struct {
	*memory.OutageStore
	conflicts int
	calls     int
}

func (r *conflictingRepo) Update(ctx context.Context, o *domain.Outage) error {
	r.calls++
	if r.conflicts > 0 {
		r.conflicts--
		return domain.ErrVersionConflict
	}
	return r.OutageStore.Update(ctx, o)
}

func newLedger(t *testing.T, repo ports.OutageRepository) *OutageLedger {
	t.Helper()
	villages := memory.NewVillageStore()
	if err := villages.Create(context.Background(), &domain.Village{ID: "v1", Name: "Rampur", Slug: "rampur"}); err != nil {
		t.Fatalf("seed village: %v", err)
	}
	return NewOutageLedger(repo, villages)
}

func TestOutageLedger_Create_ComputesExpectedReturn(t *testing.T) {
	l := newLedger(t, memory.NewOutageStore())
	fixed := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	o, err := l.Create(context.Background(), NewOutage{VillageID: "v1", Reason: "storm", Severity: "medium", DurationHours: 2, ReportedBy: "emp"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !o.StartTime.Equal(fixed) || !o.ExpectedReturn.Equal(fixed.Add(2*time.Hour)) {
		t.Errorf("unexpected times: start=%v expected=%v", o.StartTime, o.ExpectedReturn)
	}
	if o.Version != 1 || o.ID == "" {
		t.Errorf("unexpected record: %+v", o)
	}
}

func TestOutageLedger_Create_RejectsLongDuration(t *testing.T) {
	l := newLedger(t, memory.NewOutageStore())
	_, err := l.Create(context.Background(), NewOutage{VillageID: "v1", Reason: "storm", Severity: "low", DurationHours: domain.MaxDurationHours + 1})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestOutageLedger_Update_RetriesVersionConflicts(t *testing.T) {
	repo := &conflictingRepo{OutageStore: memory.NewOutageStore(), conflicts: 2}
	l := newLedger(t, repo)
	o, _ := l.Create(context.Background(), NewOutage{VillageID: "v1", Reason: "storm", Severity: "low", DurationHours: 1})

	sev := "high"
	got, err := l.Update(context.Background(), o.ID, domain.OutagePatch{Severity: &sev})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Severity != domain.SeverityHigh || repo.calls != 3 {
		t.Errorf("expected success on third attempt, got severity=%s calls=%d", got.Severity, repo.calls)
	}
}

func TestOutageLedger_Update_GivesUpAfterMaxAttempts(t *testing.T) {
	repo := &conflictingRepo{OutageStore: memory.NewOutageStore(), conflicts: 10}
	l := newLedger(t, repo)
	o, _ := l.Create(context.Background(), NewOutage{VillageID: "v1", Reason: "storm", Severity: "low", DurationHours: 1})

	sev := "high"
	_, err := l.Update(context.Background(), o.ID, domain.OutagePatch{Severity: &sev})
	if !errors.Is(err, domain.ErrVersionConflict) {
		t.Errorf("expected version conflict, got %v", err)
	}
	if repo.calls != maxUpdateAttempts {
		t.Errorf("expected %d attempts, got %d", maxUpdateAttempts, repo.calls)
	}
}

func TestOutageLedger_ListHistory_Range(t *testing.T) {
	l := newLedger(t, memory.NewOutageStore())
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	clock := base
	l.now = func() time.Time { return clock }

	a, _ := l.Create(context.Background(), NewOutage{VillageID: "v1", Reason: "a", Severity: "low", DurationHours: 1})
	b, _ := l.Create(context.Background(), NewOutage{VillageID: "v1", Reason: "b", Severity: "low", DurationHours: 1})

	clock = base.Add(time.Hour)
	_, _ = l.Resolve(context.Background(), a.ID, "emp")
	clock = base.Add(5 * time.Hour)
	_, _ = l.Resolve(context.Background(), b.ID, "emp")

	hist, err := l.ListHistory(context.Background(), "v1", base, base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 1 || hist[0].ID != a.ID {
		t.Errorf("expected only outage a in range, got %d", len(hist))
	}

	all, _ := l.ListHistory(context.Background(), "", time.Time{}, time.Time{})
	if len(all) != 2 || all[0].ID != b.ID {
		t.Errorf("expected newest resolution first")
	}

	if _, err := l.ListHistory(context.Background(), "v1", base.Add(time.Hour), base); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error for inverted range, got %v", err)
	}
}
