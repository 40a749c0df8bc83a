package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/villagegrid/outage-alerts/internal/core/domain"
	"github.com/villagegrid/outage-alerts/internal/core/ports"
)

func TestUserStore_DuplicateMobile(t *testing.T) {
	s := NewUserStore()
	ctx := context.Background()
	if err := s.Create(ctx, &domain.User{ID: "u1", Mobile: "9000000001"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := s.Create(ctx, &domain.User{ID: "u2", Mobile: "9000000001"})
	if !errors.Is(err, domain.ErrMobileTaken) {
		t.Errorf("expected ErrMobileTaken, got %v", err)
	}
	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("expected 1 user, got %d", n)
	}
}

func TestUserStore_ReturnsCopies(t *testing.T) {
	s := NewUserStore()
	ctx := context.Background()
	_ = s.Create(ctx, &domain.User{ID: "u1", Mobile: "9000000001", Name: "Asha"})

	u, _ := s.FindByID(ctx, "u1")
	u.Name = "changed"

	again, _ := s.FindByID(ctx, "u1")
	if again.Name != "Asha" {
		t.Errorf("store record was mutated through a returned copy")
	}
}

func TestUserStore_ListSubscribers(t *testing.T) {
	s := NewUserStore()
	ctx := context.Background()
	_ = s.Create(ctx, &domain.User{ID: "a", Mobile: "1", VillageID: "v1", Active: true, SMSEnabled: true})
	_ = s.Create(ctx, &domain.User{ID: "b", Mobile: "2", VillageID: "v1", Active: true, SMSEnabled: false})
	_ = s.Create(ctx, &domain.User{ID: "c", Mobile: "3", VillageID: "v1", Active: false, SMSEnabled: true})
	_ = s.Create(ctx, &domain.User{ID: "d", Mobile: "4", VillageID: "v2", Active: true, SMSEnabled: true})

	got, err := s.ListSubscribers(ctx, "v1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("expected only user a, got %+v", got)
	}
}

func TestUserStore_ToggleTwiceRestores(t *testing.T) {
	s := NewUserStore()
	ctx := context.Background()
	_ = s.Create(ctx, &domain.User{ID: "u1", Mobile: "1", SMSEnabled: true})

	_, _ = s.ToggleSMS(ctx, "u1", time.Now())
	u, _ := s.ToggleSMS(ctx, "u1", time.Now())
	if !u.SMSEnabled {
		t.Error("expected flag restored after two toggles")
	}
	if _, err := s.ToggleSMS(ctx, "missing", time.Now()); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestVillageStore_ListSortedByName(t *testing.T) {
	s := NewVillageStore()
	ctx := context.Background()
	_ = s.Create(ctx, &domain.Village{ID: "2", Name: "Rampur", Slug: "rampur"})
	_ = s.Create(ctx, &domain.Village{ID: "1", Name: "Alipur", Slug: "alipur"})
	if err := s.Create(ctx, &domain.Village{ID: "3", Name: "Rampur", Slug: "rampur"}); !errors.Is(err, domain.ErrVillageExists) {
		t.Errorf("expected ErrVillageExists, got %v", err)
	}

	list, _ := s.List(ctx)
	if len(list) != 2 || list[0].Name != "Alipur" || list[1].Name != "Rampur" {
		t.Errorf("unexpected order: %+v", list)
	}
}

func openOutage(id, village string, start time.Time) *domain.Outage {
	return &domain.Outage{
		ID:             id,
		VillageID:      village,
		Reason:         "storm",
		Severity:       domain.SeverityLow,
		StartTime:      start,
		ExpectedReturn: start.Add(time.Hour),
		Version:        1,
	}
}

func TestOutageStore_ResolveIsCompareAndSet(t *testing.T) {
	s := NewOutageStore()
	ctx := context.Background()
	start := time.Now().UTC()
	_ = s.Create(ctx, openOutage("o1", "v1", start))

	first := start.Add(time.Minute)
	o, err := s.Resolve(ctx, "o1", "emp", first)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !o.Resolved || o.ResolvedTime == nil || !o.ResolvedTime.Equal(first) {
		t.Fatalf("unexpected resolved outage: %+v", o)
	}

	_, err = s.Resolve(ctx, "o1", "emp", first.Add(time.Minute))
	if !errors.Is(err, domain.ErrOutageResolved) {
		t.Errorf("expected ErrOutageResolved, got %v", err)
	}
	stored, _ := s.FindByID(ctx, "o1")
	if !stored.ResolvedTime.Equal(first) {
		t.Errorf("resolved_time changed by second resolve")
	}

	if _, err := s.Resolve(ctx, "missing", "emp", first); !errors.Is(err, domain.ErrOutageNotFound) {
		t.Errorf("expected ErrOutageNotFound, got %v", err)
	}
}

func TestOutageStore_UpdateChecksVersionAndState(t *testing.T) {
	s := NewOutageStore()
	ctx := context.Background()
	_ = s.Create(ctx, openOutage("o1", "v1", time.Now().UTC()))

	stale, _ := s.FindByID(ctx, "o1")
	fresh, _ := s.FindByID(ctx, "o1")

	fresh.Reason = "transformer"
	fresh.Version = 2
	if err := s.Update(ctx, fresh); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stale.Reason = "lost race"
	stale.Version = 2
	if err := s.Update(ctx, stale); !errors.Is(err, domain.ErrVersionConflict) {
		t.Errorf("expected ErrVersionConflict, got %v", err)
	}

	_, _ = s.Resolve(ctx, "o1", "emp", time.Now())
	after, _ := s.FindByID(ctx, "o1")
	after.Reason = "too late"
	after.Version++
	if err := s.Update(ctx, after); !errors.Is(err, domain.ErrOutageResolved) {
		t.Errorf("expected ErrOutageResolved, got %v", err)
	}
}

func TestOutageStore_ListFiltersAndOrder(t *testing.T) {
	s := NewOutageStore()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	_ = s.Create(ctx, openOutage("old", "v1", base))
	_ = s.Create(ctx, openOutage("new", "v1", base.Add(2*time.Hour)))
	_ = s.Create(ctx, openOutage("other", "v2", base.Add(time.Hour)))
	_, _ = s.Resolve(ctx, "old", "emp", base.Add(3*time.Hour))

	open := false
	active, _ := s.List(ctx, ports.OutageFilter{VillageID: "v1", Resolved: &open})
	if len(active) != 1 || active[0].ID != "new" {
		t.Errorf("unexpected active list: %+v", active)
	}

	all, _ := s.List(ctx, ports.OutageFilter{})
	if len(all) != 3 || all[0].ID != "new" || all[2].ID != "old" {
		t.Errorf("expected newest first, got %v %v %v", all[0].ID, all[1].ID, all[2].ID)
	}

	resolved := true
	hist, _ := s.List(ctx, ports.OutageFilter{
		Resolved:     &resolved,
		ByResolution: true,
		From:         base.Add(2 * time.Hour),
		To:           base.Add(4 * time.Hour),
	})
	if len(hist) != 1 || hist[0].ID != "old" {
		t.Errorf("unexpected history: %+v", hist)
	}
}

func TestSessionStore_ExpiryAndLogoutAll(t *testing.T) {
	s := NewSessionStore()
	ctx := context.Background()
	now := time.Now()
	s.now = func() time.Time { return now }

	_ = s.Save(ctx, &domain.Session{ID: "s1", UserID: "u1", ExpiresAt: now.Add(time.Hour)})
	_ = s.Save(ctx, &domain.Session{ID: "s2", UserID: "u1", ExpiresAt: now.Add(time.Hour)})
	_ = s.Save(ctx, &domain.Session{ID: "s3", UserID: "u2", ExpiresAt: now.Add(-time.Second)})

	if _, err := s.Get(ctx, "s1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Get(ctx, "s3"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected expired session to be missing, got %v", err)
	}

	if err := s.DeleteAllForUser(ctx, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, id := range []string{"s1", "s2"} {
		if _, err := s.Get(ctx, id); !errors.Is(err, domain.ErrSessionNotFound) {
			t.Errorf("session %s survived logout-all", id)
		}
	}
	if err := s.Delete(ctx, "s1"); err != nil {
		t.Errorf("delete should be idempotent, got %v", err)
	}
}

func TestIdempotencyStore_FirstValueWins(t *testing.T) {
	s := NewIdempotencyStore()
	ctx := context.Background()
	now := time.Now()
	s.now = func() time.Time { return now }

	v, _ := s.Remember(ctx, "k", "true", time.Minute)
	if v != "true" {
		t.Fatalf("expected first value, got %q", v)
	}
	v, _ = s.Remember(ctx, "k", "false", time.Minute)
	if v != "true" {
		t.Errorf("expected stored value to win, got %q", v)
	}

	now = now.Add(2 * time.Minute)
	v, _ = s.Remember(ctx, "k", "false", time.Minute)
	if v != "false" {
		t.Errorf("expected expired key to be replaced, got %q", v)
	}
}
