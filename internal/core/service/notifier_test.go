package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/villagegrid/outage-alerts/internal/core/domain"
	"github.com/villagegrid/outage-alerts/internal/infrastructure/db/memory"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubQueue struct {
	mu     sync.Mutex
	full   bool
	jobs   []domain.DeliveryJob
	signal chan struct{}
}

func newStubQueue() *stubQueue {
	return &stubQueue{signal: make(chan struct{}, 64)}
}

func (q *stubQueue) Enqueue(job domain.DeliveryJob) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	defer func() { q.signal <- struct{}{} }()
	if q.full {
		return false
	}
	q.jobs = append(q.jobs, job)
	return true
}

func (q *stubQueue) snapshot() []domain.DeliveryJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]domain.DeliveryJob(nil), q.jobs...)
}

func (q *stubQueue) await(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-q.signal:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for job %d of %d", i+1, n)
		}
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func seedSubscribers(t *testing.T) *memory.UserStore {
	t.Helper()
	users := memory.NewUserStore()
	ctx := context.Background()
	for _, u := range []*domain.User{
		{ID: "a", Mobile: "9000000001", VillageID: "v1", Active: true, SMSEnabled: true},
		{ID: "b", Mobile: "9000000002", VillageID: "v1", Active: true, SMSEnabled: true, Role: domain.RoleEmployee},
		{ID: "c", Mobile: "9000000003", VillageID: "v1", Active: true, SMSEnabled: false},
		{ID: "d", Mobile: "9000000004", VillageID: "v2", Active: true, SMSEnabled: true},
	} {
		if err := users.Create(ctx, u); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	return users
}

func sampleOutage() *domain.Outage {
	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	return &domain.Outage{
		ID:             "o1",
		VillageID:      "v1",
		Reason:         "transformer failure",
		Severity:       domain.SeverityHigh,
		StartTime:      start,
		ExpectedReturn: start.Add(3 * time.Hour),
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestNotifier_OutageReported_FansOutToSubscribers(t *testing.T) {
	users := seedSubscribers(t)
	queue := newStubQueue()
	n := NewNotifier(users, queue, memory.NewDeliveryLog(), time.UTC, 8, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	n.Start(ctx)

	n.OutageReported(sampleOutage(), &domain.Village{ID: "v1", Name: "Rampur"})
	queue.await(t, 2)

	jobs := queue.snapshot()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	mobiles := map[string]bool{}
	for _, j := range jobs {
		mobiles[j.Mobile] = true
		if j.Kind != domain.NotifyOutageReported || j.OutageID != "o1" || j.Attempt != 1 {
			t.Errorf("unexpected job: %+v", j)
		}
		want := "Power outage in Rampur. Reason: transformer failure. Expected duration: 3 hours. Expected return: 11:00 AM"
		if j.Message != want {
			t.Errorf("unexpected message:\n got %q\nwant %q", j.Message, want)
		}
	}
	if !mobiles["9000000001"] || !mobiles["9000000002"] {
		t.Errorf("wrong audience: %v", mobiles)
	}
}

func TestNotifier_PowerRestored(t *testing.T) {
	users := seedSubscribers(t)
	queue := newStubQueue()
	n := NewNotifier(users, queue, memory.NewDeliveryLog(), nil, 8, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	n.Start(ctx)

	n.PowerRestored(sampleOutage(), &domain.Village{ID: "v1", Name: "Rampur"})
	queue.await(t, 2)

	for _, j := range queue.snapshot() {
		if j.Kind != domain.NotifyPowerRestored || !strings.Contains(j.Message, "restored in Rampur") {
			t.Errorf("unexpected job: %+v", j)
		}
	}
}

func TestNotifier_FullQueueRecordsFailure(t *testing.T) {
	users := seedSubscribers(t)
	queue := newStubQueue()
	queue.full = true
	log := memory.NewDeliveryLog()
	n := NewNotifier(users, queue, log, time.UTC, 8, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	n.Start(ctx)

	n.OutageReported(sampleOutage(), &domain.Village{ID: "v1", Name: "Rampur"})
	queue.await(t, 2)

	deadline := time.Now().Add(2 * time.Second)
	for len(log.ForOutage("o1")) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	recs := log.ForOutage("o1")
	if len(recs) != 2 {
		t.Fatalf("expected 2 failure records, got %d", len(recs))
	}
	for _, r := range recs {
		if r.Status != domain.DeliveryFailed {
			t.Errorf("expected failed status, got %s", r.Status)
		}
	}
}

func TestNotifier_AnnounceNeverBlocks(t *testing.T) {
	n := NewNotifier(memory.NewUserStore(), newStubQueue(), memory.NewDeliveryLog(), time.UTC, 1, zerolog.Nop())
	// not started: the one-slot buffer fills and later announcements are dropped
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			n.OutageReported(sampleOutage(), nil)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("announce blocked on a full buffer")
	}
}
