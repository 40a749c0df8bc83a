package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/villagegrid/outage-alerts/internal/api/metrics"
	"github.com/villagegrid/outage-alerts/internal/core/domain"
	"github.com/villagegrid/outage-alerts/internal/core/ports"
)

const defaultAnnouncementBuffer = 256

// announcement is one lifecycle event waiting to be fanned out.
type announcement struct {
	kind    domain.NotificationKind
	outage  domain.Outage
	village domain.Village
}

// Notifier turns outage lifecycle events into per-recipient delivery jobs.
// The service-facing methods only push onto a buffered channel; recipient
// lookup and enqueueing happen on the goroutine started by Start.
type Notifier struct {
	users    ports.UserRepository
	queue    ports.DeliveryQueue
	recorder ports.DeliveryRecorder
	loc      *time.Location
	events   chan announcement
	log      zerolog.Logger
}

// NewNotifier builds a notifier. A nil loc renders times in UTC.
func NewNotifier(users ports.UserRepository, queue ports.DeliveryQueue, recorder ports.DeliveryRecorder, loc *time.Location, buffer int, log zerolog.Logger) *Notifier {
	if loc == nil {
		loc = time.UTC
	}
	if buffer <= 0 {
		buffer = defaultAnnouncementBuffer
	}
	return &Notifier{
		users:    users,
		queue:    queue,
		recorder: recorder,
		loc:      loc,
		events:   make(chan announcement, buffer),
		log:      log,
	}
}

var _ ports.Notifier = (*Notifier)(nil)

func (n *Notifier) OutageReported(o *domain.Outage, v *domain.Village) {
	n.announce(domain.NotifyOutageReported, o, v)
}

func (n *Notifier) PowerRestored(o *domain.Outage, v *domain.Village) {
	n.announce(domain.NotifyPowerRestored, o, v)
}

// announce copies the records so later mutation by the caller is harmless.
func (n *Notifier) announce(kind domain.NotificationKind, o *domain.Outage, v *domain.Village) {
	a := announcement{kind: kind, outage: *o}
	if v != nil {
		a.village = *v
	}
	select {
	case n.events <- a:
	default:
		metrics.NotificationsTotal.WithLabelValues(string(kind), "dropped").Inc()
		n.log.Error().Str("kind", string(kind)).Str("outage_id", o.ID).Msg("announcement buffer full, notification dropped")
	}
}

// Start consumes announcements until ctx is cancelled.
func (n *Notifier) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case a := <-n.events:
				n.fanOut(ctx, a)
			}
		}
	}()
}

func (n *Notifier) fanOut(ctx context.Context, a announcement) {
	recipients, err := n.users.ListSubscribers(ctx, a.outage.VillageID)
	if err != nil {
		n.log.Error().Err(err).Str("outage_id", a.outage.ID).Msg("failed to load notification recipients")
		return
	}

	name := a.village.Name
	if name == "" {
		name = a.outage.VillageID
	}
	var msg string
	switch a.kind {
	case domain.NotifyPowerRestored:
		msg = domain.PowerRestoredMessage(name)
	default:
		msg = domain.OutageReportedMessage(name, &a.outage, n.loc)
	}

	queued := 0
	for _, u := range recipients {
		job := domain.DeliveryJob{
			ID:         uuid.NewString(),
			Kind:       a.kind,
			OutageID:   a.outage.ID,
			Mobile:     u.Mobile,
			Message:    msg,
			Attempt:    1,
			EnqueuedAt: time.Now().UTC(),
		}
		if n.queue.Enqueue(job) {
			queued++
			continue
		}
		n.drop(ctx, job)
	}
	n.log.Info().
		Str("kind", string(a.kind)).
		Str("outage_id", a.outage.ID).
		Int("recipients", len(recipients)).
		Int("queued", queued).
		Msg("notification fan-out")
}

func (n *Notifier) drop(ctx context.Context, job domain.DeliveryJob) {
	metrics.NotificationsTotal.WithLabelValues(string(job.Kind), "dropped").Inc()
	n.log.Warn().Str("job_id", job.ID).Str("outage_id", job.OutageID).Msg("delivery queue full, job dropped")
	rec := domain.DeliveryRecord{
		JobID:    job.ID,
		Kind:     job.Kind,
		OutageID: job.OutageID,
		Mobile:   job.Mobile,
		Attempt:  job.Attempt,
		Status:   domain.DeliveryFailed,
		Error:    "queue full",
		At:       time.Now().UTC(),
	}
	if err := n.recorder.Record(ctx, rec); err != nil {
		n.log.Warn().Err(err).Str("job_id", job.ID).Msg("failed to record dropped delivery")
	}
}
