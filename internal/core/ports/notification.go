package ports

import (
	"context"

	"github.com/villagegrid/outage-alerts/internal/core/domain"
)

// Notifier receives outage lifecycle events from the outage service.
// Implementations must return immediately; delivery happens in the background.
type Notifier interface {
	OutageReported(o *domain.Outage, v *domain.Village)
	PowerRestored(o *domain.Outage, v *domain.Village)
}

// SMSSender delivers one text message. Transport failures should wrap
// domain.ErrUnavailable so they are retried.
type SMSSender interface {
	Send(ctx context.Context, mobile, message string) error
}

// DeliveryQueue accepts delivery jobs without blocking. Enqueue reports
// false when the job could not be queued.
type DeliveryQueue interface {
	Enqueue(job domain.DeliveryJob) bool
}

// DeliveryRecorder persists the outcome of delivery attempts.
type DeliveryRecorder interface {
	Record(ctx context.Context, rec domain.DeliveryRecord) error
}
