// Package metrics defines and registers all custom Prometheus metrics for the
// outage alerting API. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation (promauto); the /metrics route exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "outage"

// ── Outage metrics ───────────────────────────────────────────────────────────

// OutagesReportedTotal counts newly created outages.
// Label:
//   - severity: "low", "medium" or "high"
var OutagesReportedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reported_total",
		Help:      "Total number of outages reported, by severity.",
	},
	[]string{"severity"},
)

// OutagesResolvedTotal counts successful resolutions.
var OutagesResolvedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "resolved_total",
		Help:      "Total number of outages resolved.",
	},
)

// OutageConflictsTotal counts state-transition conflicts.
// Label:
//   - op: "resolve" or "update"
var OutageConflictsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "conflicts_total",
		Help:      "Total number of rejected outage mutations due to concurrent or terminal state.",
	},
	[]string{"op"},
)

// ── Notification metrics ─────────────────────────────────────────────────────

// NotificationsTotal counts delivery attempt outcomes.
// Labels:
//   - kind: "outage_reported" or "power_restored"
//   - result: "sent", "retrying", "failed" or "dropped"
var NotificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Total number of SMS delivery attempts, by kind and result.",
	},
	[]string{"kind", "result"},
)

// NotificationQueueDepth tracks the number of jobs waiting in each delivery worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var NotificationQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notification_queue_depth",
		Help:      "Current number of delivery jobs pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// NotificationDeliveryDuration measures a single SMS send.
// Label:
//   - result: "sent" or "error"
var NotificationDeliveryDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "notification_delivery_duration_seconds",
		Help:      "Duration of a single SMS gateway call.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"result"},
)

// ── Identity metrics ─────────────────────────────────────────────────────────

// LoginsTotal counts authentication attempts.
// Label:
//   - result: "success" or "failure"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)
