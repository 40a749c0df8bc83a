package domain

import (
	"fmt"
	"strconv"
	"time"
)

// NotificationKind tells recipients what happened to an outage.
type NotificationKind string

const (
	NotifyOutageReported NotificationKind = "outage_reported"
	NotifyPowerRestored  NotificationKind = "power_restored"
)

// DeliveryJob is a single SMS to a single recipient.
type DeliveryJob struct {
	ID         string
	Kind       NotificationKind
	OutageID   string
	Mobile     string
	Message    string
	Attempt    int
	EnqueuedAt time.Time
}

// DeliveryStatus is the outcome of one delivery attempt.
type DeliveryStatus string

const (
	DeliverySent     DeliveryStatus = "sent"
	DeliveryRetrying DeliveryStatus = "retrying"
	DeliveryFailed   DeliveryStatus = "failed"
)

// DeliveryRecord is the audit row written after each attempt.
type DeliveryRecord struct {
	JobID    string
	Kind     NotificationKind
	OutageID string
	Mobile   string
	Attempt  int
	Status   DeliveryStatus
	Error    string
	At       time.Time
}

// OutageReportedMessage renders the alert sent when an outage is created.
func OutageReportedMessage(villageName string, o *Outage, loc *time.Location) string {
	hours := o.ExpectedReturn.Sub(o.StartTime).Hours()
	return fmt.Sprintf(
		"Power outage in %s. Reason: %s. Expected duration: %s hours. Expected return: %s",
		villageName, o.Reason, strconv.FormatFloat(hours, 'f', -1, 64),
		o.ExpectedReturn.In(loc).Format("03:04 PM"),
	)
}

// PowerRestoredMessage renders the notice sent when an outage is resolved.
func PowerRestoredMessage(villageName string) string {
	return fmt.Sprintf("Power has been restored in %s. Thank you for your patience.", villageName)
}
