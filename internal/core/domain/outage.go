package domain

import (
	"strings"
	"time"
)

// Severity grades the impact of an outage.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ParseSeverity validates a severity string.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityLow:
		return SeverityLow, nil
	case SeverityMedium:
		return SeverityMedium, nil
	case SeverityHigh:
		return SeverityHigh, nil
	}
	return "", Invalid("severity must be one of: low medium high")
}

// OutageState is the lifecycle state of an outage.
type OutageState string

const (
	StateOpen     OutageState = "open"
	StateResolved OutageState = "resolved"
)

// MaxDurationHours bounds the expected duration of a single outage.
const MaxDurationHours = 720

// Outage is the aggregate owned by the outage ledger.
//
// Invariants: ResolvedTime != nil iff Resolved; ExpectedReturn >= StartTime.
// Version increases on every write and is used for compare-and-set updates.
type Outage struct {
	ID             string
	VillageID      string
	Reason         string
	Severity       Severity
	StartTime      time.Time
	ExpectedReturn time.Time
	AffectedAreas  string
	Resolved       bool
	ResolvedTime   *time.Time
	ReportedBy     string
	ResolvedBy     string
	Version        int64
	UpdatedAt      time.Time
}

func (o *Outage) State() OutageState {
	if o.Resolved {
		return StateResolved
	}
	return StateOpen
}

// CanTransitionTo reports whether the outage may move to next. The only
// transition is open -> resolved.
func (s OutageState) CanTransitionTo(next OutageState) bool {
	return s == StateOpen && next == StateResolved
}

// Resolve moves an open outage to resolved. A second call fails with
// ErrOutageResolved and leaves ResolvedTime untouched.
func (o *Outage) Resolve(by string, at time.Time) error {
	if !o.State().CanTransitionTo(StateResolved) {
		return ErrOutageResolved
	}
	t := at.UTC()
	o.Resolved = true
	o.ResolvedTime = &t
	o.ResolvedBy = by
	o.UpdatedAt = t
	o.Version++
	return nil
}

// DurationFromHours converts a positive hour count into a duration.
func DurationFromHours(h float64) (time.Duration, error) {
	if h <= 0 {
		return 0, Invalid("duration_hours must be greater than 0")
	}
	if h > MaxDurationHours {
		return 0, Invalid("duration_hours must be at most %d", MaxDurationHours)
	}
	return time.Duration(h * float64(time.Hour)), nil
}

// OutagePatch carries the administratively mutable fields. Nil means
// "leave unchanged". DurationHours, when set, recomputes ExpectedReturn
// from the stored start time and wins over ExpectedReturn.
type OutagePatch struct {
	Reason         *string
	Severity       *string
	ExpectedReturn *time.Time
	DurationHours  *float64
	AffectedAreas  *string
}

func (p OutagePatch) Empty() bool {
	return p.Reason == nil && p.Severity == nil && p.ExpectedReturn == nil &&
		p.DurationHours == nil && p.AffectedAreas == nil
}

// Apply validates the patch against the outage and applies it. Resolved
// outages are immutable.
func (o *Outage) Apply(p OutagePatch, at time.Time) error {
	if o.Resolved {
		return ErrOutageResolved
	}
	next := *o

	if p.Reason != nil {
		r := strings.TrimSpace(*p.Reason)
		if r == "" {
			return Invalid("reason must not be empty")
		}
		next.Reason = r
	}
	if p.Severity != nil {
		sev, err := ParseSeverity(*p.Severity)
		if err != nil {
			return err
		}
		next.Severity = sev
	}
	if p.DurationHours != nil {
		d, err := DurationFromHours(*p.DurationHours)
		if err != nil {
			return err
		}
		next.ExpectedReturn = o.StartTime.Add(d)
	} else if p.ExpectedReturn != nil {
		if p.ExpectedReturn.Before(o.StartTime) {
			return Invalid("expected_return must not be before start_time")
		}
		next.ExpectedReturn = p.ExpectedReturn.UTC()
	}
	if p.AffectedAreas != nil {
		next.AffectedAreas = strings.TrimSpace(*p.AffectedAreas)
	}

	next.UpdatedAt = at.UTC()
	next.Version = o.Version + 1
	*o = next
	return nil
}
