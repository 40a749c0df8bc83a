package ports

import (
	"context"
	"time"

	"github.com/villagegrid/outage-alerts/internal/core/domain"
)

// CreateOutageInput carries the data needed to report an outage.
// VillageID may be empty; the reporting employee's village is used then.
type CreateOutageInput struct {
	VillageID     string
	Reason        string
	Severity      string
	DurationHours float64
	AffectedAreas string
}

// ListOutagesInput carries the filters of the employee-wide listing.
type ListOutagesInput struct {
	VillageID string
	Resolved  *bool
	Severity  string
	From      time.Time
	To        time.Time
}

// HistoryInput carries the filters of the resolved-outage history view.
// VillageID is ignored for residents.
type HistoryInput struct {
	VillageID string
	From      time.Time
	To        time.Time
}

// OutageDetail is an outage joined with its village at read time.
type OutageDetail struct {
	Outage  *domain.Outage
	Village *domain.Village
}

// OutageService defines the use-case operations on outages. Every method
// takes the authenticated actor; a nil actor yields domain.ErrUnauthorized.
type OutageService interface {
	Create(ctx context.Context, actor *domain.Session, in CreateOutageInput) (*OutageDetail, error)
	Resolve(ctx context.Context, actor *domain.Session, id string) (*OutageDetail, error)
	Update(ctx context.Context, actor *domain.Session, id string, patch domain.OutagePatch) (*OutageDetail, error)
	Delete(ctx context.Context, actor *domain.Session, id string) error
	Get(ctx context.Context, actor *domain.Session, id string) (*OutageDetail, error)
	ListAll(ctx context.Context, actor *domain.Session, in ListOutagesInput) ([]*OutageDetail, error)
	// ListActive ignores requestedVillage for residents.
	ListActive(ctx context.Context, actor *domain.Session, requestedVillage string) ([]*OutageDetail, error)
	ListHistory(ctx context.Context, actor *domain.Session, in HistoryInput) ([]*OutageDetail, error)
}
