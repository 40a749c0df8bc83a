package ports

import (
	"context"
	"time"

	"github.com/villagegrid/outage-alerts/internal/core/domain"
)

// OutageFilter carries the query parameters for listing outages.
// Village scoping for residents is always enforced by the service layer.
type OutageFilter struct {
	VillageID string          // empty = all villages
	Resolved  *bool           // nil = both states
	Severity  domain.Severity // optional
	From      time.Time       // optional lower bound (inclusive)
	To        time.Time       // optional upper bound (inclusive)
	// ByResolution applies From/To to resolved_time and orders by it
	// instead of start_time. Used by history views.
	ByResolution bool
}

// OutageRepository defines persistence for outages. Resolve and Update are
// compare-and-set operations on a single record.
type OutageRepository interface {
	Create(ctx context.Context, o *domain.Outage) error
	FindByID(ctx context.Context, id string) (*domain.Outage, error)
	// List returns matching outages, newest first.
	List(ctx context.Context, filter OutageFilter) ([]*domain.Outage, error)

	// Resolve marks the outage resolved only if it is still open. Returns
	// domain.ErrOutageResolved when it already was, domain.ErrOutageNotFound
	// when it does not exist.
	Resolve(ctx context.Context, id, resolvedBy string, at time.Time) (*domain.Outage, error)
	// Update writes the mutable fields of o if the stored record is still
	// open and still at version o.Version-1. Returns domain.ErrOutageResolved
	// when the outage was resolved meanwhile and domain.ErrVersionConflict
	// when another update won.
	Update(ctx context.Context, o *domain.Outage) error
	Delete(ctx context.Context, id string) error
}
