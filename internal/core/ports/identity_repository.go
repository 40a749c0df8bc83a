package ports

import (
	"context"
	"time"

	"github.com/villagegrid/outage-alerts/internal/core/domain"
)

// UserRepository defines persistence for user accounts.
type UserRepository interface {
	// Create inserts a new user. Returns domain.ErrMobileTaken when the
	// mobile number is already registered.
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByMobile(ctx context.Context, mobile string) (*domain.User, error)

	// SetSMSEnabled stores the flag and returns the updated user.
	SetSMSEnabled(ctx context.Context, id string, enabled bool, at time.Time) (*domain.User, error)
	// ToggleSMS atomically flips the flag and returns the updated user.
	ToggleSMS(ctx context.Context, id string, at time.Time) (*domain.User, error)

	UpdatePassword(ctx context.Context, id, hash string, at time.Time) error
	SetActive(ctx context.Context, id string, active bool, at time.Time) error

	// ListSubscribers returns active users of the village with SMS enabled.
	ListSubscribers(ctx context.Context, villageID string) ([]*domain.User, error)
	Count(ctx context.Context) (int64, error)
}

// SessionStore keeps live sessions keyed by session ID. Get must be a single
// keyed lookup; it gates every authenticated request.
type SessionStore interface {
	Save(ctx context.Context, s *domain.Session) error
	// Get returns domain.ErrSessionNotFound for unknown or expired sessions.
	Get(ctx context.Context, id string) (*domain.Session, error)
	// Delete is idempotent.
	Delete(ctx context.Context, id string) error
	DeleteAllForUser(ctx context.Context, userID string) error
}

// IdempotencyStore remembers the first value written under a key for ttl.
type IdempotencyStore interface {
	// Remember stores value under key unless the key already exists, and
	// returns whichever value is stored after the call.
	Remember(ctx context.Context, key, value string, ttl time.Duration) (string, error)
}
