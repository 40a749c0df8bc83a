package ports

import (
	"context"

	"github.com/villagegrid/outage-alerts/internal/core/domain"
)

// RegisterInput carries the fields accepted at self-registration.
type RegisterInput struct {
	Mobile    string
	Password  string
	Name      string
	VillageID string
	Role      string
}

// IdentityService covers accounts and sessions.
type IdentityService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, string, error)
	Authenticate(ctx context.Context, mobile, password string) (*domain.User, string, error)
	ValidateSession(ctx context.Context, token string) (*domain.Session, error)
	CurrentUser(ctx context.Context, actor *domain.Session) (*domain.User, error)
	SetSMSPreference(ctx context.Context, actor *domain.Session, userID string, enabled bool) (*domain.User, error)
	// ToggleSMS flips the flag. A non-empty idempotencyKey makes retries of
	// the same logical toggle converge on one result.
	ToggleSMS(ctx context.Context, actor *domain.Session, userID, idempotencyKey string) (*domain.User, error)
	ChangePassword(ctx context.Context, actor *domain.Session, userID, oldPassword, newPassword string) (*domain.User, string, error)
	Logout(ctx context.Context, token string) error
	LogoutAll(ctx context.Context, actor *domain.Session) error
}
