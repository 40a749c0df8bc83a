package domain

import "time"

// Session binds an issued token to a user until ExpiresAt. Role and
// VillageID are captured at login so authorisation needs no user lookup;
// neither can change while a session is alive.
type Session struct {
	ID        string
	UserID    string
	Role      Role
	VillageID string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

func (s *Session) IsEmployee() bool { return s.Role == RoleEmployee }
