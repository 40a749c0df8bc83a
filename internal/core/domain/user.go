package domain

import (
	"regexp"
	"strings"
	"time"
)

// Role is the authorisation role carried by every user.
type Role string

const (
	RoleResident Role = "resident"
	RoleEmployee Role = "employee"
)

// ParseRole accepts the canonical role names. An empty string yields the
// resident role; "user" is accepted as an alias used by older clients.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(RoleResident), "user":
		return RoleResident, nil
	case string(RoleEmployee):
		return RoleEmployee, nil
	}
	return "", Invalid("role must be one of: resident employee")
}

var mobilePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

// NormalizeMobile strips spaces and dashes and checks the result looks like
// a phone number. Mobiles are stored and compared in normalised form.
func NormalizeMobile(s string) (string, error) {
	m := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(s))
	if m == "" {
		return "", Invalid("mobile is required")
	}
	if !mobilePattern.MatchString(m) {
		return "", Invalid("mobile must contain 10 to 15 digits")
	}
	return m, nil
}

// User models an account in the identity store. Users are never deleted;
// Active=false disables login and notification delivery.
type User struct {
	ID           string
	Mobile       string
	Name         string
	PasswordHash string
	Role         Role
	VillageID    string
	SMSEnabled   bool
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) IsEmployee() bool { return u.Role == RoleEmployee }
