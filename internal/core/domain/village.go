package domain

import "time"

// Village is a provisioned settlement that users and outages belong to.
// Villages are immutable once created.
type Village struct {
	ID        string
	Name      string
	Slug      string
	District  string
	State     string
	CreatedAt time.Time
}
