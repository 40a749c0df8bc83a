package handler

import "time"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// --- Auth / users ---

type loginRequest struct {
	Mobile   string `json:"mobile"   validate:"required"`
	Password string `json:"password" validate:"required"`
}

// registerRequest accepts the home village as either village_id or village.
type registerRequest struct {
	Mobile    string `json:"mobile"     validate:"required"`
	Password  string `json:"password"   validate:"required"`
	Name      string `json:"name"       validate:"required"`
	VillageID string `json:"village_id"`
	Village   string `json:"village"`
	Role      string `json:"role"`
}

type toggleSMSRequest struct {
	Enabled *bool `json:"enabled"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

type userResponse struct {
	ID         string           `json:"id"`
	Mobile     string           `json:"mobile"`
	Name       string           `json:"name"`
	Role       string           `json:"role"`
	VillageID  string           `json:"village_id,omitempty"`
	Village    *villageResponse `json:"village,omitempty"`
	SMSEnabled bool             `json:"sms_enabled"`
	IsActive   bool             `json:"is_active"`
	CreatedAt  time.Time        `json:"created_at"`
}

type authResponse struct {
	Token string        `json:"token,omitempty"`
	User  *userResponse `json:"user,omitempty"`
}

// --- Villages ---

type villageResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	District string `json:"district,omitempty"`
	State    string `json:"state,omitempty"`
}

// --- Outages ---

type createOutageRequest struct {
	Village       string `json:"village"`
	VillageID     string `json:"village_id"`
	Reason        string `json:"reason"         validate:"required"`
	DurationHours hours  `json:"duration_hours" validate:"required,gt=0,lte=720" swaggertype:"number"`
	// Severity is matched case-insensitively: low, medium or high.
	Severity      string `json:"severity"       validate:"required"`
	AffectedAreas string `json:"affected_areas"`
}

// updateOutageRequest is a partial update; absent fields stay unchanged.
type updateOutageRequest struct {
	Reason         *string    `json:"reason"`
	Severity       *string    `json:"severity"`
	ExpectedReturn *time.Time `json:"expected_return"`
	DurationHours  *hours     `json:"duration_hours" swaggertype:"number"`
	AffectedAreas  *string    `json:"affected_areas"`
}

type outageResponse struct {
	ID             string          `json:"id"`
	Village        villageResponse `json:"village"`
	Reason         string          `json:"reason"`
	Severity       string          `json:"severity"`
	StartTime      time.Time       `json:"start_time"`
	ExpectedReturn time.Time       `json:"expected_return"`
	AffectedAreas  string          `json:"affected_areas"`
	Resolved       bool            `json:"resolved"`
	ResolvedTime   *time.Time      `json:"resolved_time"`
	ReportedBy     string          `json:"reported_by,omitempty"`
	ResolvedBy     string          `json:"resolved_by,omitempty"`
	State          string          `json:"state"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// --- Health ---

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}
