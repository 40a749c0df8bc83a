package handler

import (
	"github.com/villagegrid/outage-alerts/internal/core/domain"
	"github.com/villagegrid/outage-alerts/internal/core/ports"
)

// --- Request → Service input ---

func toRegisterInput(req registerRequest) ports.RegisterInput {
	village := req.VillageID
	if village == "" {
		village = req.Village
	}
	return ports.RegisterInput{
		Mobile:    req.Mobile,
		Password:  req.Password,
		Name:      req.Name,
		VillageID: village,
		Role:      req.Role,
	}
}

func toCreateOutageInput(req createOutageRequest) ports.CreateOutageInput {
	village := req.Village
	if village == "" {
		village = req.VillageID
	}
	return ports.CreateOutageInput{
		VillageID:     village,
		Reason:        req.Reason,
		Severity:      req.Severity,
		DurationHours: float64(req.DurationHours),
		AffectedAreas: req.AffectedAreas,
	}
}

func toOutagePatch(req updateOutageRequest) domain.OutagePatch {
	var duration *float64
	if req.DurationHours != nil {
		d := float64(*req.DurationHours)
		duration = &d
	}
	return domain.OutagePatch{
		Reason:         req.Reason,
		Severity:       req.Severity,
		ExpectedReturn: req.ExpectedReturn,
		DurationHours:  duration,
		AffectedAreas:  req.AffectedAreas,
	}
}

// --- Service result → HTTP response ---

func toUserResponse(u *domain.User) *userResponse {
	return &userResponse{
		ID:         u.ID,
		Mobile:     u.Mobile,
		Name:       u.Name,
		Role:       string(u.Role),
		VillageID:  u.VillageID,
		SMSEnabled: u.SMSEnabled,
		IsActive:   u.Active,
		CreatedAt:  u.CreatedAt.UTC(),
	}
}

func toVillageResponse(v *domain.Village) villageResponse {
	return villageResponse{
		ID:       v.ID,
		Name:     v.Name,
		Slug:     v.Slug,
		District: v.District,
		State:    v.State,
	}
}

func toVillageList(vs []*domain.Village) []villageResponse {
	out := make([]villageResponse, 0, len(vs))
	for _, v := range vs {
		out = append(out, toVillageResponse(v))
	}
	return out
}

func toOutageResponse(d *ports.OutageDetail) outageResponse {
	o := d.Outage
	resp := outageResponse{
		ID:             o.ID,
		Reason:         o.Reason,
		Severity:       string(o.Severity),
		StartTime:      o.StartTime.UTC(),
		ExpectedReturn: o.ExpectedReturn.UTC(),
		AffectedAreas:  o.AffectedAreas,
		Resolved:       o.Resolved,
		ResolvedTime:   o.ResolvedTime,
		ReportedBy:     o.ReportedBy,
		ResolvedBy:     o.ResolvedBy,
		State:          string(o.State()),
		UpdatedAt:      o.UpdatedAt.UTC(),
	}
	if d.Village != nil {
		resp.Village = toVillageResponse(d.Village)
	} else {
		resp.Village = villageResponse{ID: o.VillageID}
	}
	return resp
}

func toOutageList(ds []*ports.OutageDetail) []outageResponse {
	out := make([]outageResponse, 0, len(ds))
	for _, d := range ds {
		out = append(out, toOutageResponse(d))
	}
	return out
}
