package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/villagegrid/outage-alerts/internal/api/metrics"
	"github.com/villagegrid/outage-alerts/internal/core/domain"
	"github.com/villagegrid/outage-alerts/internal/core/ports"
)

// OutageService applies authorisation and village scoping on top of the
// ledger, joins villages at read time and hands lifecycle events to the
// notifier.
type OutageService struct {
	ledger   *OutageLedger
	villages ports.VillageRepository
	notifier ports.Notifier
	log      zerolog.Logger
}

func NewOutageService(ledger *OutageLedger, villages ports.VillageRepository, notifier ports.Notifier, log zerolog.Logger) *OutageService {
	return &OutageService{ledger: ledger, villages: villages, notifier: notifier, log: log}
}

var _ ports.OutageService = (*OutageService)(nil)

// Create reports a new outage. When in.VillageID is empty the employee's
// home village is used.
func (s *OutageService) Create(ctx context.Context, actor *domain.Session, in ports.CreateOutageInput) (*ports.OutageDetail, error) {
	if err := requireEmployee(actor); err != nil {
		return nil, err
	}
	villageID := strings.TrimSpace(in.VillageID)
	if villageID == "" {
		villageID = actor.VillageID
	}
	if villageID == "" {
		return nil, domain.Invalid("village is required")
	}
	village, err := s.villages.FindByID(ctx, villageID)
	if err != nil {
		return nil, fmt.Errorf("create outage: %w", err)
	}

	o, err := s.ledger.Create(ctx, NewOutage{
		VillageID:     villageID,
		Reason:        in.Reason,
		Severity:      in.Severity,
		DurationHours: in.DurationHours,
		AffectedAreas: in.AffectedAreas,
		ReportedBy:    actor.UserID,
	})
	if err != nil {
		return nil, err
	}
	metrics.OutagesReportedTotal.WithLabelValues(string(o.Severity)).Inc()
	s.log.Info().
		Str("outage_id", o.ID).
		Str("village_id", o.VillageID).
		Str("severity", string(o.Severity)).
		Str("reported_by", actor.UserID).
		Msg("outage reported")

	s.notifier.OutageReported(o, village)
	return &ports.OutageDetail{Outage: o, Village: village}, nil
}

// Resolve closes an open outage. A repeated resolve is a conflict.
func (s *OutageService) Resolve(ctx context.Context, actor *domain.Session, id string) (*ports.OutageDetail, error) {
	if err := requireEmployee(actor); err != nil {
		return nil, err
	}
	o, err := s.ledger.Resolve(ctx, id, actor.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrOutageResolved) {
			metrics.OutageConflictsTotal.WithLabelValues("resolve").Inc()
		}
		return nil, err
	}
	metrics.OutagesResolvedTotal.Inc()
	s.log.Info().Str("outage_id", o.ID).Str("resolved_by", actor.UserID).Msg("outage resolved")

	village := s.village(ctx, o.VillageID)
	s.notifier.PowerRestored(o, village)
	return &ports.OutageDetail{Outage: o, Village: village}, nil
}

func (s *OutageService) Update(ctx context.Context, actor *domain.Session, id string, patch domain.OutagePatch) (*ports.OutageDetail, error) {
	if err := requireEmployee(actor); err != nil {
		return nil, err
	}
	o, err := s.ledger.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			metrics.OutageConflictsTotal.WithLabelValues("update").Inc()
		}
		return nil, err
	}
	s.log.Info().Str("outage_id", o.ID).Int64("version", o.Version).Msg("outage updated")
	return &ports.OutageDetail{Outage: o, Village: s.village(ctx, o.VillageID)}, nil
}

func (s *OutageService) Delete(ctx context.Context, actor *domain.Session, id string) error {
	if err := requireEmployee(actor); err != nil {
		return err
	}
	if err := s.ledger.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("outage_id", id).Str("deleted_by", actor.UserID).Msg("outage deleted")
	return nil
}

// Get returns one outage. Residents only see outages of their own village;
// anything else is reported as not found.
func (s *OutageService) Get(ctx context.Context, actor *domain.Session, id string) (*ports.OutageDetail, error) {
	if actor == nil {
		return nil, domain.ErrUnauthorized
	}
	o, err := s.ledger.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsEmployee() && o.VillageID != actor.VillageID {
		return nil, domain.ErrOutageNotFound
	}
	return &ports.OutageDetail{Outage: o, Village: s.village(ctx, o.VillageID)}, nil
}

func (s *OutageService) ListAll(ctx context.Context, actor *domain.Session, in ports.ListOutagesInput) ([]*ports.OutageDetail, error) {
	if err := requireEmployee(actor); err != nil {
		return nil, err
	}
	filter := ports.OutageFilter{
		VillageID: strings.TrimSpace(in.VillageID),
		Resolved:  in.Resolved,
		From:      in.From,
		To:        in.To,
	}
	if in.Severity != "" {
		sev, err := domain.ParseSeverity(in.Severity)
		if err != nil {
			return nil, err
		}
		filter.Severity = sev
	}
	list, err := s.ledger.ListAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.join(ctx, list), nil
}

// ListActive returns the open outages of the caller's village. For residents
// requestedVillage is ignored; employees default to their own village.
func (s *OutageService) ListActive(ctx context.Context, actor *domain.Session, requestedVillage string) ([]*ports.OutageDetail, error) {
	if actor == nil {
		return nil, domain.ErrUnauthorized
	}
	villageID := actor.VillageID
	if actor.IsEmployee() && strings.TrimSpace(requestedVillage) != "" {
		villageID = strings.TrimSpace(requestedVillage)
	}
	if villageID == "" {
		return []*ports.OutageDetail{}, nil
	}
	list, err := s.ledger.ListActive(ctx, villageID)
	if err != nil {
		return nil, err
	}
	return s.join(ctx, list), nil
}

// ListHistory returns resolved outages. Residents are pinned to their own
// village; employees may ask for one village or all of them.
func (s *OutageService) ListHistory(ctx context.Context, actor *domain.Session, in ports.HistoryInput) ([]*ports.OutageDetail, error) {
	if actor == nil {
		return nil, domain.ErrUnauthorized
	}
	villageID := strings.TrimSpace(in.VillageID)
	if !actor.IsEmployee() {
		if actor.VillageID == "" {
			return []*ports.OutageDetail{}, nil
		}
		villageID = actor.VillageID
	}
	list, err := s.ledger.ListHistory(ctx, villageID, in.From, in.To)
	if err != nil {
		return nil, err
	}
	return s.join(ctx, list), nil
}

// join attaches villages, fetching each distinct village once.
func (s *OutageService) join(ctx context.Context, list []*domain.Outage) []*ports.OutageDetail {
	cache := make(map[string]*domain.Village)
	out := make([]*ports.OutageDetail, 0, len(list))
	for _, o := range list {
		v, ok := cache[o.VillageID]
		if !ok {
			v = s.village(ctx, o.VillageID)
			cache[o.VillageID] = v
		}
		out = append(out, &ports.OutageDetail{Outage: o, Village: v})
	}
	return out
}

// village never fails: villages are immutable and referenced by id, so a
// lookup error degrades to an id-only stub and is logged.
func (s *OutageService) village(ctx context.Context, id string) *domain.Village {
	v, err := s.villages.FindByID(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Str("village_id", id).Msg("village join failed")
		return &domain.Village{ID: id}
	}
	return v
}

func requireEmployee(actor *domain.Session) error {
	if actor == nil {
		return domain.ErrUnauthorized
	}
	if !actor.IsEmployee() {
		return domain.ErrEmployeeOnly
	}
	return nil
}
