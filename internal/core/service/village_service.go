package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/rs/zerolog"

	"github.com/villagegrid/outage-alerts/internal/core/domain"
	"github.com/villagegrid/outage-alerts/internal/core/ports"
)

// VillageService is the village registry. Reads are served to any
// authenticated caller; Create is used by provisioning only.
type VillageService struct {
	repo ports.VillageRepository
	log  zerolog.Logger
}

func NewVillageService(repo ports.VillageRepository, log zerolog.Logger) *VillageService {
	return &VillageService{repo: repo, log: log}
}

func (s *VillageService) Get(ctx context.Context, id string) (*domain.Village, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *VillageService) List(ctx context.Context) ([]*domain.Village, error) {
	return s.repo.List(ctx)
}

// Create provisions a village. The slug is derived from name and district,
// so the same village cannot be provisioned twice.
func (s *VillageService) Create(ctx context.Context, name, district, state string) (*domain.Village, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Invalid("name is required")
	}
	v := &domain.Village{
		ID:        uuid.NewString(),
		Name:      name,
		Slug:      slug.Make(name + " " + district),
		District:  strings.TrimSpace(district),
		State:     strings.TrimSpace(state),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("create village: %w", err)
	}
	s.log.Info().Str("village_id", v.ID).Str("slug", v.Slug).Msg("village created")
	return v, nil
}

// Ensure returns the village with the derived slug, creating it if needed.
func (s *VillageService) Ensure(ctx context.Context, name, district, state string) (*domain.Village, bool, error) {
	existing, err := s.repo.FindBySlug(ctx, slug.Make(strings.TrimSpace(name)+" "+district))
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrVillageNotFound) {
		return nil, false, fmt.Errorf("ensure village: %w", err)
	}
	v, err := s.Create(ctx, name, district, state)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}
