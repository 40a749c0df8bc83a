package ports

import (
	"context"

	"github.com/villagegrid/outage-alerts/internal/core/domain"
)

// VillageRepository defines persistence for villages.
type VillageRepository interface {
	// Create returns domain.ErrVillageExists when the slug is taken.
	Create(ctx context.Context, v *domain.Village) error
	FindByID(ctx context.Context, id string) (*domain.Village, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Village, error)
	// List returns all villages ordered by name.
	List(ctx context.Context) ([]*domain.Village, error)
}

// VillageService is the read-mostly registry exposed to handlers.
type VillageService interface {
	Get(ctx context.Context, id string) (*domain.Village, error)
	List(ctx context.Context) ([]*domain.Village, error)
}
