package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/villagegrid/outage-alerts/internal/core/domain"
	"github.com/villagegrid/outage-alerts/internal/core/ports"
)

type VillageRepository struct {
	col *mongo.Collection
}

func NewVillageRepository(db *mongo.Database) *VillageRepository {
	return &VillageRepository{col: db.Collection(collectionVillages)}
}

var _ ports.VillageRepository = (*VillageRepository)(nil)

type villageDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Slug      string    `bson:"slug"`
	District  string    `bson:"district,omitempty"`
	State     string    `bson:"state,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

func (d villageDoc) toDomain() *domain.Village {
	return &domain.Village{
		ID:        d.ID,
		Name:      d.Name,
		Slug:      d.Slug,
		District:  d.District,
		State:     d.State,
		CreatedAt: d.CreatedAt.UTC(),
	}
}

func (r *VillageRepository) Create(ctx context.Context, v *domain.Village) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := villageDoc{ID: v.ID, Name: v.Name, Slug: v.Slug, District: v.District, State: v.State, CreatedAt: v.CreatedAt.UTC()}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrVillageExists
		}
		return fmt.Errorf("insert village: %w", err)
	}
	return nil
}

func (r *VillageRepository) FindByID(ctx context.Context, id string) (*domain.Village, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *VillageRepository) FindBySlug(ctx context.Context, slug string) (*domain.Village, error) {
	return r.findOne(ctx, bson.M{"slug": slug})
}

func (r *VillageRepository) findOne(ctx context.Context, filter bson.M) (*domain.Village, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc villageDoc
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrVillageNotFound
		}
		return nil, fmt.Errorf("find village: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *VillageRepository) List(ctx context.Context) ([]*domain.Village, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list villages: %w", err)
	}
	var docs []villageDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list villages: %w", err)
	}
	out := make([]*domain.Village, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}
