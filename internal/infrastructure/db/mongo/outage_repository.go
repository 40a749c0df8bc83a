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

// OutageRepository stores outages. Resolve and Update are single-document
// conditional writes; the filter carries the expected state.
type OutageRepository struct {
	col *mongo.Collection
}

func NewOutageRepository(db *mongo.Database) *OutageRepository {
	return &OutageRepository{col: db.Collection(collectionOutages)}
}

var _ ports.OutageRepository = (*OutageRepository)(nil)

type outageDoc struct {
	ID             string     `bson:"_id"`
	VillageID      string     `bson:"village_id"`
	Reason         string     `bson:"reason"`
	Severity       string     `bson:"severity"`
	StartTime      time.Time  `bson:"start_time"`
	ExpectedReturn time.Time  `bson:"expected_return"`
	AffectedAreas  string     `bson:"affected_areas,omitempty"`
	Resolved       bool       `bson:"resolved"`
	ResolvedTime   *time.Time `bson:"resolved_time,omitempty"`
	ReportedBy     string     `bson:"reported_by,omitempty"`
	ResolvedBy     string     `bson:"resolved_by,omitempty"`
	Version        int64      `bson:"version"`
	UpdatedAt      time.Time  `bson:"updated_at"`
}

func toOutageDoc(o *domain.Outage) outageDoc {
	return outageDoc{
		ID:             o.ID,
		VillageID:      o.VillageID,
		Reason:         o.Reason,
		Severity:       string(o.Severity),
		StartTime:      o.StartTime.UTC(),
		ExpectedReturn: o.ExpectedReturn.UTC(),
		AffectedAreas:  o.AffectedAreas,
		Resolved:       o.Resolved,
		ResolvedTime:   o.ResolvedTime,
		ReportedBy:     o.ReportedBy,
		ResolvedBy:     o.ResolvedBy,
		Version:        o.Version,
		UpdatedAt:      o.UpdatedAt.UTC(),
	}
}

func (d outageDoc) toDomain() *domain.Outage {
	o := &domain.Outage{
		ID:             d.ID,
		VillageID:      d.VillageID,
		Reason:         d.Reason,
		Severity:       domain.Severity(d.Severity),
		StartTime:      d.StartTime.UTC(),
		ExpectedReturn: d.ExpectedReturn.UTC(),
		AffectedAreas:  d.AffectedAreas,
		Resolved:       d.Resolved,
		ReportedBy:     d.ReportedBy,
		ResolvedBy:     d.ResolvedBy,
		Version:        d.Version,
		UpdatedAt:      d.UpdatedAt.UTC(),
	}
	if d.ResolvedTime != nil {
		t := d.ResolvedTime.UTC()
		o.ResolvedTime = &t
	}
	return o
}

func (r *OutageRepository) Create(ctx context.Context, o *domain.Outage) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, toOutageDoc(o)); err != nil {
		return fmt.Errorf("insert outage: %w", err)
	}
	return nil
}

func (r *OutageRepository) FindByID(ctx context.Context, id string) (*domain.Outage, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc outageDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrOutageNotFound
		}
		return nil, fmt.Errorf("find outage: %w", err)
	}
	return doc.toDomain(), nil
}

// buildOutageFilter translates an OutageFilter into a Mongo filter and the
// field results are sorted by.
func buildOutageFilter(f ports.OutageFilter) (bson.M, string) {
	filter := bson.M{}
	if f.VillageID != "" {
		filter["village_id"] = f.VillageID
	}
	if f.Resolved != nil {
		filter["resolved"] = *f.Resolved
	}
	if f.Severity != "" {
		filter["severity"] = string(f.Severity)
	}

	field := "start_time"
	if f.ByResolution {
		field = "resolved_time"
	}
	rng := bson.M{}
	if !f.From.IsZero() {
		rng["$gte"] = f.From.UTC()
	}
	if !f.To.IsZero() {
		rng["$lte"] = f.To.UTC()
	}
	if len(rng) > 0 {
		filter[field] = rng
	} else if f.ByResolution {
		filter[field] = bson.M{"$ne": nil}
	}
	return filter, field
}

func (r *OutageRepository) List(ctx context.Context, f ports.OutageFilter) ([]*domain.Outage, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter, sortField := buildOutageFilter(f)
	opts := options.Find().SetSort(bson.D{{Key: sortField, Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list outages: %w", err)
	}
	var docs []outageDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list outages: %w", err)
	}
	out := make([]*domain.Outage, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *OutageRepository) Resolve(ctx context.Context, id, resolvedBy string, at time.Time) (*domain.Outage, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	at = at.UTC()
	filter := bson.M{"_id": id, "resolved": false}
	update := bson.M{
		"$set": bson.M{
			"resolved":      true,
			"resolved_time": at,
			"resolved_by":   resolvedBy,
			"updated_at":    at,
		},
		"$inc": bson.M{"version": 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc outageDoc
	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		return doc.toDomain(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("resolve outage: %w", err)
	}
	return nil, r.explainMiss(ctx, id)
}

func (r *OutageRepository) Update(ctx context.Context, o *domain.Outage) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": o.ID, "resolved": false, "version": o.Version - 1}
	update := bson.M{"$set": bson.M{
		"reason":          o.Reason,
		"severity":        string(o.Severity),
		"expected_return": o.ExpectedReturn.UTC(),
		"affected_areas":  o.AffectedAreas,
		"updated_at":      o.UpdatedAt.UTC(),
		"version":         o.Version,
	}}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update outage: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}
	return r.explainMiss(ctx, o.ID)
}

// explainMiss tells why a conditional write matched nothing.
func (r *OutageRepository) explainMiss(ctx context.Context, id string) error {
	var doc outageDoc
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return domain.ErrOutageNotFound
	case err != nil:
		return fmt.Errorf("find outage: %w", err)
	case doc.Resolved:
		return domain.ErrOutageResolved
	default:
		return domain.ErrVersionConflict
	}
}

func (r *OutageRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete outage: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrOutageNotFound
	}
	return nil
}
