package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/villagegrid/outage-alerts/internal/core/domain"
	"github.com/villagegrid/outage-alerts/internal/core/ports"
)

// DeliveryRepository is the audit trail of SMS delivery attempts.
type DeliveryRepository struct {
	col *mongo.Collection
}

func NewDeliveryRepository(db *mongo.Database) *DeliveryRepository {
	return &DeliveryRepository{col: db.Collection(collectionDeliveries)}
}

var _ ports.DeliveryRecorder = (*DeliveryRepository)(nil)

type deliveryDoc struct {
	JobID    string    `bson:"job_id"`
	Kind     string    `bson:"kind"`
	OutageID string    `bson:"outage_id"`
	Mobile   string    `bson:"mobile"`
	Attempt  int       `bson:"attempt"`
	Status   string    `bson:"status"`
	Error    string    `bson:"error,omitempty"`
	At       time.Time `bson:"at"`
}

func (r *DeliveryRepository) Record(ctx context.Context, rec domain.DeliveryRecord) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := deliveryDoc{
		JobID:    rec.JobID,
		Kind:     string(rec.Kind),
		OutageID: rec.OutageID,
		Mobile:   rec.Mobile,
		Attempt:  rec.Attempt,
		Status:   string(rec.Status),
		Error:    rec.Error,
		At:       rec.At.UTC(),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert delivery record: %w", err)
	}
	return nil
}
