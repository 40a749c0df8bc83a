package memory

import (
	"context"
	"sync"

	"github.com/villagegrid/outage-alerts/internal/core/domain"
	"github.com/villagegrid/outage-alerts/internal/core/ports"
)

// maxDeliveryRecords bounds the in-memory delivery log; older rows are
// discarded first.
const maxDeliveryRecords = 10000

// DeliveryLog implements ports.DeliveryRecorder.
type DeliveryLog struct {
	mu   sync.RWMutex
	recs []domain.DeliveryRecord
}

func NewDeliveryLog() *DeliveryLog {
	return &DeliveryLog{}
}

var _ ports.DeliveryRecorder = (*DeliveryLog)(nil)

func (l *DeliveryLog) Record(_ context.Context, rec domain.DeliveryRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recs = append(l.recs, rec)
	if len(l.recs) > maxDeliveryRecords {
		l.recs = append([]domain.DeliveryRecord(nil), l.recs[len(l.recs)-maxDeliveryRecords:]...)
	}
	return nil
}

// ForOutage returns the recorded attempts for one outage in write order.
func (l *DeliveryLog) ForOutage(outageID string) []domain.DeliveryRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []domain.DeliveryRecord
	for _, r := range l.recs {
		if r.OutageID == outageID {
			out = append(out, r)
		}
	}
	return out
}
