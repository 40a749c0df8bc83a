package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/villagegrid/outage-alerts/internal/api/metrics"
	"github.com/villagegrid/outage-alerts/internal/core/domain"
	"github.com/villagegrid/outage-alerts/internal/core/ports"
)

const (
	defaultWorkers     = 8
	defaultMaxAttempts = 5
	defaultBackoff     = 2 * time.Second
	defaultSendTimeout = 10 * time.Second
	maxBackoff         = 5 * time.Minute
	channelBuffer      = 256
)

// Options tunes a Dispatcher. Zero values select the defaults above.
type Options struct {
	Workers     int
	MaxAttempts int
	BaseBackoff time.Duration
	SendTimeout time.Duration
}

// Dispatcher routes delivery jobs to a fixed set of workers using consistent
// hashing on the recipient mobile, so messages to one recipient keep their
// order. Failed sends are rescheduled with exponential backoff.
type Dispatcher struct {
	workers  []chan domain.DeliveryJob
	sender   ports.SMSSender
	recorder ports.DeliveryRecorder
	opts     Options
	log      zerolog.Logger

	mu  sync.Mutex
	ctx context.Context
}

// NewDispatcher creates a Dispatcher. Workers do nothing until Start.
func NewDispatcher(sender ports.SMSSender, recorder ports.DeliveryRecorder, opts Options, log zerolog.Logger) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = defaultBackoff
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}
	d := &Dispatcher{
		workers:  make([]chan domain.DeliveryJob, opts.Workers),
		sender:   sender,
		recorder: recorder,
		opts:     opts,
		log:      log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.DeliveryJob, channelBuffer)
	}
	return d
}

var _ ports.DeliveryQueue = (*Dispatcher)(nil)

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	d.ctx = ctx
	d.mu.Unlock()
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue hands a job to the worker responsible for its mobile. It never
// blocks and reports false when that worker's buffer is full.
func (d *Dispatcher) Enqueue(job domain.DeliveryJob) bool {
	idx := d.shardIndex(job.Mobile)
	select {
	case d.workers[idx] <- job:
		metrics.NotificationQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return true
	default:
		return false
	}
}

// shardIndex maps a mobile deterministically to a worker index.
func (d *Dispatcher) shardIndex(mobile string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(mobile))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.DeliveryJob) {
	depth := metrics.NotificationQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-ch:
			if !ok {
				return
			}
			depth.Set(float64(len(ch)))
			d.deliver(ctx, id, job)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, workerID int, job domain.DeliveryJob) {
	sendCtx, cancel := context.WithTimeout(ctx, d.opts.SendTimeout)
	start := time.Now()
	err := d.sender.Send(sendCtx, job.Mobile, job.Message)
	cancel()

	rec := domain.DeliveryRecord{
		JobID:    job.ID,
		Kind:     job.Kind,
		OutageID: job.OutageID,
		Mobile:   job.Mobile,
		Attempt:  job.Attempt,
		At:       time.Now().UTC(),
	}

	switch {
	case err == nil:
		metrics.NotificationDeliveryDuration.WithLabelValues("sent").Observe(time.Since(start).Seconds())
		rec.Status = domain.DeliverySent
		d.log.Debug().Str("job_id", job.ID).Int("worker_id", workerID).Msg("sms delivered")
	case job.Attempt < d.opts.MaxAttempts:
		metrics.NotificationDeliveryDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		rec.Status = domain.DeliveryRetrying
		rec.Error = err.Error()
		d.log.Warn().Err(err).
			Str("job_id", job.ID).
			Int("attempt", job.Attempt).
			Int("worker_id", workerID).
			Msg("sms delivery failed, retrying")
	default:
		metrics.NotificationDeliveryDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		rec.Status = domain.DeliveryFailed
		rec.Error = err.Error()
		d.log.Error().Err(err).
			Str("job_id", job.ID).
			Str("outage_id", job.OutageID).
			Int("attempt", job.Attempt).
			Msg("sms delivery failed permanently")
	}
	metrics.NotificationsTotal.WithLabelValues(string(job.Kind), string(rec.Status)).Inc()

	if recErr := d.recorder.Record(ctx, rec); recErr != nil {
		d.log.Warn().Err(recErr).Str("job_id", job.ID).Msg("failed to record delivery")
	}
	if rec.Status == domain.DeliveryRetrying {
		d.retryLater(job)
	}
}

// retryLater re-enqueues job after its backoff. A retry that finds the
// buffer full is recorded as failed.
func (d *Dispatcher) retryLater(job domain.DeliveryJob) {
	delay := Backoff(d.opts.BaseBackoff, job.Attempt)
	job.Attempt++
	time.AfterFunc(delay, func() {
		d.mu.Lock()
		ctx := d.ctx
		d.mu.Unlock()
		if ctx == nil || ctx.Err() != nil {
			return
		}
		if d.Enqueue(job) {
			return
		}
		metrics.NotificationsTotal.WithLabelValues(string(job.Kind), "dropped").Inc()
		rec := domain.DeliveryRecord{
			JobID:    job.ID,
			Kind:     job.Kind,
			OutageID: job.OutageID,
			Mobile:   job.Mobile,
			Attempt:  job.Attempt,
			Status:   domain.DeliveryFailed,
			Error:    "queue full",
			At:       time.Now().UTC(),
		}
		if err := d.recorder.Record(ctx, rec); err != nil {
			d.log.Warn().Err(err).Str("job_id", job.ID).Msg("failed to record dropped retry")
		}
	})
}

// Backoff returns base * 2^(attempt-1), capped at maxBackoff.
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
