package notifications

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/richxcame/vehicle-marketplace/pkg/async"
	"github.com/richxcame/vehicle-marketplace/pkg/eventbus"
	"github.com/richxcame/vehicle-marketplace/pkg/logger"
	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned by Notify when the buffer has no room.
	ErrQueueFull = errors.New("notification queue full")
	// ErrDispatcherStopped is returned by Notify after Stop.
	ErrDispatcherStopped = errors.New("notification dispatcher stopped")
)

var _ Notifier = (*Dispatcher)(nil)

type job struct {
	ctx     context.Context
	subject string
	data    *eventbus.ReservationEventData
}

// Dispatcher queues reservation events on a bounded channel and delivers them
// from a fixed pool of workers. Notify never blocks.
type Dispatcher struct {
	deliverer   Deliverer
	queue       chan job
	workers     int
	sendTimeout time.Duration

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher. Call Start before Notify.
func NewDispatcher(deliverer Deliverer, queueSize, workers int, sendTimeout time.Duration) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	if workers <= 0 {
		workers = 1
	}
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	return &Dispatcher{
		deliverer:   deliverer,
		queue:       make(chan job, queueSize),
		workers:     workers,
		sendTimeout: sendTimeout,
	}
}

// Start launches the workers.
func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run(i)
	}
	logger.Info("notification dispatcher started",
		zap.Int("workers", d.workers),
		zap.Int("queue_size", cap(d.queue)),
	)
}

// Notify enqueues an event. The request context is detached so the send
// outlives the request while keeping its correlation id.
func (d *Dispatcher) Notify(ctx context.Context, subject string, data *eventbus.ReservationEventData) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		droppedTotal.WithLabelValues("stopped").Inc()
		return ErrDispatcherStopped
	}

	select {
	case d.queue <- job{ctx: async.Detached(ctx), subject: subject, data: data}:
		queueDepth.Inc()
		return nil
	default:
		droppedTotal.WithLabelValues("queue_full").Inc()
		logger.WarnContext(ctx, "notification queue full, dropping event",
			zap.String("subject", subject),
			zap.String("reservation_id", data.ReservationID.String()),
		)
		return ErrQueueFull
	}
}

// Stop refuses new events and waits for the queue to drain or ctx to end.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("notification dispatcher drained")
		return nil
	case <-ctx.Done():
		logger.Warn("notification dispatcher stop timed out", zap.Int("pending", len(d.queue)))
		return ctx.Err()
	}
}

func (d *Dispatcher) run(worker int) {
	defer d.wg.Done()
	for j := range d.queue {
		queueDepth.Dec()
		d.handle(worker, j)
	}
}

func (d *Dispatcher) handle(worker int, j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.sendTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "notification worker panicked",
				zap.Int("worker", worker),
				zap.Any("panic", r),
			)
		}
	}()

	if err := d.deliverer.Deliver(ctx, j.subject, j.data); err != nil {
		logger.WarnContext(ctx, "reservation notification not delivered",
			zap.Int("worker", worker),
			zap.String("subject", j.subject),
			zap.String("reservation_id", j.data.ReservationID.String()),
			zap.Error(err),
		)
	}
}
