package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/richxcame/vehicle-marketplace/pkg/async"
	"github.com/richxcame/vehicle-marketplace/pkg/eventbus"
	"github.com/richxcame/vehicle-marketplace/pkg/logger"
	"github.com/richxcame/vehicle-marketplace/pkg/resilience"
)

const eventSource = "marketplace"

var _ Notifier = (*BusNotifier)(nil)

// BusNotifier publishes reservation events to JetStream for the
// notifications worker instead of sending mail in-process.
type BusNotifier struct {
	publisher eventbus.Publisher
	breaker   *resilience.CircuitBreaker
	timeout   time.Duration
}

func NewBusNotifier(publisher eventbus.Publisher, breaker *resilience.CircuitBreaker, timeout time.Duration) *BusNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &BusNotifier{publisher: publisher, breaker: breaker, timeout: timeout}
}

// Notify builds the event synchronously and publishes it in the background.
// Only envelope errors are returned; publish failures are logged.
func (n *BusNotifier) Notify(ctx context.Context, subject string, data *eventbus.ReservationEventData) error {
	event, err := eventbus.NewEvent(subject, eventSource, data)
	if err != nil {
		return fmt.Errorf("build %s event: %w", subject, err)
	}
	event.CorrelationID = logger.CorrelationIDFromContext(ctx)

	async.GoWithTimeout(ctx, "publish "+subject, n.timeout, func(ctx context.Context) error {
		_, err := n.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
			return nil, n.publisher.Publish(ctx, subject, event)
		})
		if err != nil {
			publishTotal.WithLabelValues(subject, "failed").Inc()
			return err
		}
		publishTotal.WithLabelValues(subject, "published").Inc()
		return nil
	})
	return nil
}
