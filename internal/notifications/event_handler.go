package notifications

import (
	"context"
	"fmt"

	"github.com/richxcame/vehicle-marketplace/pkg/eventbus"
	"github.com/richxcame/vehicle-marketplace/pkg/logger"
	"go.uber.org/zap"
)

const reservationsConsumer = "notifications-reservations"

// EventHandler processes reservation events from the NATS event bus and
// sends the emails.
type EventHandler struct {
	deliverer Deliverer
}

// NewEventHandler creates an event handler backed by a deliverer.
func NewEventHandler(deliverer Deliverer) *EventHandler {
	return &EventHandler{deliverer: deliverer}
}

// RegisterSubscriptions subscribes to reservation lifecycle events on the bus.
func (h *EventHandler) RegisterSubscriptions(ctx context.Context, bus eventbus.Subscriber) error {
	if err := bus.Subscribe(ctx, eventbus.SubjectReservationsAll, reservationsConsumer, h.HandleEvent); err != nil {
		return fmt.Errorf("subscribe to reservation events: %w", err)
	}
	logger.Info("notifications: subscribed to reservation lifecycle events")
	return nil
}

// HandleEvent decodes and delivers one event. A payload that does not decode
// is returned as an error; a failed send is logged and acked, since the SMTP
// client has already retried.
func (h *EventHandler) HandleEvent(ctx context.Context, event *eventbus.Event) error {
	switch event.Type {
	case eventbus.SubjectReservationCreated,
		eventbus.SubjectReservationConfirmed,
		eventbus.SubjectReservationRejected,
		eventbus.SubjectReservationCancelled:
	default:
		logger.DebugContext(ctx, "notifications: ignoring unknown event type", zap.String("type", event.Type))
		return nil
	}

	var data eventbus.ReservationEventData
	if err := event.Decode(&data); err != nil {
		return err
	}

	if err := h.deliverer.Deliver(ctx, event.Type, &data); err != nil {
		logger.WarnContext(ctx, "failed to send reservation notification",
			zap.String("event_id", event.ID),
			zap.String("type", event.Type),
			zap.Error(err),
		)
	}
	return nil
}
