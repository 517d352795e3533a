// Package notifications turns reservation events into emails.
package notifications

import (
	"context"

	"github.com/richxcame/vehicle-marketplace/pkg/eventbus"
)

// Sender delivers one HTML email.
type Sender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Message is a rendered email waiting to be sent.
type Message struct {
	To      string
	Subject string
	Body    string
	Kind    string // template name
}

// Deliverer sends whatever emails one reservation event produces.
type Deliverer interface {
	Deliver(ctx context.Context, subject string, data *eventbus.ReservationEventData) error
}

// Notifier accepts events from the reservation service after commit.
type Notifier interface {
	Notify(ctx context.Context, subject string, data *eventbus.ReservationEventData) error
}
