package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/richxcame/vehicle-marketplace/pkg/eventbus"
	"github.com/richxcame/vehicle-marketplace/pkg/logger"
	"github.com/richxcame/vehicle-marketplace/pkg/models"
	"go.uber.org/zap"
)

// TemplateData is what every email template sees.
type TemplateData struct {
	RecipientName string
	Event         *eventbus.ReservationEventData
}

type recipient struct {
	email    string
	name     string
	template string
}

// recipientsFor decides who hears about an event. Created goes to both
// parties, a decision goes to the requester, a cancellation goes to the
// requester and to the owner when they are a different person.
func recipientsFor(subject string, data *eventbus.ReservationEventData) []recipient {
	requester := recipient{email: data.RequesterEmail, name: data.RequesterName}
	owner := recipient{email: data.OwnerEmail, name: data.OwnerName}

	var out []recipient
	switch subject {
	case eventbus.SubjectReservationCreated:
		requester.template = TemplateCreatedRequester
		owner.template = TemplateCreatedOwner
		out = append(out, requester, owner)
	case eventbus.SubjectReservationConfirmed:
		requester.template = TemplateConfirmed
		out = append(out, requester)
	case eventbus.SubjectReservationRejected:
		requester.template = TemplateRejected
		out = append(out, requester)
	case eventbus.SubjectReservationCancelled:
		requester.template = TemplateCancelled
		out = append(out, requester)
		if data.OwnerID != data.RequesterID {
			owner.template = TemplateCancelled
			out = append(out, owner)
		}
	}

	filtered := out[:0]
	for _, r := range out {
		if r.email != "" {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// BuildMessages renders the emails an event produces. Unknown subjects and
// parties without an address produce nothing.
func BuildMessages(r *Renderer, subject string, data *eventbus.ReservationEventData) ([]Message, error) {
	if data == nil {
		return nil, errors.New("nil event data")
	}
	var msgs []Message
	for _, rc := range recipientsFor(subject, data) {
		name := rc.name
		if name == "" {
			name = rc.email
		}
		subj, body, err := r.Render(rc.template, TemplateData{RecipientName: name, Event: data})
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, Message{To: rc.email, Subject: subj, Body: body, Kind: rc.template})
	}
	return msgs, nil
}

// RecipientLookup resolves an event party to a name and address.
type RecipientLookup interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Mailer renders and sends the emails for one event.
type Mailer struct {
	sender   Sender
	renderer *Renderer
	users    RecipientLookup
}

func NewMailer(sender Sender, renderer *Renderer, users RecipientLookup) *Mailer {
	return &Mailer{sender: sender, renderer: renderer, users: users}
}

// Deliver sends every email the event produces. A failed send does not stop
// the others; the first error is returned.
func (m *Mailer) Deliver(ctx context.Context, subject string, data *eventbus.ReservationEventData) error {
	msgs, err := BuildMessages(m.renderer, subject, m.withRecipients(ctx, data))
	if err != nil {
		return err
	}

	var firstErr error
	for _, msg := range msgs {
		if err := m.sender.SendEmail(ctx, msg.To, msg.Subject, msg.Body); err != nil {
			emailsTotal.WithLabelValues(msg.Kind, "failed").Inc()
			logger.WarnContext(ctx, "reservation email failed",
				zap.String("kind", msg.Kind),
				zap.String("to", maskEmail(msg.To)),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = fmt.Errorf("send %s: %w", msg.Kind, err)
			}
			continue
		}
		emailsTotal.WithLabelValues(msg.Kind, "sent").Inc()
	}
	return firstErr
}

// withRecipients returns a copy of data with missing party addresses looked
// up. A party that cannot be resolved keeps an empty address and gets no email.
func (m *Mailer) withRecipients(ctx context.Context, data *eventbus.ReservationEventData) *eventbus.ReservationEventData {
	if data == nil || m.users == nil {
		return data
	}
	out := *data
	if out.RequesterEmail == "" {
		out.RequesterName, out.RequesterEmail = m.lookup(ctx, "requester", out.RequesterID)
	}
	if out.OwnerEmail == "" {
		if out.OwnerID == out.RequesterID {
			out.OwnerName, out.OwnerEmail = out.RequesterName, out.RequesterEmail
		} else {
			out.OwnerName, out.OwnerEmail = m.lookup(ctx, "owner", out.OwnerID)
		}
	}
	return &out
}

func (m *Mailer) lookup(ctx context.Context, party string, id uuid.UUID) (string, string) {
	if id == uuid.Nil {
		return "", ""
	}
	u, err := m.users.GetUserByID(ctx, id)
	if err != nil {
		recipientLookupFailures.WithLabelValues(party).Inc()
		logger.WarnContext(ctx, "notification recipient lookup failed",
			zap.String("party", party),
			zap.String("user_id", id.String()),
			zap.Error(err),
		)
		return "", ""
	}
	return u.DisplayName(), u.Email
}
