package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/richxcame/vehicle-marketplace/pkg/eventbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSubscriber struct {
	subject  string
	consumer string
	handler  eventbus.HandlerFunc
	err      error
}

func (s *recordingSubscriber) Subscribe(_ context.Context, subject, consumerName string, handler eventbus.HandlerFunc) error {
	s.subject, s.consumer, s.handler = subject, consumerName, handler
	return s.err
}

func TestEventHandler_RegisterSubscriptions(t *testing.T) {
	sub := &recordingSubscriber{}
	h := NewEventHandler(&recordingDeliverer{})

	require.NoError(t, h.RegisterSubscriptions(context.Background(), sub))
	assert.Equal(t, eventbus.SubjectReservationsAll, sub.subject)
	assert.Equal(t, "notifications-reservations", sub.consumer)
	assert.NotNil(t, sub.handler)
}

func TestEventHandler_RegisterSubscriptionsError(t *testing.T) {
	sub := &recordingSubscriber{err: errors.New("stream missing")}
	err := NewEventHandler(&recordingDeliverer{}).RegisterSubscriptions(context.Background(), sub)
	assert.ErrorContains(t, err, "stream missing")
}

func TestEventHandler_DeliversKnownEvents(t *testing.T) {
	rec := &recordingDeliverer{}
	h := NewEventHandler(rec)

	event, err := eventbus.NewEvent(eventbus.SubjectReservationCancelled, "marketplace", sampleEvent())
	require.NoError(t, err)

	require.NoError(t, h.HandleEvent(context.Background(), event))
	assert.Equal(t, []string{eventbus.SubjectReservationCancelled}, rec.delivered())
}

func TestEventHandler_IgnoresUnknownTypes(t *testing.T) {
	rec := &recordingDeliverer{}
	event, err := eventbus.NewEvent("availability.changed", "marketplace", map[string]string{})
	require.NoError(t, err)

	require.NoError(t, NewEventHandler(rec).HandleEvent(context.Background(), event))
	assert.Empty(t, rec.delivered())
}

func TestEventHandler_BadPayloadIsRedelivered(t *testing.T) {
	event := &eventbus.Event{ID: "e1", Type: eventbus.SubjectReservationCreated, Data: []byte(`"not an object"`)}

	err := NewEventHandler(&recordingDeliverer{}).HandleEvent(context.Background(), event)
	assert.Error(t, err)
}

func TestEventHandler_SendFailureIsAcked(t *testing.T) {
	rec := &recordingDeliverer{err: errors.New("smtp down")}
	event, err := eventbus.NewEvent(eventbus.SubjectReservationCreated, "marketplace", sampleEvent())
	require.NoError(t, err)

	assert.NoError(t, NewEventHandler(rec).HandleEvent(context.Background(), event))
}
