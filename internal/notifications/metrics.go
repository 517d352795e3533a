package notifications

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	emailsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_emails_total",
		Help: "Reservation emails by template and result",
	}, []string{"kind", "result"})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "notification_queue_depth",
		Help: "Events waiting in the notification queue",
	})

	droppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_dropped_total",
		Help: "Events dropped before delivery",
	}, []string{"reason"})

	publishTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_events_published_total",
		Help: "Reservation events published to the bus",
	}, []string{"subject", "result"})

	recipientLookupFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_recipient_lookup_failures_total",
		Help: "Event parties whose address could not be resolved",
	}, []string{"party"})
)
