package reservation

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/richxcame/vehicle-marketplace/pkg/common"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_operations_total",
		Help: "Reservation operations by outcome",
	}, []string{"operation", "listing_mode", "outcome"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reservation_operation_duration_seconds",
		Help:    "Time spent in reservation operations, including the transaction",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	notifyFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_notifications_failed_total",
		Help: "Reservation events the notifier refused",
	}, []string{"subject"})
)

// outcome labels an operation result without leaking error text into metric
// cardinality.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	appErr, ok := common.AsAppError(err)
	if !ok {
		return "error"
	}
	switch appErr.Code {
	case http.StatusConflict:
		return "conflict"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusBadRequest:
		return "invalid"
	case http.StatusForbidden:
		return "forbidden"
	}
	return "error"
}
