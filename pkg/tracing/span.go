package tracing

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func StartSpan(ctx context.Context, tracerName, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, spanName, opts...)
}

func AddSpanAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attrs...)
	}
}

// RecordError marks the active span as failed.
func RecordError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// TraceID returns the active trace ID or an empty string.
func TraceID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

// Run wraps fn in a span and records its error.
func Run(ctx context.Context, tracerName, spanName string, attrs []attribute.KeyValue, fn func(ctx context.Context) error) error {
	ctx, span := StartSpan(ctx, tracerName, spanName, trace.WithAttributes(attrs...))
	defer span.End()

	err := fn(ctx)
	RecordError(ctx, err)
	return err
}

func ReservationAttributes(reservationID, vehicleID uuid.UUID) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String("vehicle.id", vehicleID.String())}
	if reservationID != uuid.Nil {
		attrs = append(attrs, attribute.String("reservation.id", reservationID.String()))
	}
	return attrs
}
