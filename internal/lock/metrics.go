package lock

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	outcomeAcquired = "acquired"
	outcomeTimeout  = "timeout"
	outcomeCanceled = "canceled"
	outcomeError    = "error"
	outcomeReleased = "released"
	outcomeNotOwner = "not_owner"
)

type metrics struct {
	acquireCount    metric.Int64Counter
	acquireDuration metric.Int64Histogram
	releaseCount    metric.Int64Counter
}

func newMetrics(logger zerolog.Logger) *metrics {
	meter := otel.Meter("github.com/cimillas/ticket-booking/lock")
	m := &metrics{}
	var err error

	m.acquireCount, err = meter.Int64Counter(
		"lock.acquire",
		metric.WithDescription("Lease acquisition attempts by backend and outcome"),
	)
	logMetricInitError(logger, "lock.acquire", err)

	m.acquireDuration, err = meter.Int64Histogram(
		"lock.acquire.duration_ms",
		metric.WithDescription("Time spent waiting for a lease"),
		metric.WithUnit("ms"),
	)
	logMetricInitError(logger, "lock.acquire.duration_ms", err)

	m.releaseCount, err = meter.Int64Counter(
		"lock.release",
		metric.WithDescription("Lease releases by outcome"),
	)
	logMetricInitError(logger, "lock.release", err)

	return m
}

func (m *metrics) recordAcquire(ctx context.Context, backend, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("outcome", outcome),
	)
	if m.acquireCount != nil {
		m.acquireCount.Add(context.WithoutCancel(ctx), 1, attrs)
	}
	if m.acquireDuration != nil {
		m.acquireDuration.Record(context.WithoutCancel(ctx), d.Milliseconds(), attrs)
	}
}

func (m *metrics) recordRelease(ctx context.Context, backend, outcome string) {
	if m == nil || m.releaseCount == nil {
		return
	}
	m.releaseCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("outcome", outcome),
	))
}

func logMetricInitError(logger zerolog.Logger, name string, err error) {
	if err != nil {
		logger.Warn().Err(err).Str("metric", name).Msg("failed to create metric instrument")
	}
}
