package app

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/cimillas/ticket-booking/internal/domain"
)

type bookingMetrics struct {
	attempts      metric.Int64Counter
	compensations metric.Int64Counter
}

func newBookingMetrics(logger zerolog.Logger) *bookingMetrics {
	meter := otel.Meter("github.com/cimillas/ticket-booking/app")
	m := &bookingMetrics{}
	var err error

	m.attempts, err = meter.Int64Counter(
		"booking.attempts",
		metric.WithDescription("Booking attempts by outcome"),
	)
	if err != nil {
		logger.Warn().Err(err).Str("metric", "booking.attempts").Msg("failed to create metric instrument")
	}

	m.compensations, err = meter.Int64Counter(
		"booking.compensations",
		metric.WithDescription("Inventory compensations after failed booking writes"),
	)
	if err != nil {
		logger.Warn().Err(err).Str("metric", "booking.compensations").Msg("failed to create metric instrument")
	}
	return m
}

func (m *bookingMetrics) recordAttempt(ctx context.Context, err error) {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(attribute.String("outcome", outcomeOf(err))))
}

func (m *bookingMetrics) recordCompensation(ctx context.Context, result string) {
	if m == nil || m.compensations == nil {
		return
	}
	m.compensations.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(attribute.String("result", result)))
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "confirmed"
	case errors.Is(err, domain.ErrEventNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, domain.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, domain.ErrDuplicateBooking):
		return "duplicate"
	case errors.Is(err, domain.ErrVersionConflict):
		return "version_conflict"
	case errors.Is(err, domain.ErrReferenceCollision):
		return "reference_collision"
	case errors.Is(err, domain.ErrLockUnavailable):
		return "lock_unavailable"
	case isInputError(err):
		return "invalid_input"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}

func isInputError(err error) bool {
	return errors.Is(err, domain.ErrInvalidQuantity) ||
		errors.Is(err, domain.ErrInvalidID) ||
		errors.Is(err, domain.ErrUserIDRequired) ||
		errors.Is(err, domain.ErrInvalidEmail)
}
