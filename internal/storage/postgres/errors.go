package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Constraint names from the migrations; CreateBooking keys its domain errors
// off them.
const (
	constraintBookingReference      = "bookings_reference_key"
	constraintBookingConfirmedEmail = "bookings_event_email_confirmed_idx"
)

func pgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

func isUniqueViolation(err error) bool {
	pgErr, ok := pgError(err)
	return ok && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	pgErr, ok := pgError(err)
	return ok && pgErr.Code == "23503"
}

func isInvalidUUID(err error) bool {
	pgErr, ok := pgError(err)
	return ok && pgErr.Code == "22P02"
}

func violatedConstraint(err error) string {
	if pgErr, ok := pgError(err); ok {
		return pgErr.ConstraintName
	}
	return ""
}
