package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEventNotFound       = errors.New("event not found")
	ErrInvalidState        = errors.New("event is not bookable")
	ErrCapacityExceeded    = errors.New("insufficient tickets")
	ErrDuplicateBooking    = errors.New("user has already booked this event")
	ErrVersionConflict     = errors.New("booking conflict detected, please try again")
	ErrReferenceCollision  = errors.New("booking reference collision, please try again")
	ErrLockUnavailable     = errors.New("unable to process booking at this time, please try again")
	ErrInternal            = errors.New("booking processing failed")
	ErrInvalidQuantity     = errors.New("quantity must be between 1 and 10")
	ErrInvalidID           = errors.New("invalid id")
	ErrUserIDRequired      = errors.New("user id required")
	ErrInvalidEmail        = errors.New("invalid email")
	ErrEventNameRequired   = errors.New("event name required")
	ErrEventNameTooLong    = errors.New("event name cannot exceed 100 characters")
	ErrVenueRequired       = errors.New("venue required")
	ErrInvalidTotalTickets = errors.New("total tickets must be between 1 and 100000")
	ErrInvalidPrice        = errors.New("price cannot be negative")
	ErrEventDateNotFuture  = errors.New("event date must be in the future")
)

// InvalidState variants. Each one matches ErrInvalidState with errors.Is.
var (
	ErrEventCancelled = fmt.Errorf("%w: event has been cancelled", ErrInvalidState)
	ErrEventStarted   = fmt.Errorf("%w: event date has passed", ErrInvalidState)
)

// ErrEventSoldOut is an invalid state that is also a capacity shortfall, so
// callers racing for the last tickets all see ErrCapacityExceeded.
var ErrEventSoldOut error = soldOutError{}

type soldOutError struct{}

func (soldOutError) Error() string { return "event is sold out" }

func (soldOutError) Is(target error) bool {
	return target == ErrInvalidState || target == ErrCapacityExceeded
}

// CapacityError reports how many tickets were left when a request could not be served.
type CapacityError struct {
	Available int
}

func (e *CapacityError) Error() string {
	if e.Available <= 0 {
		return "no tickets available for this event"
	}
	return fmt.Sprintf("only %d tickets available", e.Available)
}

func (e *CapacityError) Is(target error) bool {
	return target == ErrCapacityExceeded
}

// VersionConflictError is returned when the conditional inventory update lost a race.
type VersionConflictError struct {
	EventID  string
	Expected int64
	Actual   int64
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("%s (event %s: expected version %d, found %d)", ErrVersionConflict, e.EventID, e.Expected, e.Actual)
}

func (e *VersionConflictError) Is(target error) bool {
	return target == ErrVersionConflict
}
