package domain

import "time"

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

const (
	MinBookingQuantity = 1
	MaxBookingQuantity = 10
)

// Booking is a confirmed reservation of tickets for one event.
// At most one confirmed booking exists per (EventID, UserEmail).
type Booking struct {
	ID               string
	EventID          string
	UserID           string
	UserEmail        string
	Quantity         int
	TotalAmountCents int64
	Status           BookingStatus
	Reference        string
	CreatedAt        time.Time
	Event            EventSummary
}

// EventSummary is the subset of event fields returned with a booking.
type EventSummary struct {
	ID         string
	Name       string
	Venue      string
	StartsAt   time.Time
	PriceCents int64
}

// ValidQuantity reports whether q is within the per-booking limits.
func ValidQuantity(q int) bool {
	return q >= MinBookingQuantity && q <= MaxBookingQuantity
}

// BookingFilter narrows a booking listing. Empty fields match everything.
type BookingFilter struct {
	EventID   string
	UserEmail string
}
