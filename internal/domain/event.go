package domain

import "time"

type EventStatus string

const (
	EventStatusActive    EventStatus = "active"
	EventStatusSoldOut   EventStatus = "sold_out"
	EventStatusCancelled EventStatus = "cancelled"
)

const (
	MaxEventNameLength = 100
	MaxTotalTickets    = 100000
)

// Event is a ticketed event whose inventory is guarded by Version.
// BookedTickets and Version only change through the conditional update path.
type Event struct {
	ID            string
	Name          string
	Venue         string
	StartsAt      time.Time
	PriceCents    int64
	TotalTickets  int
	BookedTickets int
	Version       int64
	Status        EventStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AvailableTickets is derived from the stored counters and never persisted.
func (e Event) AvailableTickets() int {
	if avail := e.TotalTickets - e.BookedTickets; avail > 0 {
		return avail
	}
	return 0
}

// DeriveStatus returns the status implied by the counters. Cancelled is terminal.
func (e Event) DeriveStatus() EventStatus {
	switch {
	case e.Status == EventStatusCancelled:
		return EventStatusCancelled
	case e.BookedTickets >= e.TotalTickets:
		return EventStatusSoldOut
	default:
		return EventStatusActive
	}
}

// CheckBookable reports why quantity tickets cannot be booked at now, or nil.
func (e Event) CheckBookable(quantity int, now time.Time) error {
	if e.Status == EventStatusCancelled {
		return ErrEventCancelled
	}
	if e.Status == EventStatusSoldOut {
		return ErrEventSoldOut
	}
	if !e.StartsAt.After(now) {
		return ErrEventStarted
	}
	available := e.AvailableTickets()
	if available <= 0 || available < quantity {
		return &CapacityError{Available: available}
	}
	return nil
}

// Summary returns the event fields embedded in booking responses.
func (e Event) Summary() EventSummary {
	return EventSummary{
		ID:         e.ID,
		Name:       e.Name,
		Venue:      e.Venue,
		StartsAt:   e.StartsAt,
		PriceCents: e.PriceCents,
	}
}
