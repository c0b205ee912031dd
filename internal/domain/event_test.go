package domain

import (
	"errors"
	"testing"
	"time"
)

func TestEvent_AvailableTickets(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		total  int
		booked int
		want   int
	}{
		{name: "fresh", total: 10, booked: 0, want: 10},
		{name: "partial", total: 10, booked: 7, want: 3},
		{name: "full", total: 10, booked: 10, want: 0},
		{name: "never negative", total: 10, booked: 12, want: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := Event{TotalTickets: tc.total, BookedTickets: tc.booked}
			if got := e.AvailableTickets(); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestEvent_DeriveStatus(t *testing.T) {
	t.Parallel()

	if got := (Event{TotalTickets: 2, BookedTickets: 2, Status: EventStatusActive}).DeriveStatus(); got != EventStatusSoldOut {
		t.Fatalf("expected sold_out, got %s", got)
	}
	if got := (Event{TotalTickets: 2, BookedTickets: 1, Status: EventStatusSoldOut}).DeriveStatus(); got != EventStatusActive {
		t.Fatalf("expected active, got %s", got)
	}
	if got := (Event{TotalTickets: 2, BookedTickets: 0, Status: EventStatusCancelled}).DeriveStatus(); got != EventStatusCancelled {
		t.Fatalf("expected cancelled to stick, got %s", got)
	}
}

func TestEvent_CheckBookable(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	base := Event{TotalTickets: 10, BookedTickets: 8, Status: EventStatusActive, StartsAt: now.Add(time.Hour)}

	tests := []struct {
		name     string
		mutate   func(e *Event)
		quantity int
		wantIs   []error
	}{
		{name: "bookable", quantity: 2},
		{name: "cancelled", mutate: func(e *Event) { e.Status = EventStatusCancelled }, quantity: 1, wantIs: []error{ErrInvalidState, ErrEventCancelled}},
		{name: "sold out", mutate: func(e *Event) { e.Status = EventStatusSoldOut }, quantity: 1, wantIs: []error{ErrInvalidState, ErrCapacityExceeded}},
		{name: "started", mutate: func(e *Event) { e.StartsAt = now }, quantity: 1, wantIs: []error{ErrInvalidState, ErrEventStarted}},
		{name: "too many", quantity: 3, wantIs: []error{ErrCapacityExceeded}},
		{name: "nothing left", mutate: func(e *Event) { e.BookedTickets = 10 }, quantity: 1, wantIs: []error{ErrCapacityExceeded}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := base
			if tc.mutate != nil {
				tc.mutate(&e)
			}
			err := e.CheckBookable(tc.quantity, now)
			if len(tc.wantIs) == 0 {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			for _, want := range tc.wantIs {
				if !errors.Is(err, want) {
					t.Fatalf("expected %v to match %v", err, want)
				}
			}
		})
	}
}

func TestCapacityError(t *testing.T) {
	t.Parallel()

	err := error(&CapacityError{Available: 3})
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected CapacityError to match ErrCapacityExceeded")
	}
	if errors.Is(err, ErrInvalidState) {
		t.Fatalf("capacity shortfall is not an invalid state")
	}
	if err.Error() != "only 3 tickets available" {
		t.Fatalf("unexpected message %q", err.Error())
	}

	var capErr *CapacityError
	if !errors.As(err, &capErr) || capErr.Available != 3 {
		t.Fatalf("expected to unwrap available count")
	}
}

func TestVersionConflictError(t *testing.T) {
	t.Parallel()

	err := error(&VersionConflictError{EventID: "e1", Expected: 4, Actual: 5})
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected VersionConflictError to match ErrVersionConflict")
	}
}
