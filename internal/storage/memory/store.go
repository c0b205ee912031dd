// Package memory keeps events and bookings in process memory. It enforces the
// same guards and uniqueness rules as the postgres store and backs the
// in-memory run mode and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cimillas/ticket-booking/internal/clock"
	"github.com/cimillas/ticket-booking/internal/domain"
)

type Store struct {
	mu       sync.RWMutex
	clock    clock.Clock
	events   map[string]domain.Event
	bookings []domain.Booking
}

func NewStore(clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Store{
		clock:  clk,
		events: make(map[string]domain.Event),
	}
}

func (s *Store) CreateEvent(_ context.Context, event domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.Status == "" {
		event.Status = domain.EventStatusActive
	}
	s.events[event.ID] = event
	return nil
}

func (s *Store) GetEvent(_ context.Context, id string) (domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[id]
	if !ok {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return event, nil
}

// ConsumeTickets applies the version and capacity guard and the increment as
// one step under the store mutex.
func (s *Store) ConsumeTickets(_ context.Context, id string, expectedVersion int64, quantity int) (domain.Event, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[id]
	if !ok {
		return domain.Event{}, false, nil
	}
	if event.Version != expectedVersion || event.BookedTickets+quantity > event.TotalTickets {
		return domain.Event{}, false, nil
	}
	event.BookedTickets += quantity
	event.Version++
	event.Status = event.DeriveStatus()
	event.UpdatedAt = s.clock.Now()
	s.events[id] = event
	return event, true, nil
}

func (s *Store) ReleaseTickets(_ context.Context, id string, quantity int) (domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[id]
	if !ok {
		return domain.Event{}, domain.ErrEventNotFound
	}
	event.BookedTickets -= quantity
	if event.BookedTickets < 0 {
		event.BookedTickets = 0
	}
	event.Version++
	event.Status = event.DeriveStatus()
	event.UpdatedAt = s.clock.Now()
	s.events[id] = event
	return event, nil
}

func (s *Store) FindConfirmedBooking(_ context.Context, eventID, userEmail string) (*domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.bookings {
		b := s.bookings[i]
		if b.EventID == eventID && b.UserEmail == userEmail && b.Status == domain.BookingStatusConfirmed {
			return &b, nil
		}
	}
	return nil, nil
}

func (s *Store) CreateBooking(_ context.Context, booking domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.bookings {
		if b.Reference == booking.Reference {
			return domain.ErrReferenceCollision
		}
		if booking.Status == domain.BookingStatusConfirmed && b.Status == domain.BookingStatusConfirmed &&
			b.EventID == booking.EventID && b.UserEmail == booking.UserEmail {
			return domain.ErrDuplicateBooking
		}
	}
	s.bookings = append(s.bookings, booking)
	return nil
}

// ListBookings returns newest first; bookings created at the same instant are
// ordered by insertion, newest first.
func (s *Store) ListBookings(_ context.Context, filter domain.BookingFilter, page, pageSize int) ([]domain.Booking, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type indexed struct {
		seq     int
		booking domain.Booking
	}
	var matched []indexed
	for i, b := range s.bookings {
		if filter.EventID != "" && b.EventID != filter.EventID {
			continue
		}
		if filter.UserEmail != "" && b.UserEmail != filter.UserEmail {
			continue
		}
		if event, ok := s.events[b.EventID]; ok {
			b.Event = event.Summary()
		}
		matched = append(matched, indexed{seq: i, booking: b})
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.booking.CreatedAt.Equal(b.booking.CreatedAt) {
			return a.booking.CreatedAt.After(b.booking.CreatedAt)
		}
		return a.seq > b.seq
	})

	total := len(matched)
	start := (page - 1) * pageSize
	if start >= total || start < 0 {
		return []domain.Booking{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	out := make([]domain.Booking, 0, end-start)
	for _, m := range matched[start:end] {
		out = append(out, m.booking)
	}
	return out, total, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) CountEvents(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events), nil
}

func (s *Store) CountBookings(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bookings), nil
}
