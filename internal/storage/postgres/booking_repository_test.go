package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cimillas/ticket-booking/internal/domain"
	"github.com/cimillas/ticket-booking/internal/testutil"
)

func newTestBooking(eventID, email, reference string, createdAt time.Time) domain.Booking {
	return domain.Booking{
		ID:               uuid.NewString(),
		EventID:          eventID,
		UserID:           "user-" + email,
		UserEmail:        email,
		Quantity:         2,
		TotalAmountCents: 5000,
		Status:           domain.BookingStatusConfirmed,
		Reference:        reference,
		CreatedAt:        createdAt,
	}
}

func TestBookingRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, context.Background(), pool)
	repo := NewBookingRepository(pool)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("CreateBooking and FindConfirmedBooking", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		eventID := testutil.InsertEvent(t, ctx, pool, domain.Event{Name: "Gig", TotalTickets: 10})

		booking := newTestBooking(eventID, "a@example.com", "BK-1-AAAAA", base)
		if err := repo.CreateBooking(ctx, booking); err != nil {
			t.Fatalf("create booking: %v", err)
		}

		found, err := repo.FindConfirmedBooking(ctx, eventID, "a@example.com")
		if err != nil {
			t.Fatalf("find booking: %v", err)
		}
		if found == nil || found.ID != booking.ID || found.Reference != booking.Reference {
			t.Fatalf("unexpected booking: %+v", found)
		}

		found, err = repo.FindConfirmedBooking(ctx, eventID, "b@example.com")
		if err != nil || found != nil {
			t.Fatalf("expected no booking, got %+v err=%v", found, err)
		}
	})

	t.Run("CreateBooking translates constraint violations", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		eventID := testutil.InsertEvent(t, ctx, pool, domain.Event{Name: "Gig", TotalTickets: 10})

		if err := repo.CreateBooking(ctx, newTestBooking(eventID, "a@example.com", "BK-1-AAAAA", base)); err != nil {
			t.Fatalf("create booking: %v", err)
		}

		err := repo.CreateBooking(ctx, newTestBooking(eventID, "b@example.com", "BK-1-AAAAA", base))
		if err != domain.ErrReferenceCollision {
			t.Fatalf("expected ErrReferenceCollision, got %v", err)
		}

		err = repo.CreateBooking(ctx, newTestBooking(eventID, "a@example.com", "BK-1-BBBBB", base))
		if err != domain.ErrDuplicateBooking {
			t.Fatalf("expected ErrDuplicateBooking, got %v", err)
		}

		cancelled := newTestBooking(eventID, "a@example.com", "BK-1-CCCCC", base)
		cancelled.Status = domain.BookingStatusCancelled
		if err := repo.CreateBooking(ctx, cancelled); err != nil {
			t.Fatalf("expected cancelled booking to bypass the confirmed index, got %v", err)
		}

		err = repo.CreateBooking(ctx, newTestBooking(uuid.NewString(), "c@example.com", "BK-1-DDDDD", base))
		if err != domain.ErrEventNotFound {
			t.Fatalf("expected ErrEventNotFound, got %v", err)
		}
	})

	t.Run("ListBookings pages newest first with event summary", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		first := testutil.InsertEvent(t, ctx, pool, domain.Event{Name: "First", Venue: "Club", TotalTickets: 10, PriceCents: 2500})
		second := testutil.InsertEvent(t, ctx, pool, domain.Event{Name: "Second", TotalTickets: 10})

		for i, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
			b := newTestBooking(first, email, "BK-1-F000"+string(rune('A'+i)), base.Add(time.Duration(i)*time.Minute))
			if err := repo.CreateBooking(ctx, b); err != nil {
				t.Fatalf("create booking: %v", err)
			}
		}
		if err := repo.CreateBooking(ctx, newTestBooking(second, "a@example.com", "BK-1-S000A", base)); err != nil {
			t.Fatalf("create booking: %v", err)
		}

		page, total, err := repo.ListBookings(ctx, domain.BookingFilter{EventID: first}, 1, 2)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if total != 3 || len(page) != 2 {
			t.Fatalf("expected 2 of 3, got %d of %d", len(page), total)
		}
		if page[0].UserEmail != "c@example.com" || page[1].UserEmail != "b@example.com" {
			t.Fatalf("expected newest first, got %s, %s", page[0].UserEmail, page[1].UserEmail)
		}
		if page[0].Event.Name != "First" || page[0].Event.Venue != "Club" || page[0].Event.PriceCents != 2500 {
			t.Fatalf("expected event summary, got %+v", page[0].Event)
		}

		page, total, err = repo.ListBookings(ctx, domain.BookingFilter{EventID: first}, 2, 2)
		if err != nil || total != 3 || len(page) != 1 || page[0].UserEmail != "a@example.com" {
			t.Fatalf("unexpected second page: %+v total=%d err=%v", page, total, err)
		}

		_, total, err = repo.ListBookings(ctx, domain.BookingFilter{UserEmail: "a@example.com"}, 1, 10)
		if err != nil || total != 2 {
			t.Fatalf("expected 2 bookings by email, got %d err=%v", total, err)
		}

		_, total, err = repo.ListBookings(ctx, domain.BookingFilter{}, 1, 10)
		if err != nil || total != 4 {
			t.Fatalf("expected 4 bookings, got %d err=%v", total, err)
		}

		if _, _, err := repo.ListBookings(ctx, domain.BookingFilter{EventID: "nope"}, 1, 10); err != domain.ErrInvalidID {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}
	})
}

func TestStatsRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)
	testutil.InsertEvent(t, ctx, pool, domain.Event{Name: "Gig", TotalTickets: 10})

	repo := NewStatsRepository(pool)
	if err := repo.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if n, err := repo.CountEvents(ctx); err != nil || n != 1 {
		t.Fatalf("expected 1 event, got %d err=%v", n, err)
	}
	if n, err := repo.CountBookings(ctx); err != nil || n != 0 {
		t.Fatalf("expected 0 bookings, got %d err=%v", n, err)
	}
}
