package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/cimillas/ticket-booking/internal/app"
	"github.com/cimillas/ticket-booking/internal/clock"
	"github.com/cimillas/ticket-booking/internal/domain"
	"github.com/cimillas/ticket-booking/internal/lock"
	"github.com/cimillas/ticket-booking/internal/storage/postgres"
	"github.com/cimillas/ticket-booking/internal/testutil"
)

func TestBook_HTTPIntegration(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, context.Background(), pool)
	clk := clock.NewSystem()
	svc := app.NewBookingService(
		postgres.NewEventRepository(pool),
		postgres.NewBookingRepository(pool),
		lock.NewManager(lock.NewMemoryBackend(clk)),
		clk,
	)

	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)
	eventID := testutil.InsertEvent(t, ctx, pool, domain.Event{Name: "Concert", TotalTickets: 5, PriceCents: 1500})

	const attempts = 12
	codes := make(chan int, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			email := string(rune('a'+i)) + "@example.com"
			body, _ := json.Marshal(bookRequest{EventID: eventID, UserID: email, UserEmail: email, Quantity: 1})
			rec := httptest.NewRecorder()
			HandleBook(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/book", bytes.NewReader(body)))
			codes <- rec.Code
		}(i)
	}
	wg.Wait()
	close(codes)

	created, rejected := 0, 0
	for code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusBadRequest:
			rejected++
		default:
			t.Fatalf("unexpected status %d", code)
		}
	}
	if created != 5 || rejected != attempts-5 {
		t.Fatalf("expected 5 created and %d rejected, got %d and %d", attempts-5, created, rejected)
	}

	var booked int
	var version int64
	var status string
	if err := pool.QueryRow(ctx, `SELECT booked_tickets, version, status FROM events WHERE id = $1`, eventID).
		Scan(&booked, &version, &status); err != nil {
		t.Fatalf("query event: %v", err)
	}
	if booked != 5 || version != 5 || status != string(domain.EventStatusSoldOut) {
		t.Fatalf("expected booked=5 version=5 sold_out, got %d %d %s", booked, version, status)
	}

	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM bookings WHERE event_id = $1`, eventID).Scan(&count); err != nil {
		t.Fatalf("count bookings: %v", err)
	}
	if count != 5 {
		t.Fatalf("expected 5 bookings, got %d", count)
	}
}
