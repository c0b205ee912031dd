package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/cimillas/ticket-booking/internal/app"
	"github.com/cimillas/ticket-booking/internal/domain"
)

// BookingService is the minimal interface needed for the booking endpoints.
type BookingService interface {
	Book(ctx context.Context, in app.BookInput) (domain.Booking, error)
	ListBookings(ctx context.Context, filter domain.BookingFilter, page app.Page) (app.BookingPage, error)
}

type bookRequest struct {
	EventID   string `json:"event_id"`
	UserID    string `json:"user_id"`
	UserEmail string `json:"user_email"`
	Quantity  int    `json:"quantity"`
}

type bookingResponse struct {
	ID               string               `json:"id"`
	Reference        string               `json:"reference"`
	EventID          string               `json:"event_id"`
	UserID           string               `json:"user_id"`
	UserEmail        string               `json:"user_email"`
	Quantity         int                  `json:"quantity"`
	TotalAmountCents int64                `json:"total_amount_cents"`
	Status           string               `json:"status"`
	CreatedAt        time.Time            `json:"created_at"`
	Event            eventSummaryResponse `json:"event"`
}

func newBookingResponse(b domain.Booking) bookingResponse {
	return bookingResponse{
		ID:               b.ID,
		Reference:        b.Reference,
		EventID:          b.EventID,
		UserID:           b.UserID,
		UserEmail:        b.UserEmail,
		Quantity:         b.Quantity,
		TotalAmountCents: b.TotalAmountCents,
		Status:           string(b.Status),
		CreatedAt:        b.CreatedAt,
		Event: eventSummaryResponse{
			ID:         b.Event.ID,
			Name:       b.Event.Name,
			Venue:      b.Event.Venue,
			StartsAt:   b.Event.StartsAt,
			PriceCents: b.Event.PriceCents,
		},
	}
}

type paginationResponse struct {
	CurrentPage int `json:"current_page"`
	PageSize    int `json:"page_size"`
	TotalPages  int `json:"total_pages"`
	TotalCount  int `json:"total_count"`
}

type listBookingsResponse struct {
	Bookings   []bookingResponse  `json:"bookings"`
	Pagination paginationResponse `json:"pagination"`
}

// HandleBook serves POST /api/book.
func HandleBook(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req bookRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.EventID == "" || req.UserEmail == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "event_id and user_email are required")
			return
		}

		booking, err := svc.Book(r.Context(), app.BookInput{
			EventID:   req.EventID,
			UserID:    req.UserID,
			UserEmail: req.UserEmail,
			Quantity:  req.Quantity,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newBookingResponse(booking))
	}
}

// HandleListBookings serves GET /api/bookings?event_id=&user_email=&page=&limit=.
func HandleListBookings(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		q := r.URL.Query()
		page, ok := intParam(q.Get("page"))
		if !ok {
			writeError(w, http.StatusBadRequest, codeInvalidQuery, "page must be an integer")
			return
		}
		limit, ok := intParam(q.Get("limit"))
		if !ok {
			writeError(w, http.StatusBadRequest, codeInvalidQuery, "limit must be an integer")
			return
		}

		result, err := svc.ListBookings(r.Context(), domain.BookingFilter{
			EventID:   q.Get("event_id"),
			UserEmail: q.Get("user_email"),
		}, app.Page{Number: page, Size: limit})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := listBookingsResponse{
			Bookings: make([]bookingResponse, 0, len(result.Bookings)),
			Pagination: paginationResponse{
				CurrentPage: result.CurrentPage,
				PageSize:    result.PageSize,
				TotalPages:  result.TotalPages,
				TotalCount:  result.TotalCount,
			},
		}
		for _, b := range result.Bookings {
			resp.Bookings = append(resp.Bookings, newBookingResponse(b))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// intParam parses an optional integer query value; empty means zero.
func intParam(raw string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
