package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cimillas/ticket-booking/internal/app"
	"github.com/cimillas/ticket-booking/internal/domain"
)

// EventService is the minimal interface needed for the event endpoints.
type EventService interface {
	CreateEvent(ctx context.Context, in app.CreateEventInput) (domain.Event, error)
	GetEvent(ctx context.Context, id string) (domain.Event, error)
}

type createEventRequest struct {
	Name         string `json:"name"`
	Venue        string `json:"venue"`
	StartsAt     string `json:"starts_at"`
	PriceCents   int64  `json:"price_cents"`
	TotalTickets int    `json:"total_tickets"`
}

type eventResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Venue            string    `json:"venue"`
	StartsAt         time.Time `json:"starts_at"`
	PriceCents       int64     `json:"price_cents"`
	TotalTickets     int       `json:"total_tickets"`
	BookedTickets    int       `json:"booked_tickets"`
	AvailableTickets int       `json:"available_tickets"`
	Status           string    `json:"status"`
	Version          int64     `json:"version"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func newEventResponse(e domain.Event) eventResponse {
	return eventResponse{
		ID:               e.ID,
		Name:             e.Name,
		Venue:            e.Venue,
		StartsAt:         e.StartsAt,
		PriceCents:       e.PriceCents,
		TotalTickets:     e.TotalTickets,
		BookedTickets:    e.BookedTickets,
		AvailableTickets: e.AvailableTickets(),
		Status:           string(e.Status),
		Version:          e.Version,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

// HandleCreateEvent serves POST /api/events.
func HandleCreateEvent(svc EventService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createEventRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.StartsAt) == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "starts_at is required")
			return
		}
		startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidStartsAt, "invalid starts_at format")
			return
		}

		event, err := svc.CreateEvent(r.Context(), app.CreateEventInput{
			Name:         req.Name,
			Venue:        req.Venue,
			StartsAt:     startsAt,
			PriceCents:   req.PriceCents,
			TotalTickets: req.TotalTickets,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newEventResponse(event))
	}
}

// HandleGetEvent serves GET /api/events/{id}.
func HandleGetEvent(svc EventService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		event, err := svc.GetEvent(r.Context(), r.PathValue("id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newEventResponse(event))
	}
}
