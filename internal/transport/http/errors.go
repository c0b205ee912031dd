package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cimillas/ticket-booking/internal/domain"
)

const (
	codeMethodNotAllowed     = "method_not_allowed"
	codeNotFound             = "not_found"
	codeInvalidRequestBody   = "invalid_request_body"
	codeInvalidQuery         = "invalid_query"
	codeMissingRequiredField = "missing_required_field"
	codeInvalidStartsAt      = "invalid_starts_at"
	codeInvalidID            = "invalid_id"
	codeInvalidQuantity      = "invalid_quantity"
	codeInvalidEmail         = "invalid_email"
	codeUserIDRequired       = "user_id_required"
	codeEventNameRequired    = "event_name_required"
	codeEventNameTooLong     = "event_name_too_long"
	codeVenueRequired        = "venue_required"
	codeInvalidTotalTickets  = "invalid_total_tickets"
	codeInvalidPrice         = "invalid_price"
	codeEventDateNotFuture   = "event_date_not_future"
	codeEventNotFound        = "event_not_found"
	codeEventCancelled       = "event_cancelled"
	codeEventSoldOut         = "event_sold_out"
	codeEventStarted         = "event_started"
	codeInvalidState         = "invalid_state"
	codeInsufficientTickets  = "insufficient_tickets"
	codeDuplicateBooking     = "duplicate_booking"
	codeVersionConflict      = "version_conflict"
	codeReferenceCollision   = "reference_collision"
	codeLockUnavailable      = "lock_unavailable"
	codeRateLimited          = "rate_limited"
	codeForbidden            = "forbidden"
	codeInternalError        = "internal_error"
)

// lockRetryAfter is the Retry-After hint, in seconds, sent with 503s.
const lockRetryAfter = "1"

type errorResponse struct {
	Error            string `json:"error"`
	Code             string `json:"code"`
	AvailableTickets *int   `json:"available_tickets,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorResponse(w, status, errorResponse{Error: msg, Code: code})
}

func writeErrorResponse(w http.ResponseWriter, status int, resp errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(resp)
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

type errorMapping struct {
	target error
	status int
	code   string
}

// errorMappings is checked in order; the specific invalid states come before
// the general ones they match.
var errorMappings = []errorMapping{
	{domain.ErrInvalidID, http.StatusBadRequest, codeInvalidID},
	{domain.ErrInvalidQuantity, http.StatusBadRequest, codeInvalidQuantity},
	{domain.ErrInvalidEmail, http.StatusBadRequest, codeInvalidEmail},
	{domain.ErrUserIDRequired, http.StatusBadRequest, codeUserIDRequired},
	{domain.ErrEventNameRequired, http.StatusBadRequest, codeEventNameRequired},
	{domain.ErrEventNameTooLong, http.StatusBadRequest, codeEventNameTooLong},
	{domain.ErrVenueRequired, http.StatusBadRequest, codeVenueRequired},
	{domain.ErrInvalidTotalTickets, http.StatusBadRequest, codeInvalidTotalTickets},
	{domain.ErrInvalidPrice, http.StatusBadRequest, codeInvalidPrice},
	{domain.ErrEventDateNotFuture, http.StatusBadRequest, codeEventDateNotFuture},
	{domain.ErrEventNotFound, http.StatusNotFound, codeEventNotFound},
	{domain.ErrEventSoldOut, http.StatusBadRequest, codeEventSoldOut},
	{domain.ErrEventCancelled, http.StatusBadRequest, codeEventCancelled},
	{domain.ErrEventStarted, http.StatusBadRequest, codeEventStarted},
	{domain.ErrCapacityExceeded, http.StatusBadRequest, codeInsufficientTickets},
	{domain.ErrInvalidState, http.StatusBadRequest, codeInvalidState},
	{domain.ErrDuplicateBooking, http.StatusConflict, codeDuplicateBooking},
	{domain.ErrVersionConflict, http.StatusConflict, codeVersionConflict},
	{domain.ErrReferenceCollision, http.StatusConflict, codeReferenceCollision},
	{domain.ErrLockUnavailable, http.StatusServiceUnavailable, codeLockUnavailable},
}

// writeDomainError translates a service error into its status and code.
// Unknown and internal errors never leak their detail to the client.
func writeDomainError(w http.ResponseWriter, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		resp := errorResponse{Error: err.Error(), Code: m.code}
		switch m.code {
		case codeVersionConflict:
			resp.Error = domain.ErrVersionConflict.Error()
		case codeLockUnavailable:
			w.Header().Set("Retry-After", lockRetryAfter)
		case codeInsufficientTickets:
			var capErr *domain.CapacityError
			if errors.As(err, &capErr) {
				available := max(capErr.Available, 0)
				resp.AvailableTickets = &available
			}
		}
		writeErrorResponse(w, m.status, resp)
		return
	}
	writeError(w, http.StatusInternalServerError, codeInternalError, domain.ErrInternal.Error())
}
