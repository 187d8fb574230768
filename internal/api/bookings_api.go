package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"courtbook/internal/booking"
	"courtbook/internal/metrics"
	"courtbook/internal/model"
	"courtbook/internal/slots"
)

// QuoteResponse is the response for POST /api/quote.
type QuoteResponse struct {
	*booking.Quote
	TimeLabel     string `json:"time_label"`
	DurationLabel string `json:"duration_label"`
	TotalLabel    string `json:"total_label"`
}

// BookingResponse wraps a booking with display labels.
type BookingResponse struct {
	*model.Booking
	StatusLabel   string `json:"status_label"`
	TimeLabel     string `json:"time_label"`
	DurationLabel string `json:"duration_label"`
	TotalLabel    string `json:"total_label"`
}

func newBookingResponse(b *model.Booking) BookingResponse {
	return BookingResponse{
		Booking:       b,
		StatusLabel:   b.Status.Label(),
		TimeLabel:     b.TimeLabel(),
		DurationLabel: b.DurationLabel(),
		TotalLabel:    b.TotalCost.String(),
	}
}

// handleQuote prices a booking request without storing it.
// POST /api/quote
func (s *HTTPServer) handleQuote(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("quote")

	var req booking.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	q, err := s.bookings.Quote(r.Context(), &req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, QuoteResponse{
		Quote:         q,
		TimeLabel:     slots.FormatRange(q.StartMinute, q.EndMinute),
		DurationLabel: slots.FormatDuration(q.EndMinute - q.StartMinute),
		TotalLabel:    q.Cost.Total.String(),
	})
}

// handleCreateBooking stores a pending booking.
// POST /api/bookings
func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_booking")

	var req booking.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	b, err := s.bookings.Create(r.Context(), &req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/bookings/"+b.Reference)
	writeJSON(w, http.StatusCreated, newBookingResponse(b))
}

// handleGetBooking returns a booking by its public reference.
// GET /api/bookings/{ref}
func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("get_booking")

	b, err := s.bookings.Get(r.Context(), mux.Vars(r)["ref"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBookingResponse(b))
}

var errBadParam = errors.New("invalid query parameter")

func errInvalidParam(name, value string) error {
	return fmt.Errorf("%w %s=%q", errBadParam, name, value)
}
