package api

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"courtbook/internal/booking"
	"courtbook/internal/calendar"
	"courtbook/internal/db"
	"courtbook/internal/export"
	"courtbook/internal/metrics"
	"courtbook/internal/model"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// BookingsResponse is the response for GET /api/admin/bookings.
type BookingsResponse struct {
	Bookings []BookingResponse `json:"bookings"`
	Total    int               `json:"total"`
}

// StatusRequest is the body of PATCH /api/admin/bookings/{id}/status.
type StatusRequest struct {
	Status  model.BookingStatus `json:"status"`
	Comment string              `json:"comment,omitempty"`
}

// ManagerBookingRequest is the body of POST /api/admin/bookings.
type ManagerBookingRequest struct {
	booking.Request
	Comment string `json:"comment,omitempty"`
}

// handleListBookings lists bookings for managers.
// GET /api/admin/bookings?status=pending&court_id=1&date_from=...&date_to=...&subscription=true
func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_bookings")

	f, err := parseBookingFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := s.bookings.List(r.Context(), f)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := BookingsResponse{Bookings: make([]BookingResponse, 0, len(list)), Total: len(list)}
	for i := range list {
		resp.Bookings = append(resp.Bookings, newBookingResponse(&list[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleManagerBooking records a confirmed booking entered by a manager.
// POST /api/admin/bookings
func (s *HTTPServer) handleManagerBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_create_booking")

	var req ManagerBookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	b, err := s.bookings.CreateByManager(r.Context(), &req.Request, req.Comment)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/bookings/"+b.Reference)
	writeJSON(w, http.StatusCreated, newBookingResponse(b))
}

// handleSchedule shows a court's slots for one date with the bookings in them.
// GET /api/admin/schedule?court_id=1&date=2025-11-05
func (s *HTTPServer) handleSchedule(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_schedule")

	q := r.URL.Query()
	courtID, err := intParam(q, "court_id")
	if err != nil || courtID == 0 {
		writeError(w, http.StatusBadRequest, "court_id is required")
		return
	}
	day, err := dateParam(q, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if day.IsZero() {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}

	schedule, err := s.bookings.Schedule(r.Context(), courtID, day)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

// handleSetStatus applies a manager decision.
// PATCH /api/admin/bookings/{id}/status
func (s *HTTPServer) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_set_status")

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	var req StatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	b, err := s.bookings.SetStatus(r.Context(), id, req.Status, req.Comment)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBookingResponse(b))
}

// handleHistory lists the status changes of a booking.
// GET /api/admin/bookings/{id}/history
func (s *HTTPServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_history")

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}
	history, err := s.bookings.History(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if history == nil {
		history = []db.StatusChange{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}

// handleAnalytics returns KPIs for a period.
// GET /api/admin/analytics?date_from=2025-11-01&date_to=2025-11-30&court_id=1
func (s *HTTPServer) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_analytics")

	req, err := parseAnalyticsRequest(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := s.bookings.Analytics(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleExport streams an Excel workbook of the filtered bookings.
// GET /api/admin/export.xlsx?date_from=...&date_to=...
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_export")

	q := r.URL.Query()
	f, err := parseBookingFilter(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	f.Limit, f.Offset = 0, 0
	areq, err := parseAnalyticsRequest(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := s.bookings.List(r.Context(), f)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	report, err := s.bookings.Analytics(r.Context(), areq)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Bookings(&buf, list, report); err != nil {
		s.writeServiceError(w, r, fmt.Errorf("export bookings: %w", err))
		return
	}

	name := fmt.Sprintf("bookings_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func parseBookingFilter(q url.Values) (db.BookingFilter, error) {
	f := db.BookingFilter{
		Status:       model.BookingStatus(q.Get("status")),
		Organization: q.Get("organization"),
		Limit:        defaultListLimit,
	}

	var err error
	if f.CourtID, err = intParam(q, "court_id"); err != nil {
		return f, err
	}
	if f.DateFrom, err = dateParam(q, "date_from"); err != nil {
		return f, err
	}
	if f.DateTo, err = dateParam(q, "date_to"); err != nil {
		return f, err
	}
	if raw := q.Get("subscription"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return f, errInvalidParam("subscription", raw)
		}
		f.IsSubscription = &v
	}
	if q.Has("limit") {
		if f.Limit, err = intParam(q, "limit"); err != nil {
			return f, err
		}
		if f.Limit <= 0 || f.Limit > maxListLimit {
			f.Limit = maxListLimit
		}
	}
	if f.Offset, err = intParam(q, "offset"); err != nil {
		return f, err
	}
	return f, nil
}

func parseAnalyticsRequest(q url.Values) (booking.AnalyticsRequest, error) {
	var (
		req booking.AnalyticsRequest
		err error
	)
	if req.CourtID, err = intParam(q, "court_id"); err != nil {
		return req, err
	}
	if req.DateFrom, err = dateParam(q, "date_from"); err != nil {
		return req, err
	}
	if req.DateTo, err = dateParam(q, "date_to"); err != nil {
		return req, err
	}
	return req, nil
}

func intParam(q url.Values, name string) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errInvalidParam(name, raw)
	}
	return v, nil
}

func dateParam(q url.Values, name string) (time.Time, error) {
	raw := q.Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	d, err := calendar.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s format; expected YYYY-MM-DD", name)
	}
	return d, nil
}
