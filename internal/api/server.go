package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"courtbook/internal/booking"
	"courtbook/internal/db"
	"courtbook/internal/model"
	"courtbook/internal/search"
)

const maxBodyBytes = 1 << 20

// BookingService is the booking flow used by the handlers.
type BookingService interface {
	Quote(ctx context.Context, req *booking.Request) (*booking.Quote, error)
	Create(ctx context.Context, req *booking.Request) (*model.Booking, error)
	CreateByManager(ctx context.Context, req *booking.Request, comment string) (*model.Booking, error)
	Get(ctx context.Context, ref string) (*model.Booking, error)
	List(ctx context.Context, f db.BookingFilter) ([]model.Booking, error)
	History(ctx context.Context, id int64) ([]db.StatusChange, error)
	SetStatus(ctx context.Context, id int64, status model.BookingStatus, comment string) (*model.Booking, error)
	Analytics(ctx context.Context, req booking.AnalyticsRequest) (*booking.Report, error)
	Schedule(ctx context.Context, courtID int, day time.Time) (*booking.Schedule, error)
}

// SearchService answers catalog and availability queries.
type SearchService interface {
	Courts(ctx context.Context, f search.Filter) []search.CourtSummary
	Court(ctx context.Context, id int, band string) (*search.CourtDetail, error)
	Search(ctx context.Context, f search.Filter) (*search.Result, error)
	Organization(ctx context.Context, name string, f search.Filter) (*search.Organization, error)
	Organizations(ctx context.Context) []string
}

// Options configures the HTTP server.
type Options struct {
	Address           string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	ManagerAPIKey     string
	RequestsPerSecond float64
	Burst             int
}

// HTTPServer serves the public and manager JSON API.
type HTTPServer struct {
	server   *http.Server
	bookings BookingService
	search   SearchService
	apiKey   string
	limiter  *ipLimiter
	logger   *zerolog.Logger
}

func NewHTTPServer(opts Options, bookings BookingService, searcher SearchService, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	s := &HTTPServer{
		bookings: bookings,
		search:   searcher,
		apiKey:   opts.ManagerAPIKey,
		limiter:  newIPLimiter(opts.RequestsPerSecond, opts.Burst),
		logger:   logger,
	}
	s.server = &http.Server{
		Addr:         opts.Address,
		Handler:      s.routes(),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}
	return s
}

func (s *HTTPServer) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.recoverMiddleware, s.rateLimitMiddleware)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/courts", s.handleCourts).Methods(http.MethodGet)
	api.HandleFunc("/courts/{id:[0-9]+}", s.handleCourt).Methods(http.MethodGet)
	api.HandleFunc("/search", s.handleSearch).Methods(http.MethodGet)
	api.HandleFunc("/organizations", s.handleOrganizations).Methods(http.MethodGet)
	api.HandleFunc("/organizations/{name}", s.handleOrganization).Methods(http.MethodGet)
	api.HandleFunc("/quote", s.handleQuote).Methods(http.MethodPost)
	api.HandleFunc("/bookings", s.handleCreateBooking).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{ref}", s.handleGetBooking).Methods(http.MethodGet)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(s.managerAuthMiddleware)
	admin.HandleFunc("/bookings", s.handleListBookings).Methods(http.MethodGet)
	admin.HandleFunc("/bookings", s.handleManagerBooking).Methods(http.MethodPost)
	admin.HandleFunc("/bookings/{id:[0-9]+}/status", s.handleSetStatus).Methods(http.MethodPatch)
	admin.HandleFunc("/bookings/{id:[0-9]+}/history", s.handleHistory).Methods(http.MethodGet)
	admin.HandleFunc("/analytics", s.handleAnalytics).Methods(http.MethodGet)
	admin.HandleFunc("/schedule", s.handleSchedule).Methods(http.MethodGet)
	admin.HandleFunc("/export.xlsx", s.handleExport).Methods(http.MethodGet)

	return r
}

// Start blocks serving requests until Shutdown is called.
func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("API server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the router, mostly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps domain errors to HTTP statuses. Unknown errors are
// logged and hidden from the client.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, booking.ErrCourtNotFound),
		errors.Is(err, booking.ErrBookingNotFound),
		errors.Is(err, search.ErrCourtNotFound),
		errors.Is(err, search.ErrOrganizationNotFound):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrInvalidStatusTransition):
		return http.StatusConflict
	case errors.Is(err, booking.ErrTariffNotFound),
		errors.Is(err, booking.ErrServiceNotFound),
		errors.Is(err, booking.ErrInvalidTime),
		errors.Is(err, booking.ErrTimeNotAligned),
		errors.Is(err, booking.ErrDurationTooShort),
		errors.Is(err, booking.ErrInvalidDate),
		errors.Is(err, booking.ErrNoWeekdays),
		errors.Is(err, booking.ErrSubscriptionTooLong),
		errors.Is(err, booking.ErrNoSessions),
		errors.Is(err, booking.ErrInvalidClient),
		errors.Is(err, booking.ErrInvalidStatus):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
