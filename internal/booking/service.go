package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"courtbook/internal/calendar"
	"courtbook/internal/db"
	"courtbook/internal/events"
	"courtbook/internal/metrics"
	"courtbook/internal/model"
	"courtbook/internal/pricing"
	"courtbook/internal/slots"
)

// Rules are the input limits applied before pricing.
type Rules struct {
	MinDuration             time.Duration
	MaxSubscriptionDays     int
	DefaultSubscriptionDays int
}

func (r Rules) withDefaults() Rules {
	if r.MinDuration <= 0 {
		r.MinDuration = time.Hour
	}
	if r.MaxSubscriptionDays <= 0 {
		r.MaxSubscriptionDays = 180
	}
	if r.DefaultSubscriptionDays <= 0 {
		r.DefaultSubscriptionDays = 30
	}
	return r
}

// Service prices and records court bookings.
type Service struct {
	repo    Repository
	events  EventPublisher
	catalog CatalogSource
	rules   Rules
	logger  *zerolog.Logger
	now     func() time.Time
}

func NewService(repo Repository, publisher EventPublisher, catalog CatalogSource, rules Rules, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		repo:    repo,
		events:  publisher,
		catalog: catalog,
		rules:   rules.withDefaults(),
		logger:  logger,
		now:     time.Now,
	}
}

// Quote validates the request and prices it. A subscription period without
// matching weekdays yields zero sessions and a zero total.
func (s *Service) Quote(_ context.Context, req *Request) (*Quote, error) {
	q, err := s.price(req)
	if err != nil {
		return nil, err
	}
	metrics.IncQuote()
	return q, nil
}

func (s *Service) price(req *Request) (*Quote, error) {
	q, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	sessions := 1
	if q.IsSubscription {
		sessions = calendar.CountSessions(q.StartDate, q.EndDate, q.Weekdays)
	}
	q.Cost = pricing.ComputeTotal(q.PricePerHour, q.Duration(), sessions, q.Services, q.Duration())
	return q, nil
}

// Create prices the request and stores it as a pending booking.
func (s *Service) Create(ctx context.Context, req *Request) (*model.Booking, error) {
	client, err := validateClient(req.Client)
	if err != nil {
		return nil, err
	}

	q, err := s.price(req)
	if err != nil {
		return nil, err
	}
	if q.Cost.Sessions == 0 {
		return nil, fmt.Errorf("%w: %s – %s on %s", ErrNoSessions,
			q.StartDate.Format(calendar.DateLayout), q.EndDate.Format(calendar.DateLayout), q.Weekdays)
	}

	b := &model.Booking{
		Reference:         uuid.NewString(),
		CourtID:           q.CourtID,
		CourtName:         q.CourtName,
		CourtOrganization: q.CourtOrganization,
		TariffID:          q.TariffID,
		TariffName:        q.TariffName,
		StartMinute:       q.StartMinute,
		EndMinute:         q.EndMinute,
		IsSubscription:    q.IsSubscription,
		StartDate:         q.StartDate,
		EndDate:           q.EndDate,
		Weekdays:          q.Weekdays,
		Sessions:          q.Cost.Sessions,
		SessionPrice:      q.Cost.PricePerSession,
		Services:          selectedServices(q),
		ServicesCost:      q.Cost.ServicesSubtotal,
		TotalCost:         q.Cost.Total,
		ClientName:        client.Name,
		ClientPhone:       client.Phone,
		ClientEmail:       client.Email,
		Status:            model.StatusPending,
	}

	if err := s.repo.CreateBooking(ctx, b); err != nil {
		return nil, fmt.Errorf("store booking: %w", err)
	}

	kind := "single"
	if b.IsSubscription {
		kind = "subscription"
	}
	metrics.IncBookingCreated(kind)

	s.logger.Info().
		Int64("booking_id", b.ID).
		Str("reference", b.Reference).
		Int("court_id", b.CourtID).
		Int("sessions", b.Sessions).
		Int64("total", int64(b.TotalCost)).
		Msg("booking created")

	s.publish(events.BookingCreated, b)
	return b, nil
}

// CreateByManager records a booking a manager took over the phone. It is
// confirmed right away.
func (s *Service) CreateByManager(ctx context.Context, req *Request, comment string) (*model.Booking, error) {
	b, err := s.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(comment) == "" {
		comment = "добавлено менеджером"
	}
	return s.SetStatus(ctx, b.ID, model.StatusConfirmed, comment)
}

// Get loads a booking by its public reference.
func (s *Service) Get(ctx context.Context, ref string) (*model.Booking, error) {
	b, err := s.repo.GetBookingByReference(ctx, strings.TrimSpace(ref))
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// List returns bookings for managers.
func (s *Service) List(ctx context.Context, f db.BookingFilter) ([]model.Booking, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, f.Status)
	}
	return s.repo.ListBookings(ctx, f)
}

// History returns the status changes of a booking.
func (s *Service) History(ctx context.Context, id int64) ([]db.StatusChange, error) {
	if _, err := s.repo.GetBooking(ctx, id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return s.repo.StatusHistory(ctx, id)
}

// SetStatus applies a manager decision.
func (s *Service) SetStatus(ctx context.Context, id int64, status model.BookingStatus, comment string) (*model.Booking, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	b, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	from := b.Status
	if !from.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, from, status)
	}

	if err := s.repo.UpdateBookingStatus(ctx, id, from, status, strings.TrimSpace(comment)); err != nil {
		if errors.Is(err, db.ErrConcurrentModification) {
			return nil, fmt.Errorf("%w: booking %d changed concurrently", ErrInvalidStatusTransition, id)
		}
		return nil, err
	}

	b.Status = status
	b.ManagerComment = strings.TrimSpace(comment)
	b.UpdatedAt = s.now()

	metrics.IncManagerDecision(string(status))
	s.logger.Info().Int64("booking_id", id).Str("from", string(from)).Str("to", string(status)).Msg("booking status changed")

	s.publish(events.BookingStatusChanged, events.StatusChanged{Booking: *b, From: from})
	return b, nil
}

// Analytics builds the manager report. Utilization compares booked minutes to
// the slot minutes the catalog offers over the period.
func (s *Service) Analytics(ctx context.Context, req AnalyticsRequest) (*Report, error) {
	if !req.DateFrom.IsZero() && !req.DateTo.IsZero() && req.DateFrom.After(req.DateTo) {
		return nil, fmt.Errorf("%w: date_from must not be after date_to", ErrInvalidDate)
	}

	a, err := s.repo.Analytics(ctx, db.AnalyticsFilter{CourtID: req.CourtID, DateFrom: req.DateFrom, DateTo: req.DateTo})
	if err != nil {
		return nil, err
	}

	r := &Report{
		Bookings:      a.Bookings,
		Pending:       a.ByStatus[model.StatusPending],
		Confirmed:     a.ByStatus[model.StatusConfirmed],
		Canceled:      a.ByStatus[model.StatusCanceled],
		Rejected:      a.ByStatus[model.StatusRejected],
		Completed:     a.ByStatus[model.StatusCompleted],
		Subscriptions: a.Subscriptions,
		Revenue:       a.Revenue,
		BookedMinutes: a.BookedMinutes,
	}

	days := 0
	if !req.DateFrom.IsZero() && !req.DateTo.IsZero() {
		days = calendar.NewDateRange(req.DateFrom, req.DateTo).Len()
	}
	offered := s.offeredMinutes(req.CourtID)

	var totalOffered int64
	for _, c := range a.Courts {
		cr := CourtReport{
			CourtID:       c.CourtID,
			CourtName:     c.CourtName,
			Bookings:      c.Bookings,
			Revenue:       c.Revenue,
			BookedMinutes: c.BookedMinutes,
		}
		cr.Utilization = utilization(c.BookedMinutes, offered[c.CourtID]*int64(days))
		r.Courts = append(r.Courts, cr)
	}
	for _, m := range offered {
		totalOffered += m * int64(days)
	}
	r.Utilization = utilization(r.BookedMinutes, totalOffered)

	return r, nil
}

// Schedule lays out a court's catalog slots on day and marks those taken by
// pending or confirmed bookings with a session that day.
func (s *Service) Schedule(ctx context.Context, courtID int, day time.Time) (*Schedule, error) {
	catalog := s.catalog.Current()
	if catalog == nil {
		return nil, fmt.Errorf("%w: catalog not loaded", ErrCourtNotFound)
	}
	court, ok := catalog.CourtByID(courtID)
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrCourtNotFound, courtID)
	}
	day = calendar.Date(day)

	list, err := s.repo.ListBookings(ctx, db.BookingFilter{CourtID: courtID, DateFrom: day, DateTo: day})
	if err != nil {
		return nil, err
	}
	var taken []model.Booking
	for _, b := range list {
		if b.IsActive() && b.OccupiesDate(day) {
			taken = append(taken, b)
		}
	}
	sort.Slice(taken, func(i, j int) bool { return taken[i].StartMinute < taken[j].StartMinute })

	out := &Schedule{
		CourtID:      court.ID,
		CourtName:    court.Name,
		Organization: court.Organization,
		Date:         day,
	}
	for _, ts := range slots.SortByStart(court.TimeSlots()) {
		slot := ScheduleSlot{Start: ts.Start, End: ts.End, Label: ts.Label(), Price: ts.Price, State: SlotAvailable}
		if !ts.Available {
			slot.State = SlotClosed
		}
		for i := range taken {
			b := &taken[i]
			if b.StartMinute >= ts.End || ts.Start >= b.EndMinute {
				continue
			}
			slot.Booking = b
			slot.State = SlotBooked
			if b.Status == model.StatusPending {
				slot.State = SlotPending
			}
			break
		}
		out.Slots = append(out.Slots, slot)
	}
	return out, nil
}

// offeredMinutes returns per-court slot minutes in one day.
func (s *Service) offeredMinutes(courtID int) map[int]int64 {
	out := make(map[int]int64)
	catalog := s.catalog.Current()
	if catalog == nil {
		return out
	}
	for _, court := range catalog.ActiveCourts() {
		if courtID > 0 && court.ID != courtID {
			continue
		}
		var total int64
		for _, ts := range court.TimeSlots() {
			total += int64(ts.End - ts.Start)
		}
		out[court.ID] = total
	}
	return out
}

func utilization(booked, offered int64) float64 {
	if offered <= 0 {
		return 0
	}
	u := float64(booked) / float64(offered)
	if u > 1 {
		return 1
	}
	return u
}

func (s *Service) publish(eventType string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}

func selectedServices(q *Quote) []model.SelectedService {
	out := make([]model.SelectedService, 0, len(q.Services))
	for i, svc := range q.Services {
		out = append(out, model.SelectedService{
			Name:         svc.Name,
			PricePerHour: svc.PricePerHour,
			Cost:         q.Cost.Services[i].Cost,
		})
	}
	return out
}
