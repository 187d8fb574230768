package model

import (
	"time"

	"courtbook/internal/calendar"
	"courtbook/internal/pricing"
	"courtbook/internal/slots"
)

// BookingStatus represents booking status.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusRejected  BookingStatus = "rejected"
	StatusCanceled  BookingStatus = "canceled"
	StatusCompleted BookingStatus = "completed"
)

var transitions = map[BookingStatus][]BookingStatus{
	StatusPending:   {StatusConfirmed, StatusRejected, StatusCanceled},
	StatusConfirmed: {StatusCompleted, StatusCanceled},
}

var statusLabels = map[BookingStatus]string{
	StatusPending:   "Ожидает подтверждения",
	StatusConfirmed: "Подтверждено",
	StatusRejected:  "Отклонено",
	StatusCanceled:  "Отменено",
	StatusCompleted: "Завершено",
}

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// CanTransitionTo reports whether a manager may move a booking from s to next.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Label is the human-readable status.
func (s BookingStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// SelectedService is an add-on chosen for a booking with its computed cost.
type SelectedService struct {
	Name         string        `json:"name"`
	PricePerHour pricing.Money `json:"price_per_hour"`
	Cost         pricing.Money `json:"cost"`
}

// Booking is the summary record of a court booking. For one-off bookings
// StartDate equals EndDate, Weekdays is empty and Sessions is 1.
type Booking struct {
	ID                int64               `json:"id"`
	Reference         string              `json:"reference"`
	CourtID           int                 `json:"court_id"`
	CourtName         string              `json:"court_name"`
	CourtOrganization string              `json:"court_organization"`
	TariffID          int                 `json:"tariff_id"`
	TariffName        string              `json:"tariff_name"`
	StartMinute       int                 `json:"start_minute"`
	EndMinute         int                 `json:"end_minute"`
	IsSubscription    bool                `json:"is_subscription"`
	StartDate         time.Time           `json:"start_date"`
	EndDate           time.Time           `json:"end_date"`
	Weekdays          calendar.WeekdaySet `json:"weekdays"`
	Sessions          int                 `json:"sessions"`
	SessionPrice      pricing.Money       `json:"session_price"`
	Services          []SelectedService   `json:"services"`
	ServicesCost      pricing.Money       `json:"services_cost"`
	TotalCost         pricing.Money       `json:"total_cost"`
	ClientName        string              `json:"client_name"`
	ClientPhone       string              `json:"client_phone"`
	ClientEmail       string              `json:"client_email,omitempty"`
	Status            BookingStatus       `json:"status"`
	ManagerComment    string              `json:"manager_comment,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// Duration is the length of one session.
func (b *Booking) Duration() time.Duration {
	return time.Duration(b.EndMinute-b.StartMinute) * time.Minute
}

// TimeLabel renders the session time as "08:00–10:00".
func (b *Booking) TimeLabel() string {
	return slots.FormatRange(b.StartMinute, b.EndMinute)
}

// DurationLabel renders the session length, e.g. "1 ч 30 мин".
func (b *Booking) DurationLabel() string {
	return slots.FormatDuration(b.EndMinute - b.StartMinute)
}

// IsActive reports whether the booking still holds court time.
func (b *Booking) IsActive() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}

// HoldsCourt reports whether the booking counts towards booked court time.
func (b *Booking) HoldsCourt() bool {
	return b.IsActive() || b.Status == StatusCompleted
}

// Earns reports whether the booking counts towards revenue.
func (b *Booking) Earns() bool {
	return b.Status == StatusConfirmed || b.Status == StatusCompleted
}

// OccupiesDate reports whether one of the booking's sessions falls on day.
func (b *Booking) OccupiesDate(day time.Time) bool {
	return b.SessionsWithin(day, day) > 0
}

// SessionsWithin counts sessions dated in [from, to]. A zero bound is open.
func (b *Booking) SessionsWithin(from, to time.Time) int {
	var n int
	for _, d := range b.SessionDates() {
		if !from.IsZero() && d.Before(calendar.Date(from)) {
			continue
		}
		if !to.IsZero() && d.After(calendar.Date(to)) {
			continue
		}
		n++
	}
	return n
}

// RevenueWithin is the part of TotalCost earned by sessions in [from, to]:
// the session price per session plus an equal share of the services.
func (b *Booking) RevenueWithin(from, to time.Time) pricing.Money {
	n := b.SessionsWithin(from, to)
	switch {
	case n == 0 || b.Sessions <= 0:
		return 0
	case n >= b.Sessions:
		return b.TotalCost
	}
	return b.SessionPrice*pricing.Money(n) + b.ServicesCost*pricing.Money(n)/pricing.Money(b.Sessions)
}

// SessionDates lists the calendar dates the booking occupies.
func (b *Booking) SessionDates() []time.Time {
	if !b.IsSubscription {
		return []time.Time{calendar.Date(b.StartDate)}
	}
	return calendar.SessionDates(b.StartDate, b.EndDate, b.Weekdays)
}
