package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courtbook/internal/calendar"
	"courtbook/internal/pricing"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestBooking_Duration(t *testing.T) {
	b := Booking{StartMinute: 8 * 60, EndMinute: 10*60 + 30}
	assert.Equal(t, 2*time.Hour+30*time.Minute, b.Duration())
	assert.Equal(t, "08:00–10:30", b.TimeLabel())
	assert.Equal(t, "2 ч 30 мин", b.DurationLabel())
}

func TestBooking_SessionDates(t *testing.T) {
	single := Booking{StartDate: date(2025, 11, 4), EndDate: date(2025, 11, 4), Sessions: 1}
	assert.Equal(t, []time.Time{date(2025, 11, 4)}, single.SessionDates())

	sub := Booking{
		IsSubscription: true,
		StartDate:      date(2025, 11, 3),
		EndDate:        date(2025, 11, 9),
		Weekdays:       calendar.DefaultWeekdays,
	}
	assert.Equal(t, []time.Time{date(2025, 11, 3), date(2025, 11, 5), date(2025, 11, 7)}, sub.SessionDates())
}

func TestBookingStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to BookingStatus
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusCanceled, true},
		{StatusPending, StatusCompleted, false},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusCanceled, true},
		{StatusConfirmed, StatusRejected, false},
		{StatusCanceled, StatusConfirmed, false},
		{StatusCompleted, StatusCanceled, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}

	assert.True(t, StatusPending.Valid())
	assert.False(t, BookingStatus("lost").Valid())
	assert.Equal(t, "Подтверждено", StatusConfirmed.Label())
}

func TestBooking_IsActive(t *testing.T) {
	assert.True(t, (&Booking{Status: StatusPending}).IsActive())
	assert.True(t, (&Booking{Status: StatusConfirmed}).IsActive())
	assert.False(t, (&Booking{Status: StatusCanceled}).IsActive())
}

func TestBooking_WeekdaysJSON(t *testing.T) {
	b := Booking{Weekdays: calendar.DefaultWeekdays}
	data, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"weekdays":[1,3,5]`)

	var decoded Booking
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, calendar.DefaultWeekdays, decoded.Weekdays)
}

func TestBooking_WindowedTotals(t *testing.T) {
	b := &Booking{
		StartMinute:    18 * 60,
		EndMinute:      20 * 60,
		IsSubscription: true,
		StartDate:      date(2025, 11, 3),
		EndDate:        date(2025, 11, 9),
		Weekdays:       calendar.DefaultWeekdays,
		Sessions:       3,
		SessionPrice:   pricing.Rubles(2000),
		ServicesCost:   pricing.Rubles(1800),
		TotalCost:      pricing.Rubles(7800),
	}

	tests := []struct {
		name     string
		from, to time.Time
		sessions int
		revenue  pricing.Money
	}{
		{"day without session", date(2025, 11, 4), date(2025, 11, 4), 0, 0},
		{"two of three", date(2025, 11, 3), date(2025, 11, 5), 2, pricing.Rubles(5200)},
		{"whole period", date(2025, 11, 1), date(2025, 11, 30), 3, pricing.Rubles(7800)},
		{"open end", date(2025, 11, 6), time.Time{}, 1, pricing.Rubles(2600)},
		{"unbounded", time.Time{}, time.Time{}, 3, pricing.Rubles(7800)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.sessions, b.SessionsWithin(tt.from, tt.to))
			assert.Equal(t, tt.revenue, b.RevenueWithin(tt.from, tt.to))
		})
	}

	assert.True(t, b.OccupiesDate(date(2025, 11, 5)))
	assert.False(t, b.OccupiesDate(date(2025, 11, 4)))

	single := &Booking{StartDate: date(2025, 11, 4), EndDate: date(2025, 11, 4), Sessions: 1, TotalCost: pricing.Rubles(2000)}
	assert.True(t, single.OccupiesDate(date(2025, 11, 4)))
	assert.Equal(t, pricing.Rubles(2000), single.RevenueWithin(date(2025, 11, 4), date(2025, 11, 4)))
}

func TestBooking_HoldsCourtAndEarns(t *testing.T) {
	assert.True(t, (&Booking{Status: StatusCompleted}).HoldsCourt())
	assert.True(t, (&Booking{Status: StatusPending}).HoldsCourt())
	assert.False(t, (&Booking{Status: StatusRejected}).HoldsCourt())
	assert.True(t, (&Booking{Status: StatusConfirmed}).Earns())
	assert.False(t, (&Booking{Status: StatusPending}).Earns())
}
