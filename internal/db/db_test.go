package db

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courtbook/internal/calendar"
	"courtbook/internal/model"
	"courtbook/internal/pricing"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	database, err := NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func sampleBooking(ref string) *model.Booking {
	return &model.Booking{
		Reference:         ref,
		CourtID:           1,
		CourtName:         "Корт №1",
		CourtOrganization: "Теннисные корты на Сибирском тракте",
		TariffID:          2,
		TariffName:        "Абонемент",
		StartMinute:       18 * 60,
		EndMinute:         20 * 60,
		IsSubscription:    true,
		StartDate:         date(2025, 11, 3),
		EndDate:           date(2025, 11, 9),
		Weekdays:          calendar.DefaultWeekdays,
		Sessions:          3,
		SessionPrice:      pricing.Rubles(2000),
		Services: []model.SelectedService{
			{Name: "Аренда ракеток", PricePerHour: pricing.Rubles(300), Cost: pricing.Rubles(1800)},
		},
		ServicesCost: pricing.Rubles(1800),
		TotalCost:    pricing.Rubles(7800),
		ClientName:   "Иван Иванов",
		ClientPhone:  "+7 (900) 123-45-67",
	}
}

func TestCreateAndGetBooking(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	b := sampleBooking("ref-1")
	require.NoError(t, database.CreateBooking(ctx, b))
	assert.NotZero(t, b.ID)
	assert.Equal(t, model.StatusPending, b.Status)
	assert.False(t, b.CreatedAt.IsZero())

	got, err := database.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "ref-1", got.Reference)
	assert.Equal(t, "Корт №1", got.CourtName)
	assert.True(t, got.IsSubscription)
	assert.Equal(t, date(2025, 11, 3), got.StartDate)
	assert.Equal(t, date(2025, 11, 9), got.EndDate)
	assert.Equal(t, calendar.DefaultWeekdays, got.Weekdays)
	assert.Equal(t, 3, got.Sessions)
	assert.Equal(t, pricing.Rubles(7800), got.TotalCost)
	require.Len(t, got.Services, 1)
	assert.Equal(t, "Аренда ракеток", got.Services[0].Name)
	assert.Equal(t, pricing.Rubles(1800), got.Services[0].Cost)

	byRef, err := database.GetBookingByReference(ctx, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, b.ID, byRef.ID)

	_, err = database.GetBooking(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListBookings_Filters(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	sub := sampleBooking("sub")
	require.NoError(t, database.CreateBooking(ctx, sub))

	single := sampleBooking("single")
	single.IsSubscription = false
	single.CourtID = 2
	single.CourtName = "Корт №2"
	single.StartDate = date(2025, 12, 1)
	single.EndDate = date(2025, 12, 1)
	single.Weekdays = 0
	single.Sessions = 1
	single.Services = nil
	require.NoError(t, database.CreateBooking(ctx, single))

	all, err := database.ListBookings(ctx, BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byCourt, err := database.ListBookings(ctx, BookingFilter{CourtID: 2})
	require.NoError(t, err)
	require.Len(t, byCourt, 1)
	assert.Equal(t, "single", byCourt[0].Reference)
	assert.Empty(t, byCourt[0].Services)

	subsOnly := true
	subs, err := database.ListBookings(ctx, BookingFilter{IsSubscription: &subsOnly})
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "sub", subs[0].Reference)
	assert.Len(t, subs[0].Services, 1)

	overlap, err := database.ListBookings(ctx, BookingFilter{DateFrom: date(2025, 11, 5), DateTo: date(2025, 11, 6)})
	require.NoError(t, err)
	require.Len(t, overlap, 1)
	assert.Equal(t, "sub", overlap[0].Reference)

	limited, err := database.ListBookings(ctx, BookingFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestUpdateBookingStatus(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	b := sampleBooking("ref")
	require.NoError(t, database.CreateBooking(ctx, b))

	require.NoError(t, database.UpdateBookingStatus(ctx, b.ID, model.StatusPending, model.StatusConfirmed, "ok"))

	got, err := database.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, got.Status)
	assert.Equal(t, "ok", got.ManagerComment)

	err = database.UpdateBookingStatus(ctx, b.ID, model.StatusPending, model.StatusRejected, "")
	assert.ErrorIs(t, err, ErrConcurrentModification)

	history, err := database.StatusHistory(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.StatusPending, history[0].From)
	assert.Equal(t, model.StatusConfirmed, history[0].To)
	assert.Equal(t, "ok", history[0].Comment)
}

func TestAnalytics(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	confirmed := sampleBooking("a")
	require.NoError(t, database.CreateBooking(ctx, confirmed))
	require.NoError(t, database.UpdateBookingStatus(ctx, confirmed.ID, model.StatusPending, model.StatusConfirmed, ""))

	pending := sampleBooking("b")
	pending.IsSubscription = false
	pending.Sessions = 1
	pending.TotalCost = pricing.Rubles(2000)
	require.NoError(t, database.CreateBooking(ctx, pending))

	canceled := sampleBooking("c")
	canceled.CourtID = 2
	canceled.CourtName = "Корт №2"
	require.NoError(t, database.CreateBooking(ctx, canceled))
	require.NoError(t, database.UpdateBookingStatus(ctx, canceled.ID, model.StatusPending, model.StatusCanceled, "client"))

	a, err := database.Analytics(ctx, AnalyticsFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, a.Bookings)
	assert.Equal(t, 1, a.ByStatus[model.StatusConfirmed])
	assert.Equal(t, 1, a.ByStatus[model.StatusPending])
	assert.Equal(t, 1, a.ByStatus[model.StatusCanceled])
	assert.Equal(t, 2, a.Subscriptions)
	assert.Equal(t, pricing.Rubles(7800), a.Revenue)
	assert.Equal(t, int64(3*120+120), a.BookedMinutes)
	require.Len(t, a.Courts, 2)
	assert.Equal(t, 1, a.Courts[0].CourtID)
	assert.Equal(t, 2, a.Courts[0].Bookings)
	assert.Zero(t, a.Courts[1].Revenue)

	scoped, err := database.Analytics(ctx, AnalyticsFilter{CourtID: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, scoped.Bookings)
}

func TestAnalytics_CountsOnlySessionsInPeriod(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	sub := sampleBooking("mwf")
	require.NoError(t, database.CreateBooking(ctx, sub))
	require.NoError(t, database.UpdateBookingStatus(ctx, sub.ID, model.StatusPending, model.StatusConfirmed, ""))

	tuesday, err := database.Analytics(ctx, AnalyticsFilter{DateFrom: date(2025, 11, 4), DateTo: date(2025, 11, 4)})
	require.NoError(t, err)
	assert.Equal(t, 1, tuesday.Bookings, "the subscription overlaps the day")
	assert.Zero(t, tuesday.BookedMinutes)
	assert.Zero(t, tuesday.Revenue)

	partial, err := database.Analytics(ctx, AnalyticsFilter{DateFrom: date(2025, 11, 3), DateTo: date(2025, 11, 5)})
	require.NoError(t, err)
	assert.Equal(t, int64(2*120), partial.BookedMinutes)
	assert.Equal(t, pricing.Rubles(2*2000+1200), partial.Revenue)
	require.Len(t, partial.Courts, 1)
	assert.Equal(t, partial.Revenue, partial.Courts[0].Revenue)
}

func TestBackupAndCleanup(t *testing.T) {
	database := newTestDB(t)
	require.NoError(t, database.CreateBooking(context.Background(), sampleBooking("ref")))

	dir := t.TempDir()
	dest := filepath.Join(dir, "courtbook_1.db")
	require.NoError(t, database.Backup(dest))
	assert.FileExists(t, dest)
	assert.Error(t, database.Backup(dest), "existing file is not overwritten")

	old := filepath.Join(dir, "courtbook_0.db")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o600))
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	deleted, err := database.CleanupBackups(dir, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.NoFileExists(t, old)
	assert.FileExists(t, dest)
}
