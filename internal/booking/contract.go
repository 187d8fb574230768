package booking

import (
	"context"

	"courtbook/internal/config"
	"courtbook/internal/db"
	"courtbook/internal/model"
)

// Repository persists bookings.
type Repository interface {
	CreateBooking(ctx context.Context, b *model.Booking) error
	GetBooking(ctx context.Context, id int64) (*model.Booking, error)
	GetBookingByReference(ctx context.Context, ref string) (*model.Booking, error)
	ListBookings(ctx context.Context, f db.BookingFilter) ([]model.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, from, to model.BookingStatus, comment string) error
	StatusHistory(ctx context.Context, id int64) ([]db.StatusChange, error)
	Analytics(ctx context.Context, f db.AnalyticsFilter) (*db.Analytics, error)
}

// EventPublisher publishes domain events.
type EventPublisher interface {
	PublishJSON(eventType string, payload any) error
}

// CatalogSource returns the live court catalog.
type CatalogSource interface {
	Current() *config.Catalog
}
