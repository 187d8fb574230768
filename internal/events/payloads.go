package events

import "courtbook/internal/model"

// StatusChanged is the payload of BookingStatusChanged.
type StatusChanged struct {
	Booking model.Booking       `json:"booking"`
	From    model.BookingStatus `json:"from"`
}
