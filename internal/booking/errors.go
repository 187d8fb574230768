package booking

import "errors"

var (
	ErrCourtNotFound           = errors.New("court not found")
	ErrTariffNotFound          = errors.New("tariff not found")
	ErrServiceNotFound         = errors.New("service not found")
	ErrInvalidTime             = errors.New("invalid time")
	ErrTimeNotAligned          = errors.New("time must be on a 30-minute boundary")
	ErrDurationTooShort        = errors.New("duration is too short")
	ErrInvalidDate             = errors.New("invalid date")
	ErrNoWeekdays              = errors.New("subscription needs at least one weekday")
	ErrSubscriptionTooLong     = errors.New("subscription period is too long")
	ErrNoSessions              = errors.New("no sessions in the selected period")
	ErrInvalidClient           = errors.New("invalid client details")
	ErrBookingNotFound         = errors.New("booking not found")
	ErrInvalidStatus           = errors.New("invalid status")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)
