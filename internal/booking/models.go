package booking

import (
	"time"

	"courtbook/internal/calendar"
	"courtbook/internal/model"
	"courtbook/internal/pricing"
)

// Request describes a booking the client wants. Date is the session date
// for one-off tariffs and the first date for subscriptions. For
// subscriptions a nil Weekdays means Monday, Wednesday and Friday, and an
// empty EndDate means the default period after Date.
type Request struct {
	CourtID   int      `json:"court_id"`
	TariffID  int      `json:"tariff_id"`
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
	Date      string   `json:"date"`
	EndDate   string   `json:"end_date,omitempty"`
	Weekdays  []int    `json:"weekdays"`
	Services  []string `json:"services,omitempty"`
	Client    Client   `json:"client"`
}

// Client identifies who books.
type Client struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// Quote is the priced booking before it is stored.
type Quote struct {
	CourtID           int                   `json:"court_id"`
	CourtName         string                `json:"court_name"`
	CourtOrganization string                `json:"court_organization"`
	TariffID          int                   `json:"tariff_id"`
	TariffName        string                `json:"tariff_name"`
	StartMinute       int                   `json:"start_minute"`
	EndMinute         int                   `json:"end_minute"`
	IsSubscription    bool                  `json:"is_subscription"`
	StartDate         time.Time             `json:"start_date"`
	EndDate           time.Time             `json:"end_date"`
	Weekdays          calendar.WeekdaySet   `json:"weekdays"`
	PricePerHour      pricing.Money         `json:"price_per_hour"`
	Services          []pricing.Service     `json:"services"`
	Cost              pricing.CostBreakdown `json:"cost"`
}

// Duration is the length of one session.
func (q *Quote) Duration() time.Duration {
	return time.Duration(q.EndMinute-q.StartMinute) * time.Minute
}

// Report is the manager analytics view.
type Report struct {
	Bookings      int           `json:"bookings"`
	Pending       int           `json:"pending"`
	Confirmed     int           `json:"confirmed"`
	Canceled      int           `json:"canceled"`
	Rejected      int           `json:"rejected"`
	Completed     int           `json:"completed"`
	Subscriptions int           `json:"subscriptions"`
	Revenue       pricing.Money `json:"revenue"`
	BookedMinutes int64         `json:"booked_minutes"`
	Utilization   float64       `json:"utilization"`
	Courts        []CourtReport `json:"courts"`
}

// CourtReport is one court's line of the report.
type CourtReport struct {
	CourtID       int           `json:"court_id"`
	CourtName     string        `json:"court_name"`
	Bookings      int           `json:"bookings"`
	Revenue       pricing.Money `json:"revenue"`
	BookedMinutes int64         `json:"booked_minutes"`
	Utilization   float64       `json:"utilization"`
}

// AnalyticsRequest scopes Analytics. Utilization needs both dates.
type AnalyticsRequest struct {
	CourtID  int
	DateFrom time.Time
	DateTo   time.Time
}

// Slot states in a court schedule.
const (
	SlotAvailable = "available"
	SlotPending   = "pending"
	SlotBooked    = "booked"
	SlotClosed    = "closed"
)

// Schedule is one court's day as managers see it.
type Schedule struct {
	CourtID      int            `json:"court_id"`
	CourtName    string         `json:"court_name"`
	Organization string         `json:"organization"`
	Date         time.Time      `json:"date"`
	Slots        []ScheduleSlot `json:"slots"`
}

// ScheduleSlot is a catalog slot with the booking that occupies it, if any.
type ScheduleSlot struct {
	Start   int            `json:"start"`
	End     int            `json:"end"`
	Label   string         `json:"label"`
	Price   pricing.Money  `json:"price"`
	State   string         `json:"state"`
	Booking *model.Booking `json:"booking,omitempty"`
}
