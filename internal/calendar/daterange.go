package calendar

import (
	"iter"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Date truncates t to its calendar date, expressed as UTC midnight of the
// same year, month and day.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange normalises both ends to calendar dates.
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: Date(start), End: Date(end)}
}

// Empty reports whether the range is inverted.
func (r DateRange) Empty() bool {
	return r.Start.After(r.End)
}

// Len is the number of dates in the range.
func (r DateRange) Len() int {
	if r.Empty() {
		return 0
	}
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Days yields every date from Start to End inclusive. The sequence can be
// ranged over any number of times.
func (r DateRange) Days() iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
			if !yield(d) {
				return
			}
		}
	}
}

// Matching yields the dates whose weekday is in the set.
func (r DateRange) Matching(weekdays WeekdaySet) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		for d := range r.Days() {
			if weekdays.Has(d.Weekday()) && !yield(d) {
				return
			}
		}
	}
}

// CountSessions counts the dates in [start, end] whose weekday is in the
// set. Both ends are normalised to calendar dates first; an inverted range
// counts zero.
func CountSessions(start, end time.Time, weekdays WeekdaySet) int {
	n := 0
	for range NewDateRange(start, end).Matching(weekdays) {
		n++
	}
	return n
}

// SessionDates lists the dates CountSessions counts.
func SessionDates(start, end time.Time, weekdays WeekdaySet) []time.Time {
	var out []time.Time
	for d := range NewDateRange(start, end).Matching(weekdays) {
		out = append(out, d)
	}
	return out
}
