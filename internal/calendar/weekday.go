package calendar

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// WeekdaySet is a set of weekdays keyed by time.Weekday (0 = Sunday).
type WeekdaySet uint8

// DefaultWeekdays is Monday, Wednesday and Friday.
var DefaultWeekdays = NewWeekdaySet(time.Monday, time.Wednesday, time.Friday)

var shortNames = [7]string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"}

// NewWeekdaySet builds a set from the given days.
func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s = s.Add(d)
	}
	return s
}

// WeekdaysFromIDs builds a set from numeric ids, 0 = Sunday through 6 = Saturday.
func WeekdaysFromIDs(ids []int) (WeekdaySet, error) {
	var s WeekdaySet
	for _, id := range ids {
		if id < 0 || id > 6 {
			return 0, fmt.Errorf("invalid weekday %d, must be 0-6 (0=Sun)", id)
		}
		s = s.Add(time.Weekday(id))
	}
	return s, nil
}

// Add returns the set with d included.
func (s WeekdaySet) Add(d time.Weekday) WeekdaySet {
	return s | 1<<uint(d)
}

// Has reports whether d is in the set.
func (s WeekdaySet) Has(d time.Weekday) bool {
	return s&(1<<uint(d)) != 0
}

// IsEmpty reports whether the set has no days.
func (s WeekdaySet) IsEmpty() bool {
	return s&0x7f == 0
}

// Days lists the members Monday first.
func (s WeekdaySet) Days() []time.Weekday {
	out := make([]time.Weekday, 0, 7)
	for i := 1; i <= 7; i++ {
		d := time.Weekday(i % 7)
		if s.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

// IDs lists the members as numeric ids, Monday first.
func (s WeekdaySet) IDs() []int {
	days := s.Days()
	out := make([]int, len(days))
	for i, d := range days {
		out[i] = int(d)
	}
	return out
}

// String renders "Пн, Ср, Пт".
func (s WeekdaySet) String() string {
	days := s.Days()
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = shortNames[d]
	}
	return strings.Join(names, ", ")
}

// MarshalJSON encodes the set as a list of weekday ids.
func (s WeekdaySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

// UnmarshalJSON decodes a list of weekday ids.
func (s *WeekdaySet) UnmarshalJSON(data []byte) error {
	var ids []int
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	set, err := WeekdaysFromIDs(ids)
	if err != nil {
		return err
	}
	*s = set
	return nil
}
