package slots

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay is the largest valid clock value ("24:00").
const MinutesPerDay = 24 * 60

// StepMinutes is the booking grid.
const StepMinutes = 30

var ErrInvalidClock = errors.New("invalid clock time")

var rangeSeparators = []string{"–", "—", "-"}

// ParseClock parses "HH:MM" into minutes from midnight. "24:00" is accepted.
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || len(mm) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes from midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// FormatRange renders "08:00–10:00".
func FormatRange(start, end int) string {
	return FormatClock(start) + "–" + FormatClock(end)
}

// ParseRange parses "08:00–10:00". An en dash, em dash or hyphen separates the
// two clock values and the end must be after the start.
func ParseRange(s string) (start, end int, err error) {
	for _, sep := range rangeSeparators {
		a, b, ok := strings.Cut(s, sep)
		if !ok {
			continue
		}
		if start, err = ParseClock(a); err != nil {
			return 0, 0, err
		}
		if end, err = ParseClock(b); err != nil {
			return 0, 0, err
		}
		if end <= start {
			return 0, 0, fmt.Errorf("%w: range %q ends before it starts", ErrInvalidClock, s)
		}
		return start, end, nil
	}
	return 0, 0, fmt.Errorf("%w: range %q", ErrInvalidClock, s)
}

// NormalizeClock snaps "HH:MM" to the nearest half hour. ":15" and ":45" round
// up and "23:50" wraps to "00:00".
func NormalizeClock(s string) (string, error) {
	m, err := ParseClock(s)
	if err != nil {
		return "", err
	}
	snapped := (m + StepMinutes/2) / StepMinutes * StepMinutes
	return FormatClock(snapped % MinutesPerDay), nil
}

// FormatDuration renders minutes the way the booking summary shows them.
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d мин", minutes)
	}
	hours := minutes / 60
	mins := minutes % 60
	if mins == 0 {
		switch {
		case hours == 1:
			return "1 час"
		case hours < 5:
			return fmt.Sprintf("%d часа", hours)
		default:
			return fmt.Sprintf("%d часов", hours)
		}
	}
	return fmt.Sprintf("%d ч %d мин", hours, mins)
}
