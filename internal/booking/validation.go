package booking

import (
	"fmt"
	"strings"
	"time"

	"courtbook/internal/calendar"
	"courtbook/internal/config"
	"courtbook/internal/pricing"
	"courtbook/internal/slots"
)

// prepare resolves a request against the catalog and checks it. It does not
// look at client details.
func (s *Service) prepare(req *Request) (*Quote, error) {
	catalog := s.catalog.Current()
	if catalog == nil {
		return nil, fmt.Errorf("%w: catalog not loaded", ErrCourtNotFound)
	}

	court, ok := catalog.CourtByID(req.CourtID)
	if !ok || !court.Active() {
		return nil, fmt.Errorf("%w: id %d", ErrCourtNotFound, req.CourtID)
	}
	tariff, ok := court.TariffByID(req.TariffID)
	if !ok {
		return nil, fmt.Errorf("%w: id %d on court %d", ErrTariffNotFound, req.TariffID, court.ID)
	}

	start, end, err := s.validateTime(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	startDate, err := parseDate("date", req.Date)
	if err != nil {
		return nil, err
	}

	q := &Quote{
		CourtID:           court.ID,
		CourtName:         court.Name,
		CourtOrganization: court.Organization,
		TariffID:          tariff.ID,
		TariffName:        tariff.Name,
		StartMinute:       start,
		EndMinute:         end,
		IsSubscription:    tariff.Subscription,
		StartDate:         startDate,
		EndDate:           startDate,
		PricePerHour:      tariff.PricePerHour(),
	}

	if tariff.Subscription {
		if err := s.applySubscription(q, req); err != nil {
			return nil, err
		}
	}

	q.Services, err = resolveServices(court, req.Services)
	if err != nil {
		return nil, err
	}

	return q, nil
}

func (s *Service) validateTime(startRaw, endRaw string) (start, end int, err error) {
	if start, err = slots.ParseClock(startRaw); err != nil {
		return 0, 0, fmt.Errorf("%w: start_time %q", ErrInvalidTime, startRaw)
	}
	if end, err = slots.ParseClock(endRaw); err != nil {
		return 0, 0, fmt.Errorf("%w: end_time %q", ErrInvalidTime, endRaw)
	}
	for _, v := range []struct {
		raw    string
		minute int
	}{{startRaw, start}, {endRaw, end}} {
		if v.minute%slots.StepMinutes != 0 {
			nearest, _ := slots.NormalizeClock(v.raw)
			return 0, 0, fmt.Errorf("%w: %s (nearest %s)", ErrTimeNotAligned, strings.TrimSpace(v.raw), nearest)
		}
	}
	if end <= start {
		return 0, 0, fmt.Errorf("%w: end_time must be after start_time", ErrInvalidTime)
	}
	if d := time.Duration(end-start) * time.Minute; d < s.rules.MinDuration {
		return 0, 0, fmt.Errorf("%w: %s, minimum %s", ErrDurationTooShort,
			slots.FormatDuration(end-start), slots.FormatDuration(int(s.rules.MinDuration/time.Minute)))
	}
	return start, end, nil
}

func (s *Service) applySubscription(q *Quote, req *Request) error {
	switch {
	case req.Weekdays == nil:
		q.Weekdays = calendar.DefaultWeekdays
	case len(req.Weekdays) == 0:
		return ErrNoWeekdays
	default:
		set, err := calendar.WeekdaysFromIDs(req.Weekdays)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDate, err)
		}
		q.Weekdays = set
	}

	if req.EndDate == "" {
		q.EndDate = q.StartDate.AddDate(0, 0, s.rules.DefaultSubscriptionDays)
	} else {
		end, err := parseDate("end_date", req.EndDate)
		if err != nil {
			return err
		}
		q.EndDate = end
	}

	if days := calendar.NewDateRange(q.StartDate, q.EndDate).Len(); days > s.rules.MaxSubscriptionDays {
		return fmt.Errorf("%w: %d days, maximum %d", ErrSubscriptionTooLong, days, s.rules.MaxSubscriptionDays)
	}
	return nil
}

func resolveServices(court *config.CourtConfig, names []string) ([]pricing.Service, error) {
	out := make([]pricing.Service, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if seen[name] {
			continue
		}
		seen[name] = true
		svc, ok := court.ServiceByName(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q on court %d", ErrServiceNotFound, name, court.ID)
		}
		out = append(out, svc)
	}
	return out, nil
}

func parseDate(field, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required", ErrInvalidDate, field)
	}
	d, err := calendar.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %q, expected YYYY-MM-DD", ErrInvalidDate, field, raw)
	}
	return d, nil
}

func validateClient(c Client) (Client, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return c, fmt.Errorf("%w: name is required", ErrInvalidClient)
	}
	phone, ok := normalizePhone(c.Phone)
	if !ok {
		return c, fmt.Errorf("%w: phone %q", ErrInvalidClient, c.Phone)
	}
	c.Phone = phone
	c.Email = strings.TrimSpace(c.Email)
	if c.Email != "" && !strings.Contains(c.Email, "@") {
		return c, fmt.Errorf("%w: email %q", ErrInvalidClient, c.Email)
	}
	return c, nil
}

// normalizePhone strips separators and keeps a leading plus. Numbers must
// have 10 to 15 digits.
func normalizePhone(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	plus := strings.HasPrefix(s, "+")
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 10 || len(digits) > 15 {
		return "", false
	}
	if plus {
		return "+" + digits, true
	}
	return digits, true
}
