package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"courtbook/internal/calendar"
	"courtbook/internal/db"
	"courtbook/internal/model"
)

const digestListLimit = 20

// BookingLister reads bookings for the digest.
type BookingLister interface {
	List(ctx context.Context, f db.BookingFilter) ([]model.Booking, error)
}

// DigestConfig holds the schedule of the daily manager digest.
type DigestConfig struct {
	// Timezone for scheduling (e.g., "Asia/Yekaterinburg")
	Timezone string
	// Hour and Minute of the daily run.
	Hour   int
	Minute int
	// CheckInterval is how often to check if it's time to run.
	CheckInterval time.Duration
}

// DefaultDigestConfig returns the default digest schedule.
func DefaultDigestConfig() DigestConfig {
	return DigestConfig{
		Timezone:      "Asia/Yekaterinburg",
		Hour:          20,
		Minute:        0,
		CheckInterval: time.Minute,
	}
}

// Digest sends managers a daily summary of pending requests and the next
// day's confirmed sessions.
type Digest struct {
	config      DigestConfig
	location    *time.Location
	lister      BookingLister
	notifier    *Notifier
	logger      *zerolog.Logger
	mu          sync.Mutex
	lastRunDate string
	now         func() time.Time
}

func NewDigest(config DigestConfig, lister BookingLister, notifier *Notifier, logger *zerolog.Logger) (*Digest, error) {
	loc, err := time.LoadLocation(config.Timezone)
	if err != nil {
		return nil, fmt.Errorf("digest timezone: %w", err)
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Digest{
		config:   config,
		location: loc,
		lister:   lister,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Start runs the schedule loop until ctx is done.
func (d *Digest) Start(ctx context.Context) {
	d.logger.Info().
		Str("timezone", d.config.Timezone).
		Str("daily_time", fmt.Sprintf("%02d:%02d", d.config.Hour, d.config.Minute)).
		Msg("manager digest scheduled")

	ticker := time.NewTicker(d.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.checkAndRun(ctx)
		}
	}
}

// checkAndRun sends the digest once per local day at the configured minute.
func (d *Digest) checkAndRun(ctx context.Context) bool {
	now := d.now().In(d.location)
	today := now.Format(calendar.DateLayout)

	d.mu.Lock()
	if d.lastRunDate == today || now.Hour() != d.config.Hour || now.Minute() != d.config.Minute {
		d.mu.Unlock()
		return false
	}
	d.lastRunDate = today
	d.mu.Unlock()

	if err := d.Send(ctx); err != nil {
		d.logger.Error().Err(err).Msg("manager digest failed")
	}
	return true
}

// Send builds and broadcasts the digest now. Nothing is sent when there is
// nothing to report.
func (d *Digest) Send(ctx context.Context) error {
	local := d.now().In(d.location)
	tomorrow := calendar.Date(local).AddDate(0, 0, 1)

	pending, err := d.lister.List(ctx, db.BookingFilter{Status: model.StatusPending})
	if err != nil {
		return fmt.Errorf("list pending bookings: %w", err)
	}
	confirmed, err := d.lister.List(ctx, db.BookingFilter{Status: model.StatusConfirmed, DateFrom: tomorrow, DateTo: tomorrow})
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	sessions := sessionsOn(confirmed, tomorrow)
	if len(pending) == 0 && len(sessions) == 0 {
		d.logger.Debug().Msg("manager digest skipped, nothing to report")
		return nil
	}

	text := formatDigest(local, tomorrow, pending, sessions)
	d.logger.Info().Int("pending", len(pending)).Int("sessions", len(sessions)).Msg("sending manager digest")
	return d.notifier.broadcast(ctx, text, nil)
}

// sessionsOn keeps bookings that hold a session on day, ordered by start.
func sessionsOn(list []model.Booking, day time.Time) []model.Booking {
	var out []model.Booking
	for _, b := range list {
		if b.IsSubscription && !b.Weekdays.Has(day.Weekday()) {
			continue
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartMinute != out[j].StartMinute {
			return out[i].StartMinute < out[j].StartMinute
		}
		return out[i].CourtName < out[j].CourtName
	})
	return out
}

func formatDigest(now, tomorrow time.Time, pending, sessions []model.Booking) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Сводка на %s\n", now.Format(dateLayout))

	fmt.Fprintf(&sb, "\nОжидают решения: %d\n", len(pending))
	for i, b := range pending {
		if i == digestListLimit {
			fmt.Fprintf(&sb, "…и ещё %d\n", len(pending)-digestListLimit)
			break
		}
		fmt.Fprintf(&sb, "• № %s %s, %s, %s\n", shortRef(b.Reference), b.CourtName, b.TimeLabel(), b.ClientName)
	}

	fmt.Fprintf(&sb, "\nЗавтра (%s): %d занятий\n", tomorrow.Format(dateLayout), len(sessions))
	for i, b := range sessions {
		if i == digestListLimit {
			fmt.Fprintf(&sb, "…и ещё %d\n", len(sessions)-digestListLimit)
			break
		}
		fmt.Fprintf(&sb, "• %s %s, %s, %s\n", b.TimeLabel(), b.CourtName, b.ClientName, b.ClientPhone)
	}
	return strings.TrimRight(sb.String(), "\n")
}
