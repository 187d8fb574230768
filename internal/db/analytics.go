package db

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Masterminds/squirrel"

	"courtbook/internal/model"
	"courtbook/internal/pricing"
)

// AnalyticsFilter scopes Analytics. Zero values are ignored.
type AnalyticsFilter struct {
	CourtID  int
	DateFrom time.Time
	DateTo   time.Time
}

// CourtStats aggregates bookings of one court.
type CourtStats struct {
	CourtID       int           `json:"court_id"`
	CourtName     string        `json:"court_name"`
	Bookings      int           `json:"bookings"`
	Revenue       pricing.Money `json:"revenue"`
	BookedMinutes int64         `json:"booked_minutes"`
}

// Analytics aggregates bookings over a period. Revenue counts confirmed and
// completed bookings, BookedMinutes counts bookings that hold or held court
// time. Both only include sessions dated inside the period, so a subscription
// that overlaps the period contributes its in-period share.
type Analytics struct {
	Bookings      int                         `json:"bookings"`
	ByStatus      map[model.BookingStatus]int `json:"by_status"`
	Subscriptions int                         `json:"subscriptions"`
	Revenue       pricing.Money               `json:"revenue"`
	BookedMinutes int64                       `json:"booked_minutes"`
	Courts        []CourtStats                `json:"courts"`
}

// Analytics computes booking KPIs.
func (db *DB) Analytics(ctx context.Context, f AnalyticsFilter) (*Analytics, error) {
	bf := BookingFilter{CourtID: f.CourtID, DateFrom: f.DateFrom, DateTo: f.DateTo}
	out := &Analytics{ByStatus: make(map[model.BookingStatus]int)}

	query, args, err := applyFilter(
		squirrel.Select("status", "COUNT(*)", "COALESCE(SUM(is_subscription), 0)").From("bookings"), bf,
	).GroupBy("status").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build status analytics: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("status analytics: %w", err)
	}
	for rows.Next() {
		var (
			status      string
			count, subs int
		)
		if err := rows.Scan(&status, &count, &subs); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan status analytics: %w", err)
		}
		out.ByStatus[model.BookingStatus(status)] = count
		out.Bookings += count
		out.Subscriptions += subs
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	list, err := db.ListBookings(ctx, bf)
	if err != nil {
		return nil, fmt.Errorf("court analytics: %w", err)
	}

	byCourt := make(map[int]*CourtStats)
	for i := range list {
		b := &list[i]
		cs, ok := byCourt[b.CourtID]
		if !ok {
			cs = &CourtStats{CourtID: b.CourtID, CourtName: b.CourtName}
			byCourt[b.CourtID] = cs
		}
		cs.Bookings++
		if b.Earns() {
			cs.Revenue += b.RevenueWithin(f.DateFrom, f.DateTo)
		}
		if b.HoldsCourt() {
			cs.BookedMinutes += int64(b.SessionsWithin(f.DateFrom, f.DateTo)) * int64(b.EndMinute-b.StartMinute)
		}
	}

	for _, cs := range byCourt {
		out.Revenue += cs.Revenue
		out.BookedMinutes += cs.BookedMinutes
		out.Courts = append(out.Courts, *cs)
	}
	sort.Slice(out.Courts, func(i, j int) bool { return out.Courts[i].CourtID < out.Courts[j].CourtID })
	return out, nil
}
