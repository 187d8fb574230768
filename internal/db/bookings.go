package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Masterminds/squirrel"

	"courtbook/internal/calendar"
	"courtbook/internal/model"
	"courtbook/internal/pricing"
)

// BookingFilter narrows ListBookings. Zero values are ignored. DateFrom and
// DateTo select bookings whose date range overlaps [DateFrom, DateTo].
type BookingFilter struct {
	Status         model.BookingStatus
	CourtID        int
	Organization   string
	DateFrom       time.Time
	DateTo         time.Time
	IsSubscription *bool
	Limit          int
	Offset         int
}

// StatusChange is one entry of a booking's status history.
type StatusChange struct {
	From      model.BookingStatus `json:"from"`
	To        model.BookingStatus `json:"to"`
	Comment   string              `json:"comment,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

var bookingColumns = []string{
	"id",
	"reference",
	"court_id",
	"court_name",
	"court_organization",
	"tariff_id",
	"tariff_name",
	"start_minute",
	"end_minute",
	"is_subscription",
	"start_date",
	"end_date",
	"weekdays",
	"sessions",
	"session_price",
	"services_cost",
	"total_cost",
	"client_name",
	"client_phone",
	"client_email",
	"status",
	"manager_comment",
	"created_at",
	"updated_at",
}

// CreateBooking inserts the booking with its services and fills ID and
// timestamps.
func (db *DB) CreateBooking(ctx context.Context, b *model.Booking) error {
	now := time.Now().UTC()
	if b.Status == "" {
		b.Status = model.StatusPending
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := squirrel.Insert("bookings").
		Columns(bookingColumns[1:]...).
		Values(
			b.Reference,
			b.CourtID,
			b.CourtName,
			b.CourtOrganization,
			b.TariffID,
			b.TariffName,
			b.StartMinute,
			b.EndMinute,
			b.IsSubscription,
			b.StartDate.Format(calendar.DateLayout),
			b.EndDate.Format(calendar.DateLayout),
			int64(b.Weekdays),
			b.Sessions,
			int64(b.SessionPrice),
			int64(b.ServicesCost),
			int64(b.TotalCost),
			b.ClientName,
			b.ClientPhone,
			nullString(b.ClientEmail),
			string(b.Status),
			nullString(b.ManagerComment),
			now,
			now,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert booking: %w", err)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("booking id: %w", err)
	}

	if len(b.Services) > 0 {
		ins := squirrel.Insert("booking_services").Columns("booking_id", "name", "price_per_hour", "cost")
		for _, s := range b.Services {
			ins = ins.Values(id, s.Name, int64(s.PricePerHour), int64(s.Cost))
		}
		query, args, err = ins.ToSql()
		if err != nil {
			return fmt.Errorf("build insert services: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert services: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	b.ID = id
	b.CreatedAt = now
	b.UpdatedAt = now
	return nil
}

// GetBooking loads a booking by id.
func (db *DB) GetBooking(ctx context.Context, id int64) (*model.Booking, error) {
	return db.getBookingWhere(ctx, squirrel.Eq{"id": id})
}

// GetBookingByReference loads a booking by its public reference.
func (db *DB) GetBookingByReference(ctx context.Context, ref string) (*model.Booking, error) {
	return db.getBookingWhere(ctx, squirrel.Eq{"reference": ref})
}

func (db *DB) getBookingWhere(ctx context.Context, where squirrel.Eq) (*model.Booking, error) {
	query, args, err := squirrel.Select(bookingColumns...).From("bookings").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select booking: %w", err)
	}

	b, err := scanBooking(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select booking: %w", err)
	}

	services, err := db.bookingServices(ctx, []int64{b.ID})
	if err != nil {
		return nil, err
	}
	b.Services = services[b.ID]
	return b, nil
}

// ListBookings returns bookings matching the filter, newest first.
func (db *DB) ListBookings(ctx context.Context, f BookingFilter) ([]model.Booking, error) {
	sb := applyFilter(squirrel.Select(bookingColumns...).From("bookings"), f).
		OrderBy("created_at DESC", "id DESC")

	switch {
	case f.Limit > 0:
		sb = sb.Limit(uint64(f.Limit))
	case f.Offset > 0:
		// sqlite rejects OFFSET without LIMIT
		sb = sb.Limit(math.MaxInt64)
	}
	if f.Offset > 0 {
		sb = sb.Offset(uint64(f.Offset))
	}

	query, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list bookings: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var (
		out []model.Booking
		ids []int64
	)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, *b)
		ids = append(ids, b.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	services, err := db.bookingServices(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Services = services[out[i].ID]
	}
	return out, nil
}

// UpdateBookingStatus moves a booking from one status to another and records
// the change. It fails with ErrConcurrentModification when the stored status
// is no longer from.
func (db *DB) UpdateBookingStatus(ctx context.Context, id int64, from, to model.BookingStatus, comment string) error {
	now := time.Now().UTC()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := squirrel.Update("bookings").
		Set("status", string(to)).
		Set("manager_comment", nullString(comment)).
		Set("updated_at", now).
		Where(squirrel.Eq{"id": id, "status": string(from)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update status: %w", err)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrConcurrentModification
	}

	query, args, err = squirrel.Insert("booking_status_history").
		Columns("booking_id", "from_status", "to_status", "comment", "created_at").
		Values(id, string(from), string(to), nullString(comment), now).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert history: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}

	return tx.Commit()
}

// StatusHistory returns the status changes of a booking, oldest first.
func (db *DB) StatusHistory(ctx context.Context, bookingID int64) ([]StatusChange, error) {
	query, args, err := squirrel.Select("from_status", "to_status", "comment", "created_at").
		From("booking_status_history").
		Where(squirrel.Eq{"booking_id": bookingID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build status history: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("status history: %w", err)
	}
	defer rows.Close()

	var out []StatusChange
	for rows.Next() {
		var (
			c       StatusChange
			from    string
			to      string
			comment sql.NullString
		)
		if err := rows.Scan(&from, &to, &comment, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan status change: %w", err)
		}
		c.From = model.BookingStatus(from)
		c.To = model.BookingStatus(to)
		c.Comment = comment.String
		out = append(out, c)
	}
	return out, rows.Err()
}

func (db *DB) bookingServices(ctx context.Context, ids []int64) (map[int64][]model.SelectedService, error) {
	out := make(map[int64][]model.SelectedService, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query, args, err := squirrel.Select("booking_id", "name", "price_per_hour", "cost").
		From("booking_services").
		Where(squirrel.Eq{"booking_id": ids}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select services: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select services: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			bookingID   int64
			s           model.SelectedService
			price, cost int64
		)
		if err := rows.Scan(&bookingID, &s.Name, &price, &cost); err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		s.PricePerHour = pricing.Money(price)
		s.Cost = pricing.Money(cost)
		out[bookingID] = append(out[bookingID], s)
	}
	return out, rows.Err()
}

func applyFilter(sb squirrel.SelectBuilder, f BookingFilter) squirrel.SelectBuilder {
	if f.Status != "" {
		sb = sb.Where(squirrel.Eq{"status": string(f.Status)})
	}
	if f.CourtID > 0 {
		sb = sb.Where(squirrel.Eq{"court_id": f.CourtID})
	}
	if f.Organization != "" {
		sb = sb.Where(squirrel.Eq{"court_organization": f.Organization})
	}
	if !f.DateFrom.IsZero() {
		sb = sb.Where(squirrel.GtOrEq{"end_date": f.DateFrom.Format(calendar.DateLayout)})
	}
	if !f.DateTo.IsZero() {
		sb = sb.Where(squirrel.LtOrEq{"start_date": f.DateTo.Format(calendar.DateLayout)})
	}
	if f.IsSubscription != nil {
		sb = sb.Where(squirrel.Eq{"is_subscription": *f.IsSubscription})
	}
	return sb
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	var (
		b                             model.Booking
		startDate, endDate, status    string
		weekdays                      int64
		sessionPrice, services, total int64
		email, comment                sql.NullString
	)

	err := row.Scan(
		&b.ID,
		&b.Reference,
		&b.CourtID,
		&b.CourtName,
		&b.CourtOrganization,
		&b.TariffID,
		&b.TariffName,
		&b.StartMinute,
		&b.EndMinute,
		&b.IsSubscription,
		&startDate,
		&endDate,
		&weekdays,
		&b.Sessions,
		&sessionPrice,
		&services,
		&total,
		&b.ClientName,
		&b.ClientPhone,
		&email,
		&status,
		&comment,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if b.StartDate, err = calendar.ParseDate(startDate); err != nil {
		return nil, fmt.Errorf("parse start_date: %w", err)
	}
	if b.EndDate, err = calendar.ParseDate(endDate); err != nil {
		return nil, fmt.Errorf("parse end_date: %w", err)
	}
	b.Weekdays = calendar.WeekdaySet(weekdays)
	b.SessionPrice = pricing.Money(sessionPrice)
	b.ServicesCost = pricing.Money(services)
	b.TotalCost = pricing.Money(total)
	b.ClientEmail = email.String
	b.Status = model.BookingStatus(status)
	b.ManagerComment = comment.String
	return &b, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
