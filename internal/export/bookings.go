package export

import (
	"fmt"
	"io"
	"math"
	"strings"

	"courtbook/internal/booking"
	"courtbook/internal/model"
	"courtbook/internal/slots"
)

const dateLayout = "02.01.2006"

var bookingColumns = []string{
	"№",
	"Создано",
	"Статус",
	"Организация",
	"Корт",
	"Тариф",
	"Время",
	"Длительность",
	"Абонемент",
	"Начало",
	"Окончание",
	"Дни недели",
	"Занятий",
	"Цена занятия, ₽",
	"Услуги",
	"Услуги, ₽",
	"Итого, ₽",
	"Клиент",
	"Телефон",
	"Email",
	"Комментарий",
}

var courtColumns = []string{"Корт", "Бронирований", "Выручка, ₽", "Забронировано часов", "Загрузка, %"}

// Bookings writes an .xlsx workbook with one row per booking and, when
// report is not nil, a second sheet with per-court totals.
func Bookings(out io.Writer, bookings []model.Booking, report *booking.Report) error {
	w := newSheetWriter()
	defer func() { _ = w.close() }()

	if err := w.addSheet("Бронирования"); err != nil {
		return err
	}
	if err := w.writeHeader(bookingColumns); err != nil {
		return err
	}
	for i := range bookings {
		if err := w.writeRow(bookingRow(&bookings[i])); err != nil {
			return fmt.Errorf("write booking %d: %w", bookings[i].ID, err)
		}
	}
	if err := w.fitColumns(); err != nil {
		return err
	}

	if report != nil {
		if err := w.addSheet("Аналитика"); err != nil {
			return err
		}
		if err := w.writeHeader(courtColumns); err != nil {
			return err
		}
		for _, c := range report.Courts {
			if err := w.writeRow([]any{c.CourtName, c.Bookings, rubles(int64(c.Revenue)), float64(c.BookedMinutes) / 60, percent(c.Utilization)}); err != nil {
				return err
			}
		}
		if err := w.writeRow([]any{"Всего", report.Bookings, rubles(int64(report.Revenue)), float64(report.BookedMinutes) / 60, percent(report.Utilization)}); err != nil {
			return err
		}
		if err := w.fitColumns(); err != nil {
			return err
		}
	}

	return w.save(out)
}

func bookingRow(b *model.Booking) []any {
	services := make([]string, len(b.Services))
	for i, s := range b.Services {
		services[i] = s.Name
	}
	subscription := "Нет"
	weekdays := ""
	if b.IsSubscription {
		subscription = "Да"
		weekdays = b.Weekdays.String()
	}
	return []any{
		b.Reference,
		b.CreatedAt.Format("02.01.2006 15:04"),
		b.Status.Label(),
		b.CourtOrganization,
		b.CourtName,
		b.TariffName,
		b.TimeLabel(),
		slots.FormatDuration(b.EndMinute - b.StartMinute),
		subscription,
		b.StartDate.Format(dateLayout),
		b.EndDate.Format(dateLayout),
		weekdays,
		b.Sessions,
		rubles(int64(b.SessionPrice)),
		strings.Join(services, ", "),
		rubles(int64(b.ServicesCost)),
		rubles(int64(b.TotalCost)),
		b.ClientName,
		b.ClientPhone,
		b.ClientEmail,
		b.ManagerComment,
	}
}

func percent(share float64) float64 {
	return math.Round(share*1000) / 10
}

// rubles converts minor units to a float for spreadsheet arithmetic.
func rubles(kopecks int64) float64 {
	return float64(kopecks) / 100
}
