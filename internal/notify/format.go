package notify

import (
	"fmt"
	"strings"

	"courtbook/internal/model"
)

const dateLayout = "02.01.2006"

// FormatBooking renders the booking summary shown to managers.
func FormatBooking(b *model.Booking) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "№ %s\n", shortRef(b.Reference))
	fmt.Fprintf(&sb, "Корт: %s (%s)\n", b.CourtName, b.CourtOrganization)
	fmt.Fprintf(&sb, "Тариф: %s\n", b.TariffName)
	fmt.Fprintf(&sb, "Время: %s (%s)\n", b.TimeLabel(), b.DurationLabel())
	if b.IsSubscription {
		fmt.Fprintf(&sb, "Период: %s – %s, %s\n", b.StartDate.Format(dateLayout), b.EndDate.Format(dateLayout), b.Weekdays)
	} else {
		fmt.Fprintf(&sb, "Дата: %s\n", b.StartDate.Format(dateLayout))
	}
	fmt.Fprintf(&sb, "Занятий: %d × %s\n", b.Sessions, b.SessionPrice)
	if len(b.Services) > 0 {
		names := make([]string, len(b.Services))
		for i, s := range b.Services {
			names[i] = fmt.Sprintf("%s (%s)", s.Name, s.Cost)
		}
		fmt.Fprintf(&sb, "Услуги: %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintf(&sb, "Итого: %s\n", b.TotalCost)
	fmt.Fprintf(&sb, "Клиент: %s, %s", b.ClientName, b.ClientPhone)
	if b.ClientEmail != "" {
		fmt.Fprintf(&sb, ", %s", b.ClientEmail)
	}
	return sb.String()
}

func shortRef(ref string) string {
	if len(ref) > 8 {
		return ref[:8]
	}
	return ref
}
