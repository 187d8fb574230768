package slots

// Band is a time-of-day window in whole hours. StartHour > EndHour wraps
// past midnight.
type Band struct {
	Name      string `json:"name"`
	StartHour int    `json:"start_hour"`
	EndHour   int    `json:"end_hour"`
}

// Band labels accepted by ResolveBand.
const (
	BandMorning = "morning"
	BandDay     = "day"
	BandEvening = "evening"
	BandNight   = "night"
	BandAll     = "all"
)

var bands = map[string]Band{
	BandMorning: {Name: BandMorning, StartHour: 6, EndHour: 12},
	BandDay:     {Name: BandDay, StartHour: 12, EndHour: 18},
	BandEvening: {Name: BandEvening, StartHour: 18, EndHour: 24},
	BandNight:   {Name: BandNight, StartHour: 0, EndHour: 6},
	BandAll:     {Name: BandAll, StartHour: 0, EndHour: 24},
}

// AllDay is the band every hour belongs to.
var AllDay = bands[BandAll]

// ResolveBand maps a label to its hour range. Labels match exactly; anything
// else, including " Evening ", resolves to AllDay.
func ResolveBand(label string) Band {
	if b, ok := bands[label]; ok {
		return b
	}
	return AllDay
}

// BandLabels lists the known labels in display order.
func BandLabels() []string {
	return []string{BandAll, BandMorning, BandDay, BandEvening, BandNight}
}

// IsFullDay reports whether the band covers the whole day.
func (b Band) IsFullDay() bool {
	return b.StartHour == 0 && b.EndHour == 24
}

// Contains reports whether a slot starting in the given hour falls in the band.
func (b Band) Contains(hour int) bool {
	switch {
	case b.IsFullDay():
		return true
	case b.StartHour < b.EndHour:
		return hour >= b.StartHour && hour < b.EndHour
	case b.StartHour > b.EndHour:
		return hour >= b.StartHour || hour < b.EndHour
	default:
		return false
	}
}
