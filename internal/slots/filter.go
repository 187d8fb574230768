package slots

// FilterByBand keeps available slots whose start hour lies in the band.
// Input order is preserved.
func FilterByBand(in []TimeSlot, band Band) []TimeSlot {
	out := make([]TimeSlot, 0, len(in))
	for _, s := range in {
		if !s.Available {
			continue
		}
		if band.Contains(s.StartHour()) {
			out = append(out, s)
		}
	}
	return out
}
