package slots

import (
	"sort"

	"courtbook/internal/pricing"
)

// TimeSlot is a bookable interval on a court. Start and End are minutes from
// midnight; End may be 1440.
type TimeSlot struct {
	Start     int           `json:"start"`
	End       int           `json:"end"`
	Price     pricing.Money `json:"price"`
	Available bool          `json:"available"`
}

// StartHour returns the hour the slot starts in.
func (s TimeSlot) StartHour() int {
	return s.Start / 60
}

// Label renders the slot as "08:00–10:00".
func (s TimeSlot) Label() string {
	return FormatRange(s.Start, s.End)
}

// MergedRange is a run of contiguous equal-price slots.
type MergedRange struct {
	Start int           `json:"start"`
	End   int           `json:"end"`
	Price pricing.Money `json:"price"`
}

// Label renders the range as "08:00–10:00".
func (r MergedRange) Label() string {
	return FormatRange(r.Start, r.End)
}

// Minutes returns the range length.
func (r MergedRange) Minutes() int {
	return r.End - r.Start
}

// Merge joins ordered slots in a single left-to-right pass. A slot extends the
// previous range only when it starts exactly where that range ends and has
// exactly the same price.
func Merge(ordered []TimeSlot) []MergedRange {
	out := make([]MergedRange, 0, len(ordered))
	for _, s := range ordered {
		if n := len(out); n > 0 {
			last := &out[n-1]
			if last.End == s.Start && last.Price == s.Price {
				last.End = s.End
				continue
			}
		}
		out = append(out, MergedRange{Start: s.Start, End: s.End, Price: s.Price})
	}
	return out
}

// SortByStart returns a copy of the slots ordered by start time.
func SortByStart(in []TimeSlot) []TimeSlot {
	out := make([]TimeSlot, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start < out[j].Start
	})
	return out
}

// AvailableRanges filters slots by band and merges what is left. Slots need
// not be ordered.
func AvailableRanges(in []TimeSlot, band Band) []MergedRange {
	return Merge(FilterByBand(SortByStart(in), band))
}
