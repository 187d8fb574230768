package slots

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courtbook/internal/pricing"
)

func slot(start, end string, price int64, available bool) TimeSlot {
	s, _ := ParseClock(start)
	e, _ := ParseClock(end)
	return TimeSlot{Start: s, End: e, Price: pricing.Rubles(price), Available: available}
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name string
		in   []TimeSlot
		want []string
	}{
		{
			name: "empty",
			in:   nil,
			want: []string{},
		},
		{
			name: "contiguous equal price with gap",
			in: []TimeSlot{
				slot("08:00", "09:00", 1000, true),
				slot("09:00", "10:00", 1000, true),
				slot("11:00", "12:00", 1000, true),
			},
			want: []string{"08:00–10:00", "11:00–12:00"},
		},
		{
			name: "contiguous different price",
			in: []TimeSlot{
				slot("08:00", "09:00", 1000, true),
				slot("09:00", "10:00", 1200, true),
			},
			want: []string{"08:00–09:00", "09:00–10:00"},
		},
		{
			name: "run to midnight",
			in: []TimeSlot{
				slot("22:00", "23:00", 800, true),
				slot("23:00", "24:00", 800, true),
			},
			want: []string{"22:00–24:00"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.in)
			labels := make([]string, 0, len(got))
			for _, r := range got {
				labels = append(labels, r.Label())
			}
			assert.Equal(t, tt.want, labels)
		})
	}
}

func TestMerge_PricePreserved(t *testing.T) {
	got := Merge([]TimeSlot{
		slot("08:00", "09:00", 1000, true),
		slot("09:00", "10:00", 1000, true),
	})
	require.Len(t, got, 1)
	assert.Equal(t, pricing.Rubles(1000), got[0].Price)
	assert.Equal(t, 120, got[0].Minutes())
}

func TestMerge_DistinctPricesKeepBounds(t *testing.T) {
	in := []TimeSlot{
		slot("06:00", "07:00", 500, true),
		slot("07:00", "08:00", 600, true),
		slot("08:00", "09:00", 700, true),
	}
	got := Merge(in)
	require.Len(t, got, len(in))
	for i := range in {
		assert.Equal(t, in[i].Start, got[i].Start)
		assert.Equal(t, in[i].End, got[i].End)
	}
}

func TestMerge_NoAdjacentDuplicates(t *testing.T) {
	in := []TimeSlot{
		slot("06:00", "07:00", 500, true),
		slot("07:00", "08:00", 500, true),
		slot("08:00", "09:00", 700, true),
		slot("09:00", "10:00", 700, true),
		slot("10:30", "11:00", 700, true),
		slot("11:00", "12:00", 500, true),
	}
	got := Merge(in)
	for i := 1; i < len(got); i++ {
		sameBoundary := got[i-1].End == got[i].Start
		samePrice := got[i-1].Price == got[i].Price
		assert.False(t, sameBoundary && samePrice, "ranges %d and %d should have merged", i-1, i)
	}
	assert.Equal(t, Merge(in), got)
}

func TestFilterByBand(t *testing.T) {
	in := []TimeSlot{
		slot("05:00", "06:00", 500, true),
		slot("08:00", "10:00", 1500, true),
		slot("10:00", "12:00", 1500, false),
		slot("12:00", "14:00", 1500, true),
		slot("19:00", "21:00", 2000, true),
		slot("23:00", "24:00", 2000, true),
	}

	tests := []struct {
		band string
		want []string
	}{
		{"morning", []string{"08:00–10:00"}},
		{"day", []string{"12:00–14:00"}},
		{"evening", []string{"19:00–21:00", "23:00–24:00"}},
		{"night", []string{"05:00–06:00"}},
		{"all", []string{"05:00–06:00", "08:00–10:00", "12:00–14:00", "19:00–21:00", "23:00–24:00"}},
	}

	for _, tt := range tests {
		t.Run(tt.band, func(t *testing.T) {
			got := FilterByBand(in, ResolveBand(tt.band))
			labels := make([]string, 0, len(got))
			for _, s := range got {
				labels = append(labels, s.Label())
			}
			assert.Equal(t, tt.want, labels)
		})
	}
}

func TestFilterByBand_AllKeepsExactlyAvailable(t *testing.T) {
	in := []TimeSlot{
		slot("08:00", "09:00", 100, true),
		slot("09:00", "10:00", 100, false),
		slot("21:00", "22:00", 100, true),
	}
	got := FilterByBand(in, AllDay)
	assert.Equal(t, []TimeSlot{in[0], in[2]}, got)
}

func TestFilterByBand_Wraparound(t *testing.T) {
	in := []TimeSlot{
		slot("01:00", "02:00", 100, true),
		slot("12:00", "13:00", 100, true),
		slot("23:00", "24:00", 100, true),
	}
	got := FilterByBand(in, Band{StartHour: 22, EndHour: 3})
	assert.Equal(t, []TimeSlot{in[0], in[2]}, got)
}

func TestAvailableRanges(t *testing.T) {
	in := []TimeSlot{
		slot("10:00", "11:00", 1000, true),
		slot("08:00", "09:00", 1000, true),
		slot("09:00", "10:00", 1000, false),
		slot("11:00", "12:00", 1000, true),
	}
	got := AvailableRanges(in, ResolveBand("morning"))
	require.Len(t, got, 2)
	assert.Equal(t, "08:00–09:00", got[0].Label())
	assert.Equal(t, "10:00–12:00", got[1].Label())
}
