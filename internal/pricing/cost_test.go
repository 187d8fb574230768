package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeTotal(t *testing.T) {
	tests := []struct {
		name            string
		pricePerHour    Money
		duration        time.Duration
		sessions        int
		services        []Service
		serviceDuration time.Duration
		want            CostBreakdown
	}{
		{
			name:            "subscription with one service",
			pricePerHour:    Rubles(1000),
			duration:        2 * time.Hour,
			sessions:        3,
			services:        []Service{{Name: "Аренда ракеток", PricePerHour: Rubles(300)}},
			serviceDuration: 2 * time.Hour,
			want: CostBreakdown{
				Sessions:         3,
				PricePerSession:  Rubles(2000),
				CourtSubtotal:    Rubles(6000),
				Services:         []ServiceCost{{Name: "Аренда ракеток", Cost: Rubles(1800)}},
				ServicesSubtotal: Rubles(1800),
				Total:            Rubles(7800),
			},
		},
		{
			name:         "single session without services",
			pricePerHour: Rubles(1500),
			duration:     90 * time.Minute,
			sessions:     1,
			want: CostBreakdown{
				Sessions:        1,
				PricePerSession: Rubles(2250),
				CourtSubtotal:   Rubles(2250),
				Services:        []ServiceCost{},
				Total:           Rubles(2250),
			},
		},
		{
			name:            "zero sessions",
			pricePerHour:    Rubles(1000),
			duration:        time.Hour,
			sessions:        0,
			services:        []Service{{Name: "Аренда мячей", PricePerHour: Rubles(150)}},
			serviceDuration: time.Hour,
			want: CostBreakdown{
				PricePerSession: Rubles(1000),
				Services:        []ServiceCost{{Name: "Аренда мячей", Cost: 0}},
			},
		},
		{
			name:         "rounds to kopecks",
			pricePerHour: 100,
			duration:     20 * time.Minute,
			sessions:     1,
			want: CostBreakdown{
				Sessions:        1,
				PricePerSession: 33,
				CourtSubtotal:   33,
				Services:        []ServiceCost{},
				Total:           33,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTotal(tt.pricePerHour, tt.duration, tt.sessions, tt.services, tt.serviceDuration)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeTotal_NoServicesEqualsCourtSubtotal(t *testing.T) {
	for sessions := 0; sessions < 10; sessions++ {
		got := ComputeTotal(Rubles(1200), 2*time.Hour, sessions, nil, 2*time.Hour)
		assert.Equal(t, got.CourtSubtotal, got.Total)
		assert.Zero(t, got.ServicesSubtotal)
	}
}

func TestComputeTotal_Idempotent(t *testing.T) {
	services := []Service{{Name: "a", PricePerHour: Rubles(300)}, {Name: "b", PricePerHour: Rubles(150)}}
	first := ComputeTotal(Rubles(1000), 2*time.Hour, 4, services, time.Hour)
	second := ComputeTotal(Rubles(1000), 2*time.Hour, 4, services, time.Hour)
	assert.Equal(t, first, second)
	assert.Equal(t, Rubles(8000)+Rubles(1200)+Rubles(600), first.Total)
}

func TestMoneyString(t *testing.T) {
	assert.Equal(t, "0 ₽", Money(0).String())
	assert.Equal(t, "300 ₽", Rubles(300).String())
	assert.Equal(t, "1 500 ₽", Rubles(1500).String())
	assert.Equal(t, "1 234 567.05 ₽", (Rubles(1234567) + 5).String())
	assert.Equal(t, "-7 800 ₽", (-Rubles(7800)).String())
}
