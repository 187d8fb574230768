package pricing

import "time"

// Service is an optional add-on billed per hour of use.
type Service struct {
	Name         string `json:"name"`
	PricePerHour Money  `json:"price_per_hour"`
}

// ServiceCost is the contribution of one service to the total.
type ServiceCost struct {
	Name string `json:"name"`
	Cost Money  `json:"cost"`
}

// CostBreakdown is the result of ComputeTotal.
type CostBreakdown struct {
	Sessions         int           `json:"sessions"`
	PricePerSession  Money         `json:"price_per_session"`
	CourtSubtotal    Money         `json:"court_subtotal"`
	Services         []ServiceCost `json:"services"`
	ServicesSubtotal Money         `json:"services_subtotal"`
	Total            Money         `json:"total"`
}

// ComputeTotal prices a booking:
//
//	pricePerSession = pricePerHour * hours(duration)
//	courtSubtotal   = pricePerSession * sessions
//	service cost    = price * sessions * hours(serviceDuration)
//	total           = courtSubtotal + sum(service costs)
//
// Hours are taken at minute resolution. The inputs are not validated.
func ComputeTotal(pricePerHour Money, duration time.Duration, sessions int, services []Service, serviceDuration time.Duration) CostBreakdown {
	perSession := hourly(pricePerHour, duration)

	out := CostBreakdown{
		Sessions:        sessions,
		PricePerSession: perSession,
		CourtSubtotal:   perSession * Money(sessions),
		Services:        make([]ServiceCost, 0, len(services)),
	}

	for _, s := range services {
		cost := hourly(s.PricePerHour*Money(sessions), serviceDuration)
		out.Services = append(out.Services, ServiceCost{Name: s.Name, Cost: cost})
		out.ServicesSubtotal += cost
	}

	out.Total = out.CourtSubtotal + out.ServicesSubtotal
	return out
}

// hourly returns price * minutes(d) / 60, rounded half away from zero.
func hourly(price Money, d time.Duration) Money {
	num := int64(price) * int64(d/time.Minute)
	q, r := num/60, num%60
	switch {
	case r*2 >= 60:
		q++
	case r*2 <= -60:
		q--
	}
	return Money(q)
}
