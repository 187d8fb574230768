package search

import (
	"courtbook/internal/config"
	"courtbook/internal/pricing"
	"courtbook/internal/slots"
)

// Filter narrows court lists and search results. Empty lists match every
// court. Values are compared case-insensitively.
type Filter struct {
	Band          string
	Organizations []string
	Types         []string
	Surfaces      []string
	Sports        []string
	TariffIDs     []int
}

// CourtSummary is a court as shown in lists.
type CourtSummary struct {
	ID              int                    `json:"id"`
	Name            string                 `json:"name"`
	Organization    string                 `json:"organization"`
	Address         string                 `json:"address"`
	Characteristics config.Characteristics `json:"characteristics"`
	Amenities       []string               `json:"amenities,omitempty"`
	WorkingHours    string                 `json:"working_hours,omitempty"`
	PriceFrom       pricing.Money          `json:"price_from"`
	PriceTo         pricing.Money          `json:"price_to"`
	PriceLabel      string                 `json:"price_label"`
}

// Tariff is the public view of a tariff.
type Tariff struct {
	ID           int           `json:"id"`
	Name         string        `json:"name"`
	Subscription bool          `json:"subscription"`
	PricePerHour pricing.Money `json:"price_per_hour"`
	Rates        []Rate        `json:"rates"`
}

// Rate is one line of a tariff's price table.
type Rate struct {
	Days  string        `json:"days,omitempty"`
	Time  string        `json:"time,omitempty"`
	Price pricing.Money `json:"price"`
}

// Range is a merged run of available slots.
type Range struct {
	Start      string        `json:"start"`
	End        string        `json:"end"`
	Label      string        `json:"label"`
	Price      pricing.Money `json:"price"`
	PriceLabel string        `json:"price_label"`
}

// CourtDetail is the court page: catalog data plus merged availability.
type CourtDetail struct {
	CourtSummary
	Description string                `json:"description,omitempty"`
	Contacts    config.ContactsConfig `json:"contacts"`
	Tariffs     []Tariff              `json:"tariffs"`
	Services    []pricing.Service     `json:"services"`
	Band        slots.Band            `json:"band"`
	Ranges      []Range               `json:"ranges"`
}

// Slot is one available slot in flat search results.
type Slot struct {
	CourtID      int                    `json:"court_id"`
	CourtName    string                 `json:"court_name"`
	Organization string                 `json:"organization"`
	Address      string                 `json:"address"`
	Label        string                 `json:"label"`
	Price        pricing.Money          `json:"price"`
	PriceLabel   string                 `json:"price_label"`
	Amenities    []string               `json:"amenities,omitempty"`
	Traits       config.Characteristics `json:"characteristics"`
}

// Result is the response of Search.
type Result struct {
	Band  slots.Band `json:"band"`
	Total int        `json:"total"`
	Slots []Slot     `json:"slots"`
}

// CourtAvailability is one court on the organization page.
type CourtAvailability struct {
	Court  CourtSummary `json:"court"`
	Ranges []Range      `json:"ranges"`
}

// Organization is the organization page.
type Organization struct {
	Name    string              `json:"name"`
	Address string              `json:"address,omitempty"`
	Band    slots.Band          `json:"band"`
	Courts  []CourtAvailability `json:"courts"`
}
