package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"courtbook/internal/pricing"
	"courtbook/internal/slots"
)

// CourtConfig represents a single court in the catalog.
type CourtConfig struct {
	ID              int             `yaml:"id"`
	Name            string          `yaml:"name"`
	Organization    string          `yaml:"organization"`
	Address         string          `yaml:"address"`
	Description     string          `yaml:"description,omitempty"`
	Characteristics Characteristics `yaml:"characteristics"`
	Amenities       []string        `yaml:"amenities,omitempty"`
	WorkingHours    string          `yaml:"working_hours"` // "07:00–23:00"
	Contacts        ContactsConfig  `yaml:"contacts"`
	IsActive        *bool           `yaml:"is_active,omitempty"`
	Tariffs         []TariffConfig  `yaml:"tariffs"`
	Services        []ServiceConfig `yaml:"services,omitempty"`
	Slots           []SlotConfig    `yaml:"slots"`
}

// Characteristics describes what kind of court it is.
type Characteristics struct {
	Surface string `yaml:"surface" json:"surface"` // "Хард"
	Type    string `yaml:"type" json:"type"`       // "Крытый"
	Sport   string `yaml:"sport" json:"sport"`     // "Теннис"
}

// ContactsConfig holds the organization's contact details for a court.
type ContactsConfig struct {
	Phone string `yaml:"phone" json:"phone"`
	Email string `yaml:"email" json:"email"`
}

// TariffConfig is a named price plan. Subscription tariffs book a weekly
// pattern over a date range.
type TariffConfig struct {
	ID           int          `yaml:"id"`
	Name         string       `yaml:"name"`
	Subscription bool         `yaml:"subscription"`
	Rates        []RateConfig `yaml:"rates"`
}

// RateConfig is one line of a tariff's price table. Price is in whole rubles
// per hour.
type RateConfig struct {
	Days  string `yaml:"days"` // "Пн–Пт"
	Time  string `yaml:"time"` // "07:00–17:00"
	Price int64  `yaml:"price"`
}

// ServiceConfig is an add-on billed per hour. Price is in whole rubles.
type ServiceConfig struct {
	Name  string `yaml:"name"`
	Price int64  `yaml:"price"`
}

// SlotConfig is one bookable slot. Price is in whole rubles.
type SlotConfig struct {
	Time      string `yaml:"time"` // "08:00–10:00"
	Price     int64  `yaml:"price"`
	Available bool   `yaml:"available"`
}

// CatalogDefaults applies to courts that do not override them.
type CatalogDefaults struct {
	Services     []ServiceConfig `yaml:"services"`
	WorkingHours string          `yaml:"working_hours"`
}

// Catalog is the root configuration for courts.yaml.
type Catalog struct {
	Courts   []CourtConfig   `yaml:"courts"`
	Defaults CatalogDefaults `yaml:"defaults"`
}

// LoadCatalog loads and validates the court catalog from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		path = defaultCatalogPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	return ParseCatalog(data)
}

// ParseCatalog decodes, validates and defaults a catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate catalog: %w", err)
	}

	c.applyDefaults()

	return &c, nil
}

// Validate checks the catalog for errors.
func (c *Catalog) Validate() error {
	if len(c.Courts) == 0 {
		return fmt.Errorf("no courts defined")
	}

	ids := make(map[int]bool)
	for i := range c.Courts {
		court := &c.Courts[i]
		prefix := fmt.Sprintf("courts[%d]", i)

		if court.ID <= 0 {
			return fmt.Errorf("%s: id must be positive, got %d", prefix, court.ID)
		}
		if ids[court.ID] {
			return fmt.Errorf("%s: duplicate id %d", prefix, court.ID)
		}
		ids[court.ID] = true

		if court.Name == "" {
			return fmt.Errorf("%s: name is required", prefix)
		}
		if court.Organization == "" {
			return fmt.Errorf("%s: organization is required", prefix)
		}
		if court.WorkingHours != "" {
			if _, _, err := slots.ParseRange(court.WorkingHours); err != nil {
				return fmt.Errorf("%s.working_hours: %w", prefix, err)
			}
		}

		if err := validateTariffs(court.Tariffs, prefix); err != nil {
			return err
		}
		if err := validateServices(court.Services, prefix+".services"); err != nil {
			return err
		}
		if err := validateSlots(court.Slots, prefix); err != nil {
			return err
		}
	}

	if err := validateServices(c.Defaults.Services, "defaults.services"); err != nil {
		return err
	}
	if c.Defaults.WorkingHours != "" {
		if _, _, err := slots.ParseRange(c.Defaults.WorkingHours); err != nil {
			return fmt.Errorf("defaults.working_hours: %w", err)
		}
	}

	return nil
}

func validateTariffs(tariffs []TariffConfig, prefix string) error {
	if len(tariffs) == 0 {
		return fmt.Errorf("%s: at least one tariff is required", prefix)
	}
	ids := make(map[int]bool)
	for j, t := range tariffs {
		p := fmt.Sprintf("%s.tariffs[%d]", prefix, j)
		if t.ID <= 0 {
			return fmt.Errorf("%s: id must be positive, got %d", p, t.ID)
		}
		if ids[t.ID] {
			return fmt.Errorf("%s: duplicate id %d", p, t.ID)
		}
		ids[t.ID] = true
		if t.Name == "" {
			return fmt.Errorf("%s: name is required", p)
		}
		if len(t.Rates) == 0 {
			return fmt.Errorf("%s: at least one rate is required", p)
		}
		for k, r := range t.Rates {
			if r.Price <= 0 {
				return fmt.Errorf("%s.rates[%d]: price must be positive", p, k)
			}
			if r.Time != "" {
				if _, _, err := slots.ParseRange(r.Time); err != nil {
					return fmt.Errorf("%s.rates[%d]: %w", p, k, err)
				}
			}
		}
	}
	return nil
}

func validateServices(services []ServiceConfig, prefix string) error {
	names := make(map[string]bool)
	for j, s := range services {
		if s.Name == "" {
			return fmt.Errorf("%s[%d]: name is required", prefix, j)
		}
		if names[s.Name] {
			return fmt.Errorf("%s[%d]: duplicate name '%s'", prefix, j, s.Name)
		}
		names[s.Name] = true
		if s.Price < 0 {
			return fmt.Errorf("%s[%d]: price cannot be negative", prefix, j)
		}
	}
	return nil
}

func validateSlots(list []SlotConfig, prefix string) error {
	for j, s := range list {
		if _, _, err := slots.ParseRange(s.Time); err != nil {
			return fmt.Errorf("%s.slots[%d]: %w", prefix, j, err)
		}
		if s.Price < 0 {
			return fmt.Errorf("%s.slots[%d]: price cannot be negative", prefix, j)
		}
	}
	return nil
}

// applyDefaults fills courts that leave optional fields empty.
func (c *Catalog) applyDefaults() {
	for i := range c.Courts {
		court := &c.Courts[i]
		if len(court.Services) == 0 && len(c.Defaults.Services) > 0 {
			court.Services = append([]ServiceConfig(nil), c.Defaults.Services...)
		}
		if court.WorkingHours == "" {
			court.WorkingHours = c.Defaults.WorkingHours
		}
	}
}

// CourtByID returns the court with the given id.
func (c *Catalog) CourtByID(id int) (*CourtConfig, bool) {
	for i := range c.Courts {
		if c.Courts[i].ID == id {
			return &c.Courts[i], true
		}
	}
	return nil, false
}

// ActiveCourts returns courts that are not switched off.
func (c *Catalog) ActiveCourts() []*CourtConfig {
	out := make([]*CourtConfig, 0, len(c.Courts))
	for i := range c.Courts {
		if c.Courts[i].Active() {
			out = append(out, &c.Courts[i])
		}
	}
	return out
}

// Organizations lists the distinct organization names of active courts, sorted.
func (c *Catalog) Organizations() []string {
	seen := make(map[string]bool)
	var out []string
	for _, court := range c.ActiveCourts() {
		if !seen[court.Organization] {
			seen[court.Organization] = true
			out = append(out, court.Organization)
		}
	}
	sort.Strings(out)
	return out
}

// CourtsOf returns the active courts of one organization, matched
// case-insensitively.
func (c *Catalog) CourtsOf(organization string) []*CourtConfig {
	var out []*CourtConfig
	for _, court := range c.ActiveCourts() {
		if strings.EqualFold(court.Organization, organization) {
			out = append(out, court)
		}
	}
	return out
}

// String returns a short summary for logs.
func (c *Catalog) String() string {
	return fmt.Sprintf("Catalog{courts: %d, organizations: %d}", len(c.Courts), len(c.Organizations()))
}

// Active defaults to true when is_active is omitted.
func (c *CourtConfig) Active() bool {
	return c.IsActive == nil || *c.IsActive
}

// TimeSlots converts the configured slots. Entries that fail to parse are
// skipped; a validated catalog has none.
func (c *CourtConfig) TimeSlots() []slots.TimeSlot {
	out := make([]slots.TimeSlot, 0, len(c.Slots))
	for _, s := range c.Slots {
		start, end, err := slots.ParseRange(s.Time)
		if err != nil {
			continue
		}
		out = append(out, slots.TimeSlot{
			Start:     start,
			End:       end,
			Price:     pricing.Rubles(s.Price),
			Available: s.Available,
		})
	}
	return out
}

// TariffByID returns the court's tariff with the given id.
func (c *CourtConfig) TariffByID(id int) (*TariffConfig, bool) {
	for i := range c.Tariffs {
		if c.Tariffs[i].ID == id {
			return &c.Tariffs[i], true
		}
	}
	return nil, false
}

// HasAnyTariff reports whether the court offers at least one of the ids.
// An empty list matches every court.
func (c *CourtConfig) HasAnyTariff(ids []int) bool {
	if len(ids) == 0 {
		return true
	}
	for _, id := range ids {
		if _, ok := c.TariffByID(id); ok {
			return true
		}
	}
	return false
}

// ServiceByName returns the court's add-on service with the given name.
func (c *CourtConfig) ServiceByName(name string) (pricing.Service, bool) {
	for _, s := range c.Services {
		if s.Name == name {
			return pricing.Service{Name: s.Name, PricePerHour: pricing.Rubles(s.Price)}, true
		}
	}
	return pricing.Service{}, false
}

// PriceRange returns the lowest and highest hourly rate across tariffs.
func (c *CourtConfig) PriceRange() (lo, hi pricing.Money) {
	first := true
	for _, t := range c.Tariffs {
		for _, r := range t.Rates {
			p := pricing.Rubles(r.Price)
			if first || p < lo {
				lo = p
			}
			if first || p > hi {
				hi = p
			}
			first = false
		}
	}
	return lo, hi
}

// PricePerHour is the hourly price charged for the tariff: its first rate.
func (t *TariffConfig) PricePerHour() pricing.Money {
	if len(t.Rates) == 0 {
		return 0
	}
	return pricing.Rubles(t.Rates[0].Price)
}
