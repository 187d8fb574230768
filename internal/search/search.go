package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"courtbook/internal/cache"
	"courtbook/internal/config"
	"courtbook/internal/pricing"
	"courtbook/internal/slots"
)

var (
	ErrCourtNotFound        = errors.New("court not found")
	ErrOrganizationNotFound = errors.New("organization not found")
)

// CatalogSource returns the live court catalog and its version. Cached
// results are keyed by the version, so a reload never serves old entries.
type CatalogSource interface {
	Snapshot() (*config.Catalog, uint64)
}

// Service answers availability queries over the catalog.
type Service struct {
	catalog CatalogSource
	cache   *cache.Cache
	logger  *zerolog.Logger
}

// NewService creates a search service. cache may be nil.
func NewService(catalog CatalogSource, c *cache.Cache, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{catalog: catalog, cache: c, logger: logger}
}

// Courts lists active courts matching the filter. The band is ignored.
func (s *Service) Courts(_ context.Context, f Filter) []CourtSummary {
	catalog, _ := s.catalog.Snapshot()
	if catalog == nil {
		return nil
	}
	out := make([]CourtSummary, 0, len(catalog.Courts))
	for _, court := range catalog.ActiveCourts() {
		if f.matches(court) {
			out = append(out, summarize(court))
		}
	}
	return out
}

// Court returns the court page with ranges for the band.
func (s *Service) Court(_ context.Context, id int, band string) (*CourtDetail, error) {
	catalog, _ := s.catalog.Snapshot()
	if catalog == nil {
		return nil, ErrCourtNotFound
	}
	court, ok := catalog.CourtByID(id)
	if !ok || !court.Active() {
		return nil, fmt.Errorf("%w: id %d", ErrCourtNotFound, id)
	}

	b := slots.ResolveBand(band)
	d := &CourtDetail{
		CourtSummary: summarize(court),
		Description:  court.Description,
		Contacts:     court.Contacts,
		Tariffs:      tariffs(court),
		Band:         b,
		Ranges:       ranges(slots.AvailableRanges(court.TimeSlots(), b)),
	}
	for _, svc := range court.Services {
		if p, ok := court.ServiceByName(svc.Name); ok {
			d.Services = append(d.Services, p)
		}
	}
	return d, nil
}

// Search lists available slots of matching courts in catalog order.
func (s *Service) Search(ctx context.Context, f Filter) (*Result, error) {
	b := slots.ResolveBand(f.Band)
	catalog, version := s.catalog.Snapshot()
	key := fmt.Sprintf("search:v%d:%s", version, f.key(b))

	var cached Result
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	if catalog == nil {
		return &Result{Band: b, Slots: []Slot{}}, nil
	}

	res := &Result{Band: b, Slots: make([]Slot, 0)}
	for _, court := range catalog.ActiveCourts() {
		if !f.matches(court) {
			continue
		}
		for _, ts := range slots.FilterByBand(court.TimeSlots(), b) {
			res.Slots = append(res.Slots, Slot{
				CourtID:      court.ID,
				CourtName:    court.Name,
				Organization: court.Organization,
				Address:      court.Address,
				Label:        ts.Label(),
				Price:        ts.Price,
				PriceLabel:   ts.Price.String() + "/час",
				Amenities:    court.Amenities,
				Traits:       court.Characteristics,
			})
		}
	}
	res.Total = len(res.Slots)

	s.cache.Set(ctx, key, res)
	s.logger.Debug().Str("band", b.Name).Int("slots", res.Total).Msg("search computed")
	return res, nil
}

// Organization returns the organization page. Courts that offer none of
// f.TariffIDs are skipped. Ranges are computed per court in parallel.
func (s *Service) Organization(ctx context.Context, name string, f Filter) (*Organization, error) {
	b := slots.ResolveBand(f.Band)
	name = strings.TrimSpace(name)
	catalog, version := s.catalog.Snapshot()
	key := fmt.Sprintf("org:v%d:%s:%s", version, strings.ToLower(name), f.key(b))

	var cached Organization
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	if catalog == nil {
		return nil, ErrOrganizationNotFound
	}
	all := catalog.CourtsOf(name)
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrOrganizationNotFound, name)
	}

	courts := make([]*config.CourtConfig, 0, len(all))
	for _, c := range all {
		if c.Active() && c.HasAnyTariff(f.TariffIDs) {
			courts = append(courts, c)
		}
	}

	out := &Organization{
		Name:    all[0].Organization,
		Address: all[0].Address,
		Band:    b,
		Courts:  make([]CourtAvailability, len(courts)),
	}

	var wg sync.WaitGroup
	for i, c := range courts {
		wg.Add(1)
		go func(i int, c *config.CourtConfig) {
			defer wg.Done()
			out.Courts[i] = CourtAvailability{
				Court:  summarize(c),
				Ranges: ranges(slots.AvailableRanges(c.TimeSlots(), b)),
			}
		}(i, c)
	}
	wg.Wait()

	s.cache.Set(ctx, key, out)
	return out, nil
}

// Organizations lists organization names in alphabetical order.
func (s *Service) Organizations(_ context.Context) []string {
	catalog, _ := s.catalog.Snapshot()
	if catalog == nil {
		return nil
	}
	return catalog.Organizations()
}

func (f Filter) matches(c *config.CourtConfig) bool {
	return anyFold(f.Organizations, c.Organization) &&
		anyFold(f.Types, c.Characteristics.Type) &&
		anyFold(f.Surfaces, c.Characteristics.Surface) &&
		anyFold(f.Sports, c.Characteristics.Sport) &&
		c.HasAnyTariff(f.TariffIDs)
}

// key is the cache key suffix. Equal filters give equal keys.
func (f Filter) key(b slots.Band) string {
	ids := make([]string, len(f.TariffIDs))
	for i, id := range f.TariffIDs {
		ids[i] = strconv.Itoa(id)
	}
	parts := []string{
		b.Name,
		strings.ToLower(strings.Join(f.Organizations, ",")),
		strings.ToLower(strings.Join(f.Types, ",")),
		strings.ToLower(strings.Join(f.Surfaces, ",")),
		strings.ToLower(strings.Join(f.Sports, ",")),
		strings.Join(ids, ","),
	}
	return strings.Join(parts, "|")
}

func anyFold(list []string, v string) bool {
	if len(list) == 0 {
		return true
	}
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), v) {
			return true
		}
	}
	return false
}

func summarize(c *config.CourtConfig) CourtSummary {
	lo, hi := c.PriceRange()
	label := "от " + lo.String() + "/час"
	if lo != hi {
		label = lo.String() + " – " + hi.String() + "/час"
	}
	return CourtSummary{
		ID:              c.ID,
		Name:            c.Name,
		Organization:    c.Organization,
		Address:         c.Address,
		Characteristics: c.Characteristics,
		Amenities:       c.Amenities,
		WorkingHours:    c.WorkingHours,
		PriceFrom:       lo,
		PriceTo:         hi,
		PriceLabel:      label,
	}
}

func tariffs(c *config.CourtConfig) []Tariff {
	out := make([]Tariff, 0, len(c.Tariffs))
	for i := range c.Tariffs {
		t := &c.Tariffs[i]
		view := Tariff{
			ID:           t.ID,
			Name:         t.Name,
			Subscription: t.Subscription,
			PricePerHour: t.PricePerHour(),
		}
		for _, r := range t.Rates {
			view.Rates = append(view.Rates, Rate{Days: r.Days, Time: r.Time, Price: pricing.Rubles(r.Price)})
		}
		out = append(out, view)
	}
	return out
}

func ranges(in []slots.MergedRange) []Range {
	out := make([]Range, 0, len(in))
	for _, r := range in {
		out = append(out, Range{
			Start:      slots.FormatClock(r.Start),
			End:        slots.FormatClock(r.End),
			Label:      r.Label(),
			Price:      r.Price,
			PriceLabel: r.Price.String() + "/час",
		})
	}
	return out
}
