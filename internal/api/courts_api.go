package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"courtbook/internal/metrics"
	"courtbook/internal/search"
	"courtbook/internal/slots"
)

// CourtsResponse is the response for GET /api/courts.
type CourtsResponse struct {
	Courts []search.CourtSummary `json:"courts"`
	Total  int                   `json:"total"`
}

// handleCourts lists active courts.
// GET /api/courts?organization=...&type=...&surface=...&sport=...
func (s *HTTPServer) handleCourts(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("courts")

	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	courts := s.search.Courts(r.Context(), f)
	if courts == nil {
		courts = []search.CourtSummary{}
	}
	writeJSON(w, http.StatusOK, CourtsResponse{Courts: courts, Total: len(courts)})
}

// handleCourt returns one court with merged free ranges.
// GET /api/courts/{id}?band=evening
func (s *HTTPServer) handleCourt(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("court")

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid court id")
		return
	}
	d, err := s.search.Court(r.Context(), id, r.URL.Query().Get("band"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleSearch lists available slots across courts.
// GET /api/search?band=morning&sport=Теннис
func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("search")

	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.search.Search(r.Context(), f)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleOrganizations lists organization names and the known bands.
// GET /api/organizations
func (s *HTTPServer) handleOrganizations(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("organizations")

	names := s.search.Organizations(r.Context())
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{
		"organizations": names,
		"bands":         slots.BandLabels(),
	})
}

// handleOrganization returns the organization page.
// GET /api/organizations/{name}?band=day&tariff=1&tariff=3
func (s *HTTPServer) handleOrganization(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("organization")

	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	org, err := s.search.Organization(r.Context(), mux.Vars(r)["name"], f)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

// parseFilter reads band, characteristic and tariff filters. List values may
// repeat the parameter or separate items with commas; tariff ids only.
func parseFilter(q url.Values) (search.Filter, error) {
	f := search.Filter{
		Band:          q.Get("band"),
		Organizations: nonEmpty(q["organization"]),
		Types:         nonEmpty(q["type"]),
		Surfaces:      nonEmpty(q["surface"]),
		Sports:        nonEmpty(q["sport"]),
	}
	for _, raw := range q["tariff"] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.Atoi(part)
			if err != nil || id <= 0 {
				return f, errInvalidParam("tariff", part)
			}
			f.TariffIDs = append(f.TariffIDs, id)
		}
	}
	return f, nil
}

func nonEmpty(in []string) []string {
	var out []string
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
