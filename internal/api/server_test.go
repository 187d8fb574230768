package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"courtbook/internal/booking"
	"courtbook/internal/config"
	"courtbook/internal/db"
	"courtbook/internal/events"
	"courtbook/internal/search"
)

const testAPIKey = "valid-key"

const testCatalog = `
courts:
  - id: 1
    name: "Корт №1"
    organization: "Теннисный центр"
    characteristics: {surface: "Хард", type: "Закрытый", sport: "Теннис"}
    tariffs:
      - id: 1
        name: "Разовое посещение"
        rates: [{price: 1800}]
      - id: 2
        name: "Абонемент"
        subscription: true
        rates: [{price: 1700}]
    services:
      - name: "Аренда ракеток"
        price: 300
    slots:
      - {time: "08:00–09:00", price: 1500, available: true}
      - {time: "09:00–10:00", price: 1500, available: true}
      - {time: "19:00–20:00", price: 2000, available: true}
  - id: 2
    name: "Падел-корт"
    organization: "Падел Клуб"
    characteristics: {surface: "Искусственная трава", type: "Закрытый", sport: "Падел"}
    tariffs:
      - id: 1
        name: "Разовое посещение"
        rates: [{price: 2400}]
    slots:
      - {time: "18:00–19:00", price: 2400, available: true}
`

type ErrorResponse struct {
	Error string `json:"error"`
}

func newTestHTTPServer(t *testing.T, opts Options) http.Handler {
	t.Helper()
	logger := zerolog.New(io.Discard)

	catalog, err := config.ParseCatalog([]byte(testCatalog))
	require.NoError(t, err)
	store := config.NewCatalogStore(catalog)

	database, err := db.NewDB(filepath.Join(t.TempDir(), "api.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	bookings := booking.NewService(database, events.NewEventBus(&logger), store, booking.Rules{}, &logger)
	searcher := search.NewService(store, nil, &logger)

	if opts.ManagerAPIKey == "" {
		opts.ManagerAPIKey = testAPIKey
	}
	return NewHTTPServer(opts, bookings, searcher, &logger).Handler()
}

func do(t *testing.T, h http.Handler, method, target string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, rd)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func singleRequest() booking.Request {
	return booking.Request{
		CourtID:   1,
		TariffID:  1,
		StartTime: "10:00",
		EndTime:   "11:30",
		Date:      "2025-11-05",
		Services:  []string{"Аренда ракеток"},
		Client:    booking.Client{Name: "Иван", Phone: "+7 912 345-67-89"},
	}
}

func TestCourtsEndpoints(t *testing.T) {
	h := newTestHTTPServer(t, Options{})

	rec := do(t, h, http.MethodGet, "/api/courts", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	courts := decode[CourtsResponse](t, rec)
	assert.Equal(t, 2, courts.Total)

	rec = do(t, h, http.MethodGet, "/api/courts?"+url.Values{"sport": {"Падел"}}.Encode(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	courts = decode[CourtsResponse](t, rec)
	require.Equal(t, 1, courts.Total)
	assert.Equal(t, 2, courts.Courts[0].ID)

	rec = do(t, h, http.MethodGet, "/api/courts/1?band=morning", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[search.CourtDetail](t, rec)
	require.Len(t, detail.Ranges, 1)
	assert.Equal(t, "08:00–10:00", detail.Ranges[0].Label)

	rec = do(t, h, http.MethodGet, "/api/courts/99", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Error, "court not found")

	rec = do(t, h, http.MethodGet, "/api/search?band=evening", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[search.Result](t, rec).Total)

	rec = do(t, h, http.MethodGet, "/api/search?tariff=abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/organizations/"+url.PathEscape("Теннисный центр")+"?band=evening", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	org := decode[search.Organization](t, rec)
	require.Len(t, org.Courts, 1)
	assert.Equal(t, "19:00–20:00", org.Courts[0].Ranges[0].Label)

	rec = do(t, h, http.MethodGet, "/api/organizations/"+url.PathEscape("Нет такого"), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/organizations", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Падел Клуб", "Теннисный центр"}, decode[map[string][]string](t, rec)["organizations"])
}

func TestQuoteEndpoint(t *testing.T) {
	h := newTestHTTPServer(t, Options{})

	rec := do(t, h, http.MethodPost, "/api/quote", singleRequest(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var quote struct {
		Cost struct {
			Sessions int   `json:"sessions"`
			Total    int64 `json:"total"`
		} `json:"cost"`
		TimeLabel  string `json:"time_label"`
		TotalLabel string `json:"total_label"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
	assert.Equal(t, 1, quote.Cost.Sessions)
	assert.Equal(t, int64(315000), quote.Cost.Total)
	assert.Equal(t, "10:00–11:30", quote.TimeLabel)
	assert.Contains(t, quote.TotalLabel, "₽")

	tests := []struct {
		name   string
		mutate func(r *booking.Request)
		want   int
	}{
		{"unaligned time", func(r *booking.Request) { r.StartTime = "10:10" }, http.StatusBadRequest},
		{"too short", func(r *booking.Request) { r.EndTime = "10:30" }, http.StatusBadRequest},
		{"unknown court", func(r *booking.Request) { r.CourtID = 42 }, http.StatusNotFound},
		{"unknown tariff", func(r *booking.Request) { r.TariffID = 42 }, http.StatusBadRequest},
		{"empty weekdays", func(r *booking.Request) { r.TariffID = 2; r.Weekdays = []int{} }, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := singleRequest()
			tt.mutate(&req)
			rec := do(t, h, http.MethodPost, "/api/quote", req, nil)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
		})
	}

	rec = do(t, h, http.MethodPost, "/api/quote", map[string]any{"court": 1}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid JSON body", decode[ErrorResponse](t, rec).Error)
}

func TestBookingLifecycle(t *testing.T) {
	h := newTestHTTPServer(t, Options{})
	manager := map[string]string{"X-Api-Key": testAPIKey}

	rec := do(t, h, http.MethodPost, "/api/bookings", singleRequest(), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[struct {
		ID          int64  `json:"id"`
		Reference   string `json:"reference"`
		Status      string `json:"status"`
		ClientPhone string `json:"client_phone"`
		TotalCost   int64  `json:"total_cost"`
	}](t, rec)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, "+79123456789", created.ClientPhone)
	assert.Equal(t, int64(315000), created.TotalCost)
	assert.Equal(t, "/api/bookings/"+created.Reference, rec.Header().Get("Location"))

	rec = do(t, h, http.MethodGet, "/api/bookings/"+created.Reference, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/bookings/unknown", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	bad := singleRequest()
	bad.Client.Phone = "123"
	rec = do(t, h, http.MethodPost, "/api/bookings", bad, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/admin/bookings", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/admin/bookings", nil, map[string]string{"X-Api-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/admin/bookings?status=pending", nil, manager)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[BookingsResponse](t, rec).Total)

	rec = do(t, h, http.MethodGet, "/api/admin/bookings?date_from=01.11.2025", nil, manager)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	statusURL := "/api/admin/bookings/" + itoa(created.ID) + "/status"
	rec = do(t, h, http.MethodPatch, statusURL, StatusRequest{Status: "confirmed", Comment: "ждём"}, manager)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Подтверждено", decode[map[string]any](t, rec)["status_label"])

	rec = do(t, h, http.MethodPatch, statusURL, StatusRequest{Status: "pending"}, manager)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPatch, statusURL, StatusRequest{Status: "archived"}, manager)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPatch, "/api/admin/bookings/999/status", StatusRequest{Status: "confirmed"}, manager)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/admin/bookings/"+itoa(created.ID)+"/history", nil, manager)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[map[string][]db.StatusChange](t, rec)["history"]
	require.Len(t, history, 1)
	assert.Equal(t, "ждём", history[0].Comment)

	rec = do(t, h, http.MethodGet, "/api/admin/analytics?date_from=2025-11-01&date_to=2025-11-30", nil, manager)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[booking.Report](t, rec)
	assert.Equal(t, 1, report.Bookings)
	assert.Equal(t, 1, report.Confirmed)
	assert.EqualValues(t, 315000, report.Revenue)

	rec = do(t, h, http.MethodGet, "/api/admin/export.xlsx", nil, manager)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Бронирования")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestScheduleEndpoint(t *testing.T) {
	h := newTestHTTPServer(t, Options{})
	manager := map[string]string{"X-Api-Key": testAPIKey}

	byPhone := singleRequest()
	byPhone.StartTime, byPhone.EndTime = "08:00", "09:00"
	byPhone.Services = nil
	rec := do(t, h, http.MethodPost, "/api/admin/bookings", ManagerBookingRequest{Request: byPhone, Comment: "звонок"}, manager)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	assert.Equal(t, "confirmed", created["status"])
	assert.Equal(t, "звонок", created["manager_comment"])

	rec = do(t, h, http.MethodPost, "/api/admin/bookings", ManagerBookingRequest{Request: byPhone}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	online := singleRequest()
	online.StartTime, online.EndTime = "19:00", "20:00"
	rec = do(t, h, http.MethodPost, "/api/bookings", online, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/admin/schedule?court_id=1&date=2025-11-05", nil, manager)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	schedule := decode[booking.Schedule](t, rec)
	require.Len(t, schedule.Slots, 3)
	assert.Equal(t, booking.SlotBooked, schedule.Slots[0].State)
	require.NotNil(t, schedule.Slots[0].Booking)
	assert.Equal(t, "Иван", schedule.Slots[0].Booking.ClientName)
	assert.Equal(t, booking.SlotAvailable, schedule.Slots[1].State)
	assert.Equal(t, booking.SlotPending, schedule.Slots[2].State)

	rec = do(t, h, http.MethodGet, "/api/admin/schedule?court_id=1&date=2025-11-06", nil, manager)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, slot := range decode[booking.Schedule](t, rec).Slots {
		assert.Equal(t, booking.SlotAvailable, slot.State)
	}

	for target, code := range map[string]int{
		"/api/admin/schedule?court_id=1":                  http.StatusBadRequest,
		"/api/admin/schedule?date=2025-11-05":             http.StatusBadRequest,
		"/api/admin/schedule?court_id=1&date=05.11.2025":  http.StatusBadRequest,
		"/api/admin/schedule?court_id=42&date=2025-11-05": http.StatusNotFound,
	} {
		rec = do(t, h, http.MethodGet, target, nil, manager)
		assert.Equal(t, code, rec.Code, target)
	}
}

func TestRateLimit(t *testing.T) {
	h := newTestHTTPServer(t, Options{RequestsPerSecond: 1, Burst: 2})

	for i := 0; i < 2; i++ {
		rec := do(t, h, http.MethodGet, "/api/courts", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := do(t, h, http.MethodGet, "/api/courts", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Another client has its own bucket.
	rec = do(t, h, http.MethodGet, "/api/courts", nil, map[string]string{"X-Forwarded-For": "10.0.0.7, 10.0.0.1"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", clientIP(r))

	r.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", clientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientIP(r))
}

func TestUnknownRoute(t *testing.T) {
	h := newTestHTTPServer(t, Options{})
	rec := do(t, h, http.MethodGet, "/api/nothing", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, h, http.MethodDelete, "/api/courts", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
