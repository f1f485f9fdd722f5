package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"wakepark/internal/config"
	"wakepark/internal/database"
	"wakepark/internal/models"
	"wakepark/internal/repository"
	"wakepark/internal/schedule"
	"wakepark/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	server *HTTPServer
	store  *database.MemoryStorage
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.Port = 0
	cfg.Admin = config.AdminConfig{
		Accounts:        []config.AdminAccount{{Name: "boss", Password: "secret"}},
		SessionTTLHours: 24,
		CookieName:      "wp_session",
	}
	cfg.RateLimit = config.RateLimitConfig{RPS: 1000, Burst: 1000}
	cfg.Exports = config.ExportConfig{Path: t.TempDir()}

	store := database.NewMemoryStorage()
	bookings := service.NewBookingService(store, nil, nil, 15*time.Minute, nil)
	schedules := service.NewScheduleService(store, nil, 4, nil)
	leadTime := schedule.NewEvaluator(store, true, nil)
	sessions := repository.NewMemorySessionRepository(24 * time.Hour)

	srv := NewHTTPServer(cfg, bookings, schedules, leadTime, sessions, nil)
	return &testEnv{server: srv, store: store}
}

func (e *testEnv) seedSlots(t *testing.T, count int) []models.TimeSlot {
	t.Helper()
	// Tomorrow 10:00 UTC keeps everything comfortably in the future.
	base := time.Now().UTC().AddDate(0, 0, 1).Truncate(time.Hour)
	slots := make([]models.TimeSlot, 0, count)
	for i := 0; i < count; i++ {
		start := base.Add(time.Duration(i) * models.SlotDuration)
		slots = append(slots, models.TimeSlot{
			StartTime:  start,
			EndTime:    start.Add(models.SlotDuration),
			PriceCents: 2000,
		})
	}
	_, err := e.store.InsertTimeSlots(context.Background(), slots)
	require.NoError(t, err)

	stored, err := e.store.GetTimeSlotsByRange(context.Background(), base, base.Add(time.Duration(count)*models.SlotDuration))
	require.NoError(t, err)
	require.Len(t, stored, count)
	return stored
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "10.0.0.1:12345"
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/admin/login", map[string]string{
		"name": "boss", "password": "secret",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	for _, c := range rec.Result().Cookies() {
		if c.Name == "wp_session" {
			return c
		}
	}
	t.Fatal("login response has no session cookie")
	return nil
}

func TestHealthz(t *testing.T) {
	env := setupServer(t)
	rec := env.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetTimeSlots(t *testing.T) {
	env := setupServer(t)
	env.seedSlots(t, 3)

	day := time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")
	rec := env.do(t, http.MethodGet, "/api/timeslots?startDate="+day+"&endDate="+day, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		TimeSlots []models.TimeSlot `json:"time_slots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.TimeSlots, 3)
}

func TestGetTimeSlotsEmptyRangeIsNotAnError(t *testing.T) {
	env := setupServer(t)

	rec := env.do(t, http.MethodGet, "/api/timeslots?startDate=2030-01-01&endDate=2030-01-07", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"time_slots":[]`)
}

func TestGetTimeSlotsBadParams(t *testing.T) {
	env := setupServer(t)

	rec := env.do(t, http.MethodGet, "/api/timeslots", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/timeslots?startDate=whenever&endDate=2030-01-01", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/timeslots?startDate=2030-01-07&endDate=2030-01-01", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReserveAndBookFlow(t *testing.T) {
	env := setupServer(t)
	slots := env.seedSlots(t, 2)
	ids := []int64{slots[0].ID, slots[1].ID}

	rec := env.do(t, http.MethodPost, "/api/timeslots/reserve", map[string]any{"slot_ids": ids}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Second hold conflicts.
	rec = env.do(t, http.MethodPost, "/api/timeslots/reserve", map[string]any{"slot_ids": ids}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/bookings", map[string]any{
		"customer_name": "Jānis",
		"email":         "janis@example.com",
		"phone":         "+37120000000",
		"slot_ids":      ids,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var booking models.BookingWithSlots
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &booking))
	require.NotEmpty(t, booking.Reference)

	rec = env.do(t, http.MethodGet, "/api/bookings/"+booking.Reference, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/bookings/WP-MISSING1", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReleaseSlots(t *testing.T) {
	env := setupServer(t)
	slots := env.seedSlots(t, 1)
	ids := []int64{slots[0].ID}

	rec := env.do(t, http.MethodPost, "/api/timeslots/reserve", map[string]any{"slot_ids": ids}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/timeslots/release", map[string]any{"slot_ids": ids}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Released slots can be held again.
	rec = env.do(t, http.MethodPost, "/api/timeslots/reserve", map[string]any{"slot_ids": ids}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateBookingValidation(t *testing.T) {
	env := setupServer(t)

	rec := env.do(t, http.MethodPost, "/api/bookings", map[string]any{
		"phone": "+371", "slot_ids": []int64{1},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/bookings", map[string]any{
		"customer_name": "X", "slot_ids": []int64{1},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/bookings", map[string]any{
		"customer_name": "X", "phone": "+371",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown fields are rejected, not ignored.
	rec = env.do(t, http.MethodPost, "/api/bookings", map[string]any{
		"customer_name": "X", "phone": "+371", "slot_ids": []int64{1}, "surprise": true,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReserveDeniedByLeadTime(t *testing.T) {
	env := setupServer(t)
	slots := env.seedSlots(t, 1)

	require.NoError(t, env.store.UpdateLeadTimeSettings(context.Background(), &models.LeadTimeSettings{
		Mode:         models.LeadTimeEnforced,
		LeadTimeDays: 7,
	}))

	rec := env.do(t, http.MethodPost, "/api/timeslots/reserve", map[string]any{"slot_ids": []int64{slots[0].ID}}, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	var decision schedule.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	assert.False(t, decision.Allowed)
	assert.Equal(t, models.ReasonLeadTimeNotMet, decision.Reason)
}

func TestLeadTimeCheckEndpoint(t *testing.T) {
	env := setupServer(t)

	day := time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")
	rec := env.do(t, http.MethodGet, "/api/lead-time/check?date="+day, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var decision schedule.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	assert.True(t, decision.Allowed)

	rec = env.do(t, http.MethodGet, "/api/lead-time/check", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminAuthRequired(t *testing.T) {
	env := setupServer(t)

	for _, path := range []string{"/api/stats", "/api/admin/bookings", "/api/config/operating-hours"} {
		rec := env.do(t, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestAdminLoginLogout(t *testing.T) {
	env := setupServer(t)

	rec := env.do(t, http.MethodPost, "/api/admin/login", map[string]string{
		"name": "boss", "password": "wrong",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	cookie := env.login(t)
	rec = env.do(t, http.MethodGet, "/api/stats", nil, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/admin/logout", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/stats", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReserveUnknownSlot(t *testing.T) {
	env := setupServer(t)

	rec := env.do(t, http.MethodPost, "/api/timeslots/reserve", map[string]any{"slot_ids": []int64{999999}}, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not found")
}

func TestCreateBookingUnknownSlot(t *testing.T) {
	env := setupServer(t)

	rec := env.do(t, http.MethodPost, "/api/bookings", map[string]any{
		"customer_name": "X", "phone": "+371", "slot_ids": []int64{999999},
	}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoginAttemptsThrottled(t *testing.T) {
	env := setupServer(t)

	for i := 0; i < 5; i++ {
		rec := env.do(t, http.MethodPost, "/api/admin/login", map[string]string{
			"name": "boss", "password": "wrong",
		}, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	// Even correct credentials are refused once the window is exhausted.
	rec := env.do(t, http.MethodPost, "/api/admin/login", map[string]string{
		"name": "boss", "password": "secret",
	}, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestAdminCancelBooking(t *testing.T) {
	env := setupServer(t)
	cookie := env.login(t)
	slots := env.seedSlots(t, 1)
	ids := []int64{slots[0].ID}

	rec := env.do(t, http.MethodPost, "/api/timeslots/reserve", map[string]any{"slot_ids": ids}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/bookings", map[string]any{
		"customer_name": "X", "phone": "+371", "slot_ids": ids,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var booking models.BookingWithSlots
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &booking))

	// Cancellation requires an admin session.
	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/bookings/%d", booking.ID), nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/bookings/%d", booking.ID), nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/bookings/%d", booking.ID), nil, cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/bookings/notanumber", nil, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOperatingHoursEndpoint(t *testing.T) {
	env := setupServer(t)
	cookie := env.login(t)

	rec := env.do(t, http.MethodPut, "/api/config/operating-hours", map[string]any{
		"operating_hours": []models.OperatingHours{
			{Weekday: 1, OpenTime: "12:00", CloseTime: "22:00"},
			{Weekday: 0, IsClosed: true},
		},
	}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/config/operating-hours", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"open_time":"12:00"`)

	// Invalid schedule is rejected.
	rec = env.do(t, http.MethodPut, "/api/config/operating-hours", map[string]any{
		"operating_hours": []models.OperatingHours{
			{Weekday: 1, OpenTime: "22:00", CloseTime: "12:00"},
		},
	}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPricingEndpoint(t *testing.T) {
	env := setupServer(t)
	cookie := env.login(t)

	rec := env.do(t, http.MethodPut, "/api/config/pricing", map[string]any{
		"pricing_rules": []models.PricingRule{
			{Name: models.PricingStandard, PriceCents: 1800},
			{Name: models.PricingPeak, PriceCents: 2400},
		},
	}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/config/pricing", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"price_cents":1800`)

	rec = env.do(t, http.MethodPut, "/api/config/pricing", map[string]any{
		"pricing_rules": []models.PricingRule{{Name: "vip", PriceCents: 9000}},
	}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLeadTimeSettingsEndpoint(t *testing.T) {
	env := setupServer(t)
	cookie := env.login(t)

	rec := env.do(t, http.MethodPut, "/api/config/lead-time", map[string]any{
		"mode": "enforced", "lead_time_days": 2, "operator_on_site": false,
	}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/config/lead-time", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var settings models.LeadTimeSettings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &settings))
	assert.Equal(t, models.LeadTimeEnforced, settings.Mode)
	assert.Equal(t, 2, settings.LeadTimeDays)

	rec = env.do(t, http.MethodPut, "/api/config/lead-time", map[string]any{"mode": "maybe"}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenericConfigEndpoint(t *testing.T) {
	env := setupServer(t)
	cookie := env.login(t)

	rec := env.do(t, http.MethodGet, "/api/config/visibility_weeks", nil, cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/config/visibility_weeks", map[string]string{"value": "6"}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/config/visibility_weeks", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"value":"6"`)

	rec = env.do(t, http.MethodPut, "/api/config/visibility_weeks", map[string]string{"value": "lots"}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegenerateEndpoint(t *testing.T) {
	env := setupServer(t)
	cookie := env.login(t)

	require.NoError(t, env.store.ReplaceOperatingHours(context.Background(), []models.OperatingHours{
		{Weekday: 1, OpenTime: "10:00", CloseTime: "11:00"},
	}))

	rec := env.do(t, http.MethodPost, "/api/timeslots/regenerate", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.RegenerationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Greater(t, result.SlotsCreated, 0)
}

func TestAdminBookingsList(t *testing.T) {
	env := setupServer(t)
	cookie := env.login(t)
	slots := env.seedSlots(t, 1)
	ids := []int64{slots[0].ID}

	rec := env.do(t, http.MethodPost, "/api/timeslots/reserve", map[string]any{"slot_ids": ids}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/bookings", map[string]any{
		"customer_name": "X", "phone": "+371", "slot_ids": ids,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/admin/bookings", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Bookings []models.BookingWithSlots `json:"bookings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Bookings, 1)
}

func TestExportEndpoints(t *testing.T) {
	env := setupServer(t)
	cookie := env.login(t)
	slots := env.seedSlots(t, 1)
	ids := []int64{slots[0].ID}

	rec := env.do(t, http.MethodPost, "/api/timeslots/reserve", map[string]any{"slot_ids": ids}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/bookings", map[string]any{
		"customer_name": "X", "phone": "+371", "slot_ids": ids,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	// GET streams the workbook.
	rec = env.do(t, http.MethodGet, "/api/admin/export", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	assert.NotZero(t, rec.Body.Len())

	// POST writes it to the exports directory.
	rec = env.do(t, http.MethodPost, "/api/admin/export", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Path string `json:"path"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	info, err := os.Stat(resp.Path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestRateLimiter(t *testing.T) {
	env := setupServer(t)
	env.server.limiter = newIPLimiter(config.RateLimitConfig{RPS: 1, Burst: 2})

	codes := map[int]int{}
	for i := 0; i < 5; i++ {
		rec := env.do(t, http.MethodPost, "/api/timeslots/reserve", map[string]any{"slot_ids": []int64{1}}, nil)
		codes[rec.Code]++
	}
	assert.Greater(t, codes[http.StatusTooManyRequests], 0)
}
