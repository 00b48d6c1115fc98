package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agrisense/farm-advisory/internal/farm"
	"github.com/agrisense/farm-advisory/internal/store"
	"github.com/agrisense/farm-advisory/internal/weather"
)

// staticAlertsAdapter serves canned alerts; everything else is unsupported.
type staticAlertsAdapter struct {
	alerts []weather.Alert
}

func (a *staticAlertsAdapter) Name() string { return "static" }

func (a *staticAlertsAdapter) FetchCurrent(ctx context.Context, loc weather.Location) (*weather.Observation, error) {
	return nil, weather.ErrUnsupported
}

func (a *staticAlertsAdapter) FetchForecast(ctx context.Context, loc weather.Location, days int) ([]weather.Observation, error) {
	return nil, weather.ErrUnsupported
}

func (a *staticAlertsAdapter) FetchHistorical(ctx context.Context, loc weather.Location, date time.Time) (*weather.Observation, error) {
	return nil, weather.ErrUnsupported
}

func (a *staticAlertsAdapter) FetchAlerts(ctx context.Context, loc weather.Location) ([]weather.Alert, error) {
	return a.alerts, nil
}

func newTestApp(st store.Store, adapter weather.Adapter) *fiber.App {
	gw := weather.NewGateway(
		[]weather.Adapter{adapter},
		weather.DefaultGatewayConfig(),
		weather.NewValidator(weather.DefaultBounds(), zap.NewNop()),
		clockwork.NewRealClock(),
		zap.NewNop(),
	)

	app := fiber.New()
	RegisterRoutes(app, Deps{Store: st, Gateway: gw})
	return app
}

func seededStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	st := store.NewMemoryStore()
	st.UpsertFarm(farm.Farm{ID: "farm-1", Name: "North Field", Location: weather.Location{City: "Eldoret", Country: "KE"}})
	return st
}

func doJSON(t *testing.T, app *fiber.App, method, target, body string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func TestListFarms(t *testing.T) {
	app := newTestApp(seededStore(t), &staticAlertsAdapter{})

	resp, raw := doJSON(t, app, http.MethodGet, "/api/v1/farms", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var farms []farm.Farm
	require.NoError(t, json.Unmarshal(raw, &farms))
	require.Len(t, farms, 1)
	assert.Equal(t, "farm-1", farms[0].ID)
}

func TestCurrentWeather(t *testing.T) {
	st := seededStore(t)
	app := newTestApp(st, &staticAlertsAdapter{})

	resp, _ := doJSON(t, app, http.MethodGet, "/api/v1/farms/nope/weather/current", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/farms/farm-1/weather/current", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "no stored data yet")

	st.SaveObservation(weather.Observation{
		FarmID:   "farm-1",
		Date:     weather.DayOf(time.Now().AddDate(0, 0, -2)),
		TempAvgC: weather.Float(21),
		Source:   "weatherapi",
	})
	st.SaveObservation(weather.Observation{
		FarmID:   "farm-1",
		Date:     weather.DayOf(time.Now()),
		TempAvgC: weather.Float(26),
		Source:   "weatherapi",
	})

	resp, raw := doJSON(t, app, http.MethodGet, "/api/v1/farms/farm-1/weather/current", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var obs weather.Observation
	require.NoError(t, json.Unmarshal(raw, &obs))
	require.NotNil(t, obs.TempAvgC)
	assert.Equal(t, 26.0, *obs.TempAvgC, "the newest observation wins")
}

func TestWeatherRangeValidation(t *testing.T) {
	app := newTestApp(seededStore(t), &staticAlertsAdapter{})

	resp, _ := doJSON(t, app, http.MethodGet, "/api/v1/farms/farm-1/weather", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "from and to are required")

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/farms/farm-1/weather?from=2026-04-05&to=2026-04-01", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "inverted range is rejected")

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/farms/farm-1/weather?from=yesterday&to=today", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWeatherRangeFilters(t *testing.T) {
	st := seededStore(t)
	app := newTestApp(st, &staticAlertsAdapter{})

	for _, d := range []string{"2026-04-01", "2026-04-03", "2026-04-07"} {
		date, err := time.Parse("2006-01-02", d)
		require.NoError(t, err)
		require.True(t, st.SaveObservation(weather.Observation{FarmID: "farm-1", Date: date, Source: "weatherapi"}))
	}

	resp, raw := doJSON(t, app, http.MethodGet, "/api/v1/farms/farm-1/weather?from=2026-04-02&to=2026-04-05", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Observations []weather.Observation `json:"observations"`
	}
	require.NoError(t, json.Unmarshal(raw, &payload))
	require.Len(t, payload.Observations, 1)
	assert.Equal(t, "2026-04-03", payload.Observations[0].Date.Format("2006-01-02"))
}

func TestAlertsAlwaysAList(t *testing.T) {
	st := seededStore(t)

	app := newTestApp(st, &staticAlertsAdapter{alerts: []weather.Alert{{Event: "Flood Warning", Severity: "Severe"}}})
	resp, raw := doJSON(t, app, http.MethodGet, "/api/v1/farms/farm-1/alerts", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var alerts []weather.Alert
	require.NoError(t, json.Unmarshal(raw, &alerts))
	require.Len(t, alerts, 1)
	assert.Equal(t, "Flood Warning", alerts[0].Event)

	// A provider with nothing to say still yields a JSON array.
	app = newTestApp(st, &staticAlertsAdapter{})
	resp, raw = doJSON(t, app, http.MethodGet, "/api/v1/farms/farm-1/alerts", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "[]", strings.TrimSpace(string(raw)))
}

func TestPostSoilSample(t *testing.T) {
	st := seededStore(t)
	app := newTestApp(st, &staticAlertsAdapter{})

	body := `{"soilType": "loam", "ph": 6.4, "nitrogenPct": 1.2, "sampleDate": "2026-04-01"}`
	resp, raw := doJSON(t, app, http.MethodPost, "/api/v1/farms/farm-1/soil", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	sample, err := st.FindLatestSoilSample("farm-1")
	require.NoError(t, err)
	assert.Equal(t, "loam", sample.SoilType)
	require.NotNil(t, sample.PH)
	assert.Equal(t, 6.4, *sample.PH)
	assert.Nil(t, sample.MoisturePct, "absent fields stay absent")

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/farms/nope/soil", body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/farms/farm-1/soil",
		`{"ph": 15.2, "sampleDate": "2026-04-01"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "pH outside [0,14] is rejected")

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/farms/farm-1/soil",
		`{"ph": 6.4, "sampleDate": "April 1st"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/farms/farm-1/soil", `{"ph": 6.4}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "sampleDate is required")
}

func TestSessionPhase(t *testing.T) {
	st := seededStore(t)
	st.UpsertSession(farm.GrowingSession{
		ID:           "s1",
		FarmID:       "farm-1",
		Variety:      farm.Variety{Name: "H614", MaturityDays: 120},
		PlantingDate: time.Now().AddDate(0, 0, -40),
	})
	app := newTestApp(st, &staticAlertsAdapter{})

	resp, raw := doJSON(t, app, http.MethodGet, "/api/v1/sessions/s1/phase", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		SessionID         string `json:"sessionId"`
		DaysSincePlanting int    `json:"daysSincePlanting"`
		Phase             string `json:"phase"`
	}
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, 40, payload.DaysSincePlanting)
	assert.Equal(t, string(farm.PhaseVegetativeLate), payload.Phase)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/sessions/nope/phase", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRecommendationLifecycle(t *testing.T) {
	st := seededStore(t)
	st.UpsertSession(farm.GrowingSession{ID: "s1", FarmID: "farm-1"})
	st.SaveRecommendations([]farm.Recommendation{{
		ID:        "rec-1",
		SessionID: "s1",
		Category:  "HEAT_STRESS",
		Title:     "Heat stress detected",
		Priority:  farm.PriorityCritical,
	}})
	app := newTestApp(st, &staticAlertsAdapter{})

	resp, raw := doJSON(t, app, http.MethodGet, "/api/v1/sessions/s1/recommendations", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var recs []farm.Recommendation
	require.NoError(t, json.Unmarshal(raw, &recs))
	require.Len(t, recs, 1)
	assert.False(t, recs[0].Viewed)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/sessions/s1/recommendations/rec-1/viewed", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/sessions/s1/recommendations/rec-1/implemented", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, raw = doJSON(t, app, http.MethodGet, "/api/v1/sessions/s1/recommendations", "")
	require.NoError(t, json.Unmarshal(raw, &recs))
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Viewed)
	assert.True(t, recs[0].Implemented)
	assert.Equal(t, "HEAT_STRESS", recs[0].Category, "marking must not touch generated fields")

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/sessions/s1/recommendations/nope/viewed", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
