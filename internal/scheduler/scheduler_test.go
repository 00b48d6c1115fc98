package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agrisense/farm-advisory/internal/advisor"
	"github.com/agrisense/farm-advisory/internal/farm"
	"github.com/agrisense/farm-advisory/internal/store"
	"github.com/agrisense/farm-advisory/internal/weather"
)

// scriptedAdapter routes provider behaviour by location, so one gateway can
// serve both a failing and a healthy farm in the same test.
type scriptedAdapter struct {
	currentFn    func(loc weather.Location) (*weather.Observation, error)
	historicalFn func(loc weather.Location, date time.Time) (*weather.Observation, error)
}

func (a *scriptedAdapter) Name() string { return "scripted" }

func (a *scriptedAdapter) FetchCurrent(ctx context.Context, loc weather.Location) (*weather.Observation, error) {
	if a.currentFn == nil {
		return nil, weather.ErrUnsupported
	}
	return a.currentFn(loc)
}

func (a *scriptedAdapter) FetchForecast(ctx context.Context, loc weather.Location, days int) ([]weather.Observation, error) {
	return nil, weather.ErrUnsupported
}

func (a *scriptedAdapter) FetchHistorical(ctx context.Context, loc weather.Location, date time.Time) (*weather.Observation, error) {
	if a.historicalFn == nil {
		return nil, weather.ErrUnsupported
	}
	return a.historicalFn(loc, date)
}

func (a *scriptedAdapter) FetchAlerts(ctx context.Context, loc weather.Location) ([]weather.Alert, error) {
	return nil, weather.ErrUnsupported
}

func newTestGateway(adapter weather.Adapter) *weather.Gateway {
	cfg := weather.DefaultGatewayConfig()
	cfg.RetryInitialDelay = time.Millisecond
	v := weather.NewValidator(weather.DefaultBounds(), zap.NewNop())
	return weather.NewGateway([]weather.Adapter{adapter}, cfg, v, clockwork.NewRealClock(), zap.NewNop())
}

func newTestScheduler(st store.Store, gw *weather.Gateway) *Scheduler {
	engine := advisor.NewEngine(advisor.DefaultThresholds(), zap.NewNop())
	cfg := Config{
		DailyFetchCron: "0 6 * * *",
		BackfillCron:   "0 3 * * *",
		LookbackDays:   4,
		Throttle:       time.Millisecond,
	}
	return New(cfg, st, gw, engine, clockwork.NewRealClock(), zap.NewNop())
}

func TestDailyFetchIsolatesFarmFailures(t *testing.T) {
	st := store.NewMemoryStore()
	st.UpsertFarm(farm.Farm{ID: "farm-down", Location: weather.Location{City: "down"}})
	st.UpsertFarm(farm.Farm{ID: "farm-up", Location: weather.Location{City: "up"}})

	adapter := &scriptedAdapter{currentFn: func(loc weather.Location) (*weather.Observation, error) {
		if loc.City == "down" {
			return nil, &weather.TransientError{Provider: "scripted", Cause: errors.New("connection refused")}
		}
		return &weather.Observation{
			Date:     weather.DayOf(time.Now()),
			TempAvgC: weather.Float(24),
			Source:   "scripted",
		}, nil
	}}

	s := newTestScheduler(st, newTestGateway(adapter))
	s.FetchDailyWeatherData()

	_, err := st.FindObservation("farm-down", time.Now())
	assert.ErrorIs(t, err, store.ErrNotFound, "the failing farm accumulates no observation")

	got, err := st.FindObservation("farm-up", time.Now())
	require.NoError(t, err, "one farm's failure must not abort the batch")
	assert.Equal(t, "farm-up", got.FarmID)
}

func TestDailyFetchGeneratesRecommendations(t *testing.T) {
	st := store.NewMemoryStore()
	st.UpsertFarm(farm.Farm{ID: "farm-1", Location: weather.Location{City: "Eldoret"}})
	st.UpsertSession(farm.GrowingSession{
		ID:           "s1",
		FarmID:       "farm-1",
		Variety:      farm.Variety{Name: "H614", MaturityDays: 120},
		PlantingDate: time.Now().AddDate(0, 0, -40),
	})

	adapter := &scriptedAdapter{currentFn: func(loc weather.Location) (*weather.Observation, error) {
		return &weather.Observation{
			Date:     weather.DayOf(time.Now()),
			TempAvgC: weather.Float(37),
			Source:   "scripted",
		}, nil
	}}

	s := newTestScheduler(st, newTestGateway(adapter))
	s.FetchDailyWeatherData()

	recs := st.ListRecommendations("s1")
	require.NotEmpty(t, recs)

	var heat bool
	for _, r := range recs {
		if r.Category == advisor.CategoryHeatStress {
			heat = true
		}
	}
	assert.True(t, heat)
}

func TestDataIntegritySkipsSessionNotBatch(t *testing.T) {
	st := store.NewMemoryStore()
	st.UpsertFarm(farm.Farm{ID: "farm-bad-soil", Location: weather.Location{City: "a"}})
	st.UpsertFarm(farm.Farm{ID: "farm-ok", Location: weather.Location{City: "b"}})

	planted := time.Now().AddDate(0, 0, -40)
	st.UpsertSession(farm.GrowingSession{ID: "s-bad", FarmID: "farm-bad-soil", Variety: farm.Variety{MaturityDays: 120}, PlantingDate: planted})
	st.UpsertSession(farm.GrowingSession{ID: "s-ok", FarmID: "farm-ok", Variety: farm.Variety{MaturityDays: 120}, PlantingDate: planted})

	// Nitrogen beyond any classification band.
	st.SaveSoilSample(farm.SoilSample{FarmID: "farm-bad-soil", NitrogenPct: weather.Float(5.0), SampleDate: time.Now()})

	adapter := &scriptedAdapter{currentFn: func(loc weather.Location) (*weather.Observation, error) {
		return &weather.Observation{
			Date:     weather.DayOf(time.Now()),
			TempAvgC: weather.Float(37),
			Source:   "scripted",
		}, nil
	}}

	s := newTestScheduler(st, newTestGateway(adapter))
	s.FetchDailyWeatherData()

	assert.Empty(t, st.ListRecommendations("s-bad"), "an unclassifiable reading skips the session")
	assert.NotEmpty(t, st.ListRecommendations("s-ok"), "other farms still get recommendations")
}

func TestBackfillFillsOnlyMissingDates(t *testing.T) {
	st := store.NewMemoryStore()
	st.UpsertFarm(farm.Farm{ID: "farm-1", Location: weather.Location{City: "Eldoret"}})

	now := time.Now()
	// Days -1 and -3 already stored; -2 and -4 are gaps.
	for _, back := range []int{1, 3} {
		require.True(t, st.SaveObservation(weather.Observation{
			FarmID: "farm-1",
			Date:   weather.DayOf(now.AddDate(0, 0, -back)),
			Source: "daily",
		}))
	}

	var fetched []time.Time
	adapter := &scriptedAdapter{historicalFn: func(loc weather.Location, date time.Time) (*weather.Observation, error) {
		fetched = append(fetched, date)
		return &weather.Observation{
			Date:     weather.DayOf(date),
			TempAvgC: weather.Float(20),
			Source:   "scripted",
		}, nil
	}}

	s := newTestScheduler(st, newTestGateway(adapter))
	s.FetchMissingHistoricalData()

	require.Len(t, fetched, 2, "only the gap days are fetched")
	assert.Equal(t, weather.DayOf(now.AddDate(0, 0, -4)), fetched[0])
	assert.Equal(t, weather.DayOf(now.AddDate(0, 0, -2)), fetched[1])

	missing := st.MissingDates("farm-1", now.AddDate(0, 0, -4), now.AddDate(0, 0, -1))
	assert.Empty(t, missing)

	got, err := st.FindObservation("farm-1", now.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Equal(t, "daily", got.Source, "existing observations are left alone")
}

func TestBackfillToleratesProviderGaps(t *testing.T) {
	st := store.NewMemoryStore()
	st.UpsertFarm(farm.Farm{ID: "farm-1", Location: weather.Location{City: "Eldoret"}})

	// Provider has nothing for any date.
	adapter := &scriptedAdapter{historicalFn: func(loc weather.Location, date time.Time) (*weather.Observation, error) {
		return nil, nil
	}}

	s := newTestScheduler(st, newTestGateway(adapter))
	s.FetchMissingHistoricalData()

	now := time.Now()
	missing := st.MissingDates("farm-1", now.AddDate(0, 0, -4), now.AddDate(0, 0, -1))
	assert.Len(t, missing, 4, "absence stays absent; no placeholder rows are written")
}

func TestStartRejectsBadCron(t *testing.T) {
	st := store.NewMemoryStore()
	engine := advisor.NewEngine(advisor.DefaultThresholds(), zap.NewNop())
	cfg := Config{DailyFetchCron: "not a cron expression", BackfillCron: "0 3 * * *"}

	s := New(cfg, st, newTestGateway(&scriptedAdapter{}), engine, nil, nil)
	defer s.Stop()
	assert.Error(t, s.Start())
}
