package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/agrisense/farm-advisory/internal/weather"
)

// OpenMeteoAdapter translates Open-Meteo responses into the canonical
// observation model. Open-Meteo is keyless but requires coordinates; the
// archive endpoint serves historical days. It has no alert feed.
type OpenMeteoAdapter struct {
	name       string
	baseURL    string
	archiveURL string
	client     *http.Client
	circuit    *gobreaker.CircuitBreaker
}

func NewOpenMeteoAdapter(client *http.Client) *OpenMeteoAdapter {
	return &OpenMeteoAdapter{
		name:       "openmeteo",
		baseURL:    "https://api.open-meteo.com/v1/forecast",
		archiveURL: "https://archive-api.open-meteo.com/v1/archive",
		client:     client,
		circuit:    newBreaker("openmeteo"),
	}
}

func (p *OpenMeteoAdapter) Name() string {
	return p.name
}

const openMeteoDailyVars = "temperature_2m_max,temperature_2m_min,temperature_2m_mean," +
	"precipitation_sum,relative_humidity_2m_mean,windspeed_10m_max,shortwave_radiation_sum"

func (p *OpenMeteoAdapter) get(ctx context.Context, base string, loc weather.Location, extra url.Values) (*http.Response, error) {
	if loc.Lat == nil || loc.Lon == nil {
		return nil, fmt.Errorf("openmeteo requires latitude and longitude")
	}

	return doRequest(ctx, p.client, p.circuit, p.name, func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", *loc.Lat))
		values.Set("longitude", fmt.Sprintf("%f", *loc.Lon))
		if loc.Timezone != "" {
			values.Set("timezone", loc.Timezone)
		} else {
			values.Set("timezone", "auto")
		}
		for k, vs := range extra {
			for _, v := range vs {
				values.Add(k, v)
			}
		}

		u := fmt.Sprintf("%s?%s", base, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	})
}

// openMeteoDaily mirrors the columnar daily block shared by the forecast and
// archive endpoints.
type openMeteoDaily struct {
	Time         []string   `json:"time"`
	TempMax      []*float64 `json:"temperature_2m_max"`
	TempMin      []*float64 `json:"temperature_2m_min"`
	TempMean     []*float64 `json:"temperature_2m_mean"`
	Precip       []*float64 `json:"precipitation_sum"`
	HumidityMean []*float64 `json:"relative_humidity_2m_mean"`
	WindMax      []*float64 `json:"windspeed_10m_max"` // km/h by default
	Radiation    []*float64 `json:"shortwave_radiation_sum"`
}

func (p *OpenMeteoAdapter) dailyToObservations(daily openMeteoDaily) []weather.Observation {
	at := func(col []*float64, i int) *float64 {
		if i < len(col) {
			return col[i]
		}
		return nil
	}

	out := make([]weather.Observation, 0, len(daily.Time))
	for i, ds := range daily.Time {
		day, err := time.Parse("2006-01-02", ds)
		if err != nil {
			continue
		}
		out = append(out, weather.Observation{
			Date:           weather.DayOf(day),
			TempMaxC:       at(daily.TempMax, i),
			TempMinC:       at(daily.TempMin, i),
			TempAvgC:       at(daily.TempMean, i),
			RainfallMM:     at(daily.Precip, i),
			HumidityPct:    at(daily.HumidityMean, i),
			WindKPH:        at(daily.WindMax, i),
			SolarRadiation: at(daily.Radiation, i),
			Source:         p.name,
		})
	}
	return out
}

func (p *OpenMeteoAdapter) FetchCurrent(ctx context.Context, loc weather.Location) (*weather.Observation, error) {
	extra := url.Values{}
	extra.Set("current_weather", "true")

	resp, err := p.get(ctx, p.baseURL, loc, extra)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		CurrentWeather struct {
			Temperature *float64 `json:"temperature"`
			WindSpeed   *float64 `json:"windspeed"` // km/h
			Time        string   `json:"time"`
		} `json:"current_weather"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("openmeteo: decode current: %w", err)
	}

	ts, err := time.Parse("2006-01-02T15:04", payload.CurrentWeather.Time)
	if err != nil {
		if ts, err = time.Parse(time.RFC3339, payload.CurrentWeather.Time); err != nil {
			ts = time.Now().UTC()
		}
	}

	return &weather.Observation{
		Date:     weather.DayOf(ts),
		TempAvgC: payload.CurrentWeather.Temperature,
		WindKPH:  payload.CurrentWeather.WindSpeed,
		Source:   p.name,
	}, nil
}

func (p *OpenMeteoAdapter) FetchForecast(ctx context.Context, loc weather.Location, days int) ([]weather.Observation, error) {
	extra := url.Values{}
	extra.Set("daily", openMeteoDailyVars)
	extra.Set("forecast_days", fmt.Sprintf("%d", days))

	resp, err := p.get(ctx, p.baseURL, loc, extra)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Daily openMeteoDaily `json:"daily"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("openmeteo: decode forecast: %w", err)
	}

	obs := p.dailyToObservations(payload.Daily)
	if days > 0 && len(obs) > days {
		obs = obs[:days]
	}
	return obs, nil
}

func (p *OpenMeteoAdapter) FetchHistorical(ctx context.Context, loc weather.Location, date time.Time) (*weather.Observation, error) {
	day := date.UTC().Format("2006-01-02")
	extra := url.Values{}
	extra.Set("daily", openMeteoDailyVars)
	extra.Set("start_date", day)
	extra.Set("end_date", day)

	resp, err := p.get(ctx, p.archiveURL, loc, extra)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Daily openMeteoDaily `json:"daily"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("openmeteo: decode archive: %w", err)
	}

	obs := p.dailyToObservations(payload.Daily)
	if len(obs) == 0 {
		return nil, nil
	}
	return &obs[0], nil
}

func (p *OpenMeteoAdapter) FetchAlerts(ctx context.Context, loc weather.Location) ([]weather.Alert, error) {
	return nil, fmt.Errorf("openmeteo: alerts: %w", weather.ErrUnsupported)
}
