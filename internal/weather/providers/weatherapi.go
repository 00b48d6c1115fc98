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

// WeatherAPIAdapter translates WeatherAPI.com responses into the canonical
// observation model. It is the only adapter supporting the full capability
// set: current, forecast, historical, and alerts.
type WeatherAPIAdapter struct {
	name    string
	apiKey  string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherAPIAdapter(client *http.Client, apiKey string) *WeatherAPIAdapter {
	return &WeatherAPIAdapter{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: "https://api.weatherapi.com/v1",
		client:  client,
		circuit: newBreaker("weatherapi"),
	}
}

func (p *WeatherAPIAdapter) Name() string {
	return p.name
}

// locationQuery builds the "q" parameter: WeatherAPI accepts "lat,lon" or
// "city,country".
func (p *WeatherAPIAdapter) locationQuery(loc weather.Location) string {
	if loc.Lat != nil && loc.Lon != nil {
		return fmt.Sprintf("%f,%f", *loc.Lat, *loc.Lon)
	}
	if loc.Country != "" {
		return fmt.Sprintf("%s,%s", loc.City, loc.Country)
	}
	return loc.City
}

func (p *WeatherAPIAdapter) get(ctx context.Context, endpoint string, params url.Values) (*http.Response, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("weatherapi api key is not configured")
	}

	return doRequest(ctx, p.client, p.circuit, p.name, func() (*http.Request, error) {
		params.Set("key", p.apiKey)
		u := fmt.Sprintf("%s/%s?%s", p.baseURL, endpoint, params.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	})
}

type weatherAPICurrent struct {
	TempC      *float64 `json:"temp_c"`
	Humidity   *float64 `json:"humidity"`
	WindKPH    *float64 `json:"wind_kph"`
	PressureMb *float64 `json:"pressure_mb"`
	PrecipMM   *float64 `json:"precip_mm"`
	UV         *float64 `json:"uv"`
	VisKM      *float64 `json:"vis_km"`
	Cloud      *float64 `json:"cloud"`
}

type weatherAPIDay struct {
	MaxTempC      *float64 `json:"maxtemp_c"`
	MinTempC      *float64 `json:"mintemp_c"`
	AvgTempC      *float64 `json:"avgtemp_c"`
	TotalPrecipMM *float64 `json:"totalprecip_mm"`
	AvgHumidity   *float64 `json:"avghumidity"`
	MaxWindKPH    *float64 `json:"maxwind_kph"`
	AvgVisKM      *float64 `json:"avgvis_km"`
	UV            *float64 `json:"uv"`
}

type weatherAPIForecastDay struct {
	Date string        `json:"date"`
	Day  weatherAPIDay `json:"day"`
}

func (p *WeatherAPIAdapter) FetchCurrent(ctx context.Context, loc weather.Location) (*weather.Observation, error) {
	params := url.Values{}
	params.Set("q", p.locationQuery(loc))

	resp, err := p.get(ctx, "current.json", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Location struct {
			LocaltimeEpoch int64 `json:"localtime_epoch"`
		} `json:"location"`
		Current weatherAPICurrent `json:"current"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("weatherapi: decode current: %w", err)
	}

	ts := time.Unix(payload.Location.LocaltimeEpoch, 0).UTC()
	if payload.Location.LocaltimeEpoch == 0 {
		ts = time.Now().UTC()
	}

	c := payload.Current
	return &weather.Observation{
		Date:          weather.DayOf(ts),
		TempAvgC:      c.TempC,
		RainfallMM:    c.PrecipMM,
		HumidityPct:   c.Humidity,
		WindKPH:       c.WindKPH,
		PressureHPa:   c.PressureMb,
		UVIndex:       c.UV,
		VisibilityKM:  c.VisKM,
		CloudCoverPct: c.Cloud,
		Source:        p.name,
	}, nil
}

func (p *WeatherAPIAdapter) FetchForecast(ctx context.Context, loc weather.Location, days int) ([]weather.Observation, error) {
	params := url.Values{}
	params.Set("q", p.locationQuery(loc))
	params.Set("days", fmt.Sprintf("%d", days))

	resp, err := p.get(ctx, "forecast.json", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Forecast struct {
			ForecastDay []weatherAPIForecastDay `json:"forecastday"`
		} `json:"forecast"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("weatherapi: decode forecast: %w", err)
	}

	out := make([]weather.Observation, 0, len(payload.Forecast.ForecastDay))
	for _, fd := range payload.Forecast.ForecastDay {
		obs, err := p.dayToObservation(fd)
		if err != nil {
			continue
		}
		out = append(out, obs)
	}
	return out, nil
}

func (p *WeatherAPIAdapter) FetchHistorical(ctx context.Context, loc weather.Location, date time.Time) (*weather.Observation, error) {
	params := url.Values{}
	params.Set("q", p.locationQuery(loc))
	params.Set("dt", date.UTC().Format("2006-01-02"))

	resp, err := p.get(ctx, "history.json", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Forecast struct {
			ForecastDay []weatherAPIForecastDay `json:"forecastday"`
		} `json:"forecast"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("weatherapi: decode history: %w", err)
	}

	if len(payload.Forecast.ForecastDay) == 0 {
		return nil, nil
	}
	obs, err := p.dayToObservation(payload.Forecast.ForecastDay[0])
	if err != nil {
		return nil, nil
	}
	return &obs, nil
}

func (p *WeatherAPIAdapter) FetchAlerts(ctx context.Context, loc weather.Location) ([]weather.Alert, error) {
	params := url.Values{}
	params.Set("q", p.locationQuery(loc))
	params.Set("days", "1")
	params.Set("alerts", "yes")

	resp, err := p.get(ctx, "forecast.json", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Alerts struct {
			Alert []struct {
				Headline  string `json:"headline"`
				Event     string `json:"event"`
				Severity  string `json:"severity"`
				Desc      string `json:"desc"`
				Effective string `json:"effective"`
				Expires   string `json:"expires"`
			} `json:"alert"`
		} `json:"alerts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("weatherapi: decode alerts: %w", err)
	}

	out := make([]weather.Alert, 0, len(payload.Alerts.Alert))
	for _, a := range payload.Alerts.Alert {
		alert := weather.Alert{
			Event:       a.Event,
			Headline:    a.Headline,
			Severity:    a.Severity,
			Description: a.Desc,
			Source:      p.name,
		}
		if ts, err := time.Parse(time.RFC3339, a.Effective); err == nil {
			alert.Onset = ts.UTC()
		}
		if ts, err := time.Parse(time.RFC3339, a.Expires); err == nil {
			alert.Expires = ts.UTC()
		}
		out = append(out, alert)
	}
	return out, nil
}

func (p *WeatherAPIAdapter) dayToObservation(fd weatherAPIForecastDay) (weather.Observation, error) {
	day, err := time.Parse("2006-01-02", fd.Date)
	if err != nil {
		return weather.Observation{}, fmt.Errorf("weatherapi: bad forecast date %q: %w", fd.Date, err)
	}
	return weather.Observation{
		Date:         weather.DayOf(day),
		TempMinC:     fd.Day.MinTempC,
		TempMaxC:     fd.Day.MaxTempC,
		TempAvgC:     fd.Day.AvgTempC,
		RainfallMM:   fd.Day.TotalPrecipMM,
		HumidityPct:  fd.Day.AvgHumidity,
		WindKPH:      fd.Day.MaxWindKPH,
		VisibilityKM: fd.Day.AvgVisKM,
		UVIndex:      fd.Day.UV,
		Source:       p.name,
	}, nil
}
