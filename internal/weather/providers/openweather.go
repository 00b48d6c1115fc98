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

// OpenWeatherAdapter translates OpenWeatherMap responses into the canonical
// observation model. The free tier exposes current conditions and a 3-hourly
// five-day forecast; historical data and alerts are paid endpoints, so those
// operations report ErrUnsupported.
type OpenWeatherAdapter struct {
	name    string
	apiKey  string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherAdapter(client *http.Client, apiKey string) *OpenWeatherAdapter {
	return &OpenWeatherAdapter{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5",
		client:  client,
		circuit: newBreaker("openweather"),
	}
}

func (p *OpenWeatherAdapter) Name() string {
	return p.name
}

func (p *OpenWeatherAdapter) get(ctx context.Context, endpoint string, loc weather.Location, extra url.Values) (*http.Response, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("openweather api key is not configured")
	}

	return doRequest(ctx, p.client, p.circuit, p.name, func() (*http.Request, error) {
		values := url.Values{}
		values.Set("appid", p.apiKey)
		values.Set("units", "metric")

		if loc.Lat != nil && loc.Lon != nil {
			values.Set("lat", fmt.Sprintf("%f", *loc.Lat))
			values.Set("lon", fmt.Sprintf("%f", *loc.Lon))
		} else {
			q := loc.City
			if loc.Country != "" {
				q = fmt.Sprintf("%s,%s", loc.City, loc.Country)
			}
			values.Set("q", q)
		}
		for k, vs := range extra {
			for _, v := range vs {
				values.Add(k, v)
			}
		}

		u := fmt.Sprintf("%s/%s?%s", p.baseURL, endpoint, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	})
}

func (p *OpenWeatherAdapter) FetchCurrent(ctx context.Context, loc weather.Location) (*weather.Observation, error) {
	resp, err := p.get(ctx, "weather", loc, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp     *float64 `json:"temp"`
			TempMin  *float64 `json:"temp_min"`
			TempMax  *float64 `json:"temp_max"`
			Humidity *float64 `json:"humidity"`
			Pressure *float64 `json:"pressure"`
		} `json:"main"`
		Wind struct {
			Speed *float64 `json:"speed"` // m/s
		} `json:"wind"`
		Rain struct {
			OneH   *float64 `json:"1h"`
			ThreeH *float64 `json:"3h"`
		} `json:"rain"`
		Clouds struct {
			All *float64 `json:"all"`
		} `json:"clouds"`
		Visibility *float64 `json:"visibility"` // metres
		Timezone   int      `json:"timezone"`   // shift from UTC in seconds
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("openweather: decode current: %w", err)
	}

	ts := time.Unix(payload.Dt, 0).UTC()
	if payload.Dt == 0 {
		ts = time.Now().UTC()
	}
	// Bucket by the location's local calendar day, not UTC.
	local := ts.In(time.FixedZone("local", payload.Timezone))

	obs := &weather.Observation{
		Date:          weather.DayOf(time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)),
		TempAvgC:      payload.Main.Temp,
		TempMinC:      payload.Main.TempMin,
		TempMaxC:      payload.Main.TempMax,
		HumidityPct:   payload.Main.Humidity,
		PressureHPa:   payload.Main.Pressure,
		CloudCoverPct: payload.Clouds.All,
		Source:        p.name,
	}
	if payload.Wind.Speed != nil {
		obs.WindKPH = weather.Float(*payload.Wind.Speed * 3.6)
	}
	if payload.Rain.OneH != nil {
		obs.RainfallMM = payload.Rain.OneH
	} else if payload.Rain.ThreeH != nil {
		obs.RainfallMM = payload.Rain.ThreeH
	}
	if payload.Visibility != nil {
		obs.VisibilityKM = weather.Float(*payload.Visibility / 1000)
	}
	return obs, nil
}

// FetchForecast pulls the 3-hourly feed and buckets it into daily
// observations using the city's UTC offset from the payload.
func (p *OpenWeatherAdapter) FetchForecast(ctx context.Context, loc weather.Location, days int) ([]weather.Observation, error) {
	resp, err := p.get(ctx, "forecast", loc, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		List []struct {
			Dt   int64 `json:"dt"`
			Main struct {
				Temp     *float64 `json:"temp"`
				Humidity *float64 `json:"humidity"`
				Pressure *float64 `json:"pressure"`
			} `json:"main"`
			Wind struct {
				Speed *float64 `json:"speed"`
			} `json:"wind"`
			Rain struct {
				ThreeH *float64 `json:"3h"`
			} `json:"rain"`
			Clouds struct {
				All *float64 `json:"all"`
			} `json:"clouds"`
		} `json:"list"`
		City struct {
			Timezone int `json:"timezone"`
		} `json:"city"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("openweather: decode forecast: %w", err)
	}

	points := make([]weather.Point, 0, len(payload.List))
	for _, item := range payload.List {
		pt := weather.Point{
			Timestamp:     time.Unix(item.Dt, 0).UTC(),
			TempC:         item.Main.Temp,
			HumidityPct:   item.Main.Humidity,
			PressureHPa:   item.Main.Pressure,
			RainMM:        item.Rain.ThreeH,
			CloudCoverPct: item.Clouds.All,
		}
		if item.Wind.Speed != nil {
			pt.WindKPH = weather.Float(*item.Wind.Speed * 3.6)
		}
		points = append(points, pt)
	}

	tz := time.FixedZone("local", payload.City.Timezone)
	obs := weather.BucketDaily("", p.name, points, tz)
	if days > 0 && len(obs) > days {
		obs = obs[:days]
	}
	return obs, nil
}

func (p *OpenWeatherAdapter) FetchHistorical(ctx context.Context, loc weather.Location, date time.Time) (*weather.Observation, error) {
	// The history API requires a paid subscription.
	return nil, fmt.Errorf("openweather: historical data: %w", weather.ErrUnsupported)
}

func (p *OpenWeatherAdapter) FetchAlerts(ctx context.Context, loc weather.Location) ([]weather.Alert, error) {
	// Alerts live on the One Call 3.0 endpoint, which is not part of this plan.
	return nil, fmt.Errorf("openweather: alerts: %w", weather.ErrUnsupported)
}
