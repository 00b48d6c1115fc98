package weather

import (
	"time"
)

// Location represents the geographic position of a farm for provider queries.
// City/Country are used by providers that geocode by name; Lat/Lon by the rest.
type Location struct {
	City     string   `json:"city"`
	Country  string   `json:"country"`
	Lat      *float64 `json:"lat,omitempty"`
	Lon      *float64 `json:"lon,omitempty"`
	Timezone string   `json:"timezone,omitempty"` // IANA name, e.g. "Africa/Nairobi"
}

// Key returns a canonical string key for indexing this location.
func (l Location) Key() string {
	return l.City + ":" + l.Country
}

// Observation is the canonical view of one day's weather for one farm,
// independent of any provider wire format. All numeric fields are optional:
// a nil pointer means the provider did not report the value, never zero.
type Observation struct {
	FarmID string    `json:"farmId"`
	Date   time.Time `json:"date"` // UTC midnight of the local calendar day

	TempMinC       *float64 `json:"tempMinC,omitempty"`
	TempMaxC       *float64 `json:"tempMaxC,omitempty"`
	TempAvgC       *float64 `json:"tempAvgC,omitempty"`
	RainfallMM     *float64 `json:"rainfallMm,omitempty"`
	HumidityPct    *float64 `json:"humidityPct,omitempty"`
	WindKPH        *float64 `json:"windKph,omitempty"`
	SolarRadiation *float64 `json:"solarRadiation,omitempty"`
	PressureHPa    *float64 `json:"pressureHpa,omitempty"`
	UVIndex        *float64 `json:"uvIndex,omitempty"`
	VisibilityKM   *float64 `json:"visibilityKm,omitempty"`
	CloudCoverPct  *float64 `json:"cloudCoverPct,omitempty"`

	// Source identifies the provider the data came from.
	Source string `json:"source"`
}

// Alert is a provider-issued weather warning.
type Alert struct {
	Event       string    `json:"event"`
	Headline    string    `json:"headline"`
	Severity    string    `json:"severity"`
	Description string    `json:"description,omitempty"`
	Onset       time.Time `json:"onset,omitempty"`
	Expires     time.Time `json:"expires,omitempty"`
	Source      string    `json:"source"`
}

// Float returns a pointer to v. Convenience for building observations.
func Float(v float64) *float64 {
	return &v
}

// DayOf truncates t to UTC midnight of its calendar day.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
