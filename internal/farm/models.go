package farm

import (
	"time"

	"github.com/agrisense/farm-advisory/internal/weather"
)

// Farm is an agricultural plot tracked by the system.
type Farm struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Location weather.Location `json:"location"`
	SoilType string           `json:"soilType,omitempty"`
}

// Variety describes the planted crop variety and its agronomic traits.
type Variety struct {
	Name             string  `json:"name"`
	MaturityDays     int     `json:"maturityDays"`
	OptimalTempMinC  float64 `json:"optimalTempMinC"`
	OptimalTempMaxC  float64 `json:"optimalTempMaxC"`
	DroughtResistant bool    `json:"droughtResistant"`
}

// GrowingSession ties a variety to a farm for one planting cycle.
type GrowingSession struct {
	ID              string     `json:"id"`
	FarmID          string     `json:"farmId"`
	Variety         Variety    `json:"variety"`
	PlantingDate    time.Time  `json:"plantingDate"`
	ExpectedHarvest *time.Time `json:"expectedHarvest,omitempty"`
	ActualHarvest   *time.Time `json:"actualHarvest,omitempty"`
}

// DaysSincePlanting returns the whole days elapsed since planting, clamped
// at zero when the planting date lies in the future.
func (s GrowingSession) DaysSincePlanting(now time.Time) int {
	d := int(now.UTC().Sub(s.PlantingDate.UTC()).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// SoilSample is one soil analysis for a farm. Optional fields are nil when
// the lab did not measure them.
type SoilSample struct {
	ID               string    `json:"id"`
	FarmID           string    `json:"farmId"`
	SoilType         string    `json:"soilType,omitempty"`
	PH               *float64  `json:"ph,omitempty"`
	OrganicMatterPct *float64  `json:"organicMatterPct,omitempty"`
	NitrogenPct      *float64  `json:"nitrogenPct,omitempty"`
	PhosphorusPPM    *float64  `json:"phosphorusPpm,omitempty"`
	PotassiumPPM     *float64  `json:"potassiumPpm,omitempty"`
	MoisturePct      *float64  `json:"moisturePct,omitempty"`
	SampleDate       time.Time `json:"sampleDate"`
}

// Priority ranks how urgently a recommendation should be acted on.
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// Recommendation is one piece of prioritized agronomic guidance for a
// growing session. Category, title, description, priority, and confidence
// are fixed at generation time; only Viewed and Implemented change later.
type Recommendation struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"sessionId"`
	Category    string    `json:"category"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    Priority  `json:"priority"`
	Confidence  float64   `json:"confidence"` // [0,1], fixed per rule
	Date        time.Time `json:"date"`
	Viewed      bool      `json:"viewed"`
	Implemented bool      `json:"implemented"`
}
