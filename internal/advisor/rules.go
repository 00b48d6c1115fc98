package advisor

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/agrisense/farm-advisory/internal/farm"
	"github.com/agrisense/farm-advisory/internal/weather"
)

// Recommendation categories emitted by the local rule families.
const (
	CategoryHeatStress  = "HEAT_STRESS"
	CategoryColdStress  = "COLD_STRESS"
	CategoryDrought     = "DROUGHT"
	CategoryWaterlog    = "WATERLOGGING"
	CategoryDiseaseRisk = "DISEASE_RISK"
	CategoryWindDamage  = "WIND_DAMAGE"
	CategoryNutrient    = "NUTRIENT"
	CategorySoilPH      = "SOIL_PH"
	CategorySoilWater   = "SOIL_MOISTURE"
	CategoryFieldWork   = "FIELD_OPERATIONS"
	CategoryVariety     = "VARIETY"
	CategoryHarvest     = "HARVEST"
)

// Fixed per-rule confidence constants. These express how directly the
// observed values match each rule's designed trigger, not a statistical
// estimate.
const (
	confHeatStress   = 0.90
	confColdStress   = 0.85
	confDrought      = 0.90
	confWaterlogging = 0.85
	confDiseaseRisk  = 0.75
	confWindDamage   = 0.70
	confNitrogenCrit = 0.95
	confNitrogenLow  = 0.85
	confPH           = 0.90
	confMoisture     = 0.85
	confPhaseWindow  = 0.80
	confVarietyTrait = 0.60
)

// windowAggregate summarizes the observation window the weather rules
// evaluate: mean temperature, total rainfall, mean humidity, max wind.
// Has* flags distinguish "zero" from "no provider reported the field".
type windowAggregate struct {
	MeanTempC   float64 `json:"meanTempC"`
	TotalRainMM float64 `json:"totalRainMm"`
	MeanHumPct  float64 `json:"meanHumidityPct"`
	MaxWindKPH  float64 `json:"maxWindKph"`

	HasTemp bool `json:"hasTemp"`
	HasRain bool `json:"hasRain"`
	HasHum  bool `json:"hasHumidity"`
	HasWind bool `json:"hasWind"`
}

func aggregateWindow(observations []weather.Observation) windowAggregate {
	var agg windowAggregate
	var tempSum, tempN, humSum, humN float64

	for _, o := range observations {
		switch {
		case o.TempAvgC != nil:
			tempSum += *o.TempAvgC
			tempN++
		case o.TempMinC != nil && o.TempMaxC != nil:
			tempSum += (*o.TempMinC + *o.TempMaxC) / 2
			tempN++
		}
		if o.RainfallMM != nil {
			agg.TotalRainMM += *o.RainfallMM
			agg.HasRain = true
		}
		if o.HumidityPct != nil {
			humSum += *o.HumidityPct
			humN++
		}
		if o.WindKPH != nil {
			if !agg.HasWind || *o.WindKPH > agg.MaxWindKPH {
				agg.MaxWindKPH = *o.WindKPH
			}
			agg.HasWind = true
		}
	}

	if tempN > 0 {
		agg.MeanTempC = tempSum / tempN
		agg.HasTemp = true
	}
	if humN > 0 {
		agg.MeanHumPct = humSum / humN
		agg.HasHum = true
	}
	return agg
}

// emit builds a recommendation with generation-time fields fixed.
func (e *Engine) emit(session farm.GrowingSession, category, title, description string, priority farm.Priority, confidence float64) farm.Recommendation {
	return farm.Recommendation{
		ID:          uuid.NewString(),
		SessionID:   session.ID,
		Category:    category,
		Title:       title,
		Description: description,
		Priority:    priority,
		Confidence:  confidence,
		Date:        e.clock.Now().UTC(),
	}
}

// weatherRules classifies the aggregated observation window. Every band is
// exhaustive over the aggregate's range, so this family cannot raise a
// data-integrity condition.
func (e *Engine) weatherRules(session farm.GrowingSession, days int, agg windowAggregate) []farm.Recommendation {
	t := e.thresholds
	var recs []farm.Recommendation

	if agg.HasTemp {
		if agg.MeanTempC > t.HeatStressTempC && days >= t.HeatStressDayMin && days <= t.HeatStressDayMax {
			recs = append(recs, e.emit(session, CategoryHeatStress,
				"Heat stress detected",
				fmt.Sprintf("Mean temperature %.1f°C exceeds %.0f°C during a heat-sensitive growth window. Irrigate in the early morning and avoid midday field work.", agg.MeanTempC, t.HeatStressTempC),
				farm.PriorityCritical, confHeatStress))
		}
		if agg.MeanTempC < t.ColdStressTempC && days < t.ColdStressDayMax {
			recs = append(recs, e.emit(session, CategoryColdStress,
				"Cold stress on young crop",
				fmt.Sprintf("Mean temperature %.1f°C is below %.0f°C while the crop is establishing. Delay thinning and consider row covers if frost threatens.", agg.MeanTempC, t.ColdStressTempC),
				farm.PriorityHigh, confColdStress))
		}
		if agg.HasHum && agg.MeanHumPct > t.DiseaseHumidity && agg.MeanTempC > t.DiseaseTempC {
			recs = append(recs, e.emit(session, CategoryDiseaseRisk,
				"Fungal disease conditions",
				fmt.Sprintf("Humidity %.0f%% with mean temperature %.1f°C favours fungal development. Scout leaves for lesions and plan a preventive fungicide pass.", agg.MeanHumPct, agg.MeanTempC),
				farm.PriorityHigh, confDiseaseRisk))
		}
	}

	if agg.HasRain {
		if agg.TotalRainMM < t.DroughtRainMM && days >= t.DroughtDayMin && days <= t.DroughtDayMax {
			recs = append(recs, e.emit(session, CategoryDrought,
				"Drought conditions",
				fmt.Sprintf("Only %.1f mm of rain fell over the observation window during a water-critical stage. Schedule supplemental irrigation immediately.", agg.TotalRainMM),
				farm.PriorityCritical, confDrought))
		}
		if agg.TotalRainMM > t.WaterloggingMM {
			recs = append(recs, e.emit(session, CategoryWaterlog,
				"Waterlogging risk",
				fmt.Sprintf("%.0f mm of rain over the window can saturate the root zone. Check field drainage and postpone fertilizer application.", agg.TotalRainMM),
				farm.PriorityHigh, confWaterlogging))
		}
	}

	if agg.HasWind && agg.MaxWindKPH > t.WindDamageKPH {
		recs = append(recs, e.emit(session, CategoryWindDamage,
			"Wind damage risk",
			fmt.Sprintf("Peak wind of %.0f km/h can lodge the crop. Inspect for broken stalks and stake vulnerable rows.", agg.MaxWindKPH),
			farm.PriorityMedium, confWindDamage))
	}

	return recs
}

// soilRules evaluates each measured soil field independently; a sample
// missing a field skips that field's rule. A reading beyond the expected
// ceiling of its bands raises DataIntegrityError rather than being ignored.
func (e *Engine) soilRules(session farm.GrowingSession, days int, soil *farm.SoilSample) ([]farm.Recommendation, error) {
	if soil == nil {
		return nil, nil
	}

	t := e.thresholds
	var recs []farm.Recommendation

	if soil.NitrogenPct != nil {
		n := *soil.NitrogenPct
		switch {
		case n < 0 || n > t.NitrogenExpectedMax:
			return nil, &DataIntegrityError{Field: "nitrogenPct", Value: n}
		case n < t.NitrogenCriticalPct:
			recs = append(recs, e.emit(session, CategoryNutrient,
				"Critical nitrogen deficiency",
				fmt.Sprintf("Soil nitrogen at %.2f%% is critically low. Apply a nitrogen top dressing this week; split the dose if heavy rain is expected.", n),
				farm.PriorityCritical, confNitrogenCrit))
		case n < t.NitrogenLowPct:
			recs = append(recs, e.emit(session, CategoryNutrient,
				"Low nitrogen",
				fmt.Sprintf("Soil nitrogen at %.2f%% is below the target band. Plan a nitrogen application within the next two weeks.", n),
				farm.PriorityHigh, confNitrogenLow))
		}
	}

	if soil.PH != nil {
		ph := *soil.PH
		switch {
		case ph < t.PHExpectedMin || ph > t.PHExpectedMax:
			return nil, &DataIntegrityError{Field: "ph", Value: ph}
		case ph < t.PHAcidic:
			recs = append(recs, e.emit(session, CategorySoilPH,
				"Acidic soil",
				fmt.Sprintf("Soil pH %.1f restricts nutrient uptake. Apply agricultural lime per a soil-lab dosing table.", ph),
				farm.PriorityHigh, confPH))
		case ph > t.PHAlkaline:
			recs = append(recs, e.emit(session, CategorySoilPH,
				"Alkaline soil",
				fmt.Sprintf("Soil pH %.1f can lock out micronutrients. Consider elemental sulfur or acidifying fertilizers.", ph),
				farm.PriorityMedium, confPH))
		}
	}

	if soil.MoisturePct != nil {
		m := *soil.MoisturePct
		switch {
		case m < 0 || m > 100:
			return nil, &DataIntegrityError{Field: "moisturePct", Value: m}
		case m < t.MoistureLowPct && days >= t.MoistureLowDayMin && days <= t.MoistureLowDayMax:
			recs = append(recs, e.emit(session, CategorySoilWater,
				"Soil moisture critically low",
				fmt.Sprintf("Soil moisture %.0f%% during a water-critical stage. Irrigate before the root zone dries further.", m),
				farm.PriorityCritical, confMoisture))
		case m > t.MoistureHighPct:
			recs = append(recs, e.emit(session, CategorySoilWater,
				"Soil near saturation",
				fmt.Sprintf("Soil moisture %.0f%% leaves little aeration. Hold off irrigation and check drainage.", m),
				farm.PriorityMedium, confMoisture))
		}
	}

	return recs, nil
}

// phaseWindow is a fixed day-count window with its recommendation text.
type phaseWindow struct {
	fromDay, toDay int
	category       string
	title          string
	description    string
	priority       farm.Priority
}

var phaseWindows = []phaseWindow{
	{5, 10, CategoryFieldWork, "Emergence check",
		"Walk the field and count emerged plants per row metre; replant gaps now while the window is open.", farm.PriorityMedium},
	{25, 35, CategoryFieldWork, "Critical weed control window",
		"Weeds competing now cost the most yield. Complete mechanical or chemical weed control this week.", farm.PriorityHigh},
	{45, 55, CategoryFieldWork, "Pre-tasseling nutrition",
		"Nutrient demand peaks before tasseling. Verify fertilizer program and apply the planned side dressing.", farm.PriorityHigh},
	{65, 75, CategoryFieldWork, "Pollination support",
		"The crop is pollinating. Keep the field well watered and avoid any operation that disturbs the canopy.", farm.PriorityHigh},
	{90, 110, CategoryFieldWork, "Grain filling care",
		"Grain is filling. Maintain steady soil moisture and monitor for late-season pests.", farm.PriorityMedium},
}

// phaseRules emits at most one fixed-text recommendation per window whose
// day range contains the current planting age.
func (e *Engine) phaseRules(session farm.GrowingSession, days int) []farm.Recommendation {
	var recs []farm.Recommendation
	for _, w := range phaseWindows {
		if days >= w.fromDay && days <= w.toDay {
			recs = append(recs, e.emit(session, w.category, w.title, w.description, w.priority, confPhaseWindow))
		}
	}
	return recs
}

// varietyRules keys on traits of the planted variety.
func (e *Engine) varietyRules(session farm.GrowingSession, days int, agg windowAggregate) []farm.Recommendation {
	t := e.thresholds
	var recs []farm.Recommendation

	if session.Variety.DroughtResistant && agg.HasRain && agg.TotalRainMM < t.DroughtNoteRainMM {
		recs = append(recs, e.emit(session, CategoryVariety,
			"Drought-resistant variety holding",
			fmt.Sprintf("Rainfall is low (%.1f mm) but %s tolerates dry spells. Reduce irrigation frequency rather than volume.", agg.TotalRainMM, session.Variety.Name),
			farm.PriorityLow, confVarietyTrait))
	}

	if session.Variety.MaturityDays > 0 && session.Variety.MaturityDays <= t.ShortMaturityDays && days > t.HarvestPrepDayFloor {
		recs = append(recs, e.emit(session, CategoryHarvest,
			"Prepare for harvest",
			fmt.Sprintf("%s is a short-maturity variety (%d days) and the crop is %d days in. Service harvest equipment and arrange drying or storage.", session.Variety.Name, session.Variety.MaturityDays, days),
			farm.PriorityMedium, confVarietyTrait))
	}

	return recs
}
