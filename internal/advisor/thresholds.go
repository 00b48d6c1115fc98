package advisor

// Thresholds carries every agronomic constant the rule engine evaluates
// against. The struct is immutable once constructed and threaded through the
// engine explicitly so deployments can calibrate per region without code
// changes.
type Thresholds struct {
	// Weather rules.
	HeatStressTempC   float64 // mean temp above this is heat stress
	HeatStressDayMin  int     // ...when planting age is inside this window
	HeatStressDayMax  int
	ColdStressTempC   float64 // mean temp below this is cold stress
	ColdStressDayMax  int     // ...for young crops only
	DroughtRainMM     float64 // window rainfall below this is drought
	DroughtDayMin     int
	DroughtDayMax     int
	WaterloggingMM    float64 // window rainfall above this is waterlogging
	DiseaseHumidity   float64 // humidity above this...
	DiseaseTempC      float64 // ...with mean temp above this is disease risk
	WindDamageKPH     float64 // max wind above this risks lodging

	// Soil rules. Each field also carries the expected ceiling of its
	// classification bands; a reading beyond it is a data-integrity
	// condition, not a silently ignored value.
	NitrogenCriticalPct float64
	NitrogenLowPct      float64
	NitrogenExpectedMax float64
	PHAcidic            float64
	PHAlkaline          float64
	PHExpectedMin       float64
	PHExpectedMax       float64
	MoistureLowPct      float64
	MoistureLowDayMin   int
	MoistureLowDayMax   int
	MoistureHighPct     float64

	// Variety-trait rules.
	DroughtNoteRainMM   float64 // low-rainfall threshold for drought-resistant note
	ShortMaturityDays   int     // varieties at or under this count as short-maturity
	HarvestPrepDayFloor int     // planting age that triggers harvest preparation
}

// DefaultThresholds returns the reference calibration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HeatStressTempC:  35,
		HeatStressDayMin: 30,
		HeatStressDayMax: 80,
		ColdStressTempC:  15,
		ColdStressDayMax: 30,
		DroughtRainMM:    10,
		DroughtDayMin:    40,
		DroughtDayMax:    100,
		WaterloggingMM:   100,
		DiseaseHumidity:  80,
		DiseaseTempC:     25,
		WindDamageKPH:    50,

		NitrogenCriticalPct: 1.0,
		NitrogenLowPct:      1.5,
		NitrogenExpectedMax: 3.0,
		PHAcidic:            5.5,
		PHAlkaline:          8.0,
		PHExpectedMin:       3.0,
		PHExpectedMax:       10.0,
		MoistureLowPct:      20,
		MoistureLowDayMin:   40,
		MoistureLowDayMax:   80,
		MoistureHighPct:     80,

		DroughtNoteRainMM:   10,
		ShortMaturityDays:   100,
		HarvestPrepDayFloor: 70,
	}
}
