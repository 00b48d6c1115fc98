package weather

import (
	"go.uber.org/zap"
)

// Bounds holds the plausibility ranges applied to incoming observations.
// Deployments can recalibrate them through configuration.
type Bounds struct {
	TempMinC    float64
	TempMaxC    float64
	RainMinMM   float64
	RainMaxMM   float64
	HumidityMin float64
	HumidityMax float64
	WindMinKPH  float64
	WindMaxKPH  float64
}

// DefaultBounds returns the standard plausibility ranges.
func DefaultBounds() Bounds {
	return Bounds{
		TempMinC:    -60,
		TempMaxC:    60,
		RainMinMM:   0,
		RainMaxMM:   1000,
		HumidityMin: 0,
		HumidityMax: 100,
		WindMinKPH:  0,
		WindMaxKPH:  500,
	}
}

// Validator applies plausibility checks to observations before they are
// stored or fed to the rule engine. Out-of-range values are reported through
// the logger, never raised as errors, so ingestion can continue with
// degraded data.
type Validator struct {
	bounds Bounds
	log    *zap.Logger
}

// NewValidator creates a Validator with the given bounds.
func NewValidator(bounds Bounds, log *zap.Logger) *Validator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Validator{bounds: bounds, log: log.Named("validator")}
}

// Validate reports whether every present field of obs is within its
// plausibility range. Absent fields never fail validation.
func (v *Validator) Validate(obs Observation) bool {
	ok := true
	for _, f := range v.check(&obs) {
		v.log.Warn("observation value out of range",
			zap.String("farm", obs.FarmID),
			zap.Time("date", obs.Date),
			zap.String("source", obs.Source),
			zap.String("field", f.name),
			zap.Float64("value", f.value),
		)
		ok = false
	}
	return ok
}

// Sanitize returns a copy of obs with every out-of-range field replaced by
// absence. Values are never clamped to a boundary: a clamped value would look
// plausible while being wrong.
func (v *Validator) Sanitize(obs Observation) Observation {
	out := obs
	for _, f := range v.check(&out) {
		v.log.Warn("dropping out-of-range observation value",
			zap.String("farm", obs.FarmID),
			zap.Time("date", obs.Date),
			zap.String("source", obs.Source),
			zap.String("field", f.name),
			zap.Float64("value", f.value),
		)
		*f.slot = nil
	}
	return out
}

type violation struct {
	name  string
	value float64
	slot  **float64
}

// check returns one violation per out-of-range present field, with slots
// pointing into the observation the caller owns so Sanitize can null them.
func (v *Validator) check(obs *Observation) []violation {
	fields := []struct {
		name     string
		slot     **float64
		min, max float64
	}{
		{"tempMinC", &obs.TempMinC, v.bounds.TempMinC, v.bounds.TempMaxC},
		{"tempMaxC", &obs.TempMaxC, v.bounds.TempMinC, v.bounds.TempMaxC},
		{"tempAvgC", &obs.TempAvgC, v.bounds.TempMinC, v.bounds.TempMaxC},
		{"rainfallMm", &obs.RainfallMM, v.bounds.RainMinMM, v.bounds.RainMaxMM},
		{"humidityPct", &obs.HumidityPct, v.bounds.HumidityMin, v.bounds.HumidityMax},
		{"windKph", &obs.WindKPH, v.bounds.WindMinKPH, v.bounds.WindMaxKPH},
	}

	var out []violation
	for _, f := range fields {
		val := *f.slot
		if val == nil {
			continue
		}
		if *val < f.min || *val > f.max {
			out = append(out, violation{name: f.name, value: *val, slot: f.slot})
		}
	}
	return out
}
