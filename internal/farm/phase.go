package farm

// GrowthPhase is the phenological stage of a crop. It is never persisted:
// it is recomputed from elapsed planting days on every query.
type GrowthPhase string

const (
	PhaseGermination     GrowthPhase = "GERMINATION"
	PhaseVegetativeEarly GrowthPhase = "VEGETATIVE_EARLY"
	PhaseVegetativeLate  GrowthPhase = "VEGETATIVE_LATE"
	PhaseTasseling       GrowthPhase = "TASSELING"
	PhaseGrainFilling    GrowthPhase = "GRAIN_FILLING"
	PhaseMaturity        GrowthPhase = "MATURITY"
	PhasePostHarvest     GrowthPhase = "POST_HARVEST"
)

// Phase maps elapsed days since planting and the variety's maturity length to
// a growth phase. Boundaries are checked in order; a tie at a boundary value
// belongs to the earlier phase.
func Phase(daysSincePlanting, maturityDays int) GrowthPhase {
	d := float64(daysSincePlanting)
	m := float64(maturityDays)

	switch {
	case d <= 14:
		return PhaseGermination
	case d <= 30:
		return PhaseVegetativeEarly
	case d <= 0.4*m:
		return PhaseVegetativeLate
	case d <= 0.6*m:
		return PhaseTasseling
	case d <= 0.8*m:
		return PhaseGrainFilling
	case d <= m:
		return PhaseMaturity
	default:
		return PhasePostHarvest
	}
}
