package farm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPhaseBoundaries(t *testing.T) {
	const m = 120

	tests := []struct {
		days int
		want GrowthPhase
	}{
		{0, PhaseGermination},
		{14, PhaseGermination},
		{15, PhaseVegetativeEarly},
		{30, PhaseVegetativeEarly},
		{31, PhaseVegetativeLate},
		{48, PhaseVegetativeLate}, // 0.4*120
		{49, PhaseTasseling},
		{72, PhaseTasseling}, // 0.6*120
		{73, PhaseGrainFilling},
		{96, PhaseGrainFilling}, // 0.8*120
		{97, PhaseMaturity},
		{120, PhaseMaturity},
		{121, PhasePostHarvest},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Phase(tt.days, m), "days=%d", tt.days)
	}
}

// TestPhaseMonotonic verifies the phase never moves backwards as days grow.
func TestPhaseMonotonic(t *testing.T) {
	order := map[GrowthPhase]int{
		PhaseGermination:     0,
		PhaseVegetativeEarly: 1,
		PhaseVegetativeLate:  2,
		PhaseTasseling:       3,
		PhaseGrainFilling:    4,
		PhaseMaturity:        5,
		PhasePostHarvest:     6,
	}

	for _, m := range []int{90, 100, 120, 150} {
		prev := -1
		for d := 0; d <= m+10; d++ {
			rank, ok := order[Phase(d, m)]
			if !ok {
				t.Fatalf("unknown phase for d=%d m=%d", d, m)
			}
			if rank < prev {
				t.Fatalf("phase regressed at d=%d m=%d", d, m)
			}
			prev = rank
		}
	}
}

func TestDaysSincePlantingClampsFuture(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	s := GrowingSession{PlantingDate: now.AddDate(0, 0, 5)}
	assert.Equal(t, 0, s.DaysSincePlanting(now))

	s.PlantingDate = now.AddDate(0, 0, -40)
	assert.Equal(t, 40, s.DaysSincePlanting(now))
}
