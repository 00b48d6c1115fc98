package weather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testObservation() Observation {
	return Observation{
		FarmID: "farm-1",
		Date:   time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC),
		Source: "weatherapi",
	}
}

func TestValidateBounds(t *testing.T) {
	v := NewValidator(DefaultBounds(), zap.NewNop())

	tests := []struct {
		name  string
		build func(o *Observation)
		want  bool
	}{
		{"empty observation passes", func(o *Observation) {}, true},
		{"temp in range", func(o *Observation) { o.TempAvgC = Float(25) }, true},
		{"temp at lower boundary", func(o *Observation) { o.TempMinC = Float(-60) }, true},
		{"temp below range", func(o *Observation) { o.TempMinC = Float(-60.1) }, false},
		{"temp above range", func(o *Observation) { o.TempMaxC = Float(61) }, false},
		{"rain in range", func(o *Observation) { o.RainfallMM = Float(999) }, true},
		{"negative rain", func(o *Observation) { o.RainfallMM = Float(-1) }, false},
		{"rain above range", func(o *Observation) { o.RainfallMM = Float(1001) }, false},
		{"humidity above range", func(o *Observation) { o.HumidityPct = Float(101) }, false},
		{"wind above range", func(o *Observation) { o.WindKPH = Float(501) }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := testObservation()
			tt.build(&obs)
			assert.Equal(t, tt.want, v.Validate(obs))
		})
	}
}

func TestSanitizeNullsNeverClamps(t *testing.T) {
	v := NewValidator(DefaultBounds(), zap.NewNop())

	obs := testObservation()
	obs.TempAvgC = Float(72)       // implausible
	obs.TempMinC = Float(18)       // fine
	obs.RainfallMM = Float(-3)     // implausible
	obs.HumidityPct = Float(55)    // fine
	obs.WindKPH = Float(9000)      // implausible

	got := v.Sanitize(obs)

	assert.Nil(t, got.TempAvgC, "out-of-range value must become absent, not clamped")
	assert.Nil(t, got.RainfallMM)
	assert.Nil(t, got.WindKPH)

	require.NotNil(t, got.TempMinC)
	assert.Equal(t, 18.0, *got.TempMinC)
	require.NotNil(t, got.HumidityPct)
	assert.Equal(t, 55.0, *got.HumidityPct)

	// The input observation is untouched.
	require.NotNil(t, obs.TempAvgC)
	assert.Equal(t, 72.0, *obs.TempAvgC)
}

func TestSanitizePreservesIdentityFields(t *testing.T) {
	v := NewValidator(DefaultBounds(), zap.NewNop())

	obs := testObservation()
	obs.TempAvgC = Float(100)
	got := v.Sanitize(obs)

	assert.Equal(t, obs.FarmID, got.FarmID)
	assert.Equal(t, obs.Date, got.Date)
	assert.Equal(t, obs.Source, got.Source)
}
