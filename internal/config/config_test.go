package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"weatherapi", "openweathermap", "openmeteo"}, cfg.ProviderOrder)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.BackfillThrottle)
	assert.Equal(t, 7, cfg.BackfillLookbackDays)
	assert.False(t, cfg.AdvisoryEnabled)
	assert.Empty(t, cfg.Farms)

	assert.True(t, cfg.Gateway.FallbackEnabled)
	assert.Equal(t, 3, cfg.Gateway.RetryAttempts)
	assert.Equal(t, 1*time.Second, cfg.Gateway.RetryInitialDelay)
	assert.Equal(t, 2.0, cfg.Gateway.RetryMultiplier)
	assert.Equal(t, 30*time.Second, cfg.Gateway.CallTimeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("PROVIDER_ORDER", "openmeteo, weatherapi")
	t.Setenv("RETRY_ATTEMPTS", "5")
	t.Setenv("RETRY_INITIAL_DELAY", "250ms")
	t.Setenv("FALLBACK_ENABLED", "false")
	t.Setenv("RULE_HEAT_TEMP_C", "32.5")
	t.Setenv("VALID_TEMP_MAX_C", "55")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, []string{"openmeteo", "weatherapi"}, cfg.ProviderOrder, "entries are trimmed")
	assert.Equal(t, 5, cfg.Gateway.RetryAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Gateway.RetryInitialDelay)
	assert.False(t, cfg.Gateway.FallbackEnabled)
	assert.Equal(t, 32.5, cfg.Thresholds.HeatStressTempC)
	assert.Equal(t, 55.0, cfg.Bounds.TempMaxC)
}

// TestEveryThresholdIsTunable: each agronomic constant and plausibility bound
// must be overridable from the environment.
func TestEveryThresholdIsTunable(t *testing.T) {
	t.Setenv("RULE_PH_EXPECTED_MIN", "2")
	t.Setenv("RULE_PH_EXPECTED_MAX", "11")
	t.Setenv("RULE_MOISTURE_DAY_MIN", "35")
	t.Setenv("RULE_MOISTURE_DAY_MAX", "90")
	t.Setenv("RULE_DROUGHT_NOTE_RAIN_MM", "12")
	t.Setenv("RULE_SHORT_MATURITY_DAYS", "95")
	t.Setenv("RULE_HARVEST_PREP_DAY_FLOOR", "65")
	t.Setenv("VALID_RAIN_MIN_MM", "-0.5")
	t.Setenv("VALID_HUMIDITY_MIN", "1")
	t.Setenv("VALID_HUMIDITY_MAX", "99")
	t.Setenv("VALID_WIND_MIN_KPH", "0.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2.0, cfg.Thresholds.PHExpectedMin)
	assert.Equal(t, 11.0, cfg.Thresholds.PHExpectedMax)
	assert.Equal(t, 35, cfg.Thresholds.MoistureLowDayMin)
	assert.Equal(t, 90, cfg.Thresholds.MoistureLowDayMax)
	assert.Equal(t, 12.0, cfg.Thresholds.DroughtNoteRainMM)
	assert.Equal(t, 95, cfg.Thresholds.ShortMaturityDays)
	assert.Equal(t, 65, cfg.Thresholds.HarvestPrepDayFloor)
	assert.Equal(t, -0.5, cfg.Bounds.RainMinMM)
	assert.Equal(t, 1.0, cfg.Bounds.HumidityMin)
	assert.Equal(t, 99.0, cfg.Bounds.HumidityMax)
	assert.Equal(t, 0.5, cfg.Bounds.WindMinKPH)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	t.Setenv("RETRY_INITIAL_DELAY", "soon")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsZeroRetryAttempts(t *testing.T) {
	t.Setenv("RETRY_ATTEMPTS", "0")
	_, err := Load()
	assert.Error(t, err)
}

func TestAdvisoryToggle(t *testing.T) {
	t.Setenv("ADVISORY_URL", "https://advisory.example.com")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.AdvisoryEnabled, "a URL alone enables the advisory path")

	t.Setenv("ADVISORY_ENABLED", "false")
	cfg, err = Load()
	require.NoError(t, err)
	assert.False(t, cfg.AdvisoryEnabled, "the explicit flag wins")
}

func TestAdvisoryEnabledRequiresURL(t *testing.T) {
	t.Setenv("ADVISORY_ENABLED", "true")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadFarms(t *testing.T) {
	t.Setenv("FARM_IDS", "farm-1,farm-2")
	t.Setenv("FARM_NAMES", "North Field,South Field")
	t.Setenv("FARM_CITIES", "Eldoret,Kitale")
	t.Setenv("FARM_COUNTRIES", "KE,KE")
	t.Setenv("FARM_LATS", "0.52,1.02")
	t.Setenv("FARM_LONS", "35.27,35.00")

	cfg, err := Load()
	require.NoError(t, err)
	require.Len(t, cfg.Farms, 2)

	f := cfg.Farms[0]
	assert.Equal(t, "farm-1", f.ID)
	assert.Equal(t, "Eldoret", f.Location.City)
	require.NotNil(t, f.Location.Lat)
	assert.Equal(t, 0.52, *f.Location.Lat)
}

func TestLoadFarmsCoordinatesOptional(t *testing.T) {
	t.Setenv("FARM_IDS", "farm-1")
	t.Setenv("FARM_NAMES", "North Field")
	t.Setenv("FARM_CITIES", "Eldoret")
	t.Setenv("FARM_COUNTRIES", "KE")

	cfg, err := Load()
	require.NoError(t, err)
	require.Len(t, cfg.Farms, 1)
	assert.Nil(t, cfg.Farms[0].Location.Lat)
}

func TestLoadFarmsRejectsMismatchedLists(t *testing.T) {
	t.Setenv("FARM_IDS", "farm-1,farm-2")
	t.Setenv("FARM_NAMES", "North Field")
	t.Setenv("FARM_CITIES", "Eldoret,Kitale")
	t.Setenv("FARM_COUNTRIES", "KE,KE")

	_, err := Load()
	assert.Error(t, err)
}
