package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/agrisense/farm-advisory/internal/advisor"
	"github.com/agrisense/farm-advisory/internal/farm"
	"github.com/agrisense/farm-advisory/internal/weather"
)

// AppConfig is the immutable configuration threaded through every
// constructor. There is no ambient/global configuration state.
type AppConfig struct {
	Port string

	WeatherAPIKey     string
	OpenWeatherAPIKey string

	// ProviderOrder lists adapter names in fallback order; the first entry
	// is the primary.
	ProviderOrder []string

	// HTTPTimeout bounds the shared outbound HTTP client.
	HTTPTimeout time.Duration

	Gateway    weather.GatewayConfig
	Bounds     weather.Bounds
	Thresholds advisor.Thresholds

	AdvisoryEnabled bool
	AdvisoryURL     string
	AdvisoryKey     string
	AdvisoryTimeout time.Duration

	Farms []farm.Farm

	// DailyFetchCron and BackfillCron are standard 5-field cron specs.
	DailyFetchCron       string
	BackfillCron         string
	BackfillLookbackDays int
	BackfillThrottle     time.Duration
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{
		Port:              getenvDefault("PORT", "8080"),
		WeatherAPIKey:     os.Getenv("WEATHERAPI_API_KEY"),
		OpenWeatherAPIKey: os.Getenv("OPENWEATHER_API_KEY"),
		ProviderOrder:     splitList(getenvDefault("PROVIDER_ORDER", "weatherapi,openweathermap,openmeteo")),

		AdvisoryURL: os.Getenv("ADVISORY_URL"),
		AdvisoryKey: os.Getenv("ADVISORY_API_KEY"),

		DailyFetchCron:       getenvDefault("DAILY_FETCH_CRON", "0 6 * * *"),
		BackfillCron:         getenvDefault("BACKFILL_CRON", "30 2 * * *"),
		BackfillLookbackDays: getenvInt("BACKFILL_LOOKBACK_DAYS", 7),
	}

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.BackfillThrottle, err = getenvDuration("BACKFILL_THROTTLE", "100ms"); err != nil {
		return nil, err
	}
	if cfg.AdvisoryTimeout, err = getenvDuration("ADVISORY_TIMEOUT", "15s"); err != nil {
		return nil, err
	}

	cfg.AdvisoryEnabled = cfg.AdvisoryURL != ""
	if v := os.Getenv("ADVISORY_ENABLED"); v != "" {
		cfg.AdvisoryEnabled = v == "true"
	}
	if cfg.AdvisoryEnabled && cfg.AdvisoryURL == "" {
		return nil, fmt.Errorf("ADVISORY_ENABLED is true but ADVISORY_URL is not set")
	}

	if cfg.Gateway, err = loadGateway(); err != nil {
		return nil, err
	}
	cfg.Bounds = loadBounds()
	cfg.Thresholds = loadThresholds()

	if cfg.Farms, err = loadFarms(); err != nil {
		return nil, err
	}
	if len(cfg.ProviderOrder) == 0 {
		return nil, fmt.Errorf("PROVIDER_ORDER must name at least one provider")
	}

	return cfg, nil
}

func loadGateway() (weather.GatewayConfig, error) {
	gw := weather.DefaultGatewayConfig()
	gw.RetryAttempts = getenvInt("RETRY_ATTEMPTS", gw.RetryAttempts)
	gw.RetryMultiplier = getenvFloat("RETRY_MULTIPLIER", gw.RetryMultiplier)

	var err error
	if gw.RetryInitialDelay, err = getenvDuration("RETRY_INITIAL_DELAY", "1s"); err != nil {
		return gw, err
	}
	if gw.CallTimeout, err = getenvDuration("CALL_TIMEOUT", "30s"); err != nil {
		return gw, err
	}

	gw.FallbackEnabled = getenvDefault("FALLBACK_ENABLED", "true") == "true"

	if gw.RetryAttempts < 1 {
		return gw, fmt.Errorf("RETRY_ATTEMPTS must be at least 1")
	}
	return gw, nil
}

func loadBounds() weather.Bounds {
	b := weather.DefaultBounds()
	b.TempMinC = getenvFloat("VALID_TEMP_MIN_C", b.TempMinC)
	b.TempMaxC = getenvFloat("VALID_TEMP_MAX_C", b.TempMaxC)
	b.RainMinMM = getenvFloat("VALID_RAIN_MIN_MM", b.RainMinMM)
	b.RainMaxMM = getenvFloat("VALID_RAIN_MAX_MM", b.RainMaxMM)
	b.HumidityMin = getenvFloat("VALID_HUMIDITY_MIN", b.HumidityMin)
	b.HumidityMax = getenvFloat("VALID_HUMIDITY_MAX", b.HumidityMax)
	b.WindMinKPH = getenvFloat("VALID_WIND_MIN_KPH", b.WindMinKPH)
	b.WindMaxKPH = getenvFloat("VALID_WIND_MAX_KPH", b.WindMaxKPH)
	return b
}

// loadThresholds exposes every agronomic constant as an env tunable so
// deployments can calibrate per region.
func loadThresholds() advisor.Thresholds {
	t := advisor.DefaultThresholds()

	t.HeatStressTempC = getenvFloat("RULE_HEAT_TEMP_C", t.HeatStressTempC)
	t.HeatStressDayMin = getenvInt("RULE_HEAT_DAY_MIN", t.HeatStressDayMin)
	t.HeatStressDayMax = getenvInt("RULE_HEAT_DAY_MAX", t.HeatStressDayMax)
	t.ColdStressTempC = getenvFloat("RULE_COLD_TEMP_C", t.ColdStressTempC)
	t.ColdStressDayMax = getenvInt("RULE_COLD_DAY_MAX", t.ColdStressDayMax)
	t.DroughtRainMM = getenvFloat("RULE_DROUGHT_RAIN_MM", t.DroughtRainMM)
	t.DroughtDayMin = getenvInt("RULE_DROUGHT_DAY_MIN", t.DroughtDayMin)
	t.DroughtDayMax = getenvInt("RULE_DROUGHT_DAY_MAX", t.DroughtDayMax)
	t.WaterloggingMM = getenvFloat("RULE_WATERLOG_RAIN_MM", t.WaterloggingMM)
	t.DiseaseHumidity = getenvFloat("RULE_DISEASE_HUMIDITY", t.DiseaseHumidity)
	t.DiseaseTempC = getenvFloat("RULE_DISEASE_TEMP_C", t.DiseaseTempC)
	t.WindDamageKPH = getenvFloat("RULE_WIND_KPH", t.WindDamageKPH)

	t.NitrogenCriticalPct = getenvFloat("RULE_N_CRITICAL_PCT", t.NitrogenCriticalPct)
	t.NitrogenLowPct = getenvFloat("RULE_N_LOW_PCT", t.NitrogenLowPct)
	t.NitrogenExpectedMax = getenvFloat("RULE_N_EXPECTED_MAX_PCT", t.NitrogenExpectedMax)
	t.PHAcidic = getenvFloat("RULE_PH_ACIDIC", t.PHAcidic)
	t.PHAlkaline = getenvFloat("RULE_PH_ALKALINE", t.PHAlkaline)
	t.PHExpectedMin = getenvFloat("RULE_PH_EXPECTED_MIN", t.PHExpectedMin)
	t.PHExpectedMax = getenvFloat("RULE_PH_EXPECTED_MAX", t.PHExpectedMax)
	t.MoistureLowPct = getenvFloat("RULE_MOISTURE_LOW_PCT", t.MoistureLowPct)
	t.MoistureLowDayMin = getenvInt("RULE_MOISTURE_DAY_MIN", t.MoistureLowDayMin)
	t.MoistureLowDayMax = getenvInt("RULE_MOISTURE_DAY_MAX", t.MoistureLowDayMax)
	t.MoistureHighPct = getenvFloat("RULE_MOISTURE_HIGH_PCT", t.MoistureHighPct)

	t.DroughtNoteRainMM = getenvFloat("RULE_DROUGHT_NOTE_RAIN_MM", t.DroughtNoteRainMM)
	t.ShortMaturityDays = getenvInt("RULE_SHORT_MATURITY_DAYS", t.ShortMaturityDays)
	t.HarvestPrepDayFloor = getenvInt("RULE_HARVEST_PREP_DAY_FLOOR", t.HarvestPrepDayFloor)

	return t
}

// loadFarms parses parallel comma lists, one entry per farm.
func loadFarms() ([]farm.Farm, error) {
	ids := splitList(os.Getenv("FARM_IDS"))
	names := splitList(os.Getenv("FARM_NAMES"))
	cities := splitList(os.Getenv("FARM_CITIES"))
	countries := splitList(os.Getenv("FARM_COUNTRIES"))
	lats := splitList(os.Getenv("FARM_LATS"))
	lons := splitList(os.Getenv("FARM_LONS"))

	if len(ids) == 0 {
		return nil, nil
	}
	if len(names) != len(ids) || len(cities) != len(ids) || len(countries) != len(ids) {
		return nil, fmt.Errorf("FARM_IDS, FARM_NAMES, FARM_CITIES, FARM_COUNTRIES must have the same length")
	}
	if len(lats) != 0 && (len(lats) != len(ids) || len(lons) != len(ids)) {
		return nil, fmt.Errorf("FARM_LATS and FARM_LONS must match FARM_IDS when provided")
	}

	farms := make([]farm.Farm, 0, len(ids))
	for i := range ids {
		f := farm.Farm{
			ID:   ids[i],
			Name: names[i],
			Location: weather.Location{
				City:    cities[i],
				Country: countries[i],
			},
		}
		if len(lats) > 0 {
			lat, err := strconv.ParseFloat(lats[i], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid FARM_LATS entry %q: %w", lats[i], err)
			}
			lon, err := strconv.ParseFloat(lons[i], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid FARM_LONS entry %q: %w", lons[i], err)
			}
			f.Location.Lat = &lat
			f.Location.Lon = &lon
		}
		farms = append(farms, f)
	}
	return farms, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
