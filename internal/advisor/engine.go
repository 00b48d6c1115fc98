// Package advisor turns observations, soil samples, and elapsed growth time
// into prioritized agronomic recommendations.
package advisor

import (
	"context"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/agrisense/farm-advisory/internal/farm"
	"github.com/agrisense/farm-advisory/internal/weather"
)

// Engine evaluates the local rule families and optionally delegates to a
// remote advisory service. It is stateless across calls and deterministic
// for identical inputs when the advisory path is disabled.
type Engine struct {
	thresholds Thresholds
	advisory   AdvisoryClient // nil when the advisory path is disabled
	clock      clockwork.Clock
	log        *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithAdvisory enables the remote advisory path.
func WithAdvisory(client AdvisoryClient) Option {
	return func(e *Engine) { e.advisory = client }
}

// WithClock replaces the engine's clock, mainly for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// NewEngine creates an Engine with the given threshold calibration.
func NewEngine(thresholds Thresholds, log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		thresholds: thresholds,
		clock:      clockwork.NewRealClock(),
		log:        log.Named("advisor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Generate produces the recommendation list for one session. When a remote
// advisory client is configured it is tried first, once; any failure falls
// back unconditionally to the local rule families. The results are
// remote-or-local, never merged.
//
// The only error Generate returns is a DataIntegrityError from the soil
// rules: a reading no configured band covers signals a calibration gap the
// caller must decide how to handle. Everything else is absorbed.
func (e *Engine) Generate(
	ctx context.Context,
	f farm.Farm,
	session farm.GrowingSession,
	observations []weather.Observation,
	latestSoil *farm.SoilSample,
) ([]farm.Recommendation, error) {
	days := session.DaysSincePlanting(e.clock.Now())
	agg := aggregateWindow(observations)

	if e.advisory != nil {
		req := AdvisoryRequest{
			SessionID:         session.ID,
			FarmID:            session.FarmID,
			GeneratedAt:       e.clock.Now().UTC(),
			Location:          f.Location,
			PlantingDate:      session.PlantingDate,
			DaysSincePlanting: days,
			GrowthPhase:       farm.Phase(days, session.Variety.MaturityDays),
			Variety:           session.Variety,
			Soil:              latestSoil,
			Window:            agg,
			Observations:      observations,
		}
		recs, err := e.advisory.Propose(ctx, req)
		if err == nil {
			e.log.Info("advisory service produced recommendations",
				zap.String("session", session.ID),
				zap.Int("count", len(recs)),
			)
			return recs, nil
		}
		e.log.Warn("advisory service failed, falling back to local rules",
			zap.String("session", session.ID),
			zap.Error(err),
		)
	}

	return e.generateLocal(session, days, agg, latestSoil)
}

// generateLocal runs the rule families in a fixed order; output is grouped
// by family, with no further sorting.
func (e *Engine) generateLocal(
	session farm.GrowingSession,
	days int,
	agg windowAggregate,
	latestSoil *farm.SoilSample,
) ([]farm.Recommendation, error) {
	var recs []farm.Recommendation

	recs = append(recs, e.weatherRules(session, days, agg)...)

	soilRecs, err := e.soilRules(session, days, latestSoil)
	if err != nil {
		return nil, err
	}
	recs = append(recs, soilRecs...)

	recs = append(recs, e.phaseRules(session, days)...)
	recs = append(recs, e.varietyRules(session, days, agg)...)

	e.log.Info("local rules evaluated",
		zap.String("session", session.ID),
		zap.Int("daysSincePlanting", days),
		zap.Int("count", len(recs)),
	)
	return recs, nil
}
