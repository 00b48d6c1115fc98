package weather

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// GatewayConfig controls the gateway's retry and fallback behaviour.
type GatewayConfig struct {
	// FallbackEnabled allows trying secondary providers after the primary
	// is exhausted.
	FallbackEnabled bool

	// RetryAttempts is the total number of attempts against the primary
	// provider for transient failures.
	RetryAttempts int

	// RetryInitialDelay is the sleep before the second attempt; each
	// further delay is multiplied by RetryMultiplier.
	RetryInitialDelay time.Duration
	RetryMultiplier   float64

	// CallTimeout bounds every single provider call.
	CallTimeout time.Duration
}

// DefaultGatewayConfig returns the standard retry policy: 3 attempts with
// 1s/2s/4s backoff, 30s per call, fallback on.
func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		FallbackEnabled:   true,
		RetryAttempts:     3,
		RetryInitialDelay: 1 * time.Second,
		RetryMultiplier:   2.0,
		CallTimeout:       30 * time.Second,
	}
}

// Gateway delivers the freshest available observation for a farm despite
// provider flakiness. It is a pure fetch service: it holds no farm state
// between calls and performs no deduplication.
//
// The first adapter in the list is the primary; the rest form the ordered
// fallback chain, each tried exactly once.
type Gateway struct {
	adapters  []Adapter
	cfg       GatewayConfig
	validator *Validator
	clock     clockwork.Clock
	log       *zap.Logger
}

// NewGateway creates a Gateway over an ordered adapter list.
func NewGateway(adapters []Adapter, cfg GatewayConfig, validator *Validator, clock clockwork.Clock, log *zap.Logger) *Gateway {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if validator == nil {
		validator = NewValidator(DefaultBounds(), log)
	}
	return &Gateway{
		adapters:  adapters,
		cfg:       cfg,
		validator: validator,
		clock:     clock,
		log:       log.Named("gateway"),
	}
}

// FetchCurrentWeather returns today's observation for the farm, or (nil, nil)
// when no provider could deliver data. Callers never see transport errors.
func (g *Gateway) FetchCurrentWeather(ctx context.Context, farmID string, loc Location) (*Observation, error) {
	return g.fetchOne(ctx, "current", farmID, func(ctx context.Context, a Adapter) (*Observation, error) {
		return a.FetchCurrent(ctx, loc)
	})
}

// FetchHistorical returns the observation for one past calendar day, or
// (nil, nil) when no provider could deliver it.
func (g *Gateway) FetchHistorical(ctx context.Context, farmID string, loc Location, date time.Time) (*Observation, error) {
	return g.fetchOne(ctx, "historical", farmID, func(ctx context.Context, a Adapter) (*Observation, error) {
		return a.FetchHistorical(ctx, loc, date)
	})
}

// FetchForecast returns up to days daily observations, or (nil, nil) when no
// provider could deliver any.
func (g *Gateway) FetchForecast(ctx context.Context, farmID string, loc Location, days int) ([]Observation, error) {
	var result []Observation
	_, err := g.fetchOne(ctx, "forecast", farmID, func(ctx context.Context, a Adapter) (*Observation, error) {
		obs, err := a.FetchForecast(ctx, loc, days)
		if err != nil {
			return nil, err
		}
		if len(obs) == 0 {
			return nil, nil
		}
		result = make([]Observation, 0, len(obs))
		for _, o := range obs {
			o.FarmID = farmID
			result = append(result, g.validator.Sanitize(o))
		}
		// Non-nil marker so fetchOne treats this provider as successful.
		return &result[0], nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// FetchWeatherAlerts returns active alerts for the farm. Alerts are strictly
// best-effort: any failure, including every provider being down, yields an
// empty list and never an error.
func (g *Gateway) FetchWeatherAlerts(ctx context.Context, farmID string, loc Location) []Alert {
	for _, a := range g.adapters {
		start := g.clock.Now()
		callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
		alerts, err := a.FetchAlerts(callCtx, loc)
		cancel()

		elapsed := g.clock.Since(start)
		if err != nil {
			g.log.Debug("alerts fetch failed",
				zap.String("farm", farmID),
				zap.String("provider", a.Name()),
				zap.Duration("elapsed", elapsed),
				zap.Error(err),
			)
			continue
		}

		g.log.Info("alerts fetched",
			zap.String("farm", farmID),
			zap.String("provider", a.Name()),
			zap.Int("count", len(alerts)),
			zap.Duration("elapsed", elapsed),
		)
		if alerts == nil {
			alerts = []Alert{}
		}
		return alerts
	}
	return []Alert{}
}

// attemptFailure records why one provider attempt did not produce data, kept
// for the exhaustion log even though callers only see success or absence.
type attemptFailure struct {
	provider string
	attempt  int
	err      error
}

// fetchOne runs the primary-with-retry then ordered-fallback state machine
// shared by the single-observation operations.
func (g *Gateway) fetchOne(
	ctx context.Context,
	op string,
	farmID string,
	call func(ctx context.Context, a Adapter) (*Observation, error),
) (*Observation, error) {
	if len(g.adapters) == 0 {
		return nil, fmt.Errorf("no weather providers configured")
	}

	var failures []attemptFailure

	// Primary: up to RetryAttempts total attempts, retrying only transient
	// failures with exponential backoff. A degraded result is accepted here:
	// implausible fields are dropped and the rest continues downstream.
	primary := g.adapters[0]
	for attempt := 1; attempt <= g.cfg.RetryAttempts; attempt++ {
		obs, err := g.attempt(ctx, op, farmID, primary, attempt, call)
		if err == nil {
			if obs != nil {
				sanitized := g.validator.Sanitize(*obs)
				return &sanitized, nil
			}
			// The provider answered with no data; retrying will not
			// change the answer.
			failures = append(failures, attemptFailure{primary.Name(), attempt, errors.New("no data")})
			break
		}

		failures = append(failures, attemptFailure{primary.Name(), attempt, err})
		if !IsTransient(err) {
			break
		}
		if attempt == g.cfg.RetryAttempts {
			break
		}

		delay := g.backoffDelay(attempt)
		select {
		case <-ctx.Done():
			failures = append(failures, attemptFailure{primary.Name(), attempt + 1, ctx.Err()})
		case <-g.clock.After(delay):
		}
		if ctx.Err() != nil {
			break
		}
	}

	// Fallback chain: one attempt per provider, first validator-passing
	// result wins. A fallback answer that fails validation is treated like a
	// failed provider so a healthy provider further down still gets its turn.
	if g.cfg.FallbackEnabled && ctx.Err() == nil {
		for _, a := range g.adapters[1:] {
			obs, err := g.attempt(ctx, op, farmID, a, 1, call)
			if err != nil {
				failures = append(failures, attemptFailure{a.Name(), 1, err})
				continue
			}
			if obs == nil {
				failures = append(failures, attemptFailure{a.Name(), 1, errors.New("no data")})
				continue
			}
			if !g.validator.Validate(*obs) {
				failures = append(failures, attemptFailure{a.Name(), 1, errors.New("result failed validation")})
				continue
			}
			return obs, nil
		}
	}

	fields := []zap.Field{
		zap.String("farm", farmID),
		zap.String("op", op),
	}
	for _, f := range failures {
		fields = append(fields, zap.String(
			fmt.Sprintf("%s_attempt_%d", f.provider, f.attempt),
			f.err.Error(),
		))
	}
	g.log.Warn("all providers exhausted, returning no data", fields...)

	// Absence, not an error: a farm with no fetched weather for a day simply
	// accumulates no observation.
	return nil, nil
}

// attempt performs one bounded provider call and logs the outcome with
// provider identity and elapsed time. The result is raw: the caller decides
// whether to sanitize (primary path) or reject (fallback path).
func (g *Gateway) attempt(
	ctx context.Context,
	op string,
	farmID string,
	a Adapter,
	attemptNo int,
	call func(ctx context.Context, a Adapter) (*Observation, error),
) (*Observation, error) {
	start := g.clock.Now()
	callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
	obs, err := call(callCtx, a)
	cancel()
	elapsed := g.clock.Since(start)

	if err != nil {
		// A timeout behaves like any other transient failure.
		if errors.Is(err, context.DeadlineExceeded) && !IsTransient(err) {
			err = &TransientError{Provider: a.Name(), Cause: err}
		}
		g.log.Warn("provider fetch failed",
			zap.String("farm", farmID),
			zap.String("op", op),
			zap.String("provider", a.Name()),
			zap.Int("attempt", attemptNo),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return nil, err
	}

	g.log.Info("provider fetch completed",
		zap.String("farm", farmID),
		zap.String("op", op),
		zap.String("provider", a.Name()),
		zap.Int("attempt", attemptNo),
		zap.Bool("hasData", obs != nil),
		zap.Duration("elapsed", elapsed),
	)

	if obs == nil {
		return nil, nil
	}
	obs.FarmID = farmID
	return obs, nil
}

func (g *Gateway) backoffDelay(attempt int) time.Duration {
	delay := g.cfg.RetryInitialDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * g.cfg.RetryMultiplier)
	}
	return delay
}
