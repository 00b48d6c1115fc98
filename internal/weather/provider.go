package weather

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnsupported is returned by an adapter that cannot perform the requested
// operation at all (e.g. historical data behind a paid tier). It is never
// retried; the gateway moves straight to the next provider.
var ErrUnsupported = errors.New("operation not supported by provider")

// TransientError marks a failure worth retrying: network errors, timeouts,
// rate limiting, 5xx responses, open circuit breakers.
type TransientError struct {
	Provider string
	Cause    error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("provider %s: transient failure: %v", e.Provider, e.Cause)
}

func (e *TransientError) Unwrap() error { return e.Cause }

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// Adapter abstracts one external weather data source. Every adapter performs
// its own unit conversion and daily bucketing so callers only ever see the
// canonical Observation model.
//
// A nil *Observation with a nil error means the provider answered but had no
// data for the request.
type Adapter interface {
	Name() string
	FetchCurrent(ctx context.Context, loc Location) (*Observation, error)
	FetchForecast(ctx context.Context, loc Location, days int) ([]Observation, error)
	FetchHistorical(ctx context.Context, loc Location, date time.Time) (*Observation, error)
	FetchAlerts(ctx context.Context, loc Location) ([]Alert, error)
}
