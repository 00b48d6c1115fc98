package store

import (
	"errors"
	"time"

	"github.com/agrisense/farm-advisory/internal/farm"
	"github.com/agrisense/farm-advisory/internal/weather"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the persistence collaborator boundary. The at-most-one
// observation per (farm, date) invariant is enforced here, not in the
// acquisition gateway, which is a pure fetch service.
type Store interface {
	UpsertFarm(f farm.Farm)
	GetFarm(id string) (farm.Farm, error)
	ListFarms() []farm.Farm

	UpsertSession(s farm.GrowingSession)
	GetSession(id string) (farm.GrowingSession, error)
	// ListActiveSessions returns sessions without an actual harvest date.
	ListActiveSessions(farmID string) []farm.GrowingSession

	// SaveObservation stores obs unless an observation already exists for
	// (obs.FarmID, obs.Date); the duplicate save is a no-op and returns
	// false.
	SaveObservation(obs weather.Observation) bool
	FindObservation(farmID string, date time.Time) (*weather.Observation, error)
	// FindRecentObservations returns observations dated since or later,
	// ordered by date ascending.
	FindRecentObservations(farmID string, since time.Time) ([]weather.Observation, error)
	// MissingDates lists calendar days in [from, to] with no stored
	// observation for the farm.
	MissingDates(farmID string, from, to time.Time) []time.Time

	SaveSoilSample(s farm.SoilSample)
	// FindLatestSoilSample returns the sample with the greatest SampleDate.
	FindLatestSoilSample(farmID string) (*farm.SoilSample, error)

	SaveRecommendations(recs []farm.Recommendation)
	ListRecommendations(sessionID string) []farm.Recommendation
	// MarkViewed and MarkImplemented flip their flag only; generation-time
	// fields are never altered.
	MarkViewed(sessionID, recID string) error
	MarkImplemented(sessionID, recID string) error
}
