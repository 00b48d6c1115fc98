package store

import (
	"sort"
	"sync"
	"time"

	"github.com/agrisense/farm-advisory/internal/farm"
	"github.com/agrisense/farm-advisory/internal/weather"
)

// MemoryStore is a concurrency-safe in-memory Store implementation.
type MemoryStore struct {
	mu sync.RWMutex

	farms    map[string]farm.Farm
	sessions map[string]farm.GrowingSession

	// observations by farm ID, then by "2006-01-02" date key.
	observations map[string]map[string]weather.Observation

	soilSamples     map[string][]farm.SoilSample     // by farm ID
	recommendations map[string][]farm.Recommendation // by session ID
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		farms:           make(map[string]farm.Farm),
		sessions:        make(map[string]farm.GrowingSession),
		observations:    make(map[string]map[string]weather.Observation),
		soilSamples:     make(map[string][]farm.SoilSample),
		recommendations: make(map[string][]farm.Recommendation),
	}
}

func dateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func (s *MemoryStore) UpsertFarm(f farm.Farm) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.farms[f.ID] = f
}

func (s *MemoryStore) GetFarm(id string) (farm.Farm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.farms[id]
	if !ok {
		return farm.Farm{}, ErrNotFound
	}
	return f, nil
}

func (s *MemoryStore) ListFarms() []farm.Farm {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]farm.Farm, 0, len(s.farms))
	for _, f := range s.farms {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryStore) UpsertSession(sess farm.GrowingSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}

func (s *MemoryStore) GetSession(id string) (farm.GrowingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return farm.GrowingSession{}, ErrNotFound
	}
	return sess, nil
}

func (s *MemoryStore) ListActiveSessions(farmID string) []farm.GrowingSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []farm.GrowingSession
	for _, sess := range s.sessions {
		if sess.FarmID == farmID && sess.ActualHarvest == nil {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SaveObservation enforces the uniqueness invariant: a later fetch for an
// existing (farm, date) must not create a duplicate.
func (s *MemoryStore) SaveObservation(obs weather.Observation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	days, ok := s.observations[obs.FarmID]
	if !ok {
		days = make(map[string]weather.Observation)
		s.observations[obs.FarmID] = days
	}

	k := dateKey(obs.Date)
	if _, exists := days[k]; exists {
		return false
	}
	days[k] = obs
	return true
}

func (s *MemoryStore) FindObservation(farmID string, date time.Time) (*weather.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obs, ok := s.observations[farmID][dateKey(date)]
	if !ok {
		return nil, ErrNotFound
	}
	return &obs, nil
}

func (s *MemoryStore) FindRecentObservations(farmID string, since time.Time) ([]weather.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	days, ok := s.observations[farmID]
	if !ok {
		return nil, nil
	}

	cutoff := weather.DayOf(since)
	var out []weather.Observation
	for _, obs := range days {
		if !obs.Date.Before(cutoff) {
			out = append(out, obs)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *MemoryStore) MissingDates(farmID string, from, to time.Time) []time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	days := s.observations[farmID]
	var out []time.Time
	for d := weather.DayOf(from); !d.After(weather.DayOf(to)); d = d.AddDate(0, 0, 1) {
		if _, ok := days[dateKey(d)]; !ok {
			out = append(out, d)
		}
	}
	return out
}

func (s *MemoryStore) SaveSoilSample(sample farm.SoilSample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.soilSamples[sample.FarmID] = append(s.soilSamples[sample.FarmID], sample)
}

func (s *MemoryStore) FindLatestSoilSample(farmID string) (*farm.SoilSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	samples := s.soilSamples[farmID]
	if len(samples) == 0 {
		return nil, ErrNotFound
	}

	latest := samples[0]
	for _, sample := range samples[1:] {
		if sample.SampleDate.After(latest.SampleDate) {
			latest = sample
		}
	}
	return &latest, nil
}

func (s *MemoryStore) SaveRecommendations(recs []farm.Recommendation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		s.recommendations[r.SessionID] = append(s.recommendations[r.SessionID], r)
	}
}

func (s *MemoryStore) ListRecommendations(sessionID string) []farm.Recommendation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := s.recommendations[sessionID]
	out := make([]farm.Recommendation, len(recs))
	copy(out, recs)
	return out
}

func (s *MemoryStore) MarkViewed(sessionID, recID string) error {
	return s.setFlag(sessionID, recID, func(r *farm.Recommendation) { r.Viewed = true })
}

func (s *MemoryStore) MarkImplemented(sessionID, recID string) error {
	return s.setFlag(sessionID, recID, func(r *farm.Recommendation) { r.Implemented = true })
}

// setFlag mutates only the viewed/implemented flags; category, title,
// description, priority, and confidence stay as generated.
func (s *MemoryStore) setFlag(sessionID, recID string, apply func(*farm.Recommendation)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs := s.recommendations[sessionID]
	for i := range recs {
		if recs[i].ID == recID {
			apply(&recs[i])
			return nil
		}
	}
	return ErrNotFound
}
