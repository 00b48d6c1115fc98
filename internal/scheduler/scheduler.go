// Package scheduler wires the time-based triggers: the daily weather fetch
// and the historical backfill.
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/agrisense/farm-advisory/internal/advisor"
	"github.com/agrisense/farm-advisory/internal/farm"
	"github.com/agrisense/farm-advisory/internal/store"
	"github.com/agrisense/farm-advisory/internal/weather"
)

// Config holds the scheduler's trigger and backfill settings.
type Config struct {
	DailyFetchCron string
	BackfillCron   string
	LookbackDays   int
	// Throttle is the pause between successive provider calls during
	// backfill, a deliberate concession to provider rate limits.
	Throttle time.Duration
	// RecentWindowDays is the observation window handed to the rule engine.
	RecentWindowDays int
}

// Scheduler runs the periodic fetch-and-recommend jobs. Farms are processed
// strictly sequentially and each farm is an independent unit of work: one
// farm's failure never aborts the rest of the batch.
type Scheduler struct {
	scheduler *gocron.Scheduler
	cfg       Config
	store     store.Store
	gateway   *weather.Gateway
	engine    *advisor.Engine
	clock     clockwork.Clock
	log       *zap.Logger
}

// New creates a Scheduler.
func New(cfg Config, st store.Store, gw *weather.Gateway, engine *advisor.Engine, clock clockwork.Clock, log *zap.Logger) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.RecentWindowDays <= 0 {
		cfg.RecentWindowDays = 7
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		cfg:       cfg,
		store:     st,
		gateway:   gw,
		engine:    engine,
		clock:     clock,
		log:       log.Named("scheduler"),
	}
}

// Start registers the cron jobs and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Cron(s.cfg.DailyFetchCron).Do(s.FetchDailyWeatherData); err != nil {
		return err
	}
	if _, err := s.scheduler.Cron(s.cfg.BackfillCron).Do(s.FetchMissingHistoricalData); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// FetchDailyWeatherData fetches today's weather for every farm, stores it,
// and regenerates recommendations for the farm's active sessions.
func (s *Scheduler) FetchDailyWeatherData() {
	s.log.Info("daily weather fetch starting")

	for _, f := range s.store.ListFarms() {
		s.fetchFarm(f.ID)
	}

	s.log.Info("daily weather fetch completed")
}

// fetchFarm is one isolated unit of work.
func (s *Scheduler) fetchFarm(farmID string) {
	f, err := s.store.GetFarm(farmID)
	if err != nil {
		s.log.Warn("farm disappeared mid-batch", zap.String("farm", farmID))
		return
	}

	ctx := context.Background()
	obs, err := s.gateway.FetchCurrentWeather(ctx, f.ID, f.Location)
	if err != nil {
		s.log.Error("weather fetch failed", zap.String("farm", f.ID), zap.Error(err))
		return
	}
	if obs == nil {
		// No provider had data today; the farm simply accumulates no
		// observation.
		s.log.Info("no weather data available", zap.String("farm", f.ID))
		return
	}

	if !s.store.SaveObservation(*obs) {
		s.log.Debug("observation already stored for date",
			zap.String("farm", f.ID),
			zap.Time("date", obs.Date),
		)
	}

	s.recommendFarm(ctx, f.ID)
}

// recommendFarm regenerates recommendations for each active session. A
// DataIntegrityError marks a calibration gap: the session is logged and
// skipped so one misconfigured band cannot starve other sessions.
func (s *Scheduler) recommendFarm(ctx context.Context, farmID string) {
	f, err := s.store.GetFarm(farmID)
	if err != nil {
		return
	}

	since := s.clock.Now().AddDate(0, 0, -s.cfg.RecentWindowDays)
	recent, err := s.store.FindRecentObservations(farmID, since)
	if err != nil {
		s.log.Error("loading recent observations failed", zap.String("farm", farmID), zap.Error(err))
		return
	}

	var soil *farm.SoilSample
	if sample, err := s.store.FindLatestSoilSample(farmID); err == nil {
		soil = sample
	}

	for _, sess := range s.store.ListActiveSessions(farmID) {
		recs, err := s.engine.Generate(ctx, f, sess, recent, soil)
		if err != nil {
			if advisor.IsDataIntegrity(err) {
				s.log.Error("classification band gap, skipping session",
					zap.String("farm", farmID),
					zap.String("session", sess.ID),
					zap.Error(err),
				)
				continue
			}
			s.log.Error("recommendation generation failed",
				zap.String("farm", farmID),
				zap.String("session", sess.ID),
				zap.Error(err),
			)
			continue
		}
		s.store.SaveRecommendations(recs)
		s.log.Info("recommendations generated",
			zap.String("farm", farmID),
			zap.String("session", sess.ID),
			zap.Int("count", len(recs)),
		)
	}
}

// FetchMissingHistoricalData backfills observations for recent days that have
// no stored record, pausing between provider calls to respect rate limits.
func (s *Scheduler) FetchMissingHistoricalData() {
	s.log.Info("historical backfill starting", zap.Int("lookbackDays", s.cfg.LookbackDays))

	ctx := context.Background()
	now := s.clock.Now()
	from := now.AddDate(0, 0, -s.cfg.LookbackDays)
	to := now.AddDate(0, 0, -1) // today belongs to the daily fetch

	for _, f := range s.store.ListFarms() {
		for _, date := range s.store.MissingDates(f.ID, from, to) {
			obs, err := s.gateway.FetchHistorical(ctx, f.ID, f.Location, date)
			if err != nil {
				s.log.Error("historical fetch failed",
					zap.String("farm", f.ID),
					zap.Time("date", date),
					zap.Error(err),
				)
			} else if obs != nil {
				s.store.SaveObservation(*obs)
			}

			if s.cfg.Throttle > 0 {
				s.clock.Sleep(s.cfg.Throttle)
			}
		}
	}

	s.log.Info("historical backfill completed")
}
