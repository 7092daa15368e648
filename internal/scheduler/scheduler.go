package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/ptarver/homedash/internal/dashboard"
	"github.com/ptarver/homedash/internal/store"
)

// Scheduler periodically warms the dashboard caches so the UI's auto-refresh
// always hits warm data. The cadence matches the cache TTL; the cache gate
// still decides whether any network call actually happens.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   *dashboard.Service
	settings  *store.FileStore
	interval  time.Duration
}

// New creates a Scheduler reading the current city and tickers from the
// store on every tick, so settings changes take effect without a restart.
func New(service *dashboard.Service, settings *store.FileStore, interval time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		service:   service,
		settings:  settings,
		interval:  interval,
	}
}

// Start schedules the periodic refresh job and starts the scheduler.
func (s *Scheduler) Start() error {
	seconds := int(s.interval.Seconds())
	if seconds <= 0 {
		seconds = 60
	}

	_, err := s.scheduler.Every(seconds).Seconds().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		settings := s.settings.Settings()
		log.Printf("scheduler: refreshing dashboard for %q and %v", settings.City, settings.Tickers)
		s.service.Refresh(ctx, settings.City, settings.Units, settings.Tickers)
	})
	if err != nil {
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
