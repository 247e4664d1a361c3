package scheduler

import (
	"errors"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"github.com/i474232898/route-command-engine/internal/route"
	"github.com/i474232898/route-command-engine/internal/routebuilder"
	"github.com/i474232898/route-command-engine/internal/store"
)

// SnapshotStore persists route snapshots.
type SnapshotStore interface {
	SaveSnapshot(snapshot route.Snapshot) error
}

// Scheduler periodically snapshots every route session that changed.
type Scheduler struct {
	scheduler *gocron.Scheduler
	registry  *routebuilder.Registry
	store     SnapshotStore
	interval  time.Duration
	logger    zerolog.Logger
}

// New creates a new Scheduler.
func New(registry *routebuilder.Registry, store SnapshotStore, interval time.Duration, logger zerolog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		registry:  registry,
		store:     store,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	seconds := int(s.interval.Seconds())
	if seconds <= 0 {
		seconds = 60
	}

	_, err := s.scheduler.Every(seconds).Seconds().Do(func() { s.SnapshotAll() })
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// SnapshotAll stores a snapshot of each session whose route changed since its
// last snapshot. It returns the number of snapshots taken.
func (s *Scheduler) SnapshotAll() int {
	s.logger.Debug().Msg("running route snapshot job")

	taken := 0
	for _, b := range s.registry.List() {
		snap, rev, changed := b.Snapshot()
		if !changed {
			continue
		}
		if err := s.store.SaveSnapshot(snap); err != nil {
			if !errors.Is(err, store.ErrStaleRevision) {
				s.logger.Error().Err(err).Str("session", b.ID()).Msg("failed to store route snapshot")
				continue
			}
			// Already stored by an earlier run.
			b.MarkSnapshotted(rev)
			continue
		}
		b.MarkSnapshotted(rev)
		taken++
	}

	s.logger.Debug().Int("snapshots", taken).Msg("completed route snapshot job")
	return taken
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
