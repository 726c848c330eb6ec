// Package scheduler runs the background cache maintenance jobs.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/vainnor/f1-stats/config"
	"github.com/vainnor/f1-stats/services/ergast"
	"github.com/vainnor/f1-stats/table"
)

type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// Season is the set of season-level fetches a warm run repeats so the
// cache holds fresh copies.
type Season interface {
	Schedule(ctx context.Context, year int) ([]ergast.Event, error)
	DriverStandings(ctx context.Context, year int) (table.Table, error)
	ConstructorStandings(ctx context.Context, year int) (table.Table, error)
	Drivers(ctx context.Context, year int) (table.Table, error)
	Constructors(ctx context.Context, year int) (table.Table, error)
}

type Scheduler struct {
	cron   *cron.Cron
	pruner Pruner
	season Season
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// New registers the prune job and, when a warm schedule is configured, the
// warm job. An empty schedule disables its job.
func New(cfg config.Config, pruner Pruner, season Season, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   cron.New(),
		pruner: pruner,
		season: season,
		ttl:    cfg.CacheTTL,
		logger: logger,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}

	if cfg.CachePruneSchedule != "" {
		if _, err := s.cron.AddFunc(cfg.CachePruneSchedule, s.runPrune); err != nil {
			cancel()
			return nil, errors.Wrapf(err, "invalid CACHE_PRUNE_SCHEDULE %q", cfg.CachePruneSchedule)
		}
	}
	if cfg.CacheWarmSchedule != "" && season != nil {
		if _, err := s.cron.AddFunc(cfg.CacheWarmSchedule, s.runWarm); err != nil {
			cancel()
			return nil, errors.Wrapf(err, "invalid CACHE_WARM_SCHEDULE %q", cfg.CacheWarmSchedule)
		}
	}
	return s, nil
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int { return len(s.cron.Entries()) }

func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", "jobs", s.Jobs())
	s.cron.Start()
}

// Stop cancels running jobs and waits for them until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler jobs still running at shutdown")
	}
}

// Prune deletes cache entries older than the TTL. A TTL of zero keeps
// entries forever, so nothing is pruned.
func (s *Scheduler) Prune(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	n, err := s.pruner.Prune(ctx, s.now().Add(-s.ttl))
	if err != nil {
		return 0, errors.Wrap(err, "pruning cache")
	}
	return n, nil
}

// Warm refetches the season-level tables of year. Every fetch is attempted
// and the first failure is returned.
func (s *Scheduler) Warm(ctx context.Context, year int) error {
	fetches := []struct {
		name string
		run  func() error
	}{
		{"schedule", func() error { _, err := s.season.Schedule(ctx, year); return err }},
		{"driver standings", func() error { _, err := s.season.DriverStandings(ctx, year); return err }},
		{"constructor standings", func() error { _, err := s.season.ConstructorStandings(ctx, year); return err }},
		{"drivers", func() error { _, err := s.season.Drivers(ctx, year); return err }},
		{"constructors", func() error { _, err := s.season.Constructors(ctx, year); return err }},
	}
	var first error
	for _, f := range fetches {
		if err := f.run(); err != nil {
			s.logger.Warn("cache warm fetch failed", "year", year, "fetch", f.name, "error", err)
			if first == nil {
				first = errors.Wrapf(err, "warming %s for %d", f.name, year)
			}
		}
	}
	return first
}

func (s *Scheduler) runPrune() {
	n, err := s.Prune(s.ctx)
	if err != nil {
		s.logger.Error("cache prune failed", "error", err)
		return
	}
	s.logger.Info("pruned cache", "removed", n)
}

func (s *Scheduler) runWarm() {
	year := s.now().Year()
	if err := s.Warm(s.ctx, year); err != nil {
		s.logger.Error("cache warm failed", "year", year, "error", err)
		return
	}
	s.logger.Info("warmed cache", "year", year)
}
