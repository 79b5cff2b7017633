package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/elonfeng/dailygarden/internal/runner"
	"github.com/elonfeng/dailygarden/internal/store"
	"github.com/elonfeng/dailygarden/pkg/report"
	"github.com/elonfeng/dailygarden/pkg/source"
)

// Jobs is the work the scheduler triggers. *runner.Runner implements it.
type Jobs interface {
	Collect(ctx context.Context, now time.Time, only ...source.SourceType) (*runner.CollectResult, error)
	Wrapup(ctx context.Context, now time.Time, opts runner.WrapupOptions) (*report.Wrapup, error)
}

// Scheduler runs periodic collection and the evening wrap-up on cron specs.
type Scheduler struct {
	jobs   Jobs
	cron   *cron.Cron
	loc    *time.Location
	logger zerolog.Logger
	now    func() time.Time
}

// New creates a scheduler. Specs use the standard five-field cron syntax
// and are evaluated in loc. An empty wrapupSpec disables the wrap-up job.
func New(jobs Jobs, collectSpec, wrapupSpec string, loc *time.Location, logger zerolog.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	cl := cronLogger{logger}
	s := &Scheduler{
		jobs: jobs,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		loc:    loc,
		logger: logger,
		now:    time.Now,
	}

	if _, err := s.cron.AddFunc(collectSpec, s.collect); err != nil {
		return nil, fmt.Errorf("schedule collect %q: %w", collectSpec, err)
	}
	if wrapupSpec != "" {
		if _, err := s.cron.AddFunc(wrapupSpec, s.wrapup); err != nil {
			return nil, fmt.Errorf("schedule wrapup %q: %w", wrapupSpec, err)
		}
	}
	return s, nil
}

// Run starts the cron loop and blocks until ctx is cancelled. With
// runOnStart a collection cycle runs immediately.
func (s *Scheduler) Run(ctx context.Context, runOnStart bool) error {
	if runOnStart {
		s.logger.Info().Msg("initial collection")
		s.runCollect(ctx)
	}

	s.cron.Start()
	s.logger.Info().Int("jobs", len(s.cron.Entries())).Times("next", s.Next()).Msg("scheduler running")

	<-ctx.Done()
	// Wait for running jobs to finish.
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("scheduler stopped")
	return ctx.Err()
}

// Next returns the next fire time of every scheduled job.
func (s *Scheduler) Next() []time.Time {
	entries := s.cron.Entries()
	out := make([]time.Time, len(entries))
	now := s.now().In(s.loc)
	for i, e := range entries {
		out[i] = e.Schedule.Next(now)
	}
	return out
}

func (s *Scheduler) collect() { s.runCollect(context.Background()) }

func (s *Scheduler) wrapup() { s.runWrapup(context.Background()) }

func (s *Scheduler) runCollect(ctx context.Context) {
	res, err := s.jobs.Collect(ctx, s.now())
	if err != nil {
		s.logger.Error().Err(err).Msg("scheduled collection failed")
		return
	}
	s.logger.Info().Str("run_id", res.RunID).Str("date", res.Date).Int("runs", res.Runs).Msg("scheduled collection done")
}

func (s *Scheduler) runWrapup(ctx context.Context) {
	w, err := s.jobs.Wrapup(ctx, s.now(), runner.WrapupOptions{})
	switch {
	case errors.Is(err, runner.ErrNotWrapupHour):
		s.logger.Debug().Msg("wrap-up skipped outside its hour")
	case errors.Is(err, store.ErrNotFound):
		s.logger.Warn().Msg("wrap-up skipped, nothing collected today")
	case err != nil:
		s.logger.Error().Err(err).Msg("scheduled wrap-up failed")
	default:
		s.logger.Info().Str("date", w.Date).Int("stories", len(w.Stories)).Msg("scheduled wrap-up done")
	}
}

// cronLogger routes cron's own logging through zerolog.
type cronLogger struct {
	l zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
