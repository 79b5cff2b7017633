// Package runner ties collection, merging, storage, rendering and delivery
// together. The scheduler, the HTTP API and the CLI all drive one Runner.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/elonfeng/dailygarden/internal/store"
	"github.com/elonfeng/dailygarden/pkg/alert"
	"github.com/elonfeng/dailygarden/pkg/corpus"
	"github.com/elonfeng/dailygarden/pkg/report"
	"github.com/elonfeng/dailygarden/pkg/source"
)

// Artifact names saved next to each corpus.
const (
	ReportArtifact = "report.md"
	WrapupArtifact = "wrapup.html"
)

// Options configures a Runner.
type Options struct {
	Location       *time.Location // decides the corpus date
	WrapupLocation *time.Location // decides the wrap-up gate
	WrapupHour     int
	Caps           corpus.Caps
	Report         report.Options
	Wrapup         report.WrapupOptions
}

// Runner performs collection cycles and wrap-ups against one store.
type Runner struct {
	store     store.Store
	collector *source.Collector
	alerts    *alert.Manager
	opts      Options
	logger    zerolog.Logger

	// mu serializes load-merge-save within this process.
	mu sync.Mutex
}

// New creates a runner. alerts may be nil when nothing is delivered.
func New(s store.Store, c *source.Collector, alerts *alert.Manager, opts Options, logger zerolog.Logger) *Runner {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.WrapupLocation == nil {
		opts.WrapupLocation = opts.Location
	}
	if alerts == nil {
		alerts = alert.NewManager(nil)
	}
	return &Runner{
		store:     s,
		collector: c,
		alerts:    alerts,
		opts:      opts,
		logger:    logger,
	}
}

// Date returns the corpus date for instant t.
func (r *Runner) Date(t time.Time) string {
	return t.In(r.opts.Location).Format(corpus.DateLayout)
}

// CollectResult describes one finished collection cycle.
type CollectResult struct {
	RunID    string              `json:"run_id"`
	Date     string              `json:"date"`
	Runs     int                 `json:"runs"`
	Sources  []source.SourceType `json:"sources"`
	Counts   map[string]int      `json:"counts"`
	Failures []string            `json:"failures,omitempty"`
	Corpus   *corpus.Corpus      `json:"-"`
}

// Collect runs one cycle: load today's corpus, collect a snapshot, merge,
// save, and re-render the daily report. only restricts the sources used;
// empty means all.
func (r *Runner) Collect(ctx context.Context, now time.Time, only ...source.SourceType) (*CollectResult, error) {
	runID := uuid.NewString()
	log := r.logger.With().Str("run_id", runID).Logger()
	now = now.In(r.opts.Location)
	date := now.Format(corpus.DateLayout)

	collector := r.collector
	if len(only) > 0 {
		collector = collector.Only(only...)
	}

	// Network first, outside the lock.
	snap, err := collector.Collect(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("collect %s: %w", date, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.loadOrEmpty(ctx, date, log)
	merged, err := corpus.Merge(existing, snap, r.opts.Caps)
	if err != nil {
		return nil, fmt.Errorf("merge %s: %w", date, err)
	}
	if err := r.store.Save(ctx, merged); err != nil {
		return nil, err
	}

	md := report.Markdown(merged, r.opts.Report)
	if err := r.store.SaveArtifact(ctx, date, ReportArtifact, []byte(md)); err != nil {
		// The corpus is already saved; the report is rebuilt next cycle.
		log.Warn().Err(err).Str("date", date).Msg("save report failed")
	}

	res := &CollectResult{
		RunID:   runID,
		Date:    date,
		Runs:    len(merged.Runs),
		Sources: collector.Sources(),
		Corpus:  merged,
		Counts: map[string]int{
			string(corpus.CategoryHN):    merged.Len(corpus.CategoryHN),
			string(corpus.CategoryWorld): merged.Len(corpus.CategoryWorld),
			string(corpus.CategoryLocal): merged.Len(corpus.CategoryLocal),
		},
	}
	for _, f := range snapshotFailures(snap) {
		res.Failures = append(res.Failures, f.Source)
	}

	log.Info().
		Str("date", date).
		Int("runs", res.Runs).
		Int("hn", res.Counts[string(corpus.CategoryHN)]).
		Int("world", res.Counts[string(corpus.CategoryWorld)]).
		Int("local", res.Counts[string(corpus.CategoryLocal)]).
		Int("failures", len(res.Failures)).
		Msg("corpus updated")
	return res, nil
}

// loadOrEmpty treats a missing, unreadable or undecodable corpus as the
// first run of the day.
func (r *Runner) loadOrEmpty(ctx context.Context, date string, log zerolog.Logger) *corpus.Corpus {
	c, err := r.store.Load(ctx, date)
	switch {
	case err == nil:
		return c
	case errors.Is(err, store.ErrNotFound):
		log.Debug().Str("date", date).Msg("no corpus yet, starting fresh")
	default:
		log.Warn().Err(err).Str("date", date).Msg("existing corpus unusable, starting fresh")
	}
	return nil
}

func snapshotFailures(s *corpus.Snapshot) []corpus.FetchError {
	var out []corpus.FetchError
	out = append(out, corpus.Failures(s.HN)...)
	out = append(out, corpus.Failures(s.World)...)
	out = append(out, corpus.Failures(s.Local)...)
	return out
}

// Corpus returns the stored corpus for date.
func (r *Runner) Corpus(ctx context.Context, date string) (*corpus.Corpus, error) {
	return r.store.Load(ctx, date)
}

// Dates lists stored dates, newest first.
func (r *Runner) Dates(ctx context.Context) ([]string, error) {
	return r.store.Dates(ctx)
}

// Report renders the Markdown report for date.
func (r *Runner) Report(ctx context.Context, date string) (string, error) {
	c, err := r.store.Load(ctx, date)
	if err != nil {
		return "", err
	}
	return report.Markdown(c, r.opts.Report), nil
}

// Summary returns the daily summary of date in at most n sentences.
func (r *Runner) Summary(ctx context.Context, date string, n int) (string, error) {
	c, err := r.store.Load(ctx, date)
	if err != nil {
		return "", err
	}
	if n <= 0 {
		n = r.opts.Report.SummarySentences
	}
	return report.DailySummary(c, n), nil
}

// ErrNotWrapupHour is returned by Wrapup outside the configured hour.
var ErrNotWrapupHour = errors.New("not wrap-up hour")

// WrapupOptions controls a single wrap-up call.
type WrapupOptions struct {
	Force  bool // ignore the hour gate
	DryRun bool // build and save but do not deliver
}

// Wrapup builds the evening digest for the day containing now in the
// wrap-up timezone and delivers it to every notifier. It returns
// ErrNotWrapupHour outside the gate and store.ErrNotFound when nothing was
// collected that day.
func (r *Runner) Wrapup(ctx context.Context, now time.Time, opts WrapupOptions) (*report.Wrapup, error) {
	local := now.In(r.opts.WrapupLocation)
	if !opts.Force && local.Hour() != r.opts.WrapupHour {
		r.logger.Debug().Int("hour", local.Hour()).Int("want", r.opts.WrapupHour).Msg("skipping wrap-up")
		return nil, ErrNotWrapupHour
	}

	// The wrap-up covers the day as seen from its own timezone.
	date := local.Format(corpus.DateLayout)
	c, err := r.store.Load(ctx, date)
	if err != nil {
		return nil, err
	}

	w, err := report.BuildWrapup(c, r.opts.Wrapup)
	if err != nil {
		return nil, err
	}
	if err := r.store.SaveArtifact(ctx, date, WrapupArtifact, []byte(w.HTML)); err != nil {
		r.logger.Warn().Err(err).Str("date", date).Msg("save wrap-up failed")
	}

	if opts.DryRun || !r.alerts.HasNotifiers() {
		r.logger.Info().Str("date", date).Bool("dry_run", opts.DryRun).Msg("wrap-up built, not delivered")
		return w, nil
	}

	n := &alert.Notification{
		Title:   w.Subject,
		Date:    w.Date,
		Summary: w.Summary,
		HTML:    w.HTML,
		Stories: w.Stories,
	}
	if err := r.alerts.Broadcast(ctx, n); err != nil {
		return w, fmt.Errorf("deliver wrap-up %s: %w", date, err)
	}
	r.logger.Info().Str("date", date).Strs("notifiers", r.alerts.Names()).Msg("wrap-up delivered")
	return w, nil
}
