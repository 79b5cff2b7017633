package source

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/elonfeng/dailygarden/pkg/corpus"
)

const defaultConcurrency = 4

// Collector runs a set of sources for one cycle and assembles their results
// into a snapshot. Sources run concurrently but are folded in the order they
// were registered, so the snapshot does not depend on network timing.
type Collector struct {
	sources     []Source
	logger      zerolog.Logger
	concurrency int
}

// NewCollector creates a collector over sources.
func NewCollector(logger zerolog.Logger, sources ...Source) *Collector {
	return &Collector{
		sources:     sources,
		logger:      logger,
		concurrency: defaultConcurrency,
	}
}

// Sources lists the registered source types in order.
func (c *Collector) Sources() []SourceType {
	out := make([]SourceType, len(c.sources))
	for i, s := range c.sources {
		out[i] = s.Name()
	}
	return out
}

// Only returns a collector restricted to the given source types.
func (c *Collector) Only(types ...SourceType) *Collector {
	want := make(map[SourceType]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	var kept []Source
	for _, s := range c.sources {
		if want[s.Name()] {
			kept = append(kept, s)
		}
	}
	return &Collector{sources: kept, logger: c.logger, concurrency: c.concurrency}
}

// Collect runs every source once. now is the collection time in the local
// timezone and fixes the snapshot date. Source failures are recorded in the
// snapshot; only cancellation of ctx fails the cycle.
func (c *Collector) Collect(ctx context.Context, now time.Time) (*corpus.Snapshot, error) {
	var (
		results = make([]Result, len(c.sources))
		errs    = make([]error, len(c.sources))
		wg      sync.WaitGroup
		sem     = make(chan struct{}, c.concurrency)
	)

	for i, s := range c.sources {
		wg.Add(1)
		go func(i int, s Source) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i], errs[i] = s.Collect(ctx, now)
		}(i, s)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("collect sources: %w", err)
	}

	snap := &corpus.Snapshot{
		Date:        now.Format(corpus.DateLayout),
		CollectedAt: now,
	}
	for i, s := range c.sources {
		res, err := results[i], errs[i]
		log := c.logger.With().Str("source", string(s.Name())).Logger()
		if err != nil {
			log.Warn().Err(err).Msg("source failed")
		}

		switch s.Name() {
		case SourceHackerNews:
			snap.HN = append(snap.HN, res.Stories...)
			if err != nil && len(res.Stories) == 0 {
				snap.HN = append(snap.HN, corpus.ErrorEntry[corpus.Story](HNLabel, err.Error()))
			}
			log.Debug().Int("entries", len(res.Stories)).Msg("source collected")
		case SourceWorld, SourceLocal:
			entries := res.Headlines
			if err != nil && len(entries) == 0 {
				entries = []corpus.Entry[corpus.Headline]{
					corpus.ErrorEntry[corpus.Headline](string(s.Name())+" news", err.Error()),
				}
			}
			if s.Name() == SourceWorld {
				snap.World = append(snap.World, entries...)
			} else {
				snap.Local = append(snap.Local, entries...)
			}
			log.Debug().
				Int("entries", len(entries)).
				Int("failed_feeds", len(corpus.Failures(entries))).
				Msg("source collected")
		case SourceWiki:
			if !res.Almanac.IsEmpty() {
				snap.Wiki = res.Almanac
			}
		case SourceAPOD:
			if !res.Image.IsEmpty() {
				snap.APOD = res.Image
			}
		default:
			log.Warn().Msg("unknown source type, result dropped")
		}
	}

	c.logger.Info().
		Str("date", snap.Date).
		Int("hn", len(snap.HN)).
		Int("world", len(snap.World)).
		Int("local", len(snap.Local)).
		Bool("wiki", !snap.Wiki.IsEmpty()).
		Bool("apod", !snap.APOD.IsEmpty()).
		Msg("snapshot collected")
	return snap, nil
}
