package scheduler

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/elonfeng/dailygarden/internal/runner"
	"github.com/elonfeng/dailygarden/internal/store"
	"github.com/elonfeng/dailygarden/pkg/report"
	"github.com/elonfeng/dailygarden/pkg/source"
)

type fakeJobs struct {
	mu         sync.Mutex
	collects   []time.Time
	wrapups    []runner.WrapupOptions
	wrapupErr  error
	collectErr error
}

func (f *fakeJobs) Collect(_ context.Context, now time.Time, _ ...source.SourceType) (*runner.CollectResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collects = append(f.collects, now)
	if f.collectErr != nil {
		return nil, f.collectErr
	}
	return &runner.CollectResult{RunID: "run", Date: now.Format("2006-01-02"), Runs: len(f.collects)}, nil
}

func (f *fakeJobs) Wrapup(_ context.Context, now time.Time, opts runner.WrapupOptions) (*report.Wrapup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wrapups = append(f.wrapups, opts)
	if f.wrapupErr != nil {
		return nil, f.wrapupErr
	}
	return &report.Wrapup{Date: now.Format("2006-01-02")}, nil
}

func TestNewRejectsBadSpecs(t *testing.T) {
	if _, err := New(&fakeJobs{}, "not a spec", "", nil, zerolog.Nop()); err == nil {
		t.Error("expected error for bad collect spec")
	}
	if _, err := New(&fakeJobs{}, "0 * * * *", "99 99 * * *", nil, zerolog.Nop()); err == nil {
		t.Error("expected error for bad wrapup spec")
	}
}

func TestNextUsesLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	s, err := New(&fakeJobs{}, "0 * * * *", "0 22 * * *", ny, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.now = func() time.Time { return time.Date(2025, 6, 1, 16, 30, 0, 0, time.UTC) }

	next := s.Next()
	if len(next) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(next))
	}
	if want := time.Date(2025, 6, 1, 17, 0, 0, 0, time.UTC); !next[0].Equal(want) {
		t.Errorf("next collect = %s, want %s", next[0], want)
	}
	// 22:00 EDT is 02:00 UTC the next day.
	if want := time.Date(2025, 6, 2, 2, 0, 0, 0, time.UTC); !next[1].Equal(want) {
		t.Errorf("next wrapup = %s, want %s", next[1], want)
	}
}

func TestWrapupDisabled(t *testing.T) {
	s, err := New(&fakeJobs{}, "@hourly", "", nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if n := len(s.Next()); n != 1 {
		t.Errorf("expected only the collect job, got %d", n)
	}
}

func TestJobsCallRunner(t *testing.T) {
	jobs := &fakeJobs{}
	s, err := New(jobs, "@hourly", "0 22 * * *", time.UTC, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	fixed := time.Date(2025, 3, 14, 22, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	s.collect()
	s.wrapup()

	if len(jobs.collects) != 1 || !jobs.collects[0].Equal(fixed) {
		t.Errorf("collects = %v", jobs.collects)
	}
	if len(jobs.wrapups) != 1 || jobs.wrapups[0].Force || jobs.wrapups[0].DryRun {
		t.Errorf("scheduled wrap-ups must be gated and delivered: %+v", jobs.wrapups)
	}

	// Failures are logged, never fatal.
	jobs.collectErr = errors.New("disk full")
	s.collect()
	for _, err := range []error{runner.ErrNotWrapupHour, store.ErrNotFound, errors.New("smtp down")} {
		jobs.wrapupErr = err
		s.wrapup()
	}
	if len(jobs.wrapups) != 4 {
		t.Errorf("wrapups = %d, want 4", len(jobs.wrapups))
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	jobs := &fakeJobs{}
	var logs bytes.Buffer
	s, err := New(jobs, "@hourly", "", time.UTC, zerolog.New(&logs).Level(zerolog.InfoLevel))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, true) }()

	deadline := time.After(2 * time.Second)
	for {
		jobs.mu.Lock()
		n := len(jobs.collects)
		jobs.mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("initial collection did not run")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
	if !strings.Contains(logs.String(), `"next":["`) {
		t.Errorf("scheduler did not log its next fire times:\n%s", logs.String())
	}
}
