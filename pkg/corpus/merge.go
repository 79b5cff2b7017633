package corpus

import (
	"errors"
	"time"
)

// ErrInvalidSnapshot is returned by Merge for a snapshot that cannot be merged.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Default category caps.
const (
	DefaultHNCap    = 200
	DefaultWorldCap = 300
	DefaultLocalCap = 200
)

// Caps bounds the length of each category. Zero or negative values fall
// back to the defaults.
type Caps struct {
	HN    int
	World int
	Local int
}

// DefaultCaps returns the stock category caps.
func DefaultCaps() Caps {
	return Caps{HN: DefaultHNCap, World: DefaultWorldCap, Local: DefaultLocalCap}
}

func (c Caps) normalized() Caps {
	d := DefaultCaps()
	if c.HN <= 0 {
		c.HN = d.HN
	}
	if c.World <= 0 {
		c.World = d.World
	}
	if c.Local <= 0 {
		c.Local = d.Local
	}
	return c
}

// Merge folds snap into existing and returns the new corpus. existing may be
// nil, and a corpus for a different date is ignored, so both behave like the
// first run of the day. Neither input is modified.
func Merge(existing *Corpus, snap *Snapshot, caps Caps) (*Corpus, error) {
	if snap == nil {
		return nil, errors.Join(ErrInvalidSnapshot, errors.New("snapshot is nil"))
	}
	if snap.Date == "" {
		return nil, errors.Join(ErrInvalidSnapshot, errors.New("snapshot has no date"))
	}
	if snap.CollectedAt.IsZero() {
		return nil, errors.Join(ErrInvalidSnapshot, errors.New("snapshot has no collection time"))
	}
	if existing == nil || existing.Date != snap.Date {
		existing = &Corpus{}
	}
	caps = caps.normalized()

	runs := make([]time.Time, 0, len(existing.Runs)+1)
	runs = append(runs, existing.Runs...)
	runs = append(runs, snap.CollectedAt)

	out := &Corpus{
		Date:        snap.Date,
		LastUpdated: snap.CollectedAt,
		Runs:        runs,
		HN: HNSection{
			Items: mergeCategory(existing.HN.Items, snap.HN, EntryKey(StoryKey), caps.HN),
		},
		News: NewsSection{
			World: mergeCategory(existing.News.World, snap.World, EntryKey(HeadlineKey), caps.World),
			Local: mergeCategory(existing.News.Local, snap.Local, EntryKey(HeadlineKey), caps.Local),
		},
		Wiki: existing.Wiki,
		APOD: existing.APOD,
	}
	if !snap.Wiki.IsEmpty() {
		out.Wiki = snap.Wiki
	}
	if !snap.APOD.IsEmpty() {
		out.APOD = snap.APOD
	}
	return out, nil
}

// mergeCategory concatenates old then new, drops later duplicates and keeps
// at most limit entries from the head.
func mergeCategory[T any](old, incoming []T, key KeyFunc[T], limit int) []T {
	all := make([]T, 0, len(old)+len(incoming))
	all = append(all, old...)
	all = append(all, incoming...)
	merged := Dedupe(all, key)
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
