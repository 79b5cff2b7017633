package corpus

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout formats the calendar date a corpus belongs to.
const DateLayout = "2006-01-02"

// Category names a deduplicated, capped list inside a corpus.
type Category string

const (
	CategoryHN    Category = "hn"
	CategoryWorld Category = "world"
	CategoryLocal Category = "local"
)

// Story is a discussion-site (Hacker News) item.
type Story struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Points      int    `json:"points"`
	Author      string `json:"author"`
	NumComments int    `json:"num_comments"`
	CreatedAt   string `json:"created_at"`
	ObjectID    string `json:"object_id"`
}

// UnmarshalJSON accepts the Algolia spelling "objectID" as well as "object_id".
func (s *Story) UnmarshalJSON(data []byte) error {
	type plain Story
	var aux struct {
		plain
		LegacyObjectID string `json:"objectID"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*s = Story(aux.plain)
	if s.ObjectID == "" {
		s.ObjectID = aux.LegacyObjectID
	}
	return nil
}

// Link returns the story URL, falling back to its discussion page.
func (s Story) Link() string {
	if s.URL != "" {
		return s.URL
	}
	return "https://news.ycombinator.com/item?id=" + s.ObjectID
}

// Headline is a news item from a world or local feed.
type Headline struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	Published string `json:"published"`
	Source    string `json:"source"`
}

// FetchError marks a source that failed during a collection cycle.
type FetchError struct {
	Source  string
	Message string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s", e.Source, e.Message)
}

// Entry is one element of a category: either an item or a fetch failure, never both.
type Entry[T any] struct {
	Item T
	Err  *FetchError
}

// ItemEntry wraps a normal item.
func ItemEntry[T any](item T) Entry[T] {
	return Entry[T]{Item: item}
}

// ErrorEntry wraps a fetch failure.
func ErrorEntry[T any](source, message string) Entry[T] {
	return Entry[T]{Err: &FetchError{Source: source, Message: message}}
}

// IsError reports whether the entry is a fetch failure.
func (e Entry[T]) IsError() bool { return e.Err != nil }

// errorDoc is the document shape of a failure entry.
type errorDoc struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	Published string `json:"published"`
	Source    string `json:"source"`
	Error     string `json:"error"`
}

func (e Entry[T]) MarshalJSON() ([]byte, error) {
	if e.IsError() {
		return json.Marshal(errorDoc{
			Title:  fmt.Sprintf("(feed error from %s)", e.Err.Source),
			Source: e.Err.Source,
			Error:  e.Err.Message,
		})
	}
	return json.Marshal(e.Item)
}

func (e *Entry[T]) UnmarshalJSON(data []byte) error {
	var head struct {
		Source string `json:"source"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	// Only a non-empty error marks a failure placeholder.
	if head.Error != "" {
		*e = ErrorEntry[T](head.Source, head.Error)
		return nil
	}
	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return err
	}
	*e = ItemEntry(item)
	return nil
}

// Items returns the non-error items of entries in order.
func Items[T any](entries []Entry[T]) []T {
	out := make([]T, 0, len(entries))
	for _, e := range entries {
		if !e.IsError() {
			out = append(out, e.Item)
		}
	}
	return out
}

// Failures returns the fetch failures recorded in entries.
func Failures[T any](entries []Entry[T]) []FetchError {
	var out []FetchError
	for _, e := range entries {
		if e.IsError() {
			out = append(out, *e.Err)
		}
	}
	return out
}

// Event is one Wikipedia "on this day" entry.
type Event struct {
	Year  int      `json:"year"`
	Text  string   `json:"text"`
	Pages []string `json:"pages"`
}

// RandomArticle is the Wikipedia random page summary.
type RandomArticle struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Extract     string `json:"extract"`
	ContentURLs string `json:"content_urls"`
}

// Almanac holds the Wikipedia facts of the day.
type Almanac struct {
	Today  []Event       `json:"today"`
	Random RandomArticle `json:"random"`
}

// IsEmpty reports whether the almanac carries nothing worth keeping.
func (a Almanac) IsEmpty() bool {
	return len(a.Today) == 0 && a.Random.Title == ""
}

// APODEntry is the astronomy picture of the day.
type APODEntry struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	Summary   string `json:"summary"`
	Published string `json:"published"`
}

// ImageOfDay wraps an optional APOD entry.
type ImageOfDay struct {
	Entry *APODEntry `json:"entry"`
}

// IsEmpty reports whether no image was collected.
func (i ImageOfDay) IsEmpty() bool { return i.Entry == nil }

// Snapshot is the result of one collection cycle.
type Snapshot struct {
	Date        string
	CollectedAt time.Time
	HN          []Entry[Story]
	World       []Entry[Headline]
	Local       []Entry[Headline]
	Wiki        Almanac
	APOD        ImageOfDay
}

// HNSection is the discussion-site part of a corpus document.
type HNSection struct {
	Items []Entry[Story] `json:"items"`
}

// NewsSection holds world and local headlines.
type NewsSection struct {
	World []Entry[Headline] `json:"world"`
	Local []Entry[Headline] `json:"local"`
}

// Corpus is the accumulated state for one calendar date.
type Corpus struct {
	Date        string      `json:"date"`
	LastUpdated time.Time   `json:"last_updated"`
	Runs        []time.Time `json:"runs"`
	HN          HNSection   `json:"hn"`
	News        NewsSection `json:"news"`
	Wiki        Almanac     `json:"wiki"`
	APOD        ImageOfDay  `json:"apod"`
}

// Len returns the number of entries held in category c.
func (c *Corpus) Len(cat Category) int {
	switch cat {
	case CategoryHN:
		return len(c.HN.Items)
	case CategoryWorld:
		return len(c.News.World)
	case CategoryLocal:
		return len(c.News.Local)
	}
	return 0
}
