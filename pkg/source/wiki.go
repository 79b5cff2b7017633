package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/elonfeng/dailygarden/pkg/corpus"
)

// DefaultWikiBaseURL is the Wikipedia REST API root.
const DefaultWikiBaseURL = "https://en.wikipedia.org/api/rest_v1"

// DefaultWikiEvents is how many "on this day" events are kept.
const DefaultWikiEvents = 10

// Wikipedia collects the "on this day" events for the collection date and
// one random article summary.
type Wikipedia struct {
	client  *http.Client
	baseURL string
	events  int
}

// NewWikipedia creates a new Wikipedia collector.
func NewWikipedia(baseURL string, events int) *Wikipedia {
	if baseURL == "" {
		baseURL = DefaultWikiBaseURL
	}
	if events <= 0 {
		events = DefaultWikiEvents
	}
	return &Wikipedia{
		client:  newHTTPClient(),
		baseURL: baseURL,
		events:  events,
	}
}

func (w *Wikipedia) Name() SourceType { return SourceWiki }

// Collect fetches both halves independently. Whatever succeeded is returned
// alongside the joined errors of the parts that did not.
func (w *Wikipedia) Collect(ctx context.Context, now time.Time) (Result, error) {
	var (
		almanac corpus.Almanac
		errs    []error
	)

	events, err := w.onThisDay(ctx, now)
	if err != nil {
		errs = append(errs, err)
	}
	almanac.Today = events

	random, err := w.random(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	almanac.Random = random

	return Result{Almanac: almanac}, errors.Join(errs...)
}

func (w *Wikipedia) onThisDay(ctx context.Context, now time.Time) ([]corpus.Event, error) {
	url := fmt.Sprintf("%s/feed/onthisday/events/%02d/%02d", w.baseURL, int(now.Month()), now.Day())

	var body struct {
		Events []struct {
			Year  int    `json:"year"`
			Text  string `json:"text"`
			Pages []struct {
				Titles struct {
					Normalized string `json:"normalized"`
				} `json:"titles"`
			} `json:"pages"`
		} `json:"events"`
	}
	if err := getJSON(ctx, w.client, url, &body); err != nil {
		return nil, fmt.Errorf("wiki on this day: %w", err)
	}

	raw := body.Events
	if len(raw) > w.events {
		raw = raw[:w.events]
	}
	events := make([]corpus.Event, 0, len(raw))
	for _, e := range raw {
		pages := make([]string, 0, len(e.Pages))
		for _, p := range e.Pages {
			pages = append(pages, p.Titles.Normalized)
		}
		events = append(events, corpus.Event{Year: e.Year, Text: e.Text, Pages: pages})
	}
	return events, nil
}

func (w *Wikipedia) random(ctx context.Context) (corpus.RandomArticle, error) {
	var body struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Extract     string `json:"extract"`
		ContentURLs struct {
			Desktop struct {
				Page string `json:"page"`
			} `json:"desktop"`
		} `json:"content_urls"`
	}
	if err := getJSON(ctx, w.client, w.baseURL+"/page/random/summary", &body); err != nil {
		return corpus.RandomArticle{}, fmt.Errorf("wiki random article: %w", err)
	}
	return corpus.RandomArticle{
		Title:       body.Title,
		Description: body.Description,
		Extract:     body.Extract,
		ContentURLs: body.ContentURLs.Desktop.Page,
	}, nil
}
