package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/elonfeng/dailygarden/pkg/corpus"
)

// DefaultHNSearchURL is the Algolia front page query.
const DefaultHNSearchURL = "https://hn.algolia.com/api/v1/search?tags=front_page"

// HNLabel names Hacker News in failure entries.
const HNLabel = "Hacker News"

// HackerNews collects the current front page from the Algolia HN API.
type HackerNews struct {
	client *http.Client
	url    string
	limit  int
}

// NewHackerNews creates a new HN collector. An empty url selects
// DefaultHNSearchURL and limit <= 0 keeps every hit.
func NewHackerNews(url string, limit int) *HackerNews {
	if url == "" {
		url = DefaultHNSearchURL
	}
	return &HackerNews{
		client: newHTTPClient(),
		url:    url,
		limit:  limit,
	}
}

func (h *HackerNews) Name() SourceType { return SourceHackerNews }

func (h *HackerNews) Collect(ctx context.Context, _ time.Time) (Result, error) {
	var page hnSearchResult
	if err := getJSON(ctx, h.client, h.url, &page); err != nil {
		return Result{}, fmt.Errorf("hn front page: %w", err)
	}

	hits := page.Hits
	if h.limit > 0 && len(hits) > h.limit {
		hits = hits[:h.limit]
	}

	stories := make([]corpus.Entry[corpus.Story], 0, len(hits))
	for _, hit := range hits {
		stories = append(stories, corpus.ItemEntry(corpus.Story{
			Title:       hit.Title,
			URL:         hit.URL,
			Points:      hit.Points,
			Author:      hit.Author,
			NumComments: hit.NumComments,
			CreatedAt:   hit.CreatedAt,
			ObjectID:    hit.ObjectID,
		}))
	}
	return Result{Stories: stories}, nil
}

type hnSearchResult struct {
	Hits []hnHit `json:"hits"`
}

type hnHit struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Points      int    `json:"points"`
	Author      string `json:"author"`
	NumComments int    `json:"num_comments"`
	CreatedAt   string `json:"created_at"`
	ObjectID    string `json:"objectID"`
}
