package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/elonfeng/dailygarden/pkg/corpus"
)

// DefaultAPODURL is NASA's astronomy picture of the day feed.
const DefaultAPODURL = "https://apod.nasa.gov/apod.rss"

// APOD collects the newest astronomy picture of the day.
type APOD struct {
	client *http.Client
	url    string
}

// NewAPOD creates a new APOD collector.
func NewAPOD(url string) *APOD {
	if url == "" {
		url = DefaultAPODURL
	}
	return &APOD{
		client: newHTTPClient(),
		url:    url,
	}
}

func (a *APOD) Name() SourceType { return SourceAPOD }

// Collect returns the first feed entry. An empty feed yields an empty image.
func (a *APOD) Collect(ctx context.Context, _ time.Time) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url, nil)
	if err != nil {
		return Result{}, fmt.Errorf("create apod request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("fetch apod: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("apod status %d", resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("parse apod: %w", err)
	}
	if len(feed.Items) == 0 {
		return Result{}, nil
	}

	best := feed.Items[0]
	return Result{Image: corpus.ImageOfDay{Entry: &corpus.APODEntry{
		Title:     best.Title,
		Link:      best.Link,
		Summary:   best.Description,
		Published: best.Published,
	}}}, nil
}
